// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Command server runs the Expo synchronization engine: it mirrors
// ticket state from the upstream KOT system, serves the display API,
// and pushes live updates to connected kitchen displays.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expokds/expo/internal/api"
	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/dispatch"
	"github.com/expokds/expo/internal/engine"
	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/sla"
	"github.com/expokds/expo/internal/supervisor"
	syncpkg "github.com/expokds/expo/internal/sync"
	"github.com/expokds/expo/internal/websocket"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("expo %s\n", version)
		return
	}
	if *configPath != "" {
		os.Setenv("EXPO_CONFIG_PATH", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().Str("version", version).Msg("Expo starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Expo terminated")
	}
	logging.Info().Msg("Expo stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	loop := engine.NewLoop(engine.DefaultQueueSize)
	hub := websocket.NewHub()
	loop.OnUpdate(hub.BroadcastSnapshot)

	remote := syncpkg.NewRemoteClient(cfg.Remote)
	dispatcher := dispatch.NewDispatcher(remote, loop)

	tree := supervisor.NewTree(slog.Default(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(loop)
	tree.AddSyncService(hub)

	monitor := sla.NewMonitor(loop, cfg.SLA)
	monitor.OnBreach(hub.BroadcastBreach)
	tree.AddSyncService(monitor)

	var syncStatus api.SyncStatus
	if cfg.Sync.Enabled {
		poller := syncpkg.NewPoller(remote, loop, cfg.Sync.Interval)
		tree.AddSyncService(poller)
		syncStatus = poller
	}

	var scopes api.ScopeController
	var embedded *syncpkg.EmbeddedServer
	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			srv, err := syncpkg.NewEmbeddedServer(cfg.NATS)
			if err != nil {
				return fmt.Errorf("start embedded broker: %w", err)
			}
			embedded = srv
			url = srv.ClientURL()
		}

		subscriber, err := syncpkg.NewNATSSubscriber(url, syncpkg.NewWatermillLogger())
		if err != nil {
			return fmt.Errorf("connect push events: %w", err)
		}
		defer subscriber.Close()

		manager := syncpkg.NewSubscriptionManager(subscriber, loop, cfg.Scope)
		tree.AddSyncService(manager)
		scopes = manager
	}

	handler := api.NewHandler(loop, dispatcher, scopes, syncStatus, hub)
	router := api.NewRouter(handler, cfg.Server)
	tree.AddAPIService(api.NewServer(router, cfg.Server))

	err := tree.Serve(ctx)

	if embedded != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := embedded.Shutdown(shutdownCtx); serr != nil {
			logging.Err(serr).Msg("Embedded broker shutdown failed")
		}
	}
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within timeout")
	}
	return err
}
