// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/logging"
)

// NewNATSSubscriber creates a Watermill subscriber over core NATS.
// Push events are fire-and-forget broadcasts; the snapshot poller is
// the catch-up path for anything missed while disconnected, so durable
// JetStream consumption is not needed.
func NewNATSSubscriber(url string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Err(err).Msg("Push event connection lost")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("Push event connection restored")
		}),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create push event subscriber: %w", err)
	}
	return sub, nil
}

// EmbeddedServer runs an in-process NATS server for standalone
// deployments where no external broker exists.
type EmbeddedServer struct {
	server *server.Server
}

// NewEmbeddedServer starts an embedded NATS server and waits for it to
// accept connections.
func NewEmbeddedServer(cfg config.NATS) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "expo-events",
		Host:       "127.0.0.1",
		Port:       -1, // random free port
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded broker: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded broker not ready within timeout")
	}

	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded broker started")
	return &EmbeddedServer{server: ns}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// Shutdown stops the server, waiting for completion or ctx expiry.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
