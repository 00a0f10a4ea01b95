// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/logging"
)

// Server wraps the HTTP listener as a supervisable service.
type Server struct {
	srv *http.Server
}

// NewServer builds the listener around the assembled router.
func NewServer(handler http.Handler, cfg config.Server) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Timeout,
			// No WriteTimeout: it would sever long-lived WebSocket
			// connections served through the same listener.
			IdleTimeout: 120 * time.Second,
		},
	}
}

// Serve listens until the context is canceled, then drains in-flight
// requests. Implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Msg("HTTP server shutdown failed")
		}
		logging.Info().Msg("HTTP server stopped")
		return ctx.Err()
	}
}
