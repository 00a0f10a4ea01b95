// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package api exposes the display-facing HTTP surface: ticket queries,
// bump commands, scope control, health, metrics, and the WebSocket
// upgrade.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/expokds/expo/internal/config"
)

// NewRouter assembles the full route tree around a handler set.
func NewRouter(h *Handler, cfg config.Server) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))

		r.Get("/tickets", h.Tickets)
		r.Post("/tickets/{id}/state", h.AdvanceTicket)
		r.Post("/tickets/{id}/items/{ref}/state", h.AdvanceItem)

		r.Get("/scope", h.GetScope)
		r.Put("/scope", h.PutScope)

		r.Get("/ws", h.WebSocket)
	})

	return r
}
