// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package metrics exposes Prometheus instrumentation for the sync
// engine: event throughput, dedup drops, bucket sizes, SLA breaches,
// command fallbacks, and websocket fan-out.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed counts reconciled events by type and outcome.
	// Outcomes: applied, ignored, malformed.
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_events_processed_total",
			Help: "Total ticket events processed by the reconciliation engine",
		},
		[]string{"type", "outcome"},
	)

	// DuplicateEvents counts push events dropped by the dedup window.
	DuplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_duplicate_events_total",
			Help: "Total push events dropped as duplicates",
		},
	)

	// ScopeFilteredEvents counts push events dropped by scope filtering.
	ScopeFilteredEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_scope_filtered_events_total",
			Help: "Total push events dropped because they named a different branch/kitchen/station",
		},
	)

	// NonCanonicalStates counts status tokens the normalizer passed
	// through verbatim. A nonzero rate usually means a new upstream
	// synonym needs a table entry.
	NonCanonicalStates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_non_canonical_states_total",
			Help: "Total status tokens that did not match the synonym table",
		},
	)

	// BucketSize tracks live tickets per display bucket.
	BucketSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "expo_bucket_tickets",
			Help: "Current number of tickets per display bucket",
		},
		[]string{"bucket"},
	)

	// SLABreaches counts breach signals raised by the SLA monitor.
	SLABreaches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_sla_breaches_total",
			Help: "Total SLA breach signals raised",
		},
		[]string{"severity"},
	)

	// CommandFallbacks counts commands applied optimistically because
	// the remote system was unreachable.
	CommandFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expo_command_fallbacks_total",
			Help: "Total commands applied locally without remote confirmation",
		},
	)

	// SnapshotFetches counts snapshot poll attempts by result.
	SnapshotFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expo_snapshot_fetches_total",
			Help: "Total snapshot fetches against the remote KOT system",
		},
		[]string{"result"},
	)

	// CircuitBreakerState tracks the command breaker state
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "expo_command_breaker_state",
			Help: "Command circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// WebSocketClients tracks connected display clients.
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "expo_websocket_clients",
			Help: "Current number of connected kitchen-display clients",
		},
	)
)
