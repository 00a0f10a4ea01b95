// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package sla watches ticket age against warning and critical
// thresholds and raises breach signals for the display layer.
package sla

import (
	"context"
	"sync"
	"time"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
	"github.com/expokds/expo/internal/workflow"
)

// SnapshotSource supplies the ticket state the monitor inspects.
type SnapshotSource interface {
	Snapshot() *models.StoreSnapshot
}

// Monitor periodically sweeps the queued and preparing buckets and
// raises an SLABreach for every ticket past a threshold. Tickets in the
// ready bucket are done cooking and are not timed. The monitor does not
// throttle repeats; each sweep re-raises every active breach so
// subscribers always hold the current breach set.
type Monitor struct {
	source   SnapshotSource
	cfg      config.SLA
	now      func() time.Time
	interval time.Duration

	mu       sync.Mutex
	onBreach []func(models.SLABreach)
}

// NewMonitor creates a monitor over the given snapshot source.
func NewMonitor(source SnapshotSource, cfg config.SLA) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		source:   source,
		cfg:      cfg,
		now:      time.Now,
		interval: interval,
	}
}

// OnBreach registers a callback invoked for every breach found in a
// sweep. Callbacks run on the monitor goroutine and must not block;
// register before Serve starts.
func (m *Monitor) OnBreach(fn func(models.SLABreach)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onBreach = append(m.onBreach, fn)
}

// Serve sweeps on the configured interval until the context is
// canceled. Implements suture.Service.
func (m *Monitor) Serve(ctx context.Context) error {
	logging.Info().
		Dur("warning", m.cfg.Warning).
		Dur("critical", m.cfg.Critical).
		Dur("interval", m.interval).
		Msg("SLA monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("SLA monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep inspects the current snapshot once and raises breaches.
func (m *Monitor) Sweep() []models.SLABreach {
	snap := m.source.Snapshot()
	if snap == nil {
		return nil
	}
	now := m.now()

	var breaches []models.SLABreach
	breaches = m.appendBreaches(breaches, snap.Queued, workflow.BucketQueued, now)
	breaches = m.appendBreaches(breaches, snap.Preparing, workflow.BucketPreparing, now)

	if len(breaches) == 0 {
		return nil
	}

	m.mu.Lock()
	subs := m.onBreach
	m.mu.Unlock()
	for _, b := range breaches {
		metrics.SLABreaches.WithLabelValues(string(b.Severity)).Inc()
		logging.Warn().
			Str("ticket_id", b.TicketID).
			Str("bucket", string(b.Bucket)).
			Str("severity", string(b.Severity)).
			Dur("elapsed", b.Elapsed).
			Msg("Ticket exceeded SLA threshold")
		for _, fn := range subs {
			fn(b)
		}
	}
	return breaches
}

func (m *Monitor) appendBreaches(out []models.SLABreach, tickets []models.Ticket, bucket workflow.Bucket, now time.Time) []models.SLABreach {
	for i := range tickets {
		t := &tickets[i]
		if t.CreatedAt.IsZero() {
			continue
		}
		elapsed := now.Sub(t.CreatedAt)
		var severity models.SLASeverity
		switch {
		case elapsed > m.cfg.Critical:
			severity = models.SLACritical
		case elapsed > m.cfg.Warning:
			severity = models.SLAWarning
		default:
			continue
		}
		out = append(out, models.SLABreach{
			TicketID:  t.ID,
			Bucket:    bucket,
			Severity:  severity,
			Elapsed:   elapsed,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}
