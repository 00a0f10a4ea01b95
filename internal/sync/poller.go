// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
)

// EventSink receives events for reconciliation. Satisfied by the
// engine loop.
type EventSink interface {
	Submit(ev *models.TicketEvent) error
}

// TicketFetcher retrieves the upstream ticket snapshot. Satisfied by
// RemoteClient.
type TicketFetcher interface {
	FetchTickets(ctx context.Context) ([]models.Ticket, error)
}

// Poller periodically fetches the full upstream snapshot and submits
// each ticket as a full-replace event. Polling is the catch-up path
// for events lost while disconnected; it only ever replaces per-ticket
// state and never evicts tickets missing from a fetch, since a ticket
// leaves the store through its terminal state alone.
type Poller struct {
	fetcher  TicketFetcher
	sink     EventSink
	interval time.Duration

	lastSync atomic.Int64
}

// NewPoller creates a poller with the given interval.
func NewPoller(fetcher TicketFetcher, sink EventSink, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		fetcher:  fetcher,
		sink:     sink,
		interval: interval,
	}
}

// Serve polls on the configured interval until the context is
// canceled, with an immediate first poll to warm the store on startup.
// Implements suture.Service.
func (p *Poller) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", p.interval).Msg("Snapshot poller started")

	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Snapshot poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll fetches once and submits the result. A failed fetch leaves the
// store untouched; the next tick retries.
func (p *Poller) Poll(ctx context.Context) {
	tickets, err := p.fetcher.FetchTickets(ctx)
	if err != nil {
		metrics.SnapshotFetches.WithLabelValues("error").Inc()
		logging.Err(err).Msg("Snapshot fetch failed")
		return
	}
	metrics.SnapshotFetches.WithLabelValues("success").Inc()
	p.lastSync.Store(time.Now().UnixMilli())

	for i := range tickets {
		t := tickets[i].Clone()
		ev := &models.TicketEvent{
			Type:   string(models.EventUpdated),
			Ticket: &t,
		}
		if err := p.sink.Submit(ev); err != nil {
			logging.Err(err).Str("ticket_id", t.ID).Msg("Dropping snapshot ticket, sink unavailable")
			return
		}
	}
	logging.Debug().Int("tickets", len(tickets)).Msg("Snapshot applied")
}

// LastSync returns the time of the last successful fetch, zero if none
// has succeeded yet.
func (p *Poller) LastSync() time.Time {
	ms := p.lastSync.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
