// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package dispatch forwards operator commands (bump a ticket, bump an
// item) to the upstream KOT system and keeps the display responsive
// when the upstream is unreachable.
package dispatch

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
	"github.com/expokds/expo/internal/sync"
	"github.com/expokds/expo/internal/workflow"
)

// CommandClient sends state commands upstream. Satisfied by
// sync.RemoteClient.
type CommandClient interface {
	AdvanceTicket(ctx context.Context, ticketID, status string) error
	AdvanceItem(ctx context.Context, ticketID string, item models.ItemRef, status string) error
}

// EventSink receives the local events a command produces. Satisfied by
// the engine loop.
type EventSink interface {
	Submit(ev *models.TicketEvent) error
}

// Result reports how a command landed. Confirmed is false when the
// upstream was unreachable and the transition was applied locally in
// anticipation; the next snapshot poll trues it up either way.
type Result struct {
	TicketID  string          `json:"ticket_id"`
	Item      *models.ItemRef `json:"item,omitempty"`
	State     workflow.State  `json:"state"`
	Confirmed bool            `json:"confirmed"`
}

// Dispatcher runs commands through a circuit breaker. A transport
// failure (or an open breaker) falls back to an optimistic local
// transition; a business rejection from the upstream is surfaced as an
// error with no local change, since the upstream has authoritatively
// refused it.
type Dispatcher struct {
	client  CommandClient
	sink    EventSink
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewDispatcher creates a dispatcher over the given client and sink.
func NewDispatcher(client CommandClient, sink EventSink) *Dispatcher {
	settings := gobreaker.Settings{
		Name:        "command-dispatch",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Upstream rejections are valid answers, not transport
		// failures; they must not open the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var statusErr *sync.RemoteStatusError
			return errors.As(err, &statusErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.Set(float64(to))
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	return &Dispatcher{
		client:  client,
		sink:    sink,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// AdvanceTicket moves a ticket to the given state upstream, falling
// back to a local transition when the upstream is unreachable.
func (d *Dispatcher) AdvanceTicket(ctx context.Context, ticketID string, state workflow.State) (*Result, error) {
	err := d.execute(func() error {
		return d.client.AdvanceTicket(ctx, ticketID, state.String())
	})
	if err != nil {
		if rejected(err) {
			return nil, err
		}
		return d.fallbackTicket(ticketID, state, err)
	}

	ev := models.NewLocalEvent(models.EventUpdated, ticketID, state.String())
	if err := d.sink.Submit(ev); err != nil {
		return nil, err
	}
	return &Result{TicketID: ticketID, State: state, Confirmed: true}, nil
}

// AdvanceItem moves a single line item, with the same fallback rules
// as AdvanceTicket.
func (d *Dispatcher) AdvanceItem(ctx context.Context, ticketID string, item models.ItemRef, state workflow.State) (*Result, error) {
	err := d.execute(func() error {
		return d.client.AdvanceItem(ctx, ticketID, item, state.String())
	})
	if err != nil {
		if rejected(err) {
			return nil, err
		}
		return d.fallbackItem(ticketID, item, state, err)
	}

	ev := models.NewLocalEvent(models.EventItemUpdated, ticketID, state.String())
	ev.Item = &item
	if err := d.sink.Submit(ev); err != nil {
		return nil, err
	}
	return &Result{TicketID: ticketID, Item: &item, State: state, Confirmed: true}, nil
}

func (d *Dispatcher) execute(fn func() error) error {
	_, err := d.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// rejected reports whether the upstream refused the command, as
// opposed to being unreachable.
func rejected(err error) bool {
	var statusErr *sync.RemoteStatusError
	return errors.As(err, &statusErr)
}

func (d *Dispatcher) fallbackTicket(ticketID string, state workflow.State, cause error) (*Result, error) {
	metrics.CommandFallbacks.Inc()
	logging.Err(cause).Str("ticket_id", ticketID).Str("state", state.String()).
		Msg("Upstream unreachable, applying ticket transition locally")

	ev := models.NewLocalEvent(models.EventUpdated, ticketID, state.String())
	if err := d.sink.Submit(ev); err != nil {
		return nil, err
	}
	return &Result{TicketID: ticketID, State: state, Confirmed: false}, nil
}

func (d *Dispatcher) fallbackItem(ticketID string, item models.ItemRef, state workflow.State, cause error) (*Result, error) {
	metrics.CommandFallbacks.Inc()
	logging.Err(cause).Str("ticket_id", ticketID).Str("state", state.String()).
		Msg("Upstream unreachable, applying item transition locally")

	ev := models.NewLocalEvent(models.EventItemUpdated, ticketID, state.String())
	ev.Item = &item
	if err := d.sink.Submit(ev); err != nil {
		return nil, err
	}
	return &Result{TicketID: ticketID, Item: &item, State: state, Confirmed: false}, nil
}
