// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package engine

import (
	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
	"github.com/expokds/expo/internal/workflow"
)

// Outcome classifies the effect of applying one event.
type Outcome string

// Apply outcomes.
const (
	// OutcomeApplied means the store was mutated.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the event was well-formed but had no
	// effect (unknown ticket, terminal ticket already absent).
	OutcomeIgnored Outcome = "ignored"
	// OutcomeMalformed means the event was missing required fields
	// and was dropped. Never fatal.
	OutcomeMalformed Outcome = "malformed"
)

// ApplyResult describes what one event did to the store.
type ApplyResult struct {
	Outcome Outcome
	Type    models.EventType

	// TicketID is the affected ticket, when identifiable.
	TicketID string

	// Removed is set when the ticket left the store.
	Removed bool

	// Moved is set when the ticket changed buckets. A status update
	// that keeps the ticket in its bucket leaves Moved false so
	// consumers can re-render a single card instead of reflowing
	// columns.
	Moved bool
}

// Mutated reports whether the store changed.
func (r ApplyResult) Mutated() bool {
	return r.Outcome == OutcomeApplied
}

// Engine applies ticket events to a Store, enforcing normalization and
// parent/child consistency. It is not thread-safe; the Loop serializes
// all calls.
type Engine struct {
	store *Store
}

// NewEngine creates an engine over the given store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Store returns the underlying store.
func (e *Engine) Store() *Store {
	return e.store
}

// Apply merges one event into the store. It never fails: malformed
// payloads are logged and dropped, unknown tickets are no-ops.
func (e *Engine) Apply(ev *models.TicketEvent) ApplyResult {
	if ev == nil {
		return e.malformed("", "nil event")
	}

	eventType, ok := models.ParseEventType(ev.Type)
	if !ok {
		return e.malformed(ev.TicketID, "unknown event type: "+ev.Type)
	}

	var res ApplyResult
	switch eventType {
	case models.EventCreated, models.EventUpdated:
		if ev.Ticket != nil {
			res = e.applyFullTicket(ev.Ticket)
		} else {
			res = e.applyStatusOnly(ev.TicketID, ev.Status)
		}
	case models.EventItemUpdated:
		res = e.applyItemOnly(ev)
	case models.EventRemoved:
		res = e.applyRemoval(ev)
	}
	res.Type = eventType

	metrics.EventsProcessed.WithLabelValues(string(eventType), string(res.Outcome)).Inc()
	return res
}

// applyFullTicket handles creation or a generic update carrying a whole
// ticket: normalize everything, evict if terminal, otherwise upsert.
func (e *Engine) applyFullTicket(t *models.Ticket) ApplyResult {
	if t.ID == "" {
		return e.malformed("", "full ticket without identifier")
	}

	t.NormalizeStates()
	e.observeState(t.State)
	for _, it := range t.Items {
		e.observeState(it.State)
	}

	if t.State.IsTerminal() {
		existed := e.store.Remove(t.ID)
		if !existed {
			return ApplyResult{Outcome: OutcomeIgnored, TicketID: t.ID, Removed: false}
		}
		return ApplyResult{Outcome: OutcomeApplied, TicketID: t.ID, Removed: true}
	}

	prevBucket, existed := e.store.BucketOf(t.ID)
	bucket, _ := e.store.Upsert(t)
	return ApplyResult{
		Outcome:  OutcomeApplied,
		TicketID: t.ID,
		Moved:    !existed || bucket != prevBucket,
	}
}

// applyStatusOnly handles a ticket identifier plus a new status with no
// item list. The new state cascades to items; a bucket change moves the
// ticket, a terminal state evicts it.
func (e *Engine) applyStatusOnly(id, status string) ApplyResult {
	if id == "" {
		return e.malformed("", "status update without ticket identifier")
	}

	t, ok := e.store.Find(id)
	if !ok {
		logging.Debug().Str("ticket", id).Msg("Status update for unknown ticket, ignoring")
		return ApplyResult{Outcome: OutcomeIgnored, TicketID: id}
	}

	newState := workflow.Normalize(status)
	e.observeState(newState)

	prevBucket, _ := workflow.BucketFor(t.State)
	t.State = newState
	for i := range t.Items {
		t.Items[i].State = workflow.Cascade(newState, t.Items[i].State)
	}

	if newState.IsTerminal() {
		e.store.Remove(id)
		return ApplyResult{Outcome: OutcomeApplied, TicketID: id, Removed: true}
	}

	bucket, _ := e.store.Upsert(t)
	return ApplyResult{
		Outcome:  OutcomeApplied,
		TicketID: id,
		Moved:    bucket != prevBucket,
	}
}

// applyItemOnly updates a single item's state, leaving the ticket and
// its bucket untouched.
func (e *Engine) applyItemOnly(ev *models.TicketEvent) ApplyResult {
	if ev.TicketID == "" || ev.Item == nil {
		return e.malformed(ev.TicketID, "item update without ticket or item reference")
	}

	t, ok := e.store.Find(ev.TicketID)
	if !ok {
		logging.Debug().Str("ticket", ev.TicketID).Msg("Item update for unknown ticket, ignoring")
		return ApplyResult{Outcome: OutcomeIgnored, TicketID: ev.TicketID}
	}

	item := resolveItem(t, ev.Item)
	if item == nil {
		logging.Debug().Str("ticket", ev.TicketID).Str("item", ev.Item.ItemID).Msg("Item reference did not resolve, ignoring")
		return ApplyResult{Outcome: OutcomeIgnored, TicketID: ev.TicketID}
	}

	newState := workflow.Normalize(ev.Status)
	e.observeState(newState)
	item.State = newState

	return ApplyResult{Outcome: OutcomeApplied, TicketID: ev.TicketID}
}

// applyRemoval evicts the ticket from all buckets unconditionally.
func (e *Engine) applyRemoval(ev *models.TicketEvent) ApplyResult {
	id := ev.TicketID
	if id == "" && ev.Ticket != nil {
		id = ev.Ticket.ID
	}
	if id == "" {
		return e.malformed("", "removal without ticket identifier")
	}

	if !e.store.Remove(id) {
		return ApplyResult{Outcome: OutcomeIgnored, TicketID: id}
	}
	return ApplyResult{Outcome: OutcomeApplied, TicketID: id, Removed: true}
}

// resolveItem locates a line item by identifier, falling back to the
// positional index, then to index shifted down by one. The shift is a
// compatibility shim for sources that number items from 1 while the
// snapshot numbers from 0.
func resolveItem(t *models.Ticket, ref *models.ItemRef) *models.TicketItem {
	if ref.ItemID != "" {
		for i := range t.Items {
			if t.Items[i].ItemID == ref.ItemID {
				return &t.Items[i]
			}
		}
	}
	if ref.Index != nil {
		for i := range t.Items {
			if t.Items[i].Index == *ref.Index {
				return &t.Items[i]
			}
		}
		for i := range t.Items {
			if t.Items[i].Index == *ref.Index-1 {
				return &t.Items[i]
			}
		}
	}
	return nil
}

func (e *Engine) malformed(ticketID, reason string) ApplyResult {
	logging.Warn().Str("ticket", ticketID).Str("reason", reason).Msg("Dropping malformed event")
	return ApplyResult{Outcome: OutcomeMalformed, TicketID: ticketID}
}

func (e *Engine) observeState(s workflow.State) {
	if !s.IsCanonical() {
		metrics.NonCanonicalStates.Inc()
	}
}
