// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/expokds/expo/internal/workflow"
)

// EventType classifies a ticket event after synonym resolution.
type EventType string

// Canonical event types.
const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventItemUpdated EventType = "item-updated"
	EventRemoved     EventType = "removed"
)

// eventTypeSynonyms maps upstream event type tags to canonical types.
// Sources disagree on naming the same way they disagree on status
// vocabulary, so the tag is resolved through a table too.
var eventTypeSynonyms = map[string]EventType{
	"created": EventCreated,
	"create":  EventCreated,
	"new":     EventCreated,
	"insert":  EventCreated,

	"updated":       EventUpdated,
	"update":        EventUpdated,
	"status":        EventUpdated,
	"state-changed": EventUpdated,

	"item-updated": EventItemUpdated,
	"item_updated": EventItemUpdated,
	"item-status":  EventItemUpdated,
	"item_status":  EventItemUpdated,

	"removed": EventRemoved,
	"remove":  EventRemoved,
	"deleted": EventRemoved,
	"delete":  EventRemoved,
}

// ParseEventType resolves an event type tag, tolerating case and
// surrounding whitespace. ok is false for unrecognized tags.
func ParseEventType(raw string) (t EventType, ok bool) {
	t, ok = eventTypeSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return t, ok
}

// ItemRef identifies a line item inside a ticket. Resolution tries
// ItemID first; when absent or unmatched, Index is used positionally,
// then Index-1 as an off-by-one shim for sources that number from 1.
type ItemRef struct {
	ItemID string `json:"item_id,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

// TicketEvent is the wire shape of a push event. Exactly one of Ticket
// (full payload) or TicketID (+ Status / Item) is expected depending on
// Type.
//
// EventID is optional; when present it is globally unique and used for
// deduplication. Events without an ID are assumed already unique (for
// example, locally synthesized dispatcher results) and bypass the
// dedup window.
type TicketEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`

	// Scope fields for filter matching. An empty field matches any
	// configured filter (wildcard).
	Branch  string `json:"branch,omitempty"`
	Kitchen string `json:"kitchen,omitempty"`
	Station string `json:"station,omitempty"`

	Ticket   *Ticket  `json:"ticket,omitempty"`
	TicketID string   `json:"ticket_id,omitempty"`
	Status   string   `json:"status,omitempty"`
	Item     *ItemRef `json:"item,omitempty"`
}

// NewLocalEvent builds a locally synthesized event. Local events carry
// no EventID so they are never deduplicated.
func NewLocalEvent(eventType EventType, ticketID, status string) *TicketEvent {
	return &TicketEvent{
		Type:     string(eventType),
		TicketID: ticketID,
		Status:   status,
	}
}

// NewPushEvent builds an event with a fresh unique identifier, as a
// well-behaved upstream would emit it. Used by tests and tooling.
func NewPushEvent(eventType EventType, ticket *Ticket) *TicketEvent {
	return &TicketEvent{
		EventID: uuid.New().String(),
		Type:    string(eventType),
		Ticket:  ticket,
	}
}

// SLASeverity is the severity of an SLA breach signal.
type SLASeverity string

// Breach severities.
const (
	SLAWarning  SLASeverity = "warning"
	SLACritical SLASeverity = "critical"
)

// SLABreach is raised when a ticket has been live longer than a
// configured threshold. Throttling of repeated alerts for the same
// ticket is a presentation concern; the monitor raises every breach it
// observes.
type SLABreach struct {
	TicketID  string          `json:"ticket_id"`
	Bucket    workflow.Bucket `json:"bucket"`
	Severity  SLASeverity     `json:"severity"`
	Elapsed   time.Duration   `json:"elapsed"`
	CreatedAt time.Time       `json:"created_at"`
}
