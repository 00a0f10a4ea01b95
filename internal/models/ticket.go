// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package models defines the data structures shared across the sync
// engine: tickets, ticket items, push events, and view snapshots.
package models

import (
	"time"

	"github.com/expokds/expo/internal/workflow"
)

// Ticket is a Kitchen Order Ticket (KOT): a production instruction sent
// to a kitchen station, grouping one or more line items from a customer
// order.
type Ticket struct {
	ID        string         `json:"id"`
	State     workflow.State `json:"status"`
	CreatedAt time.Time      `json:"created_at"`

	// Routing context
	Branch  string `json:"branch,omitempty"`
	Kitchen string `json:"kitchen,omitempty"`
	Station string `json:"station,omitempty"`
	Floor   string `json:"floor,omitempty"`

	// Order context
	Table     string `json:"table,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	OrderType string `json:"order_type,omitempty"`
	Customer  string `json:"customer,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	Priority  int    `json:"priority,omitempty"`

	Items []TicketItem `json:"items,omitempty"`
}

// TicketItem is a single line item on a ticket. Index is the item's
// stable position within its ticket as assigned upstream; indexes may be
// non-contiguous and some sources number from 1 instead of 0.
type TicketItem struct {
	Index    int            `json:"index"`
	ItemID   string         `json:"item_id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Quantity int            `json:"quantity,omitempty"`
	Options  string         `json:"options,omitempty"`
	Note     string         `json:"note,omitempty"`
	State    workflow.State `json:"status"`
}

// Clone returns a deep copy of the ticket. Snapshots handed to readers
// must never alias the store's mutable tickets.
func (t *Ticket) Clone() Ticket {
	out := *t
	if t.Items != nil {
		out.Items = make([]TicketItem, len(t.Items))
		copy(out.Items, t.Items)
	}
	return out
}

// NormalizeStates canonicalizes the ticket state and every item state in
// place.
func (t *Ticket) NormalizeStates() {
	t.State = workflow.Normalize(string(t.State))
	for i := range t.Items {
		t.Items[i].State = workflow.Normalize(string(t.Items[i].State))
	}
}
