// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package models

import "time"

// StoreSnapshot is an immutable copy of the three display buckets,
// published by the engine after every mutation. Readers (the view
// pipeline, the SLA monitor, websocket broadcasts) only ever see
// snapshots, never the live store.
type StoreSnapshot struct {
	Queued    []Ticket  `json:"queued"`
	Preparing []Ticket  `json:"preparing"`
	Ready     []Ticket  `json:"ready"`
	TakenAt   time.Time `json:"taken_at"`
}

// Total returns the number of live tickets across all buckets.
func (s *StoreSnapshot) Total() int {
	return len(s.Queued) + len(s.Preparing) + len(s.Ready)
}

// All returns every ticket in the snapshot, queued first, then
// preparing, then ready.
func (s *StoreSnapshot) All() []Ticket {
	out := make([]Ticket, 0, s.Total())
	out = append(out, s.Queued...)
	out = append(out, s.Preparing...)
	out = append(out, s.Ready...)
	return out
}
