// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package workflow defines the canonical ticket workflow states and the
// pure functions that operate on them: status normalization, bucket
// mapping, and the ticket-to-item cascade.
//
// Upstream POS systems emit a wide vocabulary of status strings
// ("waiting", "processing", "ready to serve", ...). Everything in this
// module speaks the five canonical states; Normalize is the single
// translation point.
package workflow

import "strings"

// State is a ticket or item workflow state.
//
// The five canonical values are distinct constants. Any other non-empty
// value is a non-canonical state carrying the original upstream token
// verbatim; IsCanonical reports false for those. Keeping the original
// token inspectable (rather than coercing it) means upstream data errors
// stay visible instead of being silently rewritten.
type State string

// Canonical workflow states.
const (
	StateQueued     State = "Queued"
	StateInProgress State = "In Progress"
	StateReady      State = "Ready"
	StateServed     State = "Served"
	StateCancelled  State = "Cancelled"
)

// synonyms maps folded status tokens to canonical states. Keys are
// produced by foldToken: lowercased with spaces and punctuation removed,
// so "Ready to Serve", "ready-to-serve" and "READYTOSERVE" all hit the
// same entry.
var synonyms = map[string]State{
	// Queued
	"queued":  StateQueued,
	"queue":   StateQueued,
	"waiting": StateQueued,
	"pending": StateQueued,
	"new":     StateQueued,
	"open":    StateQueued,
	"placed":  StateQueued,

	// In Progress
	"inprogress": StateInProgress,
	"preparing":  StateInProgress,
	"ongoing":    StateInProgress,
	"processing": StateInProgress,
	"cooking":    StateInProgress,
	"started":    StateInProgress,
	"accepted":   StateInProgress,
	"inkitchen":  StateInProgress,

	// Ready
	"ready":        StateReady,
	"readytoserve": StateReady,
	"done":         StateReady,
	"complete":     StateReady,
	"completed":    StateReady,
	"finished":     StateReady,
	"prepared":     StateReady,

	// Served
	"served":           StateServed,
	"servedtocustomer": StateServed,
	"delivered":        StateServed,
	"pickedup":         StateServed,
	"closed":           StateServed,

	// Cancelled
	"cancelled": StateCancelled,
	"canceled":  StateCancelled,
	"void":      StateCancelled,
	"voided":    StateCancelled,
	"rejected":  StateCancelled,
}

// Normalize canonicalizes an arbitrary status token.
//
// Empty or whitespace-only input maps to StateQueued (a ticket that has
// never reported a status is by definition queued). Recognized synonyms
// map to their canonical state regardless of case, spacing, or
// punctuation. Anything else is returned verbatim (trimmed) as a
// non-canonical State.
//
// Normalize is pure, total, and idempotent: every canonical state folds
// back onto itself, and unrecognized tokens round-trip unchanged.
func Normalize(raw string) State {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StateQueued
	}
	if s, ok := synonyms[foldToken(trimmed)]; ok {
		return s
	}
	return State(trimmed)
}

// foldToken lowercases a token and strips everything that is not a
// letter or digit.
func foldToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCanonical reports whether s is one of the five canonical states.
func (s State) IsCanonical() bool {
	switch s {
	case StateQueued, StateInProgress, StateReady, StateServed, StateCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s ends a ticket's lifecycle. Terminal
// tickets are evicted from the store as a unit, items included.
func (s State) IsTerminal() bool {
	return s == StateServed || s == StateCancelled
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}
