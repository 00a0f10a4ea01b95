// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package cache provides the bounded-memory deduplication window used to
// drop replayed push events.
package cache

import "sync"

// DefaultWindowSize is the number of event identifiers remembered by a
// Window. Push channels replay at most a handful of recent events on
// reconnect, so a small window is sufficient.
const DefaultWindowSize = 50

// Window is a thread-safe, size-bounded set of recently seen event
// identifiers with FIFO eviction: when the window is full, the oldest
// identifier is forgotten first.
//
// Unlike an LRU, membership checks do not refresh an entry's position;
// eviction order is strictly insertion order. That matches the dedup
// contract: an event replayed many times must not pin its identifier in
// the window forever.
type Window struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
	head     int
}

// NewWindow creates a dedup window holding up to capacity identifiers.
// A non-positive capacity falls back to DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

// IsDuplicate reports whether id has been seen within the window, and
// records it if not. The check-and-record is atomic so concurrent
// deliveries of the same identifier admit exactly one.
func (w *Window) IsDuplicate(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[id]; ok {
		return true
	}
	w.record(id)
	return false
}

// Contains reports membership without recording.
func (w *Window) Contains(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

// Len returns the number of identifiers currently remembered.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// Reset forgets all identifiers.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seen = make(map[string]struct{}, w.capacity)
	w.order = w.order[:0]
	w.head = 0
}

// record inserts id, evicting the oldest entry when full. Must be
// called with mu held.
func (w *Window) record(id string) {
	if len(w.seen) >= w.capacity {
		oldest := w.order[w.head]
		delete(w.seen, oldest)
		w.order[w.head] = id
		w.head = (w.head + 1) % w.capacity
	} else {
		w.order = append(w.order, id)
	}
	w.seen[id] = struct{}{}
}
