// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package engine owns the live ticket state: the bucketed TicketStore,
// the reconciliation rules that merge incoming events into it, and the
// single-writer loop that serializes all mutations.
package engine

import (
	"sort"
	"time"

	"github.com/expokds/expo/internal/models"
	"github.com/expokds/expo/internal/workflow"
)

// Store holds all live tickets partitioned into the three display
// buckets. Tickets reaching a terminal state are removed as a unit,
// items included; the store never holds a terminal ticket.
//
// Store is NOT thread-safe. It is owned by the engine Loop and must
// only be touched from the loop goroutine; readers get immutable
// snapshots via Snapshot.
type Store struct {
	byID    map[string]*models.Ticket
	buckets map[workflow.Bucket]map[string]*models.Ticket
}

// NewStore creates an empty ticket store.
func NewStore() *Store {
	s := &Store{
		byID:    make(map[string]*models.Ticket),
		buckets: make(map[workflow.Bucket]map[string]*models.Ticket, len(workflow.Buckets)),
	}
	for _, b := range workflow.Buckets {
		s.buckets[b] = make(map[string]*models.Ticket)
	}
	return s
}

// Upsert inserts or replaces the ticket. Any existing entry with the
// same identifier is removed first, so a ticket can never appear in two
// buckets. When the ticket's state maps to no bucket (terminal), the
// ticket is simply dropped and inserted=false.
func (s *Store) Upsert(t *models.Ticket) (bucket workflow.Bucket, inserted bool) {
	s.Remove(t.ID)

	bucket, ok := workflow.BucketFor(t.State)
	if !ok {
		return "", false
	}
	s.byID[t.ID] = t
	s.buckets[bucket][t.ID] = t
	return bucket, true
}

// Remove deletes the ticket from the store and whichever bucket held
// it. Returns false when the identifier is unknown.
func (s *Store) Remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for _, b := range workflow.Buckets {
		delete(s.buckets[b], id)
	}
	return true
}

// Find returns the live ticket for id. The returned pointer aliases
// store state and must only be used from the loop goroutine.
func (s *Store) Find(id string) (*models.Ticket, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// BucketOf returns the bucket currently holding id.
func (s *Store) BucketOf(id string) (workflow.Bucket, bool) {
	t, ok := s.byID[id]
	if !ok {
		return "", false
	}
	b, _ := workflow.BucketFor(t.State)
	return b, true
}

// Len returns the number of live tickets.
func (s *Store) Len() int {
	return len(s.byID)
}

// BucketLen returns the number of tickets in a bucket.
func (s *Store) BucketLen(b workflow.Bucket) int {
	return len(s.buckets[b])
}

// Snapshot deep-copies the store into an immutable snapshot. Tickets
// within each bucket are ordered by creation time (ties broken by
// identifier) so snapshots are deterministic.
func (s *Store) Snapshot() *models.StoreSnapshot {
	return &models.StoreSnapshot{
		Queued:    s.copyBucket(workflow.BucketQueued),
		Preparing: s.copyBucket(workflow.BucketPreparing),
		Ready:     s.copyBucket(workflow.BucketReady),
		TakenAt:   time.Now(),
	}
}

func (s *Store) copyBucket(b workflow.Bucket) []models.Ticket {
	out := make([]models.Ticket, 0, len(s.buckets[b]))
	for _, t := range s.buckets[b] {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
