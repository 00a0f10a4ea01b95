// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package workflow

// Bucket is one of the three operational display columns. Tickets in a
// terminal state belong to no bucket and are absent from the store.
type Bucket string

// Display buckets.
const (
	BucketQueued    Bucket = "queued"
	BucketPreparing Bucket = "preparing"
	BucketReady     Bucket = "ready"
)

// Buckets lists all buckets in display order.
var Buckets = []Bucket{BucketQueued, BucketPreparing, BucketReady}

// BucketFor maps a workflow state to its display bucket. This is the
// only place bucket assignment is decided, so a ticket can never sit in
// a bucket inconsistent with its own state field.
//
// Terminal states map to no bucket (ok=false): the caller must drop the
// ticket. Non-canonical states map to the queued bucket; they are
// unrecognized upstream tokens, and parking them in queued keeps them
// visible to operators instead of silently discarding them. Callers that
// need to know can check State.IsCanonical.
func BucketFor(s State) (bucket Bucket, ok bool) {
	switch s {
	case StateQueued:
		return BucketQueued, true
	case StateInProgress:
		return BucketPreparing, true
	case StateReady:
		return BucketReady, true
	case StateServed, StateCancelled:
		return "", false
	default:
		return BucketQueued, true
	}
}
