// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
	"github.com/expokds/expo/internal/workflow"
)

// ErrLoopStopped is returned by Submit after the loop has shut down.
var ErrLoopStopped = errors.New("engine loop stopped")

// DefaultQueueSize is the capacity of the loop's event channel. Push
// events, poller results, and dispatcher fallbacks all share it.
const DefaultQueueSize = 256

// Loop is the single writer that owns the TicketStore. Every mutation —
// push event, snapshot record, or dispatcher fallback — enters through
// Submit and is applied in delivery order on one goroutine, which makes
// reconciliation deterministic per ticket without locking.
//
// After each mutation the loop publishes an immutable store snapshot;
// readers only ever see snapshots.
type Loop struct {
	engine *Engine
	events chan *models.TicketEvent

	snapshot atomic.Pointer[models.StoreSnapshot]

	mu        sync.Mutex
	onUpdate  []func(*models.StoreSnapshot)
	stopped   chan struct{}
	stopOnce  sync.Once
	applied   atomic.Uint64
	ignored   atomic.Uint64
	malformed atomic.Uint64
}

// NewLoop creates a loop over a fresh store.
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &Loop{
		engine:  NewEngine(NewStore()),
		events:  make(chan *models.TicketEvent, queueSize),
		stopped: make(chan struct{}),
	}
	l.snapshot.Store(&models.StoreSnapshot{})
	return l
}

// OnUpdate registers a callback invoked with each published snapshot.
// Callbacks run on the loop goroutine and must not block; register
// before Serve starts.
func (l *Loop) OnUpdate(fn func(*models.StoreSnapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUpdate = append(l.onUpdate, fn)
}

// Submit queues an event for reconciliation. Events for the same ticket
// are applied in submission order. Returns ErrLoopStopped after
// shutdown.
func (l *Loop) Submit(ev *models.TicketEvent) error {
	select {
	case <-l.stopped:
		return ErrLoopStopped
	default:
	}
	select {
	case l.events <- ev:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	}
}

// Serve runs the reconciliation loop until the context is canceled.
// Implements suture.Service.
func (l *Loop) Serve(ctx context.Context) error {
	logging.Info().Msg("Reconciliation loop started")
	l.publish()

	for {
		select {
		case <-ctx.Done():
			l.stopOnce.Do(func() { close(l.stopped) })
			logging.Info().Msg("Reconciliation loop stopped")
			return ctx.Err()
		case ev := <-l.events:
			l.apply(ev)
		}
	}
}

func (l *Loop) apply(ev *models.TicketEvent) {
	res := l.engine.Apply(ev)
	switch res.Outcome {
	case OutcomeApplied:
		l.applied.Add(1)
	case OutcomeIgnored:
		l.ignored.Add(1)
	case OutcomeMalformed:
		l.malformed.Add(1)
	}
	if res.Mutated() {
		l.publish()
	}
}

// publish copies the store into a fresh snapshot, stores it for
// readers, updates gauges, and notifies subscribers.
func (l *Loop) publish() {
	snap := l.engine.Store().Snapshot()
	l.snapshot.Store(snap)

	metrics.BucketSize.WithLabelValues(string(workflow.BucketQueued)).Set(float64(len(snap.Queued)))
	metrics.BucketSize.WithLabelValues(string(workflow.BucketPreparing)).Set(float64(len(snap.Preparing)))
	metrics.BucketSize.WithLabelValues(string(workflow.BucketReady)).Set(float64(len(snap.Ready)))

	l.mu.Lock()
	subs := l.onUpdate
	l.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// Snapshot returns the most recently published snapshot. Never nil.
func (l *Loop) Snapshot() *models.StoreSnapshot {
	return l.snapshot.Load()
}

// Stats returns loop counters for health reporting.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Applied:    l.applied.Load(),
		Ignored:    l.ignored.Load(),
		Malformed:  l.malformed.Load(),
		QueueDepth: len(l.events),
	}
}

// LoopStats holds runtime counters.
type LoopStats struct {
	Applied    uint64 `json:"applied"`
	Ignored    uint64 `json:"ignored"`
	Malformed  uint64 `json:"malformed"`
	QueueDepth int    `json:"queue_depth"`
}
