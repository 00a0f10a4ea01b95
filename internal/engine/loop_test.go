// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/expokds/expo/internal/models"
	"github.com/expokds/expo/internal/workflow"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := NewLoop(64)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Serve(ctx) }()
	return l, cancel
}

func waitForTotal(t *testing.T, l *Loop, want int) *models.StoreSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := l.Snapshot(); snap.Total() == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot never reached %d tickets (have %d)", want, l.Snapshot().Total())
	return nil
}

func TestLoop_AppliesSubmittedEvents(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	if err := l.Submit(&models.TicketEvent{Type: "created", Ticket: makeTicket("T1", workflow.StateQueued)}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitForTotal(t, l, 1)
	if len(snap.Queued) != 1 || snap.Queued[0].ID != "T1" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestLoop_SnapshotIsImmutablePerPublish(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	_ = l.Submit(&models.TicketEvent{Type: "created", Ticket: makeTicket("T1", workflow.StateQueued)})
	first := waitForTotal(t, l, 1)

	_ = l.Submit(&models.TicketEvent{Type: "updated", TicketID: "T1", Status: "served"})
	waitForTotal(t, l, 0)

	// The earlier snapshot still shows the old world.
	if first.Total() != 1 {
		t.Error("published snapshot mutated after later events")
	}
}

func TestLoop_OnUpdateReceivesSnapshots(t *testing.T) {
	l := NewLoop(16)
	got := make(chan *models.StoreSnapshot, 8)
	l.OnUpdate(func(s *models.StoreSnapshot) { got <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Serve(ctx) }()

	// Initial publish on start.
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot published")
	}

	_ = l.Submit(&models.TicketEvent{Type: "created", Ticket: makeTicket("T1", workflow.StateReady)})
	select {
	case snap := <-got:
		if len(snap.Ready) != 1 {
			t.Errorf("expected T1 in ready, got %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published after mutation")
	}
}

func TestLoop_SubmitAfterStopFails(t *testing.T) {
	l := NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = l.Serve(ctx); close(done) }()

	cancel()
	<-done

	// Allow for the stop channel close racing Serve's return.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := l.Submit(&models.TicketEvent{Type: "removed", TicketID: "x"}); err == ErrLoopStopped {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Submit should fail after loop shutdown")
}

func TestLoop_StatsCountOutcomes(t *testing.T) {
	l, cancel := startLoop(t)
	defer cancel()

	_ = l.Submit(&models.TicketEvent{Type: "created", Ticket: makeTicket("T1", workflow.StateQueued)})
	_ = l.Submit(&models.TicketEvent{Type: "updated", TicketID: "ghost", Status: "ready"})
	_ = l.Submit(&models.TicketEvent{Type: "bogus-type"})

	waitForTotal(t, l, 1)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s := l.Stats()
		if s.Applied == 1 && s.Ignored == 1 && s.Malformed == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("stats never converged: %+v", l.Stats())
}
