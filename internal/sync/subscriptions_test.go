// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/models"
)

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	// Persistent delivery removes the subscribe/publish race in tests.
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func publish(t *testing.T, ps *gochannel.GoChannel, topic string, ev *models.TicketEvent) {
	t.Helper()
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := ps.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func startManager(t *testing.T, ps *gochannel.GoChannel, sink EventSink, scope config.Scope) *SubscriptionManager {
	t.Helper()
	m := NewSubscriptionManager(ps, sink, scope)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = m.Serve(ctx) }()
	return m
}

func waitForEvents(t *testing.T, sink *captureSink, want int) []*models.TicketEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.all(); len(events) >= want {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sink never reached %d events (have %d)", want, len(sink.all()))
	return nil
}

func TestSubscriptionManager_DeliversToSink(t *testing.T) {
	ps := newPubSub(t)
	sink := &captureSink{}
	startManager(t, ps, sink, config.Scope{})

	publish(t, ps, ChannelAll, &models.TicketEvent{EventID: "e1", Type: "updated", TicketID: "T1", Status: "ready"})

	events := waitForEvents(t, sink, 1)
	if events[0].TicketID != "T1" || events[0].Status != "ready" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestSubscriptionManager_DropsDuplicates(t *testing.T) {
	ps := newPubSub(t)
	sink := &captureSink{}
	startManager(t, ps, sink, config.Scope{})

	ev := &models.TicketEvent{EventID: "dup-1", Type: "updated", TicketID: "T1", Status: "ready"}
	publish(t, ps, ChannelAll, ev)
	publish(t, ps, ChannelAll, ev)
	publish(t, ps, ChannelAll, &models.TicketEvent{EventID: "e2", Type: "updated", TicketID: "T2", Status: "ready"})

	events := waitForEvents(t, sink, 2)
	time.Sleep(50 * time.Millisecond)
	if got := len(sink.all()); got != 2 {
		t.Fatalf("expected duplicate to be dropped, got %d events", got)
	}
	if events[0].TicketID != "T1" || events[1].TicketID != "T2" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestSubscriptionManager_EventsWithoutIDBypassDedup(t *testing.T) {
	ps := newPubSub(t)
	sink := &captureSink{}
	startManager(t, ps, sink, config.Scope{})

	ev := &models.TicketEvent{Type: "updated", TicketID: "T1", Status: "ready"}
	publish(t, ps, ChannelAll, ev)
	publish(t, ps, ChannelAll, ev)

	waitForEvents(t, sink, 2)
}

func TestSubscriptionManager_FiltersOutOfScope(t *testing.T) {
	ps := newPubSub(t)
	sink := &captureSink{}
	startManager(t, ps, sink, config.Scope{Kitchen: "k1"})

	// The kitchen channel can still carry mislabeled traffic.
	publish(t, ps, KitchenChannel("k1"), &models.TicketEvent{EventID: "e1", Type: "updated", Kitchen: "k2", TicketID: "T1", Status: "ready"})
	publish(t, ps, KitchenChannel("k1"), &models.TicketEvent{EventID: "e2", Type: "updated", Kitchen: "k1", TicketID: "T2", Status: "ready"})

	events := waitForEvents(t, sink, 1)
	time.Sleep(50 * time.Millisecond)
	if got := len(sink.all()); got != 1 {
		t.Fatalf("expected out-of-scope event to be dropped, got %d", got)
	}
	if events[0].TicketID != "T2" {
		t.Errorf("wrong event passed the filter: %+v", events[0])
	}
}

func TestSubscriptionManager_MalformedPayloadDropped(t *testing.T) {
	ps := newPubSub(t)
	sink := &captureSink{}
	startManager(t, ps, sink, config.Scope{})

	if err := ps.Publish(ChannelAll, message.NewMessage(watermill.NewUUID(), []byte("not json"))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	publish(t, ps, ChannelAll, &models.TicketEvent{EventID: "e1", Type: "updated", TicketID: "T1", Status: "ready"})

	events := waitForEvents(t, sink, 1)
	if events[0].TicketID != "T1" {
		t.Errorf("expected only the valid event, got %+v", events)
	}
}

func TestSubscriptionManager_ReconfigureSwitchesChannels(t *testing.T) {
	ps := newPubSub(t)
	sink := &captureSink{}
	m := startManager(t, ps, sink, config.Scope{Kitchen: "k1"})

	publish(t, ps, KitchenChannel("k1"), &models.TicketEvent{EventID: "e1", Type: "updated", Kitchen: "k1", TicketID: "T1", Status: "ready"})
	waitForEvents(t, sink, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Reconfigure(ctx, config.Scope{Kitchen: "k2"}); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}

	publish(t, ps, KitchenChannel("k2"), &models.TicketEvent{EventID: "e2", Type: "updated", Kitchen: "k2", TicketID: "T2", Status: "ready"})

	events := waitForEvents(t, sink, 2)
	if events[1].TicketID != "T2" {
		t.Errorf("expected event from new scope, got %+v", events[1])
	}
	if got := m.Scope().Kitchen; got != "k2" {
		t.Errorf("Scope() = %q after reconfigure", got)
	}
}
