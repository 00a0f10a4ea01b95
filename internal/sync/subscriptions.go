// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/expokds/expo/internal/cache"
	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
)

// SubscriptionManager consumes push events from the broker channels
// matching the configured scope, deduplicates them, and feeds survivors
// into the reconciliation loop. Scope changes at runtime tear down the
// active subscriptions and open the new set.
type SubscriptionManager struct {
	subscriber message.Subscriber
	sink       EventSink
	dedup      *cache.Window

	mu    sync.RWMutex
	scope config.Scope

	reconfigure chan config.Scope
}

// NewSubscriptionManager creates a manager for the given scope.
func NewSubscriptionManager(subscriber message.Subscriber, sink EventSink, scope config.Scope) *SubscriptionManager {
	return &SubscriptionManager{
		subscriber:  subscriber,
		sink:        sink,
		dedup:       cache.NewWindow(cache.DefaultWindowSize),
		scope:       scope,
		reconfigure: make(chan config.Scope),
	}
}

// Scope returns the currently active scope.
func (m *SubscriptionManager) Scope() config.Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scope
}

// Reconfigure switches to a new scope. Blocks until the running Serve
// accepts the change or ctx expires. The dedup window survives the
// switch so events seen under the old scope stay recognized.
func (m *SubscriptionManager) Reconfigure(ctx context.Context, scope config.Scope) error {
	select {
	case m.reconfigure <- scope:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve subscribes to the scope's channels and consumes until the
// context is canceled. Implements suture.Service.
func (m *SubscriptionManager) Serve(ctx context.Context) error {
	for {
		m.mu.RLock()
		scope := m.scope
		m.mu.RUnlock()

		genCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup

		channels := ChannelsForScope(scope)
		for _, ch := range channels {
			msgs, err := m.subscriber.Subscribe(genCtx, ch)
			if err != nil {
				cancel()
				wg.Wait()
				return err
			}
			logging.Info().Str("channel", ch).Msg("Subscribed to push events")

			wg.Add(1)
			go func(ch string, msgs <-chan *message.Message) {
				defer wg.Done()
				m.consume(ch, msgs)
			}(ch, msgs)
		}

		select {
		case <-ctx.Done():
			cancel()
			wg.Wait()
			return ctx.Err()
		case scope := <-m.reconfigure:
			cancel()
			wg.Wait()
			m.mu.Lock()
			m.scope = scope
			m.mu.Unlock()
			logging.Info().
				Str("kitchen", scope.Kitchen).
				Str("station", scope.Station).
				Msg("Subscription scope changed")
		}
	}
}

func (m *SubscriptionManager) consume(channel string, msgs <-chan *message.Message) {
	for msg := range msgs {
		m.handle(channel, msg)
	}
}

func (m *SubscriptionManager) handle(channel string, msg *message.Message) {
	var ev models.TicketEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		// Redelivery cannot fix a broken payload.
		logging.Err(err).Str("channel", channel).Str("message_uuid", msg.UUID).
			Msg("Dropping undecodable push event")
		metrics.EventsProcessed.WithLabelValues("unknown", "malformed").Inc()
		msg.Ack()
		return
	}

	if ev.EventID != "" && m.dedup.IsDuplicate(ev.EventID) {
		metrics.DuplicateEvents.Inc()
		logging.Debug().Str("event_id", ev.EventID).Msg("Duplicate push event dropped")
		msg.Ack()
		return
	}

	m.mu.RLock()
	scope := m.scope
	m.mu.RUnlock()
	if !InScope(scope, &ev) {
		metrics.ScopeFilteredEvents.Inc()
		msg.Ack()
		return
	}

	if err := m.sink.Submit(&ev); err != nil {
		// Loop is shutting down; leave the message for redelivery.
		msg.Nack()
		return
	}
	msg.Ack()
}
