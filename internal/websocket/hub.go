// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package websocket pushes ticket snapshots and SLA alerts to
// connected kitchen displays.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/metrics"
	"github.com/expokds/expo/internal/models"
)

// Message types pushed to displays.
const (
	MessageTypeSnapshot  = "snapshot"
	MessageTypeSLABreach = "sla_breach"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// Message is the envelope for every WebSocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected displays and fans out broadcasts.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub with a buffered broadcast channel.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until the context is canceled, then closes every
// client. Implements suture.Service.
//
// Lifecycle events are drained before broadcasts so the client set is
// consistent when a message fans out; Go's select picks randomly when
// several channels are ready.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("Display connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("Display disconnected")
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketClients.Set(0)
	logging.Info().Int("clients_closed", len(clients)).Msg("WebSocket hub stopped")
}

// broadcastToClients fans a message out in client-ID order. A client
// with a full send buffer is dropped; a stalled display must not hold
// up the others.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		logging.Warn().Uint64("client_id", client.id).Msg("Dropping stalled display")
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

// BroadcastSnapshot pushes a fresh store snapshot to every display.
func (h *Hub) BroadcastSnapshot(snap *models.StoreSnapshot) {
	h.enqueue(Message{Type: MessageTypeSnapshot, Data: snap})
}

// BroadcastBreach pushes an SLA breach alert to every display.
func (h *Hub) BroadcastBreach(breach models.SLABreach) {
	h.enqueue(Message{Type: MessageTypeSLABreach, Data: breach})
}

// BroadcastJSON pushes an arbitrary typed payload.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.enqueue(Message{Type: messageType, Data: data})
}

func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", message.Type).Msg("Broadcast channel full, dropping message")
	}
}

// Attach wraps an upgraded connection in a client, registers it, and
// starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn) {
	client := NewClient(h, conn)
	h.Register <- client
	client.Start()
}

// ClientCount returns the number of connected displays.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
