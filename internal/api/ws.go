// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/websocket"
)

// WebSocketHub accepts upgraded display connections. Satisfied by the
// websocket hub.
type WebSocketHub interface {
	Attach(conn *gorilla.Conn)
	ClientCount() int
}

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS middleware; the
	// upgrade itself accepts any origin that got this far.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket upgrades the connection and hands it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "websocket not available"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.Hub.Attach(conn)
}

// ensure the concrete hub satisfies the interface.
var _ WebSocketHub = (*websocket.Hub)(nil)
