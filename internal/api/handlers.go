// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/dispatch"
	"github.com/expokds/expo/internal/engine"
	"github.com/expokds/expo/internal/logging"
	"github.com/expokds/expo/internal/models"
	syncpkg "github.com/expokds/expo/internal/sync"
	"github.com/expokds/expo/internal/view"
	"github.com/expokds/expo/internal/workflow"
)

// SnapshotProvider exposes the reconciled ticket state. Satisfied by
// the engine loop.
type SnapshotProvider interface {
	Snapshot() *models.StoreSnapshot
	Stats() engine.LoopStats
}

// Commander dispatches bump commands. Satisfied by the dispatcher.
type Commander interface {
	AdvanceTicket(ctx context.Context, ticketID string, state workflow.State) (*dispatch.Result, error)
	AdvanceItem(ctx context.Context, ticketID string, item models.ItemRef, state workflow.State) (*dispatch.Result, error)
}

// ScopeController reads and changes the subscription scope at runtime.
// Satisfied by the subscription manager.
type ScopeController interface {
	Scope() config.Scope
	Reconfigure(ctx context.Context, scope config.Scope) error
}

// SyncStatus reports snapshot polling health. Satisfied by the poller.
type SyncStatus interface {
	LastSync() time.Time
}

// Handler carries the dependencies of all HTTP endpoints. Nil optional
// fields (scope control, sync status) disable their endpoints
// gracefully.
type Handler struct {
	Snapshots SnapshotProvider
	Commands  Commander
	Scopes    ScopeController
	Sync      SyncStatus
	Hub       WebSocketHub

	startedAt time.Time
}

// NewHandler creates a handler set.
func NewHandler(snapshots SnapshotProvider, commands Commander, scopes ScopeController, syncStatus SyncStatus, hub WebSocketHub) *Handler {
	return &Handler{
		Snapshots: snapshots,
		Commands:  commands,
		Scopes:    scopes,
		Sync:      syncStatus,
		Hub:       hub,
		startedAt: time.Now(),
	}
}

// Tickets returns the filtered, sorted ticket columns.
//
// Query parameters: search (free text), item (item identifier), sort
// (time, priority, table).
func (h *Handler) Tickets(w http.ResponseWriter, r *http.Request) {
	q := view.Query{
		Search: r.URL.Query().Get("search"),
		ItemID: r.URL.Query().Get("item"),
		Sort:   view.ParseSortMode(r.URL.Query().Get("sort")),
	}
	snap := view.Apply(h.Snapshots.Snapshot(), q)
	writeJSON(w, http.StatusOK, snap)
}

type advanceRequest struct {
	State string `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AdvanceTicket bumps a whole ticket to the requested state.
func (h *Handler) AdvanceTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	state, ok := decodeState(w, r)
	if !ok {
		return
	}

	res, err := h.Commands.AdvanceTicket(r.Context(), ticketID, state)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AdvanceItem bumps a single line item. The {ref} path segment is an
// item identifier, or a numeric index when it parses as an integer.
func (h *Handler) AdvanceItem(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	ref := parseItemRef(chi.URLParam(r, "ref"))
	state, ok := decodeState(w, r)
	if !ok {
		return
	}

	res, err := h.Commands.AdvanceItem(r.Context(), ticketID, ref, state)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetScope returns the active subscription scope.
func (h *Handler) GetScope(w http.ResponseWriter, r *http.Request) {
	if h.Scopes == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "scope control not available"})
		return
	}
	writeJSON(w, http.StatusOK, h.Scopes.Scope())
}

// PutScope switches the subscription scope at runtime. The store is
// left as is; out-of-scope tickets age out through their lifecycle
// while new traffic follows the new scope.
func (h *Handler) PutScope(w http.ResponseWriter, r *http.Request) {
	if h.Scopes == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "scope control not available"})
		return
	}

	var scope config.Scope
	if err := json.NewDecoder(r.Body).Decode(&scope); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid scope payload"})
		return
	}
	if scope.Station != "" && scope.Kitchen == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "station scope requires a kitchen"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Scopes.Reconfigure(ctx, scope); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "scope change did not apply"})
		return
	}
	writeJSON(w, http.StatusOK, scope)
}

type healthResponse struct {
	Status     string           `json:"status"`
	UptimeSecs int64            `json:"uptime_secs"`
	LastSync   *time.Time       `json:"last_sync,omitempty"`
	Engine     engine.LoopStats `json:"engine"`
	Clients    int              `json:"ws_clients"`
}

// Health reports liveness plus the sync and engine counters an
// operator checks first.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		UptimeSecs: int64(time.Since(h.startedAt).Seconds()),
		Engine:     h.Snapshots.Stats(),
	}
	if h.Sync != nil {
		if last := h.Sync.LastSync(); !last.IsZero() {
			resp.LastSync = &last
		}
	}
	if h.Hub != nil {
		resp.Clients = h.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeState(w http.ResponseWriter, r *http.Request) (workflow.State, bool) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request payload"})
		return "", false
	}
	state := workflow.Normalize(req.State)
	if !state.IsCanonical() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown state: " + req.State})
		return "", false
	}
	return state, true
}

func parseItemRef(raw string) models.ItemRef {
	if idx, err := strconv.Atoi(raw); err == nil {
		return models.ItemRef{Index: &idx}
	}
	return models.ItemRef{ItemID: raw}
}

func writeCommandError(w http.ResponseWriter, err error) {
	var statusErr *syncpkg.RemoteStatusError
	if errors.As(err, &statusErr) {
		code := http.StatusBadGateway
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			code = statusErr.StatusCode
		}
		writeJSON(w, code, errorResponse{Error: statusErr.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Err(err).Msg("Failed to encode response")
	}
}
