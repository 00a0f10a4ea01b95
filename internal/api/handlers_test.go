// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/dispatch"
	"github.com/expokds/expo/internal/engine"
	"github.com/expokds/expo/internal/models"
	syncpkg "github.com/expokds/expo/internal/sync"
	"github.com/expokds/expo/internal/workflow"
)

type fakeSnapshots struct {
	snap  *models.StoreSnapshot
	stats engine.LoopStats
}

func (f *fakeSnapshots) Snapshot() *models.StoreSnapshot { return f.snap }
func (f *fakeSnapshots) Stats() engine.LoopStats         { return f.stats }

type fakeCommander struct {
	lastTicketID string
	lastState    workflow.State
	lastItem     *models.ItemRef
	result       *dispatch.Result
	err          error
}

func (f *fakeCommander) AdvanceTicket(ctx context.Context, ticketID string, state workflow.State) (*dispatch.Result, error) {
	f.lastTicketID, f.lastState = ticketID, state
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &dispatch.Result{TicketID: ticketID, State: state, Confirmed: true}, nil
}

func (f *fakeCommander) AdvanceItem(ctx context.Context, ticketID string, item models.ItemRef, state workflow.State) (*dispatch.Result, error) {
	f.lastTicketID, f.lastState, f.lastItem = ticketID, state, &item
	if f.err != nil {
		return nil, f.err
	}
	return &dispatch.Result{TicketID: ticketID, Item: &item, State: state, Confirmed: true}, nil
}

type fakeScopes struct {
	scope config.Scope
}

func (f *fakeScopes) Scope() config.Scope { return f.scope }
func (f *fakeScopes) Reconfigure(ctx context.Context, scope config.Scope) error {
	f.scope = scope
	return nil
}

func testRouter(snapshots SnapshotProvider, commands Commander, scopes ScopeController) http.Handler {
	h := NewHandler(snapshots, commands, scopes, nil, nil)
	return NewRouter(h, config.Server{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   10000,
		RateLimitWindow: time.Minute,
	})
}

func emptySnapshots() *fakeSnapshots {
	return &fakeSnapshots{snap: &models.StoreSnapshot{}}
}

func TestTickets_AppliesQueryParameters(t *testing.T) {
	snapshots := &fakeSnapshots{snap: &models.StoreSnapshot{
		Queued: []models.Ticket{
			{ID: "T1", Table: "5", CreatedAt: time.Now()},
			{ID: "T2", Table: "1", CreatedAt: time.Now().Add(time.Minute)},
		},
	}}
	router := testRouter(snapshots, &fakeCommander{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets?sort=table", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var snap models.StoreSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(snap.Queued) != 2 || snap.Queued[0].ID != "T2" {
		t.Errorf("table sort not applied: %+v", snap.Queued)
	}
}

func TestAdvanceTicket_NormalizesState(t *testing.T) {
	commander := &fakeCommander{}
	router := testRouter(emptySnapshots(), commander, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/T1/state",
		strings.NewReader(`{"state":"ready to serve"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if commander.lastTicketID != "T1" || commander.lastState != workflow.StateReady {
		t.Errorf("command = (%q, %q)", commander.lastTicketID, commander.lastState)
	}
}

func TestAdvanceTicket_RejectsUnknownState(t *testing.T) {
	commander := &fakeCommander{}
	router := testRouter(emptySnapshots(), commander, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/T1/state",
		strings.NewReader(`{"state":"flambeed"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if commander.lastTicketID != "" {
		t.Error("unknown state must not reach the dispatcher")
	}
}

func TestAdvanceTicket_UpstreamRejectionPassesStatus(t *testing.T) {
	commander := &fakeCommander{err: &syncpkg.RemoteStatusError{StatusCode: http.StatusConflict, Body: "closed"}}
	router := testRouter(emptySnapshots(), commander, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/T1/state",
		strings.NewReader(`{"state":"served"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAdvanceItem_NumericRefIsIndex(t *testing.T) {
	commander := &fakeCommander{}
	router := testRouter(emptySnapshots(), commander, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/T1/items/2/state",
		strings.NewReader(`{"state":"done"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if commander.lastItem == nil || commander.lastItem.Index == nil || *commander.lastItem.Index != 2 {
		t.Errorf("item ref = %+v, want index 2", commander.lastItem)
	}
}

func TestAdvanceItem_StringRefIsItemID(t *testing.T) {
	commander := &fakeCommander{}
	router := testRouter(emptySnapshots(), commander, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/T1/items/burger-1a/state",
		strings.NewReader(`{"state":"done"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if commander.lastItem == nil || commander.lastItem.ItemID != "burger-1a" {
		t.Errorf("item ref = %+v, want item id burger-1a", commander.lastItem)
	}
}

func TestScope_RoundTrip(t *testing.T) {
	scopes := &fakeScopes{scope: config.Scope{Kitchen: "k1"}}
	router := testRouter(emptySnapshots(), &fakeCommander{}, scopes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "k1") {
		t.Errorf("GET scope = %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/scope",
		strings.NewReader(`{"kitchen":"k2","station":"grill"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT scope = %d %s", rec.Code, rec.Body.String())
	}
	if scopes.scope.Kitchen != "k2" || scopes.scope.Station != "grill" {
		t.Errorf("scope not applied: %+v", scopes.scope)
	}
}

func TestScope_StationWithoutKitchenRejected(t *testing.T) {
	scopes := &fakeScopes{}
	router := testRouter(emptySnapshots(), &fakeCommander{}, scopes)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/scope",
		strings.NewReader(`{"station":"grill"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth_ReportsEngineStats(t *testing.T) {
	snapshots := &fakeSnapshots{
		snap:  &models.StoreSnapshot{},
		stats: engine.LoopStats{Applied: 7, Ignored: 2},
	}
	router := testRouter(snapshots, &fakeCommander{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" || resp.Engine.Applied != 7 {
		t.Errorf("unexpected health payload: %+v", resp)
	}
}
