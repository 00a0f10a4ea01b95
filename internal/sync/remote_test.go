// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/expokds/expo/internal/config"
)

func remoteCfg(url string) config.Remote {
	return config.Remote{
		URL:       url,
		APIKey:    "secret",
		Timeout:   5 * time.Second,
		RateLimit: 100,
	}
}

func TestRemoteClient_FetchTickets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tickets" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"T1","status":"Queued"},{"id":"T2","status":"preparing"}]`))
	}))
	defer srv.Close()

	c := NewRemoteClient(remoteCfg(srv.URL))
	tickets, err := c.FetchTickets(context.Background())
	if err != nil {
		t.Fatalf("FetchTickets: %v", err)
	}
	if len(tickets) != 2 || tickets[0].ID != "T1" || tickets[1].ID != "T2" {
		t.Errorf("unexpected tickets: %+v", tickets)
	}
}

func TestRemoteClient_AdvanceTicket(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewRemoteClient(remoteCfg(srv.URL))
	if err := c.AdvanceTicket(context.Background(), "T1", "Ready"); err != nil {
		t.Fatalf("AdvanceTicket: %v", err)
	}
	if gotPath != "/tickets/T1/state" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"status":"Ready"}` {
		t.Errorf("body = %q", gotBody)
	}
}

func TestRemoteClient_NonOKIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ticket already closed", http.StatusConflict)
	}))
	defer srv.Close()

	c := NewRemoteClient(remoteCfg(srv.URL))
	err := c.AdvanceTicket(context.Background(), "T1", "Ready")

	var statusErr *RemoteStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected RemoteStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
}

func TestRemoteClient_TransportErrorIsNotStatusError(t *testing.T) {
	// Nothing listens on this port.
	c := NewRemoteClient(remoteCfg("http://127.0.0.1:1"))
	_, err := c.FetchTickets(context.Background())
	if err == nil {
		t.Skip("unexpectedly connected")
	}

	var statusErr *RemoteStatusError
	if errors.As(err, &statusErr) {
		t.Error("transport failure must not be a RemoteStatusError")
	}
}
