// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package sync

import (
	"testing"

	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/models"
)

func TestChannelsForScope(t *testing.T) {
	tests := []struct {
		name  string
		scope config.Scope
		want  string
	}{
		{"unscoped follows all", config.Scope{}, "kitchen:all"},
		{"kitchen scoped", config.Scope{Kitchen: "k1"}, "kitchen:k1"},
		{"station wins over kitchen", config.Scope{Kitchen: "k1", Station: "grill"}, "kitchen:station:grill"},
		{"branch alone still follows all", config.Scope{Branch: "b1"}, "kitchen:all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChannelsForScope(tt.scope)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("ChannelsForScope(%+v) = %v, want [%s]", tt.scope, got, tt.want)
			}
		})
	}
}

func TestInScope(t *testing.T) {
	scope := config.Scope{Branch: "b1", Kitchen: "k1", Station: "grill"}

	tests := []struct {
		name string
		ev   models.TicketEvent
		want bool
	}{
		{"exact match", models.TicketEvent{Branch: "b1", Kitchen: "k1", Station: "grill"}, true},
		{"empty event fields are wildcards", models.TicketEvent{}, true},
		{"partial event fields", models.TicketEvent{Kitchen: "k1"}, true},
		{"wrong kitchen", models.TicketEvent{Kitchen: "k2"}, false},
		{"wrong station", models.TicketEvent{Kitchen: "k1", Station: "fry"}, false},
		{"wrong branch", models.TicketEvent{Branch: "b2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InScope(scope, &tt.ev); got != tt.want {
				t.Errorf("InScope(%+v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}

func TestInScope_EmptyScopeMatchesEverything(t *testing.T) {
	ev := models.TicketEvent{Branch: "x", Kitchen: "y", Station: "z"}
	if !InScope(config.Scope{}, &ev) {
		t.Error("empty scope must match every event")
	}
}
