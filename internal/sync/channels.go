// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package sync keeps the local ticket store aligned with the upstream
// KOT system through two paths: push events over a message broker and
// periodic snapshot polling over HTTP.
package sync

import (
	"github.com/expokds/expo/internal/config"
	"github.com/expokds/expo/internal/models"
)

// Broadcast channel names. A station-scoped instance listens on its
// station channel, a kitchen-scoped one on its kitchen channel, and an
// unscoped one on the firehose.
const (
	ChannelAll           = "kitchen:all"
	kitchenChannelPrefix = "kitchen:"
	stationChannelPrefix = "kitchen:station:"
)

// KitchenChannel returns the per-kitchen channel name.
func KitchenChannel(kitchenID string) string {
	return kitchenChannelPrefix + kitchenID
}

// StationChannel returns the per-station channel name.
func StationChannel(stationID string) string {
	return stationChannelPrefix + stationID
}

// ChannelsForScope picks the channels an instance subscribes to. The
// narrowest configured scope wins; subscribing to both a station and
// its kitchen channel would double-deliver every station event.
func ChannelsForScope(scope config.Scope) []string {
	switch {
	case scope.Station != "":
		return []string{StationChannel(scope.Station)}
	case scope.Kitchen != "":
		return []string{KitchenChannel(scope.Kitchen)}
	default:
		return []string{ChannelAll}
	}
}

// InScope reports whether an event belongs to the configured scope.
// Empty fields are wildcards on both sides: an unset filter matches
// everything, and an event that does not carry a field passes every
// filter on that field.
func InScope(scope config.Scope, ev *models.TicketEvent) bool {
	if scope.Branch != "" && ev.Branch != "" && ev.Branch != scope.Branch {
		return false
	}
	if scope.Kitchen != "" && ev.Kitchen != "" && ev.Kitchen != scope.Kitchen {
		return false
	}
	if scope.Station != "" && ev.Station != "" && ev.Station != scope.Station {
		return false
	}
	return true
}
