// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

// Package view derives the displayed ticket columns from a store
// snapshot: free-text search, item filtering, and sorting. The pipeline
// is a pure function; it never touches the live store.
package view

import (
	"sort"
	"strings"

	"github.com/expokds/expo/internal/models"
)

// SortMode selects the ordering of tickets within each bucket.
type SortMode string

// Sort modes.
const (
	// SortTime orders by ascending creation time, oldest first.
	SortTime SortMode = "time"
	// SortPriority orders by descending priority, ties broken by
	// ascending creation time.
	SortPriority SortMode = "priority"
	// SortTable orders lexicographically by table name; tickets
	// without a table sort last.
	SortTable SortMode = "table"
)

// ParseSortMode resolves a sort mode string, defaulting to SortTime.
func ParseSortMode(raw string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(raw))) {
	case SortPriority:
		return SortPriority
	case SortTable:
		return SortTable
	default:
		return SortTime
	}
}

// Query holds the display parameters applied to a snapshot.
type Query struct {
	// Search matches case-insensitively against ticket and item
	// fields; empty means no search filter.
	Search string

	// ItemID keeps only tickets containing at least one item with
	// this identifier; empty means no item filter.
	ItemID string

	Sort SortMode
}

// Apply filters and sorts a snapshot into a new snapshot. The input is
// never mutated; bucket slices are rebuilt from the snapshot's tickets
// (which are already copies of store state).
func Apply(snap *models.StoreSnapshot, q Query) *models.StoreSnapshot {
	out := &models.StoreSnapshot{
		Queued:    filterSort(snap.Queued, q),
		Preparing: filterSort(snap.Preparing, q),
		Ready:     filterSort(snap.Ready, q),
		TakenAt:   snap.TakenAt,
	}
	return out
}

func filterSort(tickets []models.Ticket, q Query) []models.Ticket {
	out := make([]models.Ticket, 0, len(tickets))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for i := range tickets {
		if search != "" && !matchesSearch(&tickets[i], search) {
			continue
		}
		if q.ItemID != "" && !containsItem(&tickets[i], q.ItemID) {
			continue
		}
		out = append(out, tickets[i])
	}
	sortTickets(out, q.Sort)
	return out
}

// matchesSearch reports whether any searchable ticket field, or any
// item's name or note, contains term (already lowercased).
func matchesSearch(t *models.Ticket, term string) bool {
	fields := []string{
		t.ID, t.Table, t.OrderID, t.Branch, t.Kitchen, t.Station,
		t.Floor, t.OrderType, t.Customer, t.CreatedBy,
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	for i := range t.Items {
		if it := &t.Items[i]; (it.Name != "" && strings.Contains(strings.ToLower(it.Name), term)) ||
			(it.Note != "" && strings.Contains(strings.ToLower(it.Note), term)) {
			return true
		}
	}
	return false
}

func containsItem(t *models.Ticket, itemID string) bool {
	for i := range t.Items {
		if t.Items[i].ItemID == itemID {
			return true
		}
	}
	return false
}

// sortTickets orders tickets in place. All modes use a stable sort so
// equal tickets keep their snapshot order.
func sortTickets(tickets []models.Ticket, mode SortMode) {
	switch mode {
	case SortPriority:
		sort.SliceStable(tickets, func(i, j int) bool {
			if tickets[i].Priority != tickets[j].Priority {
				return tickets[i].Priority > tickets[j].Priority
			}
			return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
		})
	case SortTable:
		sort.SliceStable(tickets, func(i, j int) bool {
			ti, tj := tickets[i].Table, tickets[j].Table
			if (ti == "") != (tj == "") {
				return tj == "" // tables before no-table
			}
			return ti < tj
		})
	default: // SortTime
		sort.SliceStable(tickets, func(i, j int) bool {
			return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
		})
	}
}
