// Expo - Kitchen Order Ticket Synchronization
// Copyright 2026 Expo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/expokds/expo

package workflow

// Cascade computes an item's state after its parent ticket transitions
// to ticketState. The cascade is forward-biased and one-directional:
// item progress tracks the ticket, but item state never overrides ticket
// state.
//
//   - ticket Queued: every item snaps back to Queued
//   - ticket In Progress: items still Queued advance to In Progress;
//     items already further along are untouched
//   - ticket Ready: items not yet Ready/Served/Cancelled advance to Ready
//   - ticket Served: items not yet Served/Cancelled advance to Served
//   - ticket Cancelled: every item not already Cancelled becomes Cancelled
//
// Non-canonical ticket states are unmanaged: the item keeps its state.
func Cascade(ticketState, itemState State) State {
	switch ticketState {
	case StateQueued:
		return StateQueued
	case StateInProgress:
		if itemState == StateQueued {
			return StateInProgress
		}
		return itemState
	case StateReady:
		switch itemState {
		case StateReady, StateServed, StateCancelled:
			return itemState
		}
		return StateReady
	case StateServed:
		switch itemState {
		case StateServed, StateCancelled:
			return itemState
		}
		return StateServed
	case StateCancelled:
		if itemState == StateCancelled {
			return itemState
		}
		return StateCancelled
	default:
		return itemState
	}
}
