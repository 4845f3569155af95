// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// =============================================================================
// Dialogue Context
// =============================================================================

// ExpectedContext describes what kind of follow-up utterance the dialogue is
// primed to interpret. It changes the meaning of short utterances: "2" means
// nothing in ContextNone, and means "the second restaurant" in
// ContextSelectRestaurant.
type ExpectedContext string

const (
	ContextNone             ExpectedContext = "none"
	ContextShowMoreOptions  ExpectedContext = "show_more_options"
	ContextSelectRestaurant ExpectedContext = "select_restaurant"
	ContextConfirmOrder     ExpectedContext = "confirm_order"
)

// =============================================================================
// Session
// =============================================================================

// LocationCacheEntry is one cached location lookup result.
//
// Entries are opportunistic, not authoritative: an expired or missing entry
// always triggers a fresh catalog query.
type LocationCacheEntry struct {
	Restaurants []Restaurant `json:"restaurants"`
	CachedAt    time.Time    `json:"cached_at"`
}

// Session is the per-conversation state owned by the dialogue state machine.
//
// # Description
//
// A session is created on the first utterance of a session id and mutated
// exclusively by the state machine; all other pipeline stages read it.
// A session whose LastUpdated is older than the store's inactivity TTL is
// treated as fresh, not as an error.
//
// Invariant: PendingOrder != nil implies ExpectedContext ==
// ContextConfirmOrder until the order is committed or cancelled. The state
// machine is the only writer, and every transition that sets or clears
// PendingOrder sets ExpectedContext in the same step.
//
// # Thread Safety
//
// Not safe for concurrent mutation. The intended usage is one in-flight turn
// per session; concurrent turns against the same id are last-write-wins (a
// documented limitation, not a handled case).
type Session struct {
	ID              string          `json:"id"`
	ExpectedContext ExpectedContext `json:"expected_context"`

	PendingOrder *Order `json:"pending_order,omitempty"`
	Cart         *Cart  `json:"cart,omitempty"`

	LastRestaurant      *Restaurant  `json:"last_restaurant,omitempty"`
	LastLocation        string       `json:"last_location,omitempty"`
	LastIntent          Intent       `json:"last_intent,omitempty"`
	LastRestaurantsList []Restaurant `json:"last_restaurants_list,omitempty"`

	// LocationCache is keyed by normalized "location|cuisine".
	LocationCache map[string]LocationCacheEntry `json:"location_cache,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
}

// NewSession returns a fresh idle session for the given id.
func NewSession(id string) *Session {
	return &Session{
		ID:              id,
		ExpectedContext: ContextNone,
		Cart:            &Cart{},
		LastUpdated:     time.Now(),
	}
}

// Clone returns a deep copy of the session. Used for the snapshot returned to
// the caller, so the caller can never mutate store-owned state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.PendingOrder = s.PendingOrder.Clone()
	out.Cart = s.Cart.Clone()
	if s.LastRestaurant != nil {
		r := *s.LastRestaurant
		out.LastRestaurant = &r
	}
	out.LastRestaurantsList = append([]Restaurant(nil), s.LastRestaurantsList...)
	if s.LocationCache != nil {
		out.LocationCache = make(map[string]LocationCacheEntry, len(s.LocationCache))
		for k, v := range s.LocationCache {
			v.Restaurants = append([]Restaurant(nil), v.Restaurants...)
			out.LocationCache[k] = v
		}
	}
	return &out
}

// SetPendingOrder stores a pending order and moves the dialogue into the
// confirm_order context in the same step, preserving the session invariant.
func (s *Session) SetPendingOrder(o *Order) {
	s.PendingOrder = o
	if o != nil {
		s.ExpectedContext = ContextConfirmOrder
	}
}

// ClearPendingOrder drops the pending order and returns the dialogue to the
// idle context.
func (s *Session) ClearPendingOrder() {
	s.PendingOrder = nil
	s.ExpectedContext = ContextNone
}
