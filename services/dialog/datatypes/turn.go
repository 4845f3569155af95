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

// =============================================================================
// Reply Core
// =============================================================================

// ReplyKind is the machine-readable category of a turn's reply. The caller
// owns prose generation and speech synthesis; the dialog core only says WHAT
// happened, never how to phrase it.
type ReplyKind string

const (
	// ReplyRestaurantsFound carries a page of matched restaurants.
	ReplyRestaurantsFound ReplyKind = "restaurants_found"

	// ReplyMenu carries a restaurant's menu items.
	ReplyMenu ReplyKind = "menu"

	// ReplyRestaurantSelected confirms a restaurant choice.
	ReplyRestaurantSelected ReplyKind = "restaurant_selected"

	// ReplyOrderPending asks the user to confirm a parsed order.
	ReplyOrderPending ReplyKind = "order_pending"

	// ReplyOrderCommitted confirms the pending order entered the cart.
	ReplyOrderCommitted ReplyKind = "order_committed"

	// ReplyOrderCancelled confirms cancellation of the pending order.
	ReplyOrderCancelled ReplyKind = "order_cancelled"

	// ReplyInputInvalid soft-rejects empty or oversized input.
	ReplyInputInvalid ReplyKind = "input_invalid"

	// ReplyMatchNotFound reports an unknown dish/restaurant/location, with
	// fuzzy suggestions when available.
	ReplyMatchNotFound ReplyKind = "match_not_found"

	// ReplyMissingSize asks for a size for a dish that requires one.
	ReplyMissingSize ReplyKind = "missing_size"

	// ReplyAmbiguousMatch asks the user to pick between equally-valid
	// candidates. Distinct from ReplyMatchNotFound.
	ReplyAmbiguousMatch ReplyKind = "ambiguous_match"

	// ReplyReprompt is the generic worst-case re-prompt for unknown intents.
	ReplyReprompt ReplyKind = "reprompt"

	// ReplySmalltalk acknowledges conversational filler.
	ReplySmalltalk ReplyKind = "smalltalk"
)

// ReplyCore is the data-carrying, un-styled message returned to the caller.
type ReplyCore struct {
	Kind ReplyKind `json:"kind"`

	// Message is a terse, neutral fallback phrasing. Callers with their own
	// reply generation ignore it.
	Message string `json:"message,omitempty"`

	// Params carries kind-specific scalar details (dish name, total, city).
	Params map[string]string `json:"params,omitempty"`

	// Restaurants is set for restaurant-listing kinds.
	Restaurants []Restaurant `json:"restaurants,omitempty"`

	// MenuItems is set for ReplyMenu.
	MenuItems []MenuItem `json:"menu_items,omitempty"`

	// Order is set for order-carrying kinds (pending, committed).
	Order *Order `json:"order,omitempty"`

	// Suggestions carries fuzzy-match or size suggestions for clarification
	// kinds.
	Suggestions []string `json:"suggestions,omitempty"`
}

// =============================================================================
// Turn Result
// =============================================================================

// TurnResult is the full output of one ResolveTurn call.
type TurnResult struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Source     IntentSource      `json:"source"`
	Slots      map[string]string `json:"slots,omitempty"`

	Reply ReplyCore `json:"reply"`

	// Session is a snapshot of the updated session after the transition.
	Session *Session `json:"session"`
}

// =============================================================================
// Chat Messages (generative-model collaborator)
// =============================================================================

// Message is one turn of a model conversation. Role is "system", "user", or
// "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
