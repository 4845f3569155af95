// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the shared domain and wire types for the Dialog
// service: intents, sessions, restaurants, menu items, orders, and the
// per-turn resolution result. It has no dependencies on the rest of the
// service — every other dialog package may import it.
package datatypes

// =============================================================================
// Intent Tags
// =============================================================================

// Intent is the discrete action a user utterance is classified as.
//
// The tag set is closed: the state machine switches exhaustively over these
// values, so adding an intent means touching the transition switch as well.
// Intents are compared only against these constants — never against ad hoc
// string literals.
type Intent string

const (
	IntentFindNearby       Intent = "find_nearby"
	IntentMenuRequest      Intent = "menu_request"
	IntentSelectRestaurant Intent = "select_restaurant"
	IntentCreateOrder      Intent = "create_order"
	IntentConfirmOrder     Intent = "confirm_order"
	IntentCancelOrder      Intent = "cancel_order"
	IntentChangeRestaurant Intent = "change_restaurant"
	IntentShowMoreOptions  Intent = "show_more_options"
	IntentRecommend        Intent = "recommend"
	IntentConfirm          Intent = "confirm"
	IntentSmalltalk        Intent = "smalltalk"
	IntentUnknown          Intent = "unknown"
)

// AllIntents lists every valid intent tag. Used by the escalation resolver to
// validate model output and by tests to assert exhaustiveness.
var AllIntents = []Intent{
	IntentFindNearby, IntentMenuRequest, IntentSelectRestaurant,
	IntentCreateOrder, IntentConfirmOrder, IntentCancelOrder,
	IntentChangeRestaurant, IntentShowMoreOptions, IntentRecommend,
	IntentConfirm, IntentSmalltalk, IntentUnknown,
}

// Valid reports whether i is one of the closed intent tags.
func (i Intent) Valid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

// Actionable reports whether the intent drives a concrete order-flow action.
// Smalltalk, bare confirmations, and unknown are conversational filler from
// the state machine's point of view; everything else maps to a transition.
func (i Intent) Actionable() bool {
	switch i {
	case IntentUnknown, IntentSmalltalk, IntentConfirm, "":
		return false
	}
	return true
}

// =============================================================================
// Intent Resolution Result
// =============================================================================

// IntentSource identifies which layer of the resolution pipeline produced the
// final intent.
type IntentSource string

const (
	// SourceClassic is the pattern-rule classifier.
	SourceClassic IntentSource = "classic"

	// SourceBooster is the context-aware re-ranking layer.
	SourceBooster IntentSource = "booster"

	// SourceLLM is the generative-model escalation path.
	SourceLLM IntentSource = "llm"
)

// IntentResult is the resolved {intent, confidence, slots} triple flowing
// through the pipeline.
//
// # Description
//
// Confidence is always in [0, 1]. Slots carries named entities extracted from
// the utterance (location, cuisine, dish, quantity, ...) as plain strings —
// downstream consumers parse what they need. Reason is a short human-readable
// note about which rule or model produced the result, for logging only.
//
// # Thread Safety
//
// IntentResult is a value handed between pipeline stages; each stage that
// modifies it copies first. Not shared across goroutines.
type IntentResult struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Source     IntentSource      `json:"source"`
	Slots      map[string]string `json:"slots,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// Clone returns a deep copy of the result. Slot maps are never shared between
// pipeline stages.
func (r *IntentResult) Clone() *IntentResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Slots != nil {
		out.Slots = make(map[string]string, len(r.Slots))
		for k, v := range r.Slots {
			out.Slots[k] = v
		}
	}
	return &out
}

// Slot returns the named slot value, or "" when absent.
func (r *IntentResult) Slot(name string) string {
	if r == nil || r.Slots == nil {
		return ""
	}
	return r.Slots[name]
}

// SetSlot stores a slot value, allocating the map on first use.
func (r *IntentResult) SetSlot(name, value string) {
	if r.Slots == nil {
		r.Slots = make(map[string]string, 4)
	}
	r.Slots[name] = value
}
