// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlu

import (
	"context"
	"log/slog"
	"testing"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

func classicResult(intent datatypes.Intent, conf float64) *datatypes.IntentResult {
	return &datatypes.IntentResult{Intent: intent, Confidence: conf, Source: datatypes.SourceClassic}
}

func sessionWithContext(ctx datatypes.ExpectedContext) *datatypes.Session {
	s := datatypes.NewSession("test-session")
	s.ExpectedContext = ctx
	return s
}

func TestBooster_ConfirmContext(t *testing.T) {
	b := NewBooster(slog.Default())

	t.Run("affirmative_confirms", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextConfirmOrder)
		r := b.Boost(context.Background(), "yes add it", classicResult(datatypes.IntentConfirm, 0.6), sess)
		if r.Intent != datatypes.IntentConfirmOrder {
			t.Errorf("intent = %s, want confirm_order", r.Intent)
		}
		if r.Source != datatypes.SourceBooster {
			t.Errorf("source = %s, want booster", r.Source)
		}
	})

	t.Run("bare_negation_cancels", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextConfirmOrder)
		r := b.Boost(context.Background(), "no", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent != datatypes.IntentCancelOrder {
			t.Errorf("intent = %s, want cancel_order", r.Intent)
		}
	})

	t.Run("new_item_supersedes_confirmation", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextConfirmOrder)
		r := b.Boost(context.Background(), "actually make it 2 pepperoni pizzas", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent != datatypes.IntentCreateOrder {
			t.Errorf("intent = %s, want create_order", r.Intent)
		}
		if r.Slot("order_text") == "" {
			t.Error("expected order_text slot on superseding order")
		}
	})

	t.Run("mixed_signal_not_affirmative", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextConfirmOrder)
		r := b.Boost(context.Background(), "yes but no", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent == datatypes.IntentConfirmOrder {
			t.Error("mixed yes/no must not confirm the order")
		}
	})
}

func TestBooster_SelectContext(t *testing.T) {
	b := NewBooster(slog.Default())

	sess := sessionWithContext(datatypes.ContextSelectRestaurant)
	sess.LastRestaurantsList = []datatypes.Restaurant{
		{ID: "r1", Name: "Luigi's"},
		{ID: "r2", Name: "Pizza Nova"},
		{ID: "r3", Name: "Golden Dragon"},
	}

	tests := []struct {
		text string
		want string
	}{
		{"2", "2"},
		{"number 2", "2"},
		{"the second one", "2"},
	}
	for _, tt := range tests {
		r := b.Boost(context.Background(), tt.text, classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent != datatypes.IntentSelectRestaurant {
			t.Errorf("Boost(%q) intent = %s, want select_restaurant", tt.text, r.Intent)
		}
		if got := r.Slot("selection"); got != tt.want {
			t.Errorf("Boost(%q) selection = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestBooster_GlobalShortCircuits(t *testing.T) {
	b := NewBooster(slog.Default())

	t.Run("cancel_beats_context", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextSelectRestaurant)
		r := b.Boost(context.Background(), "forget it", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent != datatypes.IntentCancelOrder {
			t.Errorf("intent = %s, want cancel_order", r.Intent)
		}
	})

	t.Run("show_more_any_context", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextNone)
		r := b.Boost(context.Background(), "what else is there", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent != datatypes.IntentShowMoreOptions {
			t.Errorf("intent = %s, want show_more_options", r.Intent)
		}
	})

	t.Run("numeric_needs_visible_list", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextNone)
		r := b.Boost(context.Background(), "2", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent == datatypes.IntentSelectRestaurant {
			t.Error("bare number without a visible list must not select")
		}
	})
}

func TestBooster_ShowMoreContext(t *testing.T) {
	b := NewBooster(slog.Default())

	t.Run("explicit_next_pages", func(t *testing.T) {
		sess := sessionWithContext(datatypes.ContextShowMoreOptions)
		r := b.Boost(context.Background(), "next", classicResult(datatypes.IntentUnknown, 0), sess)
		if r.Intent != datatypes.IntentShowMoreOptions {
			t.Errorf("intent = %s, want show_more_options", r.Intent)
		}
	})

	t.Run("bare_yes_is_not_paging", func(t *testing.T) {
		// Only explicit more/next phrasing re-confirms paging; agreement
		// words fall through to the other layers.
		sess := sessionWithContext(datatypes.ContextShowMoreOptions)
		r := b.Boost(context.Background(), "yes", classicResult(datatypes.IntentConfirm, 0.6), sess)
		if r.Intent == datatypes.IntentShowMoreOptions {
			t.Error("bare agreement must not advance the page")
		}
		if r.Intent != datatypes.IntentConfirm {
			t.Errorf("intent = %s, want the classic confirm to stand", r.Intent)
		}
	})
}

// A confident classic result is never overridden by context or heuristics.
func TestBooster_ConfidenceFloor(t *testing.T) {
	b := NewBooster(slog.Default())

	sess := sessionWithContext(datatypes.ContextNone)
	sess.LastIntent = datatypes.IntentCreateOrder

	classic := classicResult(datatypes.IntentFindNearby, 0.85)
	r := b.Boost(context.Background(), "places to eat near the station", classic, sess)
	if r.Intent != datatypes.IntentFindNearby || r.Source != datatypes.SourceClassic {
		t.Errorf("confident classic result was overridden: %s/%s", r.Intent, r.Source)
	}
}

func TestBooster_LastIntentHeuristic(t *testing.T) {
	b := NewBooster(slog.Default())

	sess := sessionWithContext(datatypes.ContextNone)
	sess.LastIntent = datatypes.IntentCreateOrder

	r := b.Boost(context.Background(), "nah", classicResult(datatypes.IntentUnknown, 0), sess)
	if r.Intent != datatypes.IntentCancelOrder {
		t.Errorf("bare negation after create_order: intent = %s, want cancel_order", r.Intent)
	}
}

func TestBooster_SemanticFallback(t *testing.T) {
	b := NewBooster(slog.Default())
	sess := sessionWithContext(datatypes.ContextNone)

	r := b.Boost(context.Background(), "im so hungry", classicResult(datatypes.IntentUnknown, 0), sess)
	if r.Intent != datatypes.IntentFindNearby {
		t.Errorf("intent = %s, want find_nearby", r.Intent)
	}

	// Fallback only applies to unresolved intents.
	r = b.Boost(context.Background(), "im so hungry", classicResult(datatypes.IntentSmalltalk, 0.5), sess)
	if r.Intent != datatypes.IntentSmalltalk {
		t.Errorf("semantic fallback overrode a resolved intent: %s", r.Intent)
	}
}

func TestBooster_Passthrough(t *testing.T) {
	b := NewBooster(slog.Default())
	sess := sessionWithContext(datatypes.ContextNone)

	classic := classicResult(datatypes.IntentMenuRequest, 0.6)
	r := b.Boost(context.Background(), "tell me about the place", classic, sess)
	if r != classic {
		t.Error("expected classic result returned unchanged on passthrough")
	}

	if r := b.Boost(context.Background(), "", classic, sess); r != classic {
		t.Error("empty text must pass through")
	}
}
