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
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/llm"
)

// =============================================================================
// Mock Chat Client
// =============================================================================

// mockChatClient implements llm.ChatClient for testing.
type mockChatClient struct {
	chatFn func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error)
	calls  int
}

func (m *mockChatClient) Chat(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
	m.calls++
	if m.chatFn != nil {
		return m.chatFn(ctx, messages, params)
	}
	return `{"intent": "unknown", "confidence": 0.0}`, nil
}

// =============================================================================
// Escalator Tests
// =============================================================================

func TestEscalator_ConfidentLocal_NoEscalation(t *testing.T) {
	client := &mockChatClient{
		chatFn: func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
			t.Error("model should not be called when local result is confident")
			return "", nil
		},
	}
	e := NewEscalator(client, 0.55, time.Second, slog.Default())

	local := classicResult(datatypes.IntentFindNearby, 0.85)
	r := e.Resolve(context.Background(), "pizza near riverside", local, datatypes.NewSession("s1"))
	if r != local {
		t.Error("expected local result returned unchanged")
	}
}

func TestEscalator_SolidActionable_NoEscalation(t *testing.T) {
	client := &mockChatClient{
		chatFn: func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
			t.Error("model should not be called for a solid actionable intent")
			return "", nil
		},
	}
	e := NewEscalator(client, 0.55, time.Second, slog.Default())

	// Below the threshold but actionable and above the solid floor.
	local := classicResult(datatypes.IntentCreateOrder, 0.5)
	r := e.Resolve(context.Background(), "get me something", local, datatypes.NewSession("s1"))
	if r != local {
		t.Error("expected local result returned unchanged")
	}
}

func TestEscalator_LowConfidence_ModelWins(t *testing.T) {
	client := &mockChatClient{
		chatFn: func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
			if !params.JSONMode {
				t.Error("escalation must request JSON mode")
			}
			return `{"intent": "find_nearby", "confidence": 0.8, "slots": {"location": "riverside"}, "reason": "asks for food nearby"}`, nil
		},
	}
	e := NewEscalator(client, 0.55, time.Second, slog.Default())

	local := classicResult(datatypes.IntentUnknown, 0)
	r := e.Resolve(context.Background(), "anything tasty around riverside maybe", local, datatypes.NewSession("s1"))
	if r.Intent != datatypes.IntentFindNearby {
		t.Errorf("intent = %s, want find_nearby", r.Intent)
	}
	if r.Source != datatypes.SourceLLM {
		t.Errorf("source = %s, want llm", r.Source)
	}
	if got := r.Slot("location"); got != "riverside" {
		t.Errorf("location slot = %q", got)
	}
}

func TestEscalator_ModelNotClearlyBetter_LocalStands(t *testing.T) {
	client := &mockChatClient{
		chatFn: func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
			return `{"intent": "menu_request", "confidence": 0.45}`, nil
		},
	}
	e := NewEscalator(client, 0.55, time.Second, slog.Default())

	// Non-actionable, so escalation runs, but 0.45 does not beat 0.4+0.1.
	local := classicResult(datatypes.IntentSmalltalk, 0.4)
	r := e.Resolve(context.Background(), "hmm what about food", local, datatypes.NewSession("s1"))
	if r != local {
		t.Errorf("expected local result to stand, got %s@%f from %s", r.Intent, r.Confidence, r.Source)
	}
	if client.calls != 1 {
		t.Errorf("expected one model call, got %d", client.calls)
	}
}

func TestEscalator_Failures_DegradeToLocal(t *testing.T) {
	local := classicResult(datatypes.IntentUnknown, 0)

	tests := []struct {
		name   string
		chatFn func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error)
	}{
		{"transport_error", func(ctx context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
			return "", errors.New("connection refused")
		}},
		{"malformed_json", func(ctx context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
			return "the user probably wants pizza", nil
		}},
		{"invalid_intent_tag", func(ctx context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
			return `{"intent": "order_pizza_now", "confidence": 0.99}`, nil
		}},
		{"timeout", func(ctx context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEscalator(&mockChatClient{chatFn: tt.chatFn}, 0.55, 50*time.Millisecond, slog.Default())
			r := e.Resolve(context.Background(), "mumble mumble", local, datatypes.NewSession("s1"))
			if r != local {
				t.Errorf("expected degrade to local, got %s from %s", r.Intent, r.Source)
			}
		})
	}
}

func TestEscalator_Disabled(t *testing.T) {
	e := NewEscalator(nil, 0.55, time.Second, slog.Default())
	if e.Enabled() {
		t.Error("nil client must report disabled")
	}
	local := classicResult(datatypes.IntentUnknown, 0)
	if r := e.Resolve(context.Background(), "anything", local, nil); r != local {
		t.Error("disabled escalator must pass the local result through")
	}
}

func TestEscalator_SessionContextInPrompt(t *testing.T) {
	var userMsg string
	client := &mockChatClient{
		chatFn: func(ctx context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
			for _, m := range messages {
				if m.Role == "user" {
					userMsg = m.Content
				}
			}
			return `{"intent": "select_restaurant", "confidence": 0.9, "slots": {"selection": "1"}}`, nil
		},
	}
	e := NewEscalator(client, 0.55, time.Second, slog.Default())

	sess := datatypes.NewSession("s1")
	sess.ExpectedContext = datatypes.ContextSelectRestaurant
	sess.LastIntent = datatypes.IntentFindNearby
	sess.LastLocation = "riverside"
	sess.LastRestaurantsList = []datatypes.Restaurant{{ID: "r1", Name: "Luigi's"}}

	e.Resolve(context.Background(), "the luigi one", classicResult(datatypes.IntentUnknown, 0), sess)

	for _, want := range []string{"select_restaurant", "find_nearby", "riverside", "Luigi's", "the luigi one"} {
		if !strings.Contains(userMsg, want) {
			t.Errorf("user message missing %q:\n%s", want, userMsg)
		}
	}
}

// =============================================================================
// Response Parsing Tests
// =============================================================================

func TestParseEscalationResponse(t *testing.T) {
	t.Run("plain_json", func(t *testing.T) {
		r, err := parseEscalationResponse(`{"intent": "create_order", "confidence": 0.7, "slots": {"order_text": "2 pizzas"}, "reason": "names items"}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Intent != datatypes.IntentCreateOrder || r.Confidence != 0.7 {
			t.Errorf("got %s@%f", r.Intent, r.Confidence)
		}
		if r.Slot("order_text") != "2 pizzas" {
			t.Errorf("order_text = %q", r.Slot("order_text"))
		}
	})

	t.Run("code_fenced", func(t *testing.T) {
		raw := "```json\n{\"intent\": \"cancel_order\", \"confidence\": 0.9}\n```"
		r, err := parseEscalationResponse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Intent != datatypes.IntentCancelOrder {
			t.Errorf("intent = %s", r.Intent)
		}
	})

	t.Run("surrounding_prose", func(t *testing.T) {
		raw := `Here is my answer: {"intent": "smalltalk", "confidence": 0.6} hope that helps`
		r, err := parseEscalationResponse(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Intent != datatypes.IntentSmalltalk {
			t.Errorf("intent = %s", r.Intent)
		}
	})

	t.Run("confidence_clamped", func(t *testing.T) {
		r, err := parseEscalationResponse(`{"intent": "confirm", "confidence": 3.5}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Confidence != 1.0 {
			t.Errorf("confidence = %f, want clamped to 1.0", r.Confidence)
		}
	})

	t.Run("invalid_intent", func(t *testing.T) {
		if _, err := parseEscalationResponse(`{"intent": "teleport", "confidence": 0.9}`); err == nil {
			t.Error("expected error for unknown intent tag")
		}
	})

	t.Run("no_json", func(t *testing.T) {
		if _, err := parseEscalationResponse("sorry, I cannot help"); err == nil {
			t.Error("expected error for missing JSON")
		}
	})
}
