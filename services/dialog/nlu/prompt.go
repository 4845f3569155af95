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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

// =============================================================================
// Escalation Prompt
// =============================================================================

// escalationSystemPrompt instructs the model to emit exactly one JSON object
// matching the intent schema. Kept terse: small models drift on long prompts.
const escalationSystemPrompt = `You classify a single user utterance from a food-ordering conversation into exactly one intent.

Valid intents:
  find_nearby        - user wants restaurants near a place
  menu_request       - user asks what a restaurant offers
  select_restaurant  - user picks a restaurant from a shown list
  create_order       - user names dishes to order
  confirm_order      - user confirms a pending order
  cancel_order       - user cancels or refuses
  change_restaurant  - user wants a different restaurant
  show_more_options  - user wants more results
  recommend          - user asks for a suggestion
  confirm            - bare agreement with no pending order
  smalltalk          - greeting or chit-chat
  unknown            - none of the above

Respond with ONLY a JSON object, no prose, no code fences:
{"intent": "<tag>", "confidence": <0.0-1.0>, "slots": {"location": "...", "cuisine": "...", "selection": "...", "order_text": "..."}, "reason": "<one short sentence>"}

Omit slots you cannot fill. Use the conversation context to disambiguate short replies.`

// buildEscalationMessages assembles the chat messages for the escalation call.
//
// Description:
//
//	The session context is compacted to the fields that change how a short
//	reply should be read: the expected context, the last intent, the
//	selected restaurant, the last location, and the currently visible
//	restaurant names. Everything else stays local.
func buildEscalationMessages(text string, sess *datatypes.Session) []datatypes.Message {
	var ctxParts []string
	if sess != nil {
		if sess.ExpectedContext != datatypes.ContextNone && sess.ExpectedContext != "" {
			ctxParts = append(ctxParts, "expected_context="+string(sess.ExpectedContext))
		}
		if sess.LastIntent != "" {
			ctxParts = append(ctxParts, "last_intent="+string(sess.LastIntent))
		}
		if sess.LastRestaurant != nil {
			ctxParts = append(ctxParts, "selected_restaurant="+sess.LastRestaurant.Name)
		}
		if sess.LastLocation != "" {
			ctxParts = append(ctxParts, "last_location="+sess.LastLocation)
		}
		if len(sess.LastRestaurantsList) > 0 {
			names := make([]string, 0, len(sess.LastRestaurantsList))
			for _, r := range sess.LastRestaurantsList {
				names = append(names, r.Name)
			}
			ctxParts = append(ctxParts, "visible_restaurants=["+strings.Join(names, ", ")+"]")
		}
		if sess.PendingOrder != nil {
			ctxParts = append(ctxParts, fmt.Sprintf("pending_order_total=%.2f", sess.PendingOrder.Total()))
		}
	}

	user := "Utterance: " + text
	if len(ctxParts) > 0 {
		user = "Context: " + strings.Join(ctxParts, "; ") + "\n" + user
	}

	return []datatypes.Message{
		{Role: "system", Content: escalationSystemPrompt},
		{Role: "user", Content: user},
	}
}

// =============================================================================
// Response Parsing
// =============================================================================

// escalationResponse is the wire schema the model is asked to produce.
type escalationResponse struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
	Reason     string            `json:"reason"`
}

// parseEscalationResponse decodes the model output into an IntentResult.
//
// Description:
//
//	Tolerates code-fenced output and leading/trailing prose by extracting
//	the outermost JSON object before decoding. The intent tag is validated
//	against the closed intent set; an unknown tag is an error so the
//	caller degrades to the classic result instead of acting on a
//	hallucinated intent. Confidence is clamped to [0, 1].
func parseEscalationResponse(raw string) (*datatypes.IntentResult, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var resp escalationResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decoding model output: %w", err)
	}

	intent := datatypes.Intent(strings.TrimSpace(resp.Intent))
	if !intent.Valid() {
		return nil, fmt.Errorf("model returned unknown intent tag: %q", resp.Intent)
	}

	conf := resp.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	result := &datatypes.IntentResult{
		Intent:     intent,
		Confidence: conf,
		Source:     datatypes.SourceLLM,
		Reason:     resp.Reason,
	}
	for name, value := range resp.Slots {
		if value != "" {
			result.SetSlot(name, value)
		}
	}
	return result, nil
}

// extractJSONObject returns the outermost {...} span of s, stripping any
// markdown code fences first. Returns "" when no balanced object exists.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
