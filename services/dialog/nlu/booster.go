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
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	boosterRulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "booster",
		Name:      "rules_fired_total",
		Help:      "Total booster rules fired by rule name",
	}, []string{"rule"})

	boosterOverrideTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "booster",
		Name:      "override_total",
		Help:      "Booster overrides by classic and boosted intent",
	}, []string{"from", "to"})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var boosterTracer = otel.Tracer("concierge.dialog.nlu.booster")

// =============================================================================
// Booster
// =============================================================================

// confidenceOverrideFloor is the classic confidence at or above which the
// booster never overrides the intent (global short-circuits excepted, since
// those represent explicit user commands).
const confidenceOverrideFloor = 0.8

// Booster adjusts the classic classification using session context.
//
// Description:
//
//	Runs a fixed, ordered list of named rules; at most one rule fires per
//	call. Rule order:
//
//	1. Global short-circuits (explicit cancel, "show more", pure numeric
//	   or ordinal selection while a list is visible).
//	2. ExpectedContext rules for the show-more, select-restaurant, and
//	   confirm-order contexts.
//	3. Classic confidence floor: at >= 0.8 the classic result stands.
//	4. LastIntent heuristics (bare negation after create_order).
//	5. Semantic keyword fallbacks, only when the intent is still unknown.
//
//	When no rule fires, the classic result is returned unchanged.
//
// Thread Safety: Safe for concurrent use (stateless; session is read-only here).
type Booster struct {
	logger *slog.Logger
}

// NewBooster creates a Booster.
func NewBooster(logger *slog.Logger) *Booster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Booster{logger: logger}
}

// Boost applies context rules to the classic result.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	text - The raw utterance text.
//	classic - The classic classifier's result. Must not be nil.
//	sess - The current session. Must not be nil.
//
// Outputs:
//
//	*datatypes.IntentResult - The boosted result, or classic unchanged.
//	Overrides carry SourceBooster and a Reason naming the fired rule.
//
// Thread Safety: Safe for concurrent use.
func (b *Booster) Boost(ctx context.Context, text string, classic *datatypes.IntentResult, sess *datatypes.Session) *datatypes.IntentResult {
	_, span := boosterTracer.Start(ctx, "nlu.Booster.Boost")
	defer span.End()

	norm := textnorm.Normalize(text)
	if norm == "" {
		span.SetAttributes(attribute.String("outcome", "empty_text"))
		return classic
	}

	// 1. Global short-circuits: explicit commands beat everything.
	if rule, boosted := b.globalShortCircuit(norm, classic, sess); boosted != nil {
		return b.fire(span, rule, classic, boosted)
	}

	// 2. Expected-context rules.
	if rule, boosted := b.contextRule(norm, classic, sess); boosted != nil {
		return b.fire(span, rule, classic, boosted)
	}

	// 3. Confident classic results stand.
	if classic.Confidence >= confidenceOverrideFloor {
		span.SetAttributes(attribute.String("outcome", "confidence_floor"))
		return classic
	}

	// 4. LastIntent heuristics.
	if isNegation(norm) && sess.LastIntent == datatypes.IntentCreateOrder {
		boosted := b.override(classic, datatypes.IntentCancelOrder, 0.85)
		return b.fire(span, "negation_after_create_order", classic, boosted)
	}

	// 5. Semantic keyword fallbacks, only for still-unresolved intents.
	if classic.Intent == datatypes.IntentUnknown || classic.Intent == "" {
		if rule, boosted := b.semanticFallback(norm, classic); boosted != nil {
			return b.fire(span, rule, classic, boosted)
		}
	}

	span.SetAttributes(attribute.String("outcome", "passthrough"))
	return classic
}

// fire records metrics and logging for a fired rule and returns the result.
func (b *Booster) fire(span trace.Span, rule string, classic, boosted *datatypes.IntentResult) *datatypes.IntentResult {
	boosterRulesFired.WithLabelValues(rule).Inc()
	if boosted.Intent != classic.Intent {
		boosterOverrideTotal.WithLabelValues(string(classic.Intent), string(boosted.Intent)).Inc()
	}
	span.SetAttributes(
		attribute.String("rule", rule),
		attribute.String("intent", string(boosted.Intent)),
	)
	b.logger.Debug("booster rule fired",
		slog.String("rule", rule),
		slog.String("classic_intent", string(classic.Intent)),
		slog.String("boosted_intent", string(boosted.Intent)),
	)
	return boosted
}

// override builds a boosted result that keeps the classic slots.
func (b *Booster) override(classic *datatypes.IntentResult, intent datatypes.Intent, confidence float64) *datatypes.IntentResult {
	out := classic.Clone()
	out.Intent = intent
	out.Confidence = confidence
	out.Source = datatypes.SourceBooster
	return out
}

// =============================================================================
// Rule Groups
// =============================================================================

// bareSelectionPattern matches utterances that are nothing but a selection:
// "2", "number 2", "the 2nd", "option 3".
var bareSelectionPattern = regexp.MustCompile(`^\s*(?:the\s+)?(?:number\s+|option\s+|no\s+)?(\d{1,2})(?:st|nd|rd|th)?\s*$`)

// globalShortCircuit handles explicit commands regardless of context.
func (b *Booster) globalShortCircuit(norm string, classic *datatypes.IntentResult, sess *datatypes.Session) (string, *datatypes.IntentResult) {
	switch {
	case containsAny(norm, "cancel", "never mind", "nevermind", "forget it", "abort"):
		return "global_cancel", b.override(classic, datatypes.IntentCancelOrder, 0.95)

	case containsAny(norm, "show more", "more options", "what else", "anything else", "next page"):
		return "global_show_more", b.override(classic, datatypes.IntentShowMoreOptions, 0.9)
	}

	// Pure numeric/ordinal selection is only meaningful against a visible list.
	if len(sess.LastRestaurantsList) > 0 {
		if sel := bareSelection(norm); sel != 0 {
			out := b.override(classic, datatypes.IntentSelectRestaurant, 0.9)
			out.SetSlot("selection", strconv.Itoa(sel))
			return "global_numeric_selection", out
		}
	}
	return "", nil
}

// contextRule handles the expectedContext-specific rule group.
func (b *Booster) contextRule(norm string, classic *datatypes.IntentResult, sess *datatypes.Session) (string, *datatypes.IntentResult) {
	switch sess.ExpectedContext {
	case datatypes.ContextShowMoreOptions:
		// Only an explicit "more" continues paging; anything else falls
		// through to the other layers.
		if containsAny(norm, "more", "next") {
			return "context_show_more", b.override(classic, datatypes.IntentShowMoreOptions, 0.9)
		}

	case datatypes.ContextSelectRestaurant:
		if sel := ExtractSelection(norm); sel != 0 {
			out := b.override(classic, datatypes.IntentSelectRestaurant, 0.9)
			out.SetSlot("selection", strconv.Itoa(sel))
			return "context_selection", out
		}
		if containsAny(norm, "choose", "pick", "select", "take", "that one") {
			return "context_selection_phrase", b.override(classic, datatypes.IntentSelectRestaurant, 0.85)
		}

	case datatypes.ContextConfirmOrder:
		// An explicit new item+quantity supersedes the pending confirmation.
		if looksLikeOrder(norm) {
			out := b.override(classic, datatypes.IntentCreateOrder, 0.85)
			out.SetSlot("order_text", norm)
			return "context_confirm_new_order", out
		}
		if isNegation(norm) {
			return "context_confirm_negation", b.override(classic, datatypes.IntentCancelOrder, 0.9)
		}
		if isAffirmative(norm) {
			return "context_confirm_affirmative", b.override(classic, datatypes.IntentConfirmOrder, 0.9)
		}
	}
	return "", nil
}

// semanticFallback maps broad keywords to intents when nothing else resolved.
func (b *Booster) semanticFallback(norm string, classic *datatypes.IntentResult) (string, *datatypes.IntentResult) {
	switch {
	case containsAny(norm, "hungry", "eat", "food", "restaurant"):
		return "semantic_find_nearby", b.override(classic, datatypes.IntentFindNearby, 0.5)
	case containsAny(norm, "menu", "what do they have", "offer"):
		return "semantic_menu", b.override(classic, datatypes.IntentMenuRequest, 0.5)
	case containsAny(norm, "order", "want", "take", "get me"):
		out := b.override(classic, datatypes.IntentCreateOrder, 0.5)
		out.SetSlot("order_text", norm)
		return "semantic_create_order", out
	case containsAny(norm, "recommend", "suggest", "best"):
		return "semantic_recommend", b.override(classic, datatypes.IntentRecommend, 0.5)
	}
	return "", nil
}

// =============================================================================
// Phrase Helpers
// =============================================================================

var affirmativeWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "correct": true, "right": true, "confirm": true,
	"absolutely": true, "definitely": true, "fine": true,
	"ano": true, "jo": true,
}

var negationWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "not": true, "dont": true,
	"cancel": true, "stop": true, "wrong": true, "ne": true,
}

// isAffirmative reports whether the utterance reads as agreement. Mixed
// signals ("yes but no") are not affirmative.
func isAffirmative(norm string) bool {
	toks := textnorm.Tokens(norm)
	hit := false
	for _, t := range toks {
		if negationWords[t] {
			return false
		}
		if affirmativeWords[t] {
			hit = true
		}
	}
	return hit
}

// isNegation reports whether the utterance reads as refusal.
func isNegation(norm string) bool {
	for _, t := range textnorm.Tokens(norm) {
		if negationWords[t] {
			return true
		}
	}
	return false
}

var quantityHintPattern = regexp.MustCompile(`\b(?:\d+\s*x?|x\s*\d+|one|two|three|four|five|a couple|a few)\b`)

// looksLikeOrder reports whether the utterance names an item with a quantity,
// e.g. "actually make it 2 pepperoni pizzas". Requires a quantity hint plus
// at least one token that is neither the quantity nor a yes/no word.
func looksLikeOrder(norm string) bool {
	if !quantityHintPattern.MatchString(norm) {
		return false
	}
	for _, t := range textnorm.Tokens(norm) {
		if affirmativeWords[t] || negationWords[t] {
			continue
		}
		if quantityHintPattern.MatchString(t) {
			continue
		}
		if len(t) >= 3 {
			return true
		}
	}
	return false
}

// bareSelection parses an utterance that consists solely of a selection.
func bareSelection(norm string) int {
	if m := bareSelectionPattern.FindStringSubmatch(norm); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n
		}
	}
	// Single ordinal word on its own ("second", "the first").
	toks := textnorm.Tokens(norm)
	stripped := make([]string, 0, len(toks))
	for _, t := range toks {
		if t == "the" || t == "one" && len(toks) > 1 {
			continue
		}
		stripped = append(stripped, t)
	}
	if len(stripped) == 1 {
		if n, ok := ordinalWords[stripped[0]]; ok {
			return n
		}
	}
	return 0
}

// containsAny reports whether any phrase appears whole-word in norm.
func containsAny(norm string, phrases ...string) bool {
	padded := " " + norm + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}
