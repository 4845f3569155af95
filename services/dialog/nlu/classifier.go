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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	classifierRulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "classifier",
		Name:      "rules_fired_total",
		Help:      "Total classic rules fired by rule name and intent",
	}, []string{"rule", "intent"})

	classifierMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "classifier",
		Name:      "miss_total",
		Help:      "Utterances no classic rule matched",
	})

	classifierLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dialog",
		Subsystem: "classifier",
		Name:      "latency_seconds",
		Help:      "Classic classifier execution latency",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
	})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var classifierTracer = otel.Tracer("concierge.dialog.nlu.classifier")

// =============================================================================
// Classifier Types
// =============================================================================

// compiledPattern holds a pattern string alongside its pre-compiled regex.
type compiledPattern struct {
	raw   string
	regex *regexp.Regexp
}

// compiledRule is an intent rule with all of its patterns pre-compiled.
type compiledRule struct {
	name       string
	intent     datatypes.Intent
	confidence float64
	patterns   []compiledPattern
}

// Classifier is the classic, deterministic intent layer.
//
// Description:
//
//	Evaluates an ordered, named rule list against the normalized and
//	alias-expanded utterance; the first matching rule wins and carries a
//	fixed confidence. Utterances no rule matches become unknown at 0.0
//	confidence and are recorded via a miss log and counter for offline
//	rule tuning.
//
// Inputs:
//
//	rules - Ordered intent rules. Must not be nil.
//	expander - Cuisine alias expander. Must not be nil.
//	logger - Logger for structured output. Must not be nil.
//
// Thread Safety: Safe for concurrent use (all state is read-only after construction).
type Classifier struct {
	rules    []compiledRule
	expander *AliasExpander
	logger   *slog.Logger
}

// NewClassifier creates a Classifier from an ordered rule list.
//
// Description:
//
//	Patterns containing ".*" are compiled as free-form regexes; every other
//	pattern is compiled as a whole-word match so that short patterns like
//	"ok" cannot fire inside unrelated words. Invalid regex patterns are
//	logged and skipped rather than failing construction.
//
// Outputs:
//
//	*Classifier - The constructed classifier. Never nil.
func NewClassifier(rules *config.IntentRules, expander *AliasExpander, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if expander == nil {
		expander = NewAliasExpander(nil)
	}

	c := &Classifier{expander: expander, logger: logger}
	if rules == nil {
		return c
	}
	for _, r := range rules.Rules {
		cr := compiledRule{
			name:       r.Name,
			intent:     datatypes.Intent(r.Intent),
			confidence: r.Confidence,
			patterns:   compileRulePatterns(r.Patterns, logger),
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// compileRulePatterns pre-compiles a pattern list, treating ".*" patterns as
// regex and everything else as a whole-word match.
func compileRulePatterns(patterns []string, logger *slog.Logger) []compiledPattern {
	result := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		patternLower := strings.ToLower(strings.TrimSpace(pattern))
		if patternLower == "" {
			continue
		}
		cp := compiledPattern{raw: patternLower}
		var expr string
		if strings.Contains(patternLower, ".*") {
			expr = "(?i)" + patternLower
		} else {
			expr = `(?i)\b` + regexp.QuoteMeta(patternLower) + `\b`
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			logger.Warn("classifier: invalid rule pattern, skipping",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
			continue
		}
		cp.regex = re
		result = append(result, cp)
	}
	return result
}

// Classify resolves the utterance to an intent via the ordered rule list.
//
// Description:
//
//	Normalizes and alias-expands the text, then walks the rules in order;
//	the first rule with a matching pattern wins. Slots (location, cuisine,
//	selection, order_text) are extracted for the winning intent.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	text - The raw utterance text.
//
// Outputs:
//
//	*datatypes.IntentResult - Never nil. Unmatched or empty text yields
//	IntentUnknown at 0.0 confidence with SourceClassic; never an error.
//
// Thread Safety: Safe for concurrent use.
func (c *Classifier) Classify(ctx context.Context, text string) *datatypes.IntentResult {
	start := time.Now()

	_, span := classifierTracer.Start(ctx, "nlu.Classifier.Classify")
	defer span.End()

	result := &datatypes.IntentResult{
		Intent: datatypes.IntentUnknown,
		Source: datatypes.SourceClassic,
	}

	norm := textnorm.Normalize(text)
	if norm == "" {
		span.SetAttributes(attribute.String("outcome", "empty_text"))
		classifierLatency.Observe(time.Since(start).Seconds())
		return result
	}

	expanded := c.expander.Expand(norm)
	span.SetAttributes(attribute.String("query_preview", truncateForLog(expanded, 80)))

	for _, rule := range c.rules {
		for _, cp := range rule.patterns {
			if !cp.regex.MatchString(expanded) {
				continue
			}
			result.Intent = rule.intent
			result.Confidence = rule.confidence
			result.Reason = "rule:" + rule.name
			c.extractSlots(result, norm, expanded)

			classifierRulesFired.WithLabelValues(rule.name, string(rule.intent)).Inc()
			classifierLatency.Observe(time.Since(start).Seconds())
			span.SetAttributes(
				attribute.String("rule", rule.name),
				attribute.String("intent", string(rule.intent)),
				attribute.Float64("confidence", rule.confidence),
			)
			return result
		}
	}

	// Miss: keep a breadcrumb for offline rule tuning.
	classifierMissTotal.Inc()
	classifierLatency.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", "miss"))
	c.logger.Debug("classifier miss",
		slog.String("query_preview", truncateForLog(norm, 80)),
	)
	return result
}

// =============================================================================
// Slot Extraction
// =============================================================================

// locationPattern captures the phrase after a locational preposition up to the
// end of the utterance or a cuisine/connector boundary.
var locationPattern = regexp.MustCompile(`\b(?:near|in|around|close to)\s+(.+)$`)

// selectionPattern matches a bare or phrased numeric selection.
var selectionPattern = regexp.MustCompile(`\b(?:number\s+)?(\d{1,2})\b`)

// ordinalWords maps ordinal and cardinal words to 1-based positions.
var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"last": -1,
}

// extractSlots fills location, cuisine, selection, and order_text slots for
// the winning intent. Slot extraction is best-effort: a missing slot is left
// unset, never an error.
func (c *Classifier) extractSlots(result *datatypes.IntentResult, norm, expanded string) {
	switch result.Intent {
	case datatypes.IntentFindNearby, datatypes.IntentRecommend:
		if m := locationPattern.FindStringSubmatch(norm); m != nil {
			loc := strings.TrimSpace(m[1])
			// Drop a trailing polite tail ("please", "thanks").
			loc = strings.TrimSuffix(loc, " please")
			loc = strings.TrimSuffix(loc, " thanks")
			if loc != "" {
				result.SetSlot("location", loc)
			}
		}
		if tags := c.expander.CuisineTags(expanded); len(tags) > 0 {
			result.SetSlot("cuisine", strings.Join(tags, ","))
		}

	case datatypes.IntentSelectRestaurant:
		if sel := ExtractSelection(norm); sel != 0 {
			result.SetSlot("selection", strconv.Itoa(sel))
		} else {
			// "choose luigis" style selection by name.
			for _, marker := range []string{"choose ", "pick ", "select ", "take "} {
				if idx := strings.Index(norm, marker); idx >= 0 {
					name := strings.TrimSpace(norm[idx+len(marker):])
					if name != "" {
						result.SetSlot("restaurant_name", name)
					}
					break
				}
			}
		}

	case datatypes.IntentCreateOrder:
		result.SetSlot("order_text", norm)

	case datatypes.IntentMenuRequest:
		if m := locationPattern.FindStringSubmatch(norm); m != nil {
			result.SetSlot("location", strings.TrimSpace(m[1]))
		}
	}
}

// ExtractSelection parses a 1-based list selection from normalized text.
//
// Description:
//
//	Accepts bare digits ("2"), phrased digits ("number 2"), and ordinal or
//	cardinal words ("the second one"). Returns -1 for "last" and 0 when no
//	selection is present.
func ExtractSelection(norm string) int {
	if m := selectionPattern.FindStringSubmatch(norm); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return n
		}
	}
	for _, tok := range textnorm.Tokens(norm) {
		if n, ok := ordinalWords[tok]; ok {
			return n
		}
	}
	return 0
}

// truncateForLog shortens a string for log and span attributes.
func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
