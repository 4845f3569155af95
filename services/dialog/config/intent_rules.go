// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Classic Classifier Rules
// =============================================================================

//go:embed intent_rules.yaml
var defaultIntentRulesYAML []byte

// =============================================================================
// Intent Rule Types and Loading
// =============================================================================

// IntentRule is one named pattern rule of the classic classifier.
//
// # Description
//
// Patterns containing ".*" are compiled as case-insensitive regular
// expressions; all other patterns match as whole-word subphrases. The rule's
// position in the list is its priority — the classifier stops at the first
// rule with a matching pattern.
type IntentRule struct {
	// Name identifies the rule in logs and metrics. Tests target rules by
	// name, so renames are breaking changes.
	Name string `yaml:"name"`

	// Intent is the tag this rule yields.
	Intent string `yaml:"intent"`

	// Confidence is the score attached on match, in [0, 1].
	Confidence float64 `yaml:"confidence"`

	// Patterns are whole-word subphrase patterns, or regexes when they
	// contain ".*".
	Patterns []string `yaml:"patterns"`
}

// IntentRules is the ordered classic-classifier rule list.
//
// # Thread Safety
//
// Safe for concurrent use after initialization (immutable after load).
type IntentRules struct {
	Rules []IntentRule `yaml:"rules"`
}

var (
	cachedIntentRules *IntentRules
	intentRulesOnce   sync.Once
	intentRulesErr    error
)

// LoadIntentRules loads and caches the classifier rule list from the
// embedded YAML. Returns the cached result on subsequent calls.
//
// # Outputs
//
//   - *IntentRules: The ordered rule list. Never nil on success.
//   - error: Non-nil if YAML parsing fails or a rule is malformed.
//
// # Thread Safety
//
// Safe for concurrent use (uses sync.Once internally).
func LoadIntentRules() (*IntentRules, error) {
	intentRulesOnce.Do(func() {
		var raw IntentRules
		if err := yaml.Unmarshal(defaultIntentRulesYAML, &raw); err != nil {
			intentRulesErr = fmt.Errorf("parsing intent_rules.yaml: %w", err)
			return
		}
		for i, rule := range raw.Rules {
			if rule.Name == "" || rule.Intent == "" || len(rule.Patterns) == 0 {
				intentRulesErr = fmt.Errorf("intent_rules.yaml: rule %d incomplete (name=%q intent=%q patterns=%d)",
					i, rule.Name, rule.Intent, len(rule.Patterns))
				return
			}
			if rule.Confidence < 0 || rule.Confidence > 1 {
				intentRulesErr = fmt.Errorf("intent_rules.yaml: rule %q confidence %v out of [0,1]",
					rule.Name, rule.Confidence)
				return
			}
		}
		cachedIntentRules = &raw
		slog.Info("intent rules loaded", slog.Int("rule_count", len(raw.Rules)))
	})
	return cachedIntentRules, intentRulesErr
}

// MustLoadIntentRules loads the rule list or returns an empty one on error.
// With no rules every utterance classifies as unknown, which the booster and
// the escalation path can still recover from.
func MustLoadIntentRules() *IntentRules {
	rules, err := LoadIntentRules()
	if err != nil {
		slog.Warn("intent rule loading failed, classifier will return unknown",
			slog.String("error", err.Error()),
		)
		return &IntentRules{}
	}
	return rules
}
