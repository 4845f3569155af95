// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nlu turns a normalized user utterance into an IntentResult.
//
// The pipeline has three layers that run in order: the classic rule
// classifier, the context-aware booster, and an optional escalation to a
// generative model when the first two layers are not confident. Each layer
// only ever raises the quality of the result; a later layer that fails
// degrades to the earlier one.
package nlu

import (
	"sort"
	"strings"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// AliasExpander
// =============================================================================

// AliasExpander rewrites colloquial cuisine phrases into canonical tags.
//
// Description:
//
//	Expansion is additive: canonical tags are appended after the original
//	text, so the expanded token set is always a superset of the input token
//	set. Downstream matchers see both the user's wording and the canonical
//	vocabulary without any information loss.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type AliasExpander struct {
	// aliases maps a normalized phrase to its canonical cuisine tags.
	aliases config.CuisineAliases

	// phrases holds the alias keys sorted longest-first so that multi-word
	// phrases win over their single-word prefixes.
	phrases []string
}

// NewAliasExpander builds an expander from the cuisine alias table.
//
// Inputs:
//
//	aliases - Phrase to canonical-tag table. Nil yields a passthrough expander.
//
// Outputs:
//
//	*AliasExpander - The constructed expander. Never nil.
func NewAliasExpander(aliases config.CuisineAliases) *AliasExpander {
	e := &AliasExpander{aliases: make(config.CuisineAliases, len(aliases))}
	for phrase, tags := range aliases {
		norm := textnorm.Normalize(phrase)
		if norm == "" || len(tags) == 0 {
			continue
		}
		e.aliases[norm] = tags
		e.phrases = append(e.phrases, norm)
	}
	sort.Slice(e.phrases, func(i, j int) bool {
		if len(e.phrases[i]) != len(e.phrases[j]) {
			return len(e.phrases[i]) > len(e.phrases[j])
		}
		return e.phrases[i] < e.phrases[j]
	})
	return e
}

// Expand appends canonical cuisine tags for every alias phrase found in text.
//
// Description:
//
//	The input is normalized first. Each alias phrase that appears as a
//	whole-word substring contributes its canonical tags once, in the
//	longest-phrase-first order. The original text is always preserved at
//	the front of the result.
//
// Inputs:
//
//	text - Raw or normalized utterance text.
//
// Outputs:
//
//	string - The normalized text followed by any appended canonical tags.
func (e *AliasExpander) Expand(text string) string {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return norm
	}

	seen := make(map[string]bool)
	var appended []string
	padded := " " + norm + " "
	for _, phrase := range e.phrases {
		if !strings.Contains(padded, " "+phrase+" ") {
			continue
		}
		for _, tag := range e.aliases[phrase] {
			if seen[tag] || strings.Contains(padded, " "+tag+" ") {
				continue
			}
			seen[tag] = true
			appended = append(appended, tag)
		}
	}

	if len(appended) == 0 {
		return norm
	}
	return norm + " " + strings.Join(appended, " ")
}

// CuisineTags returns the canonical cuisine tags detected in text.
//
// Description:
//
//	Unlike Expand, this returns only the canonical tags: alias phrases are
//	resolved through the table, and tokens that are already canonical tags
//	pass through unchanged. Used by slot extraction and the location
//	resolver's cuisine filter.
//
// Outputs:
//
//	[]string - Canonical tags in detection order, deduplicated. Nil when none.
func (e *AliasExpander) CuisineTags(text string) []string {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return nil
	}

	canonical := make(map[string]bool)
	for _, tags := range e.aliases {
		for _, tag := range tags {
			canonical[tag] = true
		}
	}

	seen := make(map[string]bool)
	var out []string
	padded := " " + norm + " "
	for _, phrase := range e.phrases {
		if !strings.Contains(padded, " "+phrase+" ") {
			continue
		}
		for _, tag := range e.aliases[phrase] {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	for _, tok := range textnorm.Tokens(norm) {
		if canonical[tok] && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
