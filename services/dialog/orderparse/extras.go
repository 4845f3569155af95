// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orderparse

import (
	"sort"
	"strings"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Extras and Exclusions
// =============================================================================

// ExtrasMatcher detects extras ("with bacon") and exclusions ("no onion",
// "without cheese") in order text.
//
// Description:
//
//	Phrase matches run first, longest phrase first, so "extra cheese"
//	resolves before the bare "cheese" can. Leftover tokens then get a
//	fuzzy pass with a length-scaled edit-distance threshold, which
//	recovers misspellings like "olivs". A marker word directly before a
//	matched phrase flips it into an exclusion.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type ExtrasMatcher struct {
	// phraseToCode maps each normalized phrase to its extra code.
	phraseToCode map[string]string

	// phrases holds the phrase keys sorted longest-first.
	phrases []string

	// markers are the normalized exclusion markers, longest-first.
	markers []string
}

// NewExtrasMatcher builds a matcher from the extras vocabulary.
func NewExtrasMatcher(vocab *config.ExtrasVocab) *ExtrasMatcher {
	m := &ExtrasMatcher{phraseToCode: make(map[string]string)}
	if vocab == nil {
		return m
	}
	for _, entry := range vocab.Extras {
		for _, phrase := range entry.Phrases {
			norm := textnorm.Normalize(phrase)
			if norm == "" {
				continue
			}
			if _, exists := m.phraseToCode[norm]; !exists {
				m.phraseToCode[norm] = entry.Code
				m.phrases = append(m.phrases, norm)
			}
		}
	}
	sort.Slice(m.phrases, func(i, j int) bool {
		if len(m.phrases[i]) != len(m.phrases[j]) {
			return len(m.phrases[i]) > len(m.phrases[j])
		}
		return m.phrases[i] < m.phrases[j]
	})
	for _, marker := range vocab.ExclusionMarkers {
		if norm := textnorm.Normalize(marker); norm != "" {
			m.markers = append(m.markers, norm)
		}
	}
	sort.Slice(m.markers, func(i, j int) bool { return len(m.markers[i]) > len(m.markers[j]) })
	return m
}

// Extract finds extras and exclusions in normalized order text.
//
// Outputs:
//
//	extras - Codes requested as additions, in detection order.
//	exclusions - Codes requested as removals, in detection order.
//	remainder - The input with matched phrases and markers removed, for
//	dish matching.
func (m *ExtrasMatcher) Extract(norm string) (extras, exclusions []string, remainder string) {
	if norm == "" || len(m.phraseToCode) == 0 {
		return nil, nil, norm
	}

	working := " " + norm + " "
	seen := make(map[string]bool)

	// Phrase pass, longest phrases first.
	for _, phrase := range m.phrases {
		needle := " " + phrase + " "
		idx := strings.Index(working, needle)
		if idx < 0 {
			continue
		}
		code := m.phraseToCode[phrase]
		if seen[code] {
			working = strings.Replace(working, needle, " ", 1)
			continue
		}
		seen[code] = true

		excluded, cleaned := m.consumeMarkerBefore(working, idx)
		if excluded {
			exclusions = append(exclusions, code)
			working = strings.Replace(cleaned, needle, " ", 1)
		} else {
			extras = append(extras, code)
			working = strings.Replace(working, needle, " ", 1)
		}
	}

	// Fuzzy token pass over what is left.
	tokens := textnorm.Tokens(working)
	var keep []string
	for i, tok := range tokens {
		code, ok := m.fuzzyToken(tok)
		if !ok || seen[code] {
			keep = append(keep, tok)
			continue
		}
		seen[code] = true
		if i > 0 && m.isMarker(tokens[i-1]) {
			exclusions = append(exclusions, code)
			// Drop the marker token that was already kept.
			if len(keep) > 0 {
				keep = keep[:len(keep)-1]
			}
		} else {
			extras = append(extras, code)
		}
	}

	return extras, exclusions, collapseSpaces(strings.Join(keep, " "))
}

// consumeMarkerBefore checks for an exclusion marker ending right before
// position idx and removes it from the working text when found.
func (m *ExtrasMatcher) consumeMarkerBefore(working string, idx int) (bool, string) {
	prefix := working[:idx]
	for _, marker := range m.markers {
		needle := " " + marker
		if strings.HasSuffix(prefix, needle) {
			return true, prefix[:len(prefix)-len(marker)-1] + working[idx:]
		}
	}
	return false, working
}

// fuzzyToken resolves one leftover token against single-word phrases.
func (m *ExtrasMatcher) fuzzyToken(tok string) (string, bool) {
	if len(tok) < 4 {
		return "", false
	}
	threshold := textnorm.TokenThreshold(tok)
	for _, phrase := range m.phrases {
		if strings.Contains(phrase, " ") {
			continue
		}
		if textnorm.Levenshtein(tok, phrase) <= threshold {
			return m.phraseToCode[phrase], true
		}
	}
	return "", false
}

// isMarker reports whether a single token is an exclusion marker.
func (m *ExtrasMatcher) isMarker(tok string) bool {
	for _, marker := range m.markers {
		if marker == tok {
			return true
		}
	}
	return false
}
