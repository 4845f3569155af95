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
	"strings"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Size Extraction
// =============================================================================

// SizeMatcher resolves spoken size words to canonical size codes.
//
// Description:
//
//	Exact synonym hits win; near-misses are recovered with an edit-distance
//	pass so "larg" still reads as large. Codes themselves ("l", "xl") are
//	accepted directly.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type SizeMatcher struct {
	// synonymToCode maps each normalized synonym to its canonical code.
	synonymToCode map[string]string
	codes         map[string]bool
}

// NewSizeMatcher builds a matcher from the size synonym table.
func NewSizeMatcher(synonyms config.SizeSynonyms) *SizeMatcher {
	m := &SizeMatcher{
		synonymToCode: make(map[string]string),
		codes:         make(map[string]bool),
	}
	for code, words := range synonyms {
		code = textnorm.Normalize(code)
		if code == "" {
			continue
		}
		m.codes[code] = true
		for _, w := range words {
			if norm := textnorm.Normalize(w); norm != "" {
				m.synonymToCode[norm] = code
			}
		}
	}
	return m
}

// ExtractSize finds a size mention in normalized order text.
//
// Outputs:
//
//	code - The canonical size code, or "" when no size was mentioned.
//	remainder - The input with the size word removed.
func (m *SizeMatcher) ExtractSize(norm string) (string, string) {
	tokens := textnorm.Tokens(norm)

	// Two-token synonyms ("extra large") before single tokens, so "extra
	// large" resolves to xl instead of stopping at "large".
	for i := 0; i+1 < len(tokens); i++ {
		pair := tokens[i] + " " + tokens[i+1]
		if code, ok := m.synonymToCode[pair]; ok {
			rest := append(append([]string{}, tokens[:i]...), tokens[i+2:]...)
			return code, strings.Join(rest, " ")
		}
	}

	for i, tok := range tokens {
		code, ok := m.resolveToken(tok)
		if !ok {
			continue
		}
		rest := append(append([]string{}, tokens[:i]...), tokens[i+1:]...)
		return code, strings.Join(rest, " ")
	}
	return "", norm
}

// resolveToken maps one token to a size code, exact first, fuzzy second.
func (m *SizeMatcher) resolveToken(tok string) (string, bool) {
	if m.codes[tok] {
		return tok, true
	}
	if code, ok := m.synonymToCode[tok]; ok {
		return code, true
	}
	// Fuzzy pass only for long-enough tokens; short ones ("lg") would
	// false-positive against half the vocabulary.
	if len(tok) < 4 {
		return "", false
	}
	threshold := textnorm.TokenThreshold(tok)
	for synonym, code := range m.synonymToCode {
		if len(synonym) >= 4 && textnorm.Levenshtein(tok, synonym) <= threshold {
			return code, true
		}
	}
	return "", false
}
