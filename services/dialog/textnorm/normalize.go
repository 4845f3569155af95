// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package textnorm provides text normalization and fuzzy string matching for
// noisy, diacritic-bearing user utterances. Every matcher in the dialog
// pipeline goes through Normalize first, so the rest of the system only ever
// compares lowercase, diacritic-free, single-spaced text.
package textnorm

import (
	"strings"
	"unicode"
)

// =============================================================================
// Diacritic Folding
// =============================================================================

// diacriticFold maps the fixed set of accented runes seen in the training
// corpus to their ASCII base letters. Unlisted runes pass through unchanged —
// folding is deliberately a table, not a general Unicode decomposition, so
// behavior is exact and reviewable.
var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ě': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ů': 'u',
	'ý': 'y', 'ÿ': 'y',
	'č': 'c', 'ç': 'c',
	'ď': 'd',
	'ň': 'n', 'ñ': 'n',
	'ř': 'r',
	'š': 's',
	'ť': 't',
	'ž': 'z',
	'ß': 's',
}

// =============================================================================
// Normalize
// =============================================================================

// Normalize lowercases, folds diacritics, strips punctuation, and collapses
// runs of whitespace to single spaces.
//
// # Description
//
// The function is pure and total: nil-equivalent (empty) input returns "",
// and no input panics. It is also idempotent — Normalize(Normalize(s)) ==
// Normalize(s) — which matchers rely on so they can normalize defensively
// without double-mangling already-clean text.
//
// Punctuation is replaced by a space rather than deleted, so "pizza,large"
// tokenizes as two words instead of fusing into one.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true // leading whitespace is dropped
	for _, r := range strings.ToLower(s) {
		if folded, ok := diacriticFold[r]; ok {
			r = folded
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		// Whitespace and punctuation both act as token separators.
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokens splits normalized text into its words. Input that is not yet
// normalized is normalized first.
func Tokens(s string) []string {
	s = Normalize(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// FirstToken returns the first word of the normalized text, or "".
func FirstToken(s string) string {
	toks := Tokens(s)
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}

// connectorWords are filler words stripped only where they would corrupt
// matching (dish-name comparison), never from the utterance itself — slot
// extraction still needs "near" and "with" in place.
var connectorWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"of": true, "and": true, "with": true,
	"please": true,
}

// StripConnectors removes connector words from normalized text. Used by the
// dish-name matching cascade so "a pepperoni with cheese" compares as
// "pepperoni cheese".
func StripConnectors(s string) string {
	toks := Tokens(s)
	kept := toks[:0]
	for _, t := range toks {
		if !connectorWords[t] {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}
