// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package textnorm

import "strings"

// DefaultFuzzyThreshold is the default maximum edit distance for FuzzyMatch.
const DefaultFuzzyThreshold = 3

// FuzzyMatch reports whether two strings refer to the same thing under noisy
// input.
//
// # Description
//
// Both inputs are normalized, then matched through a cascade:
//
//  1. Equality of normalized forms.
//  2. Containment either way ("pepperoni" vs "pepperoni pizza").
//  3. First-token equality ("luigi" vs "luigi trattoria").
//  4. Levenshtein distance <= threshold.
//
// Pure and total: empty input on either side returns false, never panics.
// A threshold <= 0 falls back to DefaultFuzzyThreshold.
func FuzzyMatch(a, b string, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	if FirstToken(na) == FirstToken(nb) {
		return true
	}
	return Levenshtein(na, nb) <= threshold
}

// TokenThreshold returns the edit-distance budget for a single token,
// scaling with its length so short words stay strict ("tea" must not match
// "pea pea") while long words absorb more typos.
func TokenThreshold(token string) int {
	switch n := len([]rune(token)); {
	case n < 5:
		return 1
	case n < 8:
		return 2
	default:
		return 3
	}
}
