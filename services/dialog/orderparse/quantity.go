// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orderparse turns free-form order text into validated order items.
//
// Parsing is deterministic and vocabulary-driven: quantities, sizes, extras,
// and exclusions come from embedded tables, and dish names resolve against
// the selected restaurant's menu through a tiered match cascade. Validation
// turns parse gaps into typed outcomes the state machine can reply to,
// never into errors.
package orderparse

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Quantity Extraction
// =============================================================================

// Digit forms take priority over word numerals: "2x margherita" means two
// even if the dish name happens to contain a numeral word.
var (
	digitQuantityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2})\s*(?:x|times|krat)\b`), // "2x", "3 times"
		regexp.MustCompile(`\bx\s*(\d{1,2})\b`),                // "x2"
		regexp.MustCompile(`\b(\d{1,2})\b`),                    // bare "2"
	}

	// wordQuantities maps numeral words and documented approximations:
	// "a couple" is read as 2 and "a few"/"several" as 3.
	wordQuantities = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
		"a couple": 2, "couple of": 2, "a couple of": 2,
		"a few": 3, "few": 3, "several": 3,
		"jeden": 1, "dva": 2, "tri": 3,
	}
)

// maxQuantity caps a single line item; anything above is treated as noise.
const maxQuantity = 20

// ExtractQuantity finds the item quantity in normalized order text.
//
// Description:
//
//	Digit patterns ("2x", "3 times", "x2", bare digits) are checked before
//	word numerals, and multi-word numeral phrases before single words.
//	Returns the quantity and the text with the matched quantity phrase
//	removed, so dish matching does not see it. Unparseable or absent
//	quantities default to 1.
//
// Outputs:
//
//	quantity - The parsed quantity, clamped to [1, 20].
//	remainder - The input with the quantity phrase removed.
func ExtractQuantity(norm string) (int, string) {
	for _, re := range digitQuantityPatterns {
		m := re.FindStringSubmatchIndex(norm)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(norm[m[2]:m[3]])
		if err != nil || n <= 0 {
			continue
		}
		if n > maxQuantity {
			n = maxQuantity
		}
		return n, collapseSpaces(norm[:m[0]] + " " + norm[m[1]:])
	}

	// Multi-word numeral phrases first so "a couple of" beats "couple of".
	padded := " " + norm + " "
	var bestPhrase string
	bestQty := 0
	for phrase, qty := range wordQuantities {
		if strings.Contains(padded, " "+phrase+" ") && len(phrase) > len(bestPhrase) {
			bestPhrase = phrase
			bestQty = qty
		}
	}
	if bestPhrase != "" {
		cleaned := strings.Replace(padded, " "+bestPhrase+" ", " ", 1)
		return bestQty, collapseSpaces(cleaned)
	}

	return 1, norm
}

// collapseSpaces trims and squeezes runs of spaces left by phrase removal.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
