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

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "PIZZA Margherita", "pizza margherita"},
		{"diacritics", "Kuřecí řízek & smažený sýr", "kureci rizek smazeny syr"},
		{"umlauts", "Döner mit Käse", "doner mit kase"},
		{"punctuation_separates", "pizza,large!", "pizza large"},
		{"whitespace_collapse", "  two   pizzas \t please ", "two pizzas please"},
		{"digits_kept", "2x cola", "2x cola"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "Kuřecí řízek", "  Hello,   WORLD!! ", "número uño",
		"where can I eat pizza near Riverside?", "2x gulaš, bez cibule",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestStripConnectors(t *testing.T) {
	got := StripConnectors("a pepperoni with extra cheese please")
	if got != "pepperoni extra cheese" {
		t.Errorf("StripConnectors = %q", got)
	}
}

func TestTokens(t *testing.T) {
	toks := Tokens("Dvě Kávy, prosím")
	want := []string{"dve", "kavy", "prosim"}
	if strings.Join(toks, " ") != strings.Join(want, " ") {
		t.Errorf("Tokens = %v, want %v", toks, want)
	}
	if Tokens("") != nil {
		t.Error("Tokens(\"\") should be nil")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"pizza", "pizza", 0},
		{"pizza", "piza", 1},
		{"margherita", "margarita", 2},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		threshold int
		want      bool
	}{
		{"empty_left", "", "pizza", 3, false},
		{"empty_right", "pizza", "", 3, false},
		{"both_empty", "", "", 3, false},
		{"exact_after_normalize", "Pízza", "pizza", 3, true},
		{"containment", "pepperoni", "pepperoni pizza", 3, true},
		{"first_token", "luigi", "luigi trattoria", 3, true},
		{"edit_distance", "margarita", "margherita", 3, true},
		{"beyond_threshold", "sushi", "burger", 3, false},
		{"zero_threshold_uses_default", "margarita", "margherita", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FuzzyMatch(tt.a, tt.b, tt.threshold); got != tt.want {
				t.Errorf("FuzzyMatch(%q, %q, %d) = %v, want %v",
					tt.a, tt.b, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestTokenThreshold(t *testing.T) {
	if TokenThreshold("tea") != 1 {
		t.Error("short tokens should allow 1 edit")
	}
	if TokenThreshold("olives") != 2 {
		t.Error("medium tokens should allow 2 edits")
	}
	if TokenThreshold("mozzarella") != 3 {
		t.Error("long tokens should allow 3 edits")
	}
}
