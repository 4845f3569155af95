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

import "testing"

func TestLoadCuisineAliases(t *testing.T) {
	aliases, err := LoadCuisineAliases()
	if err != nil {
		t.Fatalf("LoadCuisineAliases failed: %v", err)
	}
	if len(aliases) == 0 {
		t.Fatal("expected non-empty alias table")
	}

	// The pizza-equivalent canonical tag must be present.
	tags, ok := aliases["pizza"]
	if !ok || len(tags) == 0 {
		t.Fatal("expected a pizza alias entry")
	}
	if tags[0] != "italian" {
		t.Errorf("pizza should expand to italian, got %v", tags)
	}

	// Multi-tag expansion.
	asian := aliases["asian style"]
	if len(asian) < 3 {
		t.Errorf("asian style should expand to multiple cuisines, got %v", asian)
	}
}

func TestLoadSizeSynonyms(t *testing.T) {
	synonyms, err := LoadSizeSynonyms()
	if err != nil {
		t.Fatalf("LoadSizeSynonyms failed: %v", err)
	}
	for _, code := range []string{"s", "m", "l", "xl"} {
		if len(synonyms[code]) == 0 {
			t.Errorf("size code %q has no synonyms", code)
		}
	}
	// "mega" and "giant" must both land on the same canonical code.
	var megaCode, giantCode string
	for code, syns := range synonyms {
		for _, s := range syns {
			if s == "mega" {
				megaCode = code
			}
			if s == "giant" {
				giantCode = code
			}
		}
	}
	if megaCode == "" || megaCode != giantCode {
		t.Errorf("mega (%q) and giant (%q) should share a canonical code", megaCode, giantCode)
	}
}

func TestLoadExtrasVocab(t *testing.T) {
	vocab, err := LoadExtrasVocab()
	if err != nil {
		t.Fatalf("LoadExtrasVocab failed: %v", err)
	}
	if len(vocab.Extras) == 0 {
		t.Fatal("expected non-empty extras vocabulary")
	}
	if len(vocab.ExclusionMarkers) == 0 {
		t.Fatal("expected exclusion markers")
	}
	for _, e := range vocab.Extras {
		if e.Code == "" || len(e.Phrases) == 0 {
			t.Errorf("extras entry %+v incomplete", e)
		}
	}
}

func TestLoadNearbyCities(t *testing.T) {
	cities, err := LoadNearbyCities()
	if err != nil {
		t.Fatalf("LoadNearbyCities failed: %v", err)
	}
	if len(cities["riverside"]) == 0 {
		t.Error("riverside should have nearby suggestions")
	}
}

func TestLoadIntentRules(t *testing.T) {
	rules, err := LoadIntentRules()
	if err != nil {
		t.Fatalf("LoadIntentRules failed: %v", err)
	}
	if len(rules.Rules) == 0 {
		t.Fatal("expected non-empty rule list")
	}

	seen := make(map[string]bool)
	for _, r := range rules.Rules {
		if seen[r.Name] {
			t.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
	}

	// Cancellation must outrank ordering: if "cancel my order" ever hit
	// create_order_phrases first, cancelling would re-order.
	var cancelIdx, orderIdx = -1, -1
	for i, r := range rules.Rules {
		switch r.Name {
		case "explicit_cancel":
			cancelIdx = i
		case "create_order_phrases":
			orderIdx = i
		}
	}
	if cancelIdx == -1 || orderIdx == -1 {
		t.Fatal("expected explicit_cancel and create_order_phrases rules")
	}
	if cancelIdx > orderIdx {
		t.Error("explicit_cancel must be evaluated before create_order_phrases")
	}
}
