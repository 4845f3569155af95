// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the embedded static vocabularies of the dialog
// service: cuisine aliases, size synonyms, the extras vocabulary, the
// nearby-city suggestion table, and the classic-classifier rule list.
// Everything is loaded once from embedded YAML and immutable afterwards.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Vocabulary Configuration
// =============================================================================

//go:embed cuisine_aliases.yaml
var defaultCuisineAliasesYAML []byte

//go:embed size_synonyms.yaml
var defaultSizeSynonymsYAML []byte

//go:embed extras_vocab.yaml
var defaultExtrasVocabYAML []byte

//go:embed nearby_cities.yaml
var defaultNearbyCitiesYAML []byte

// =============================================================================
// Cuisine Aliases
// =============================================================================

// CuisineAliases maps colloquial dish/cuisine phrases (normalized form) to
// one or more canonical cuisine tags. A single phrase may expand to several
// tags ("asian style" covers Vietnamese, Chinese, and Thai kitchens).
//
// # Thread Safety
//
// Safe for concurrent use after initialization (immutable after load).
type CuisineAliases map[string][]string

var (
	cachedCuisineAliases CuisineAliases
	cuisineAliasesOnce   sync.Once
	cuisineAliasesErr    error
)

// LoadCuisineAliases loads and caches the cuisine alias table from the
// embedded YAML. Returns the cached result on subsequent calls.
//
// # Outputs
//
//   - CuisineAliases: The loaded mapping. Never nil on success.
//   - error: Non-nil if YAML parsing fails.
//
// # Thread Safety
//
// Safe for concurrent use (uses sync.Once internally).
func LoadCuisineAliases() (CuisineAliases, error) {
	cuisineAliasesOnce.Do(func() {
		var raw map[string][]string
		if err := yaml.Unmarshal(defaultCuisineAliasesYAML, &raw); err != nil {
			cuisineAliasesErr = fmt.Errorf("parsing cuisine_aliases.yaml: %w", err)
			return
		}
		cachedCuisineAliases = raw
		slog.Info("cuisine aliases loaded", slog.Int("alias_count", len(raw)))
	})
	return cachedCuisineAliases, cuisineAliasesErr
}

// MustLoadCuisineAliases loads cuisine aliases or returns an empty map on
// error. Matching still works without expansion, just with lower recall.
func MustLoadCuisineAliases() CuisineAliases {
	aliases, err := LoadCuisineAliases()
	if err != nil {
		slog.Warn("cuisine alias loading failed, continuing without expansion",
			slog.String("error", err.Error()),
		)
		return make(CuisineAliases)
	}
	return aliases
}

// =============================================================================
// Size Synonyms
// =============================================================================

// SizeSynonyms maps canonical size codes ("s", "m", "l", "xl") to the spoken
// synonyms that resolve to them.
//
// # Thread Safety
//
// Safe for concurrent use after initialization (immutable after load).
type SizeSynonyms map[string][]string

var (
	cachedSizeSynonyms SizeSynonyms
	sizeSynonymsOnce   sync.Once
	sizeSynonymsErr    error
)

// LoadSizeSynonyms loads and caches the size synonym table from the embedded
// YAML. Returns the cached result on subsequent calls.
func LoadSizeSynonyms() (SizeSynonyms, error) {
	sizeSynonymsOnce.Do(func() {
		var raw map[string][]string
		if err := yaml.Unmarshal(defaultSizeSynonymsYAML, &raw); err != nil {
			sizeSynonymsErr = fmt.Errorf("parsing size_synonyms.yaml: %w", err)
			return
		}
		cachedSizeSynonyms = raw
		slog.Info("size synonyms loaded", slog.Int("size_count", len(raw)))
	})
	return cachedSizeSynonyms, sizeSynonymsErr
}

// MustLoadSizeSynonyms loads size synonyms or returns an empty map on error.
func MustLoadSizeSynonyms() SizeSynonyms {
	synonyms, err := LoadSizeSynonyms()
	if err != nil {
		slog.Warn("size synonym loading failed, continuing without correction",
			slog.String("error", err.Error()),
		)
		return make(SizeSynonyms)
	}
	return synonyms
}

// =============================================================================
// Extras Vocabulary
// =============================================================================

// ExtraEntry is one known extra: its canonical code and the phrases that
// resolve to it. Phrases are listed most-specific first so "extra cheese"
// wins over the bare "cheese".
type ExtraEntry struct {
	Code    string   `yaml:"code"`
	Phrases []string `yaml:"phrases"`
}

// ExtrasVocab is the known extras vocabulary plus the markers that flip a
// phrase into an exclusion.
//
// # Thread Safety
//
// Safe for concurrent use after initialization (immutable after load).
type ExtrasVocab struct {
	Extras           []ExtraEntry `yaml:"extras"`
	ExclusionMarkers []string     `yaml:"exclusion_markers"`
}

var (
	cachedExtrasVocab *ExtrasVocab
	extrasVocabOnce   sync.Once
	extrasVocabErr    error
)

// LoadExtrasVocab loads and caches the extras vocabulary from the embedded
// YAML. Returns the cached result on subsequent calls.
func LoadExtrasVocab() (*ExtrasVocab, error) {
	extrasVocabOnce.Do(func() {
		var raw ExtrasVocab
		if err := yaml.Unmarshal(defaultExtrasVocabYAML, &raw); err != nil {
			extrasVocabErr = fmt.Errorf("parsing extras_vocab.yaml: %w", err)
			return
		}
		cachedExtrasVocab = &raw
		slog.Info("extras vocabulary loaded",
			slog.Int("extras_count", len(raw.Extras)),
			slog.Int("exclusion_markers", len(raw.ExclusionMarkers)),
		)
	})
	return cachedExtrasVocab, extrasVocabErr
}

// MustLoadExtrasVocab loads the extras vocabulary or returns an empty one on
// error. Orders still parse, just without extras recognition.
func MustLoadExtrasVocab() *ExtrasVocab {
	vocab, err := LoadExtrasVocab()
	if err != nil {
		slog.Warn("extras vocabulary loading failed, continuing without extras",
			slog.String("error", err.Error()),
		)
		return &ExtrasVocab{}
	}
	return vocab
}

// =============================================================================
// Nearby Cities
// =============================================================================

// NearbyCities maps a normalized city name to its suggestion list, consulted
// when a location query yields zero results.
//
// # Thread Safety
//
// Safe for concurrent use after initialization (immutable after load).
type NearbyCities map[string][]string

var (
	cachedNearbyCities NearbyCities
	nearbyCitiesOnce   sync.Once
	nearbyCitiesErr    error
)

// LoadNearbyCities loads and caches the nearby-city suggestion table from
// the embedded YAML. Returns the cached result on subsequent calls.
func LoadNearbyCities() (NearbyCities, error) {
	nearbyCitiesOnce.Do(func() {
		var raw map[string][]string
		if err := yaml.Unmarshal(defaultNearbyCitiesYAML, &raw); err != nil {
			nearbyCitiesErr = fmt.Errorf("parsing nearby_cities.yaml: %w", err)
			return
		}
		cachedNearbyCities = raw
		slog.Info("nearby-city table loaded", slog.Int("city_count", len(raw)))
	})
	return cachedNearbyCities, nearbyCitiesErr
}

// MustLoadNearbyCities loads the nearby-city table or returns an empty map
// on error.
func MustLoadNearbyCities() NearbyCities {
	cities, err := LoadNearbyCities()
	if err != nil {
		slog.Warn("nearby-city table loading failed, continuing without suggestions",
			slog.String("error", err.Error()),
		)
		return make(NearbyCities)
	}
	return cities
}
