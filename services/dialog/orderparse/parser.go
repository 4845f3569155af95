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
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var parseOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dialog",
	Subsystem: "orderparse",
	Name:      "outcome_total",
	Help:      "Order parse outcomes: ok, unknown_dish, missing_size, ambiguous",
}, []string{"outcome"})

// =============================================================================
// OTel Tracer
// =============================================================================

var parserTracer = otel.Tracer("concierge.dialog.orderparse")

// =============================================================================
// Parse Outcome Types
// =============================================================================

// MatchStatus is the typed outcome of parsing and validating one order item.
type MatchStatus string

const (
	StatusOK          MatchStatus = "ok"
	StatusUnknownDish MatchStatus = "unknown_dish"
	StatusMissingSize MatchStatus = "missing_size"
	StatusAmbiguous   MatchStatus = "ambiguous"
)

// ParseResult is the outcome of parsing one order utterance against a menu.
//
// Exactly one of the payload fields is meaningful per status: Item for OK,
// Suggestions for UnknownDish, SizeOptions for MissingSize, Candidates for
// Ambiguous.
type ParseResult struct {
	Status MatchStatus

	// Item is the fully validated order item (StatusOK only).
	Item *datatypes.ParsedOrderItem

	// Suggestions are up to three close dish names for StatusUnknownDish.
	Suggestions []string

	// SizeOptions lists the dish's size variants for StatusMissingSize.
	SizeOptions []datatypes.SizeVariant

	// DishName is the matched dish name for StatusMissingSize.
	DishName string

	// Candidates are the equally good matches for StatusAmbiguous.
	Candidates []datatypes.MenuItem
}

// =============================================================================
// Parser
// =============================================================================

// leadPhrases are order-intent openers stripped before dish matching.
var leadPhrases = []string{
	"i would like", "id like", "i want", "can i get", "could i get",
	"i will have", "ill have", "give me", "get me", "order", "add",
	"actually make it", "make it", "and also", "also",
}

// Parser turns free-form order text into validated order items.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type Parser struct {
	sizes  *SizeMatcher
	extras *ExtrasMatcher
	logger *slog.Logger
}

// NewParser creates a Parser over the embedded vocabularies.
func NewParser(synonyms config.SizeSynonyms, vocab *config.ExtrasVocab, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		sizes:  NewSizeMatcher(synonyms),
		extras: NewExtrasMatcher(vocab),
		logger: logger,
	}
}

// ParseItem parses one order utterance against a restaurant menu.
//
// Description:
//
//	Extraction order: lead phrases are stripped, then quantity, size, and
//	extras/exclusions are pulled out of the text; what remains is the dish
//	phrase, resolved through the match cascade and validated. Every gap
//	maps to a typed status; ParseItem never returns an error the caller
//	must branch on beyond the status.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	text - The raw or normalized order utterance.
//	menu - The selected restaurant's menu. Unavailable items only
//	surface as suggestions, never as matches.
//
// Outputs:
//
//	*ParseResult - Never nil.
//
// Thread Safety: Safe for concurrent use.
func (p *Parser) ParseItem(ctx context.Context, text string, menu []datatypes.MenuItem) *ParseResult {
	_, span := parserTracer.Start(ctx, "orderparse.Parser.ParseItem")
	defer span.End()

	norm := textnorm.Normalize(text)
	norm = stripLeadPhrases(norm)

	quantity, rest := ExtractQuantity(norm)
	sizeCode, rest := p.sizes.ExtractSize(rest)
	extras, exclusions, rest := p.extras.Extract(rest)
	dishText := textnorm.StripConnectors(rest)

	span.SetAttributes(
		attribute.String("dish_text", truncate(dishText, 60)),
		attribute.Int("quantity", quantity),
		attribute.String("size", sizeCode),
	)

	result := p.validate(dishText, quantity, sizeCode, extras, exclusions, menu)
	parseOutcomeTotal.WithLabelValues(string(result.Status)).Inc()
	span.SetAttributes(attribute.String("outcome", string(result.Status)))

	if result.Status != StatusOK {
		p.logger.Debug("order parse incomplete",
			slog.String("status", string(result.Status)),
			slog.String("dish_text", truncate(dishText, 60)),
		)
	}
	return result
}

// validate resolves the dish phrase and assembles the order item.
func (p *Parser) validate(dishText string, quantity int, sizeCode string, extras, exclusions []string, menu []datatypes.MenuItem) *ParseResult {
	if dishText == "" {
		return &ParseResult{Status: StatusUnknownDish, Suggestions: suggestDishes("", menu)}
	}

	matches := matchDishes(dishText, menu)
	switch {
	case len(matches) == 0:
		return &ParseResult{Status: StatusUnknownDish, Suggestions: suggestDishes(dishText, menu)}
	case len(matches) > 1:
		return &ParseResult{Status: StatusAmbiguous, Candidates: matches}
	}

	dish := matches[0]
	price := dish.Price
	if dish.RequiresSize() {
		variant, ok := findVariant(dish, sizeCode)
		if !ok {
			return &ParseResult{
				Status:      StatusMissingSize,
				DishName:    dish.Name,
				SizeOptions: dish.Sizes,
			}
		}
		sizeCode = variant.Code
		price = variant.Price
	}

	return &ParseResult{
		Status: StatusOK,
		Item: &datatypes.ParsedOrderItem{
			Name:       dish.Name,
			MenuItemID: dish.ID,
			Size:       sizeCode,
			Quantity:   quantity,
			UnitPrice:  price,
			Extras:     extras,
			Exclusions: exclusions,
		},
	}
}

// =============================================================================
// Dish Match Cascade
// =============================================================================

// matchDishes resolves a dish phrase through the tiered cascade: exact
// normalized equality, then substring containment, then fuzzy. The first tier
// with any hits wins; ties within a tier are all returned so the caller can
// ask, never guess.
func matchDishes(dishText string, menu []datatypes.MenuItem) []datatypes.MenuItem {
	var exact, contains, fuzzy []datatypes.MenuItem
	for _, item := range menu {
		if !item.Available {
			continue
		}
		name := textnorm.Normalize(item.Name)
		switch {
		case name == dishText:
			exact = append(exact, item)
		case strings.Contains(dishText, name) || strings.Contains(name, dishText):
			contains = append(contains, item)
		case fuzzyDishMatch(dishText, name):
			fuzzy = append(fuzzy, item)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	if len(contains) > 0 {
		return contains
	}
	return fuzzy
}

// fuzzyDishMatch matches the whole phrase first, then each phrase token
// against the dish name with a length-scaled threshold, so "margarita pizza"
// still finds Margherita.
func fuzzyDishMatch(dishText, name string) bool {
	if textnorm.FuzzyMatch(dishText, name, textnorm.DefaultFuzzyThreshold) {
		return true
	}
	for _, tok := range textnorm.Tokens(dishText) {
		if len(tok) < 4 {
			continue
		}
		if textnorm.Levenshtein(tok, name) <= textnorm.TokenThreshold(tok) {
			return true
		}
	}
	return false
}

// suggestDishes returns up to three available dish names closest to the
// unmatched phrase, nearest first.
func suggestDishes(dishText string, menu []datatypes.MenuItem) []string {
	type scored struct {
		name string
		dist int
	}
	var candidates []scored
	for _, item := range menu {
		if !item.Available {
			continue
		}
		dist := textnorm.Levenshtein(dishText, textnorm.Normalize(item.Name))
		candidates = append(candidates, scored{item.Name, dist})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	var out []string
	for _, c := range candidates {
		out = append(out, c.name)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// findVariant looks up a size variant by code.
func findVariant(dish datatypes.MenuItem, code string) (datatypes.SizeVariant, bool) {
	for _, v := range dish.Sizes {
		if v.Code == code {
			return v, true
		}
	}
	return datatypes.SizeVariant{}, false
}

// stripLeadPhrases removes order-intent openers from the front of the text.
func stripLeadPhrases(norm string) string {
	changed := true
	for changed {
		changed = false
		for _, lead := range leadPhrases {
			if strings.HasPrefix(norm, lead+" ") {
				norm = strings.TrimSpace(strings.TrimPrefix(norm, lead+" "))
				changed = true
			}
		}
	}
	return norm
}

// truncate shortens a string for log and span attributes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
