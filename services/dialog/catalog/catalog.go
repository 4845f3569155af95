// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog resolves restaurants and menus for the dialogue pipeline.
//
// The Catalog interface is the read-only source of truth; MemoryCatalog is
// the in-process implementation seeded with fixture data for the demo server
// and tests. Resolver layers fuzzy name matching, location filtering with a
// per-session TTL cache, and nearby-city fallbacks on top of any Catalog.
package catalog

import (
	"context"
	"strings"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Catalog Interface
// =============================================================================

// Filter narrows a restaurant listing. Zero values mean "no constraint".
type Filter struct {
	// City is matched as a normalized substring of the restaurant's city.
	City string

	// CuisineTags keeps restaurants whose cuisine matches ANY of the tags.
	CuisineTags []string
}

// Catalog is the read-only restaurant and menu source.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Catalog interface {
	// Restaurants lists restaurants matching the filter.
	Restaurants(ctx context.Context, f Filter) ([]datatypes.Restaurant, error)

	// MenuItems lists the menu of one restaurant. An unknown restaurant id
	// yields an empty list, not an error.
	MenuItems(ctx context.Context, restaurantID string) ([]datatypes.MenuItem, error)
}

// =============================================================================
// MemoryCatalog
// =============================================================================

// MemoryCatalog is an in-process Catalog backed by slices.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type MemoryCatalog struct {
	restaurants []datatypes.Restaurant
	menus       map[string][]datatypes.MenuItem
}

// NewMemoryCatalog creates a catalog over the given data.
func NewMemoryCatalog(restaurants []datatypes.Restaurant, menus map[string][]datatypes.MenuItem) *MemoryCatalog {
	if menus == nil {
		menus = make(map[string][]datatypes.MenuItem)
	}
	return &MemoryCatalog{restaurants: restaurants, menus: menus}
}

// Restaurants lists restaurants matching the filter.
//
// Description:
//
//	City matching is a normalized substring test in both directions, so
//	"riverside" matches "Riverside" and "riverside downtown" matches
//	"Riverside". Cuisine matching is an any-of test over normalized tags.
func (m *MemoryCatalog) Restaurants(_ context.Context, f Filter) ([]datatypes.Restaurant, error) {
	city := textnorm.Normalize(f.City)
	tags := make([]string, 0, len(f.CuisineTags))
	for _, t := range f.CuisineTags {
		if norm := textnorm.Normalize(t); norm != "" {
			tags = append(tags, norm)
		}
	}

	var out []datatypes.Restaurant
	for _, r := range m.restaurants {
		if city != "" {
			rCity := textnorm.Normalize(r.City)
			if !strings.Contains(rCity, city) && !strings.Contains(city, rCity) {
				continue
			}
		}
		if len(tags) > 0 && !matchesAnyTag(r.CuisineType, tags) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// MenuItems lists the menu of one restaurant.
func (m *MemoryCatalog) MenuItems(_ context.Context, restaurantID string) ([]datatypes.MenuItem, error) {
	items := m.menus[restaurantID]
	out := make([]datatypes.MenuItem, len(items))
	copy(out, items)
	return out, nil
}

// matchesAnyTag reports whether the cuisine matches any normalized tag.
func matchesAnyTag(cuisine string, tags []string) bool {
	c := textnorm.Normalize(cuisine)
	for _, t := range tags {
		if c == t || strings.Contains(c, t) || strings.Contains(t, c) {
			return true
		}
	}
	return false
}

// =============================================================================
// Fixture Data
// =============================================================================

// NewFixtureCatalog returns the demo catalog used by the dev server and the
// package tests: three cities, a handful of restaurants, and menus with and
// without size variants.
func NewFixtureCatalog() *MemoryCatalog {
	restaurants := []datatypes.Restaurant{
		{ID: "r-luigis", Name: "Luigi's Pizzeria", City: "Riverside", CuisineType: "italian", Latitude: 33.98, Longitude: -117.37},
		{ID: "r-nova", Name: "Pizza Nova", City: "Riverside", CuisineType: "italian", Latitude: 33.95, Longitude: -117.40},
		{ID: "r-dragon", Name: "Golden Dragon", City: "Riverside", CuisineType: "chinese", Latitude: 33.97, Longitude: -117.35},
		{ID: "r-saigon", Name: "Saigon Kitchen", City: "Eastvale", CuisineType: "vietnamese", Latitude: 33.96, Longitude: -117.56},
		{ID: "r-taverna", Name: "Taverna Athena", City: "Brookfield", CuisineType: "greek", Latitude: 34.01, Longitude: -117.30},
		{ID: "r-katsu", Name: "Katsu House", City: "Brookfield", CuisineType: "japanese", Latitude: 34.02, Longitude: -117.29},
	}

	menus := map[string][]datatypes.MenuItem{
		"r-luigis": {
			{ID: "m-margherita", RestaurantID: "r-luigis", Name: "Margherita", Price: 9.50, Category: "pizza", Available: true,
				Sizes: []datatypes.SizeVariant{{Code: "m", Price: 9.50}, {Code: "l", Price: 12.50}}},
			{ID: "m-pepperoni", RestaurantID: "r-luigis", Name: "Pepperoni", Price: 10.50, Category: "pizza", Available: true,
				Sizes: []datatypes.SizeVariant{{Code: "m", Price: 10.50}, {Code: "l", Price: 13.50}}},
			{ID: "m-quattro", RestaurantID: "r-luigis", Name: "Quattro Formaggi", Price: 11.00, Category: "pizza", Available: true,
				Sizes: []datatypes.SizeVariant{{Code: "m", Price: 11.00}, {Code: "l", Price: 14.00}}},
			{ID: "m-tiramisu", RestaurantID: "r-luigis", Name: "Tiramisu", Price: 5.50, Category: "dessert", Available: true},
			{ID: "m-cola", RestaurantID: "r-luigis", Name: "Cola", Price: 2.50, Category: "drink", Available: true},
		},
		"r-nova": {
			{ID: "m-nova-diavola", RestaurantID: "r-nova", Name: "Diavola", Price: 11.50, Category: "pizza", Available: true,
				Sizes: []datatypes.SizeVariant{{Code: "m", Price: 11.50}, {Code: "l", Price: 14.50}, {Code: "xl", Price: 17.50}}},
			{ID: "m-nova-hawaii", RestaurantID: "r-nova", Name: "Hawaii", Price: 10.00, Category: "pizza", Available: false,
				Sizes: []datatypes.SizeVariant{{Code: "m", Price: 10.00}, {Code: "l", Price: 13.00}}},
		},
		"r-dragon": {
			{ID: "m-kungpao", RestaurantID: "r-dragon", Name: "Kung Pao Chicken", Price: 12.00, Category: "main", Available: true},
			{ID: "m-friedrice", RestaurantID: "r-dragon", Name: "Fried Rice", Price: 8.00, Category: "main", Available: true},
			{ID: "m-springroll", RestaurantID: "r-dragon", Name: "Spring Rolls", Price: 5.00, Category: "starter", Available: true},
		},
		"r-saigon": {
			{ID: "m-pho", RestaurantID: "r-saigon", Name: "Pho Bo", Price: 11.00, Category: "main", Available: true},
			{ID: "m-banhmi", RestaurantID: "r-saigon", Name: "Banh Mi", Price: 7.50, Category: "main", Available: true},
		},
		"r-taverna": {
			{ID: "m-gyros", RestaurantID: "r-taverna", Name: "Gyros Plate", Price: 13.00, Category: "main", Available: true},
			{ID: "m-greeksalad", RestaurantID: "r-taverna", Name: "Greek Salad", Price: 8.50, Category: "salad", Available: true},
		},
		"r-katsu": {
			{ID: "m-tonkatsu", RestaurantID: "r-katsu", Name: "Tonkatsu", Price: 14.00, Category: "main", Available: true},
			{ID: "m-sushi-set", RestaurantID: "r-katsu", Name: "Sushi Set", Price: 16.00, Category: "main", Available: true},
		},
	}

	return NewMemoryCatalog(restaurants, menus)
}
