// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "strings"

// =============================================================================
// Catalog Types
// =============================================================================

// Restaurant is a catalog entry. Immutable within a resolution call — the
// catalog collaborator owns the data; the dialog core only reads it.
type Restaurant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	City        string  `json:"city"`
	CuisineType string  `json:"cuisine_type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// SizeVariant is one orderable size of a menu item.
type SizeVariant struct {
	// Code is the canonical size code: "s", "m", "l", "xl".
	Code string `json:"code"`

	// Price is the unit price for this size.
	Price float64 `json:"price"`
}

// MenuItem is one orderable dish on a restaurant's menu.
//
// A dish name may appear as a single row with size variants, or (legacy
// catalogs) as multiple rows differing only by size. The order parser must
// not silently pick one row when several tie — ambiguity is surfaced to the
// user instead.
type MenuItem struct {
	ID           string        `json:"id"`
	RestaurantID string        `json:"restaurant_id"`
	Name         string        `json:"name"`
	Price        float64       `json:"price"`
	Category     string        `json:"category"`
	Available    bool          `json:"available"`
	Sizes        []SizeVariant `json:"sizes,omitempty"`
}

// sizedDishMarkers name dish families that are never orderable without a
// size, even when the catalog row carries no variant prices.
var sizedDishMarkers = []string{"pizza"}

// RequiresSize reports whether the item cannot be ordered without a size.
// Heuristic: the item carries size variants, or its name/category marks a
// dish family that is always sized (pizza-like).
func (m MenuItem) RequiresSize() bool {
	if len(m.Sizes) > 0 {
		return true
	}
	name := strings.ToLower(m.Name)
	category := strings.ToLower(m.Category)
	for _, marker := range sizedDishMarkers {
		if strings.Contains(name, marker) || strings.Contains(category, marker) {
			return true
		}
	}
	return false
}
