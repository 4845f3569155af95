// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

// countingCatalog wraps a Catalog and counts Restaurants calls.
type countingCatalog struct {
	Catalog
	mu    sync.Mutex
	calls int
}

func (c *countingCatalog) Restaurants(ctx context.Context, f Filter) ([]datatypes.Restaurant, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Catalog.Restaurants(ctx, f)
}

func (c *countingCatalog) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestMemoryCatalog_Restaurants(t *testing.T) {
	cat := NewFixtureCatalog()

	t.Run("by_city", func(t *testing.T) {
		got, err := cat.Restaurants(context.Background(), Filter{City: "Riverside"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 Riverside restaurants, got %d", len(got))
		}
	})

	t.Run("by_city_and_cuisine", func(t *testing.T) {
		got, err := cat.Restaurants(context.Background(), Filter{City: "riverside", CuisineTags: []string{"italian"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 italian restaurants in Riverside, got %d", len(got))
		}
	})

	t.Run("unknown_city", func(t *testing.T) {
		got, err := cat.Restaurants(context.Background(), Filter{City: "atlantis"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no restaurants, got %d", len(got))
		}
	})
}

func TestMemoryCatalog_MenuItems(t *testing.T) {
	cat := NewFixtureCatalog()

	items, err := cat.MenuItems(context.Background(), "r-luigis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 5 {
		t.Errorf("expected 5 menu items, got %d", len(items))
	}

	items, err = cat.MenuItems(context.Background(), "no-such-restaurant")
	if err != nil {
		t.Fatalf("unknown restaurant must not error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty menu, got %d items", len(items))
	}
}

func TestResolver_FindRestaurantByName(t *testing.T) {
	r := NewResolver(NewFixtureCatalog(), nil, 0, slog.Default())

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{"exact", "Luigi's Pizzeria", "r-luigis"},
		{"normalized", "luigis pizzeria", "r-luigis"},
		{"containment", "golden dragon restaurant", "r-dragon"},
		{"typo", "luigis pizzzeria", "r-luigis"},
		{"first_token_prefix", "luigi", "r-luigis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.FindRestaurantByName(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatalf("FindRestaurantByName(%q) = nil", tt.query)
			}
			if got.ID != tt.wantID {
				t.Errorf("FindRestaurantByName(%q) = %s, want %s", tt.query, got.ID, tt.wantID)
			}
		})
	}

	t.Run("no_match", func(t *testing.T) {
		got, err := r.FindRestaurantByName(context.Background(), "burger barn")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %s", got.ID)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		got, err := r.FindRestaurantByName(context.Background(), "  ")
		if err != nil || got != nil {
			t.Errorf("empty name: got %v, %v", got, err)
		}
	})
}

func TestResolver_LocationCache(t *testing.T) {
	counting := &countingCatalog{Catalog: NewFixtureCatalog()}
	r := NewResolver(counting, nil, 5*time.Minute, slog.Default())
	sess := datatypes.NewSession("s1")

	first, err := r.FindRestaurantsByLocation(context.Background(), sess, "Riverside", []string{"italian"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 restaurants, got %d", len(first))
	}
	if counting.callCount() != 1 {
		t.Fatalf("expected 1 catalog call, got %d", counting.callCount())
	}

	// Second identical lookup is served from the session cache.
	second, err := r.FindRestaurantsByLocation(context.Background(), sess, "riverside", []string{"Italian"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("expected 2 restaurants from cache, got %d", len(second))
	}
	if counting.callCount() != 1 {
		t.Errorf("cache hit must not touch the catalog, calls = %d", counting.callCount())
	}

	// A different cuisine is a different key.
	if _, err := r.FindRestaurantsByLocation(context.Background(), sess, "riverside", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counting.callCount() != 2 {
		t.Errorf("different key must re-query, calls = %d", counting.callCount())
	}
}

func TestResolver_LocationCacheExpiry(t *testing.T) {
	counting := &countingCatalog{Catalog: NewFixtureCatalog()}
	r := NewResolver(counting, nil, 10*time.Millisecond, slog.Default())
	sess := datatypes.NewSession("s1")

	if _, err := r.FindRestaurantsByLocation(context.Background(), sess, "riverside", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := r.FindRestaurantsByLocation(context.Background(), sess, "riverside", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counting.callCount() != 2 {
		t.Errorf("expired entry must re-query, calls = %d", counting.callCount())
	}
}

func TestResolver_NilSession(t *testing.T) {
	r := NewResolver(NewFixtureCatalog(), nil, 0, slog.Default())

	got, err := r.FindRestaurantsByLocation(context.Background(), nil, "riverside", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 restaurants, got %d", len(got))
	}
}

func TestResolver_NearbyAlternatives(t *testing.T) {
	nearby := config.NearbyCities{"riverside": {"Eastvale", "Brookfield"}}
	r := NewResolver(NewFixtureCatalog(), nearby, 0, slog.Default())

	t.Run("suggests_adjacent_cities", func(t *testing.T) {
		tried, found, err := r.NearbyAlternatives(context.Background(), "Riverside", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tried) != 2 {
			t.Errorf("expected 2 tried cities, got %v", tried)
		}
		if len(found) != 3 {
			t.Errorf("expected 3 alternatives, got %d", len(found))
		}
	})

	t.Run("cuisine_filter_applies", func(t *testing.T) {
		_, found, err := r.NearbyAlternatives(context.Background(), "riverside", []string{"vietnamese"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(found) != 1 || found[0].ID != "r-saigon" {
			t.Errorf("expected only Saigon Kitchen, got %v", found)
		}
	})

	t.Run("unknown_location", func(t *testing.T) {
		tried, found, err := r.NearbyAlternatives(context.Background(), "atlantis", nil)
		if err != nil || tried != nil || found != nil {
			t.Errorf("unknown location: got %v, %v, %v", tried, found, err)
		}
	})
}
