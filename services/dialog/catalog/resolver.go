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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/textnorm"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	locationCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "catalog",
		Name:      "location_cache_total",
		Help:      "Per-session location cache outcomes: hit, miss, expired",
	}, []string{"outcome"})

	lookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dialog",
		Subsystem: "catalog",
		Name:      "lookup_latency_seconds",
		Help:      "Catalog lookup latency",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	nearbyFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "catalog",
		Name:      "nearby_fallback_total",
		Help:      "Location lookups that fell back to nearby-city suggestions",
	})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var resolverTracer = otel.Tracer("concierge.dialog.catalog.resolver")

// =============================================================================
// Resolver
// =============================================================================

// DefaultLocationCacheTTL is how long a per-session location lookup stays
// fresh. Restaurants near a city do not change mid-conversation; the cache
// only has to survive a short back-and-forth.
const DefaultLocationCacheTTL = 5 * time.Minute

// Resolver answers restaurant and location questions on top of a Catalog.
//
// Description:
//
//	Name resolution runs a fuzzy cascade and falls back to a first-token
//	prefix match as a weak alias. Location resolution filters by city and
//	cuisine tags, consults a per-session TTL cache first, and deduplicates
//	concurrent identical catalog queries through singleflight. When a
//	location yields nothing, the nearby-city table supplies alternatives
//	before failure is declared.
//
// Thread Safety: Safe for concurrent use across sessions. The per-session
// cache lives in the Session, which has one in-flight turn by contract.
type Resolver struct {
	catalog  Catalog
	nearby   config.NearbyCities
	cacheTTL time.Duration
	group    singleflight.Group
	logger   *slog.Logger
}

// NewResolver creates a Resolver.
//
// Inputs:
//
//	cat - The restaurant source. Must not be nil.
//	nearby - Nearby-city suggestion table. May be nil (no fallback).
//	cacheTTL - Per-session cache TTL. Zero or negative uses the default (5m).
//	logger - Logger instance. Must not be nil.
func NewResolver(cat Catalog, nearby config.NearbyCities, cacheTTL time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultLocationCacheTTL
	}
	return &Resolver{
		catalog:  cat,
		nearby:   nearby,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// MenuItems returns the menu for a restaurant id. An unknown id yields an
// empty menu, not an error.
func (r *Resolver) MenuItems(ctx context.Context, restaurantID string) ([]datatypes.MenuItem, error) {
	return r.catalog.MenuItems(ctx, restaurantID)
}

// FindRestaurantByName resolves a restaurant by (possibly misspelled) name.
//
// Description:
//
//	Runs the fuzzy cascade over all restaurants; when nothing matches, a
//	prefix match on the name's first token is tried as a weak alias, so
//	"luigis" still finds "Luigi's Pizzeria".
//
// Outputs:
//
//	*datatypes.Restaurant - The match, or nil when nothing fits.
//	error - Non-nil only when the catalog itself fails.
func (r *Resolver) FindRestaurantByName(ctx context.Context, name string) (*datatypes.Restaurant, error) {
	ctx, span := resolverTracer.Start(ctx, "catalog.Resolver.FindRestaurantByName")
	defer span.End()

	norm := textnorm.Normalize(name)
	if norm == "" {
		return nil, nil
	}

	all, err := r.catalog.Restaurants(ctx, Filter{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing restaurants: %w", err)
	}

	for i := range all {
		if textnorm.FuzzyMatch(norm, textnorm.Normalize(all[i].Name), textnorm.DefaultFuzzyThreshold) {
			span.SetAttributes(attribute.String("match", all[i].ID))
			return &all[i], nil
		}
	}

	// Weak alias: first token as a prefix of the restaurant's first token.
	first := textnorm.FirstToken(norm)
	if len(first) >= 3 {
		for i := range all {
			candidate := textnorm.FirstToken(textnorm.Normalize(all[i].Name))
			if strings.HasPrefix(candidate, first) || strings.HasPrefix(first, candidate) {
				span.SetAttributes(
					attribute.String("match", all[i].ID),
					attribute.Bool("weak_alias", true),
				)
				return &all[i], nil
			}
		}
	}

	span.SetAttributes(attribute.Bool("matched", false))
	return nil, nil
}

// FindRestaurantsByLocation lists restaurants near a location, optionally
// filtered by cuisine tags.
//
// Description:
//
//	The session's location cache is consulted first; a fresh entry is
//	served without touching the catalog. On a miss the catalog query runs
//	under singleflight keyed by the normalized (location, cuisine) pair,
//	and the result is written back to the session cache. The cache is
//	opportunistic: expired or missing entries simply re-query.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Must not be nil.
//	sess - The session owning the cache. May be nil (cache bypassed).
//	location - City or area name as the user said it.
//	cuisineTags - Canonical cuisine tags; empty means any cuisine.
//
// Outputs:
//
//	[]datatypes.Restaurant - Matching restaurants, name-sorted. May be empty.
//	error - Non-nil only when the catalog fails.
//
// Thread Safety: Safe for concurrent use across sessions.
func (r *Resolver) FindRestaurantsByLocation(ctx context.Context, sess *datatypes.Session, location string, cuisineTags []string) ([]datatypes.Restaurant, error) {
	start := time.Now()
	ctx, span := resolverTracer.Start(ctx, "catalog.Resolver.FindRestaurantsByLocation")
	defer span.End()
	defer func() { lookupLatency.Observe(time.Since(start).Seconds()) }()

	key := cacheKey(location, cuisineTags)
	span.SetAttributes(attribute.String("cache_key", key))

	if sess != nil {
		if entry, ok := sess.LocationCache[key]; ok {
			if time.Since(entry.CachedAt) < r.cacheTTL {
				locationCacheTotal.WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("cache_hit", true))
				return entry.Restaurants, nil
			}
			locationCacheTotal.WithLabelValues("expired").Inc()
		} else {
			locationCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	result, err, _ := r.group.Do(key, func() (any, error) {
		return r.catalog.Restaurants(ctx, Filter{
			City:        location,
			CuisineTags: cuisineTags,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("querying restaurants for %q: %w", location, err)
	}

	restaurants := result.([]datatypes.Restaurant)
	sort.Slice(restaurants, func(i, j int) bool { return restaurants[i].Name < restaurants[j].Name })

	if sess != nil {
		if sess.LocationCache == nil {
			sess.LocationCache = make(map[string]datatypes.LocationCacheEntry)
		}
		sess.LocationCache[key] = datatypes.LocationCacheEntry{
			Restaurants: restaurants,
			CachedAt:    time.Now(),
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(restaurants)))
	return restaurants, nil
}

// NearbyAlternatives suggests restaurants in cities adjacent to a location
// that yielded no results.
//
// Outputs:
//
//	[]string - The alternative city names that were tried (for the reply).
//	[]datatypes.Restaurant - Restaurants found in those cities.
//	error - Non-nil only when the catalog fails.
func (r *Resolver) NearbyAlternatives(ctx context.Context, location string, cuisineTags []string) ([]string, []datatypes.Restaurant, error) {
	ctx, span := resolverTracer.Start(ctx, "catalog.Resolver.NearbyAlternatives")
	defer span.End()

	cities := r.nearby[textnorm.Normalize(location)]
	if len(cities) == 0 {
		return nil, nil, nil
	}
	nearbyFallbackTotal.Inc()

	var found []datatypes.Restaurant
	var tried []string
	for _, city := range cities {
		tried = append(tried, city)
		restaurants, err := r.catalog.Restaurants(ctx, Filter{City: city, CuisineTags: cuisineTags})
		if err != nil {
			span.RecordError(err)
			return tried, nil, fmt.Errorf("querying nearby city %q: %w", city, err)
		}
		found = append(found, restaurants...)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	span.SetAttributes(
		attribute.Int("cities_tried", len(tried)),
		attribute.Int("result_count", len(found)),
	)
	r.logger.Debug("nearby fallback",
		slog.String("location", location),
		slog.Int("cities", len(tried)),
		slog.Int("found", len(found)),
	)
	return tried, found, nil
}

// cacheKey builds the normalized per-session cache key "location|cuisine".
func cacheKey(location string, cuisineTags []string) string {
	tags := make([]string, 0, len(cuisineTags))
	for _, t := range cuisineTags {
		if norm := textnorm.Normalize(t); norm != "" {
			tags = append(tags, norm)
		}
	}
	sort.Strings(tags)
	return textnorm.Normalize(location) + "|" + strings.Join(tags, ",")
}
