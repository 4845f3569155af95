// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session persists per-conversation dialogue state.
//
// Two Store implementations exist: an in-memory map with lazy TTL eviction
// for tests and single-node dev use, and a BadgerDB-backed store for
// restart-surviving persistence. Both treat a stale session exactly like a
// missing one: the caller always gets a usable session, never an expiry
// error.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	sessionLookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "session",
		Name:      "lookup_total",
		Help:      "Session lookups by outcome: hit, miss, stale",
	}, []string{"outcome"})

	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dialog",
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions currently held by the in-memory store",
	})
)

// DefaultSessionTTL is the inactivity window after which a session is
// treated as fresh. An hour covers a meal-length conversation with room to
// spare.
const DefaultSessionTTL = time.Hour

// =============================================================================
// Store Interface
// =============================================================================

// Store persists dialogue sessions between turns.
//
// # Description
//
// Get never fails on absence: a missing or stale session yields a fresh one
// for the same id. Put persists the session snapshot as-is; the state
// machine is the only writer, so no merge is performed. Concurrent turns
// against the same id are last-write-wins.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use across sessions.
type Store interface {
	// Get returns the session for id, or a fresh session when absent or
	// stale. The error is non-nil only on storage failure.
	Get(ctx context.Context, id string) (*datatypes.Session, error)

	// Put persists the session. LastUpdated is stamped by the store.
	Put(ctx context.Context, sess *datatypes.Session) error
}

// =============================================================================
// MemoryStore
// =============================================================================

// MemoryStore is an in-process Store with lazy TTL eviction.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*datatypes.Session
	ttl      time.Duration
	logger   *slog.Logger
}

// NewMemoryStore creates a MemoryStore.
//
// # Inputs
//
//   - ttl: Inactivity TTL. Zero or negative uses the default (1h).
//   - logger: Logger instance. May be nil.
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		sessions: make(map[string]*datatypes.Session),
		ttl:      ttl,
		logger:   logger,
	}
}

// Get returns the session for id, or a fresh one when absent or stale.
func (s *MemoryStore) Get(_ context.Context, id string) (*datatypes.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		sessionLookupTotal.WithLabelValues("miss").Inc()
		return datatypes.NewSession(id), nil
	}
	if time.Since(sess.LastUpdated) > s.ttl {
		sessionLookupTotal.WithLabelValues("stale").Inc()
		s.mu.Lock()
		delete(s.sessions, id)
		sessionActive.Set(float64(len(s.sessions)))
		s.mu.Unlock()
		return datatypes.NewSession(id), nil
	}

	sessionLookupTotal.WithLabelValues("hit").Inc()
	return sess.Clone(), nil
}

// Put persists the session snapshot.
func (s *MemoryStore) Put(_ context.Context, sess *datatypes.Session) error {
	stored := sess.Clone()
	stored.LastUpdated = time.Now()

	s.mu.Lock()
	s.sessions[sess.ID] = stored
	sessionActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	return nil
}
