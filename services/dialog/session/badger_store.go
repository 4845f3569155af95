// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	badgerstore "github.com/AleutianAI/ConciergeFOSS/services/dialog/storage/badger"
)

// =============================================================================
// BadgerStore — Session Persistence
// =============================================================================
//
// Sessions are gob-encoded under dialog/session/v1/{id}. TTL is enforced by
// BadgerDB's native GC, not by application code: an expired key returns
// ErrKeyNotFound, which Get treats exactly like a brand-new session. A decode
// failure (format drift between versions) is also treated as a fresh
// session — losing one conversation's context beats failing every turn.

// sessionKeyPrefix is versioned to allow format changes without collision.
const sessionKeyPrefix = "dialog/session/v1/"

// errSessionMiss distinguishes a normal miss from a storage failure.
var errSessionMiss = errors.New("session miss")

// BadgerStore implements Store backed by a BadgerDB instance.
//
// # Description
//
// The DB is opened by the caller (typically in main) and shared; this store
// does not own its lifecycle. Single-process only — Badger takes an
// exclusive directory lock, so this is not a distributed session store.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent turns against the same session id are
// last-write-wins.
type BadgerStore struct {
	db     *badgerstore.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerStore creates a BadgerStore.
//
// # Inputs
//
//   - db: Opened BadgerDB wrapper. Must not be nil.
//   - ttl: Session inactivity TTL. Zero or negative uses the default (1h).
//   - logger: Logger instance. May be nil.
func NewBadgerStore(db *badgerstore.DB, ttl time.Duration, logger *slog.Logger) *BadgerStore {
	if db == nil {
		panic("NewBadgerStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerStore{db: db, ttl: ttl, logger: logger}
}

// Get returns the session for id, or a fresh one when absent or expired.
func (s *BadgerStore) Get(ctx context.Context, id string) (*datatypes.Session, error) {
	key := sessionKey(id)

	var raw []byte
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return errSessionMiss
		}
		if err != nil {
			return fmt.Errorf("get session key: %w", err)
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy value: %w", err)
		}
		return nil
	})

	if errors.Is(err, errSessionMiss) {
		sessionLookupTotal.WithLabelValues("miss").Inc()
		return datatypes.NewSession(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}

	sess, err := decodeSession(raw)
	if err != nil {
		s.logger.Warn("session decode failed, starting fresh",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		sessionLookupTotal.WithLabelValues("stale").Inc()
		return datatypes.NewSession(id), nil
	}

	sessionLookupTotal.WithLabelValues("hit").Inc()
	return sess, nil
}

// Put persists the session with the store's TTL.
func (s *BadgerStore) Put(ctx context.Context, sess *datatypes.Session) error {
	stored := sess.Clone()
	stored.LastUpdated = time.Now()

	raw, err := encodeSession(stored)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}

	key := sessionKey(sess.ID)
	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// sessionKey builds the BadgerDB key for a session id.
func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

// encodeSession serializes a session using encoding/gob.
func encodeSession(sess *datatypes.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sess); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSession deserializes a session from gob-encoded bytes.
func decodeSession(data []byte) (*datatypes.Session, error) {
	var sess datatypes.Session
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sess); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return &sess, nil
}
