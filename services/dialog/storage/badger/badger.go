// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps a BadgerDB instance behind small transaction helpers.
//
// The DB is an embedded key-value store used for per-process persistence
// (session state). It is opened once in main and shared; stores built on top
// of it do not own its lifecycle.
package badger

import (
	"context"
	"fmt"
	"log/slog"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// DB wraps a BadgerDB handle with context-aware transaction helpers.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine.
type DB struct {
	db     *dgbadger.DB
	logger *slog.Logger
}

// Open opens (or creates) a BadgerDB at the given path.
//
// # Inputs
//
//   - path: Directory for the database files. Created if missing.
//   - logger: Logger instance. May be nil.
//
// # Outputs
//
//   - *DB: The opened wrapper. Never nil on success.
//   - error: Non-nil when the database cannot be opened.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := dgbadger.DefaultOptions(path)
	// Badger's own logger is chatty at INFO; route it through nothing and
	// keep our own structured line instead.
	opts.Logger = nil

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", path, err)
	}
	logger.Info("badger opened", slog.String("path", path))
	return &DB{db: db, logger: logger}, nil
}

// WithTxn runs fn inside a read-write transaction.
//
// The context is checked before the transaction starts; Badger transactions
// themselves are not cancellable mid-flight.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// Close flushes and closes the underlying database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("closing badger: %w", err)
	}
	return nil
}
