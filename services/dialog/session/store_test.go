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
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	badgerstore "github.com/AleutianAI/ConciergeFOSS/services/dialog/storage/badger"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour, slog.Default())
	ctx := context.Background()

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, datatypes.ContextNone, sess.ExpectedContext)

	sess.LastLocation = "riverside"
	sess.LastIntent = datatypes.IntentFindNearby
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "riverside", got.LastLocation)
	assert.Equal(t, datatypes.IntentFindNearby, got.LastIntent)
}

// The returned session is a snapshot: mutating it must not leak into the
// store until Put.
func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	store := NewMemoryStore(time.Hour, slog.Default())
	ctx := context.Background()

	sess, _ := store.Get(ctx, "s1")
	sess.LastLocation = "riverside"
	require.NoError(t, store.Put(ctx, sess))

	first, _ := store.Get(ctx, "s1")
	first.LastLocation = "mutated"

	second, _ := store.Get(ctx, "s1")
	assert.Equal(t, "riverside", second.LastLocation)
}

// A stale session reads as a brand-new one, never as an error.
func TestMemoryStore_StaleIsFresh(t *testing.T) {
	store := NewMemoryStore(20*time.Millisecond, slog.Default())
	ctx := context.Background()

	sess, _ := store.Get(ctx, "s1")
	sess.LastLocation = "riverside"
	require.NoError(t, store.Put(ctx, sess))

	time.Sleep(40 * time.Millisecond)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.LastLocation, "stale session must come back fresh")
	assert.Equal(t, "s1", got.ID)
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	db, err := badgerstore.Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore(db, time.Hour, slog.Default())
	ctx := context.Background()

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)

	sess.LastLocation = "riverside"
	sess.ExpectedContext = datatypes.ContextSelectRestaurant
	sess.LastRestaurantsList = []datatypes.Restaurant{{ID: "r1", Name: "Luigi's Pizzeria"}}
	sess.SetPendingOrder(&datatypes.Order{
		RestaurantID: "r1",
		Items:        []datatypes.ParsedOrderItem{{Name: "Pepperoni", Quantity: 2, UnitPrice: 12.50}},
	})
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "riverside", got.LastLocation)
	assert.Equal(t, datatypes.ContextConfirmOrder, got.ExpectedContext, "pending order forces confirm context")
	require.NotNil(t, got.PendingOrder)
	assert.Equal(t, 25.00, got.PendingOrder.Total())
	require.Len(t, got.LastRestaurantsList, 1)
	assert.Equal(t, "Luigi's Pizzeria", got.LastRestaurantsList[0].Name)
}

func TestBadgerStore_MissIsFresh(t *testing.T) {
	db, err := badgerstore.Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore(db, time.Hour, slog.Default())

	got, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, "never-seen", got.ID)
	assert.Nil(t, got.PendingOrder)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := badgerstore.Open(dir, slog.Default())
	require.NoError(t, err)
	store := NewBadgerStore(db, time.Hour, slog.Default())

	sess, _ := store.Get(ctx, "s1")
	sess.LastLocation = "brookfield"
	require.NoError(t, store.Put(ctx, sess))
	require.NoError(t, db.Close())

	db2, err := badgerstore.Open(dir, slog.Default())
	require.NoError(t, err)
	defer db2.Close()

	store2 := NewBadgerStore(db2, time.Hour, slog.Default())
	got, err := store2.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "brookfield", got.LastLocation)
}
