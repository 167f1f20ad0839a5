// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLStore(db)
	require.NoError(t, store.CreateSchema())

	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := newTestSQLStore(t)

	used := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(&Key{
		Value:    "abc",
		Provider: "amap",
		Owner:    OwnerSystem,
		Status:   StatusActive,
		LastUsed: &used,
	}))

	k, err := store.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "amap", k.Provider)
	assert.Equal(t, OwnerSystem, k.Owner)
	assert.Equal(t, StatusActive, k.Status)
	assert.Nil(t, k.CooldownUntil)
	require.NotNil(t, k.LastUsed)
	assert.True(t, used.Equal(*k.LastUsed))

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSQLStoreUpdate(t *testing.T) {
	store := newTestSQLStore(t)

	require.NoError(t, store.Insert(&Key{
		Value: "abc", Provider: "amap", Owner: OwnerSystem, Status: StatusActive,
	}))

	until := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Update(&Key{
		Value:         "abc",
		Status:        StatusQuotaExceeded,
		CooldownUntil: &until,
		FailureCount:  0,
	}))

	k, err := store.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, StatusQuotaExceeded, k.Status)
	require.NotNil(t, k.CooldownUntil)
	assert.True(t, until.Equal(*k.CooldownUntil))

	assert.ErrorIs(t, store.Update(&Key{Value: "missing"}), ErrKeyNotFound)
}

func TestSQLStoreReactivateExpired(t *testing.T) {
	store := newTestSQLStore(t)

	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	require.NoError(t, store.Insert(&Key{
		Value: "expired", Provider: "amap", Owner: OwnerSystem,
		Status: StatusRateLimited, CooldownUntil: &past, FailureCount: 3,
	}))
	require.NoError(t, store.Insert(&Key{
		Value: "cooling", Provider: "amap", Owner: OwnerSystem,
		Status: StatusRateLimited, CooldownUntil: &future,
	}))
	require.NoError(t, store.Insert(&Key{
		Value: "dead", Provider: "amap", Owner: OwnerSystem, Status: StatusInvalid,
	}))

	require.NoError(t, store.ReactivateExpired("amap", now))

	k, err := store.Get("expired")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, k.Status)
	assert.Nil(t, k.CooldownUntil)
	assert.Zero(t, k.FailureCount)

	k, err = store.Get("cooling")
	require.NoError(t, err)
	assert.Equal(t, StatusRateLimited, k.Status)

	k, err = store.Get("dead")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, k.Status)
}

func TestSQLStoreListByProvider(t *testing.T) {
	store := newTestSQLStore(t)

	require.NoError(t, store.Insert(&Key{
		Value: "a1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive,
	}))
	require.NoError(t, store.Insert(&Key{
		Value: "a2", Provider: "amap", Owner: OwnerUser, UserID: 7, Status: StatusActive,
	}))
	require.NoError(t, store.Insert(&Key{
		Value: "b1", Provider: "baidu", Owner: OwnerSystem, Status: StatusActive,
	}))

	ks, err := store.ListByProvider("amap")
	require.NoError(t, err)
	assert.Len(t, ks, 2)

	ks, err = store.ListByProvider("tianditu")
	require.NoError(t, err)
	assert.Empty(t, ks)
}
