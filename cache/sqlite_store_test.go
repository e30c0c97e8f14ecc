package cache

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/agentbridge/errors"
)

func openTestStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), ":memory:", ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	entry := testEntry(0.95)
	require.NoError(t, store.Set(ctx, "a->b:rt", entry, 0))

	got, ok := store.Get(ctx, "a->b:rt")
	require.True(t, ok)
	assert.InDelta(t, 0.95, got.Confidence.Score, 1e-9)
	assert.Equal(t, entry.Data.ID, got.Data.ID)
	assert.Equal(t, "tool-centric->task-centric", got.Metadata.Direction)
}

func TestSQLiteStore_MissingKey(t *testing.T) {
	store := openTestStore(t, 0)
	_, ok := store.Get(context.Background(), "a->b:absent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), store.Stats().Misses)
}

func TestSQLiteStore_OpenFailureIsStorageUnavailable(t *testing.T) {
	_, err := OpenSQLiteStore(context.Background(),
		"/nonexistent-dir-for-sure/cache.db", 0, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStorageUnavailable))
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	require.NoError(t, store.Set(ctx, "a->b:up", testEntry(0.91), 0))
	require.NoError(t, store.Set(ctx, "a->b:up", testEntry(0.99), 0))

	got, ok := store.Get(ctx, "a->b:up")
	require.True(t, ok)
	assert.InDelta(t, 0.99, got.Confidence.Score, 1e-9)
}

func TestSQLiteStore_ExpiredEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	// A negative-duration TTL is normalized to the default; use a 1ns TTL so
	// the row is already expired by the time the read happens.
	store := openTestStore(t, time.Nanosecond)

	require.NoError(t, store.Set(ctx, "a->b:exp", testEntry(0.95), 0))
	time.Sleep(1100 * time.Millisecond)

	_, ok := store.Get(ctx, "a->b:exp")
	assert.False(t, ok)

	// The expired row was deleted on read, so purge finds nothing.
	purged, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestSQLiteStore_PerEntryTTLOverridesDefault(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0) // default 30-day TTL

	require.NoError(t, store.Set(ctx, "a->b:short", testEntry(0.95), time.Nanosecond))
	require.NoError(t, store.Set(ctx, "a->b:long", testEntry(0.95), 0))
	time.Sleep(1100 * time.Millisecond)

	_, ok := store.Get(ctx, "a->b:short")
	assert.False(t, ok, "overridden TTL expired the entry")

	_, ok = store.Get(ctx, "a->b:long")
	assert.True(t, ok, "default TTL keeps the entry")
}

func TestSQLiteStore_DeleteMatching(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	require.NoError(t, store.Set(ctx, "a->b:1", testEntry(0.95), 0))
	require.NoError(t, store.Set(ctx, "a->b:2", testEntry(0.95), 0))
	require.NoError(t, store.Set(ctx, "b->a:1", testEntry(0.95), 0))

	t.Run("prefix pattern", func(t *testing.T) {
		removed, err := store.DeleteMatching(ctx, "a->b:*")
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
	})

	t.Run("exact pattern", func(t *testing.T) {
		removed, err := store.DeleteMatching(ctx, "b->a:1")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})
}

func TestSQLiteStore_WarmKeysOrderedByAccess(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, 0)

	require.NoError(t, store.Set(ctx, "a->b:w1", testEntry(0.95), 0))
	require.NoError(t, store.Set(ctx, "a->b:w2", testEntry(0.95), 0))
	require.NoError(t, store.Set(ctx, "a->b:w3", testEntry(0.95), 0))

	warm, err := store.WarmKeys(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, warm, 2)
	for key, entry := range warm {
		assert.Contains(t, []string{"a->b:w1", "a->b:w2", "a->b:w3"}, key)
		assert.NotNil(t, entry.Data)
	}
}
