package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/agentbridge/intent"
	"github.com/c360/agentbridge/message"
)

func testEntry(score float64) *Entry {
	msg := message.New(message.TypeResponse, message.ParadigmTaskCentric,
		message.StructuredPayload(map[string]any{"task": map[string]any{"id": "t1"}}))
	return NewEntry(msg, intent.Confidence{Score: score}, testDirection())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var stats TierStats
	lru := newLRUCache(3, &stats)

	lru.Set("a", testEntry(0.9))
	lru.Set("b", testEntry(0.9))
	lru.Set("c", testEntry(0.9))

	// Touch "a" so "b" becomes the oldest.
	_, ok := lru.Get("a")
	require.True(t, ok)

	lru.Set("d", testEntry(0.9))

	_, ok = lru.Get("b")
	assert.False(t, ok, "b was least recently used and must be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := lru.Get(key)
		assert.True(t, ok, "key %q should survive", key)
	}
	assert.Equal(t, 3, lru.Len())
	assert.Equal(t, int64(1), stats.Snapshot().Evictions)
}

func TestLRU_SetExistingDoesNotEvict(t *testing.T) {
	var stats TierStats
	lru := newLRUCache(2, &stats)

	lru.Set("a", testEntry(0.9))
	lru.Set("b", testEntry(0.9))
	lru.Set("a", testEntry(0.95))

	assert.Equal(t, 2, lru.Len())
	entry, ok := lru.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 0.95, entry.Confidence.Score, 1e-9)
	assert.Equal(t, int64(0), stats.Snapshot().Evictions)
}

func TestLRU_TouchUpdatesAccessMetadata(t *testing.T) {
	var stats TierStats
	lru := newLRUCache(2, &stats)
	lru.Set("a", testEntry(0.9))

	first, ok := lru.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), first.Metadata.HitCount)

	second, ok := lru.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), second.Metadata.HitCount)
	assert.False(t, second.Metadata.LastAccessedAt.Before(second.Metadata.CreatedAt))
}

func TestLRU_DeleteMatching(t *testing.T) {
	var stats TierStats
	lru := newLRUCache(10, &stats)

	for i := range 3 {
		lru.Set(fmt.Sprintf("a->b:%d", i), testEntry(0.9))
	}
	lru.Set("b->a:0", testEntry(0.9))

	removed := lru.DeleteMatching("a->b:*")
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, lru.Len())

	_, ok := lru.Get("b->a:0")
	assert.True(t, ok)
}

func TestLRU_StatsHitRatio(t *testing.T) {
	var stats TierStats
	lru := newLRUCache(2, &stats)
	lru.Set("a", testEntry(0.9))

	lru.Get("a")
	lru.Get("missing")
	lru.Get("a")
	lru.Get("missing-again")

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.Hits)
	assert.Equal(t, int64(2), snap.Misses)
	assert.InDelta(t, 0.5, snap.HitRatio, 1e-9)
}
