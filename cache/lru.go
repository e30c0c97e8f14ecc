package cache

import (
	"container/list"
	"sync"
)

// DefaultL1Capacity is the hot-tier entry cap.
const DefaultL1Capacity = 1000

// lruCache is the strict LRU backing tier 1. Reads move entries to the
// front; inserts at capacity evict the least recently used entry.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
	stats    *TierStats
}

type lruItem struct {
	key   string
	entry *Entry
}

func newLRUCache(capacity int, stats *TierStats) *lruCache {
	if capacity <= 0 {
		capacity = DefaultL1Capacity
	}
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		stats:    stats,
	}
}

// Get returns the entry for key and marks it most recently used.
func (c *lruCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.miss()
		return nil, false
	}
	c.order.MoveToFront(elem)
	item := elem.Value.(*lruItem)
	item.entry.touch()
	c.stats.hit()
	return item.entry, true
}

// Set inserts or replaces the entry for key. Inserting a new key at
// capacity evicts the least recently used entry first.
func (c *lruCache) Set(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruItem).entry = entry
		c.stats.set()
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(&lruItem{key: key, entry: entry})
	c.stats.set()
}

// evictOldest removes the back of the recency list. Caller holds the lock.
func (c *lruCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*lruItem).key)
	c.stats.eviction()
}

// Delete removes key if present and reports whether it existed.
func (c *lruCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

// DeleteMatching removes all keys matching the invalidation pattern and
// returns the number removed.
func (c *lruCache) DeleteMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.items {
		if matchPattern(key, pattern) {
			c.order.Remove(elem)
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the current entry count.
func (c *lruCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache.
func (c *lruCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
