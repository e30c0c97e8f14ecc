package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/agentbridge/event"
)

// Manager coordinates the three tiers. Lookups short-circuit at the first
// hit and promote lower-tier results upward; writes fan out subject to the
// per-tier confidence gates. Tier 2 and tier 3 are optional: a manager with
// neither degrades to a plain in-process LRU.
type Manager struct {
	l1 *lruCache
	l2 *kvTier
	l3 *SQLiteStore

	l1Stats TierStats
	l2Stats TierStats

	bus     *event.Bus
	logger  *slog.Logger
	lookups *prometheus.CounterVec
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithL1Capacity overrides the hot-tier entry cap.
func WithL1Capacity(n int) ManagerOption {
	return func(m *Manager) { m.l1 = newLRUCache(n, &m.l1Stats) }
}

// WithKV enables the distributed tier backed by a KV bucket.
func WithKV(kv KV) ManagerOption {
	return func(m *Manager) { m.l2 = newKVTier(kv, m.logger, &m.l2Stats) }
}

// WithDurable enables the durable tier.
func WithDurable(store *SQLiteStore) ManagerOption {
	return func(m *Manager) { m.l3 = store }
}

// WithBus wires the observability event bus.
func WithBus(bus *event.Bus) ManagerOption {
	return func(m *Manager) { m.bus = bus }
}

// WithLookupCounter wires the per-tier lookup counter (label: tier).
func WithLookupCounter(c *prometheus.CounterVec) ManagerOption {
	return func(m *Manager) { m.lookups = c }
}

// NewManager builds a cache manager. Tier options inherit the logger.
func NewManager(logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{logger: logger}
	m.l1 = newLRUCache(DefaultL1Capacity, &m.l1Stats)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// callOptions narrow a single Get or Set to a subset of tiers and, on
// writes, override the durable tier's TTL.
type callOptions struct {
	skipL1 bool
	skipL2 bool
	skipL3 bool
	ttl    time.Duration
}

// Option modifies one Get or Set call.
type Option func(*callOptions)

// SkipL1 bypasses the in-process tier.
func SkipL1() Option { return func(o *callOptions) { o.skipL1 = true } }

// SkipL2 bypasses the distributed tier.
func SkipL2() Option { return func(o *callOptions) { o.skipL2 = true } }

// SkipL3 bypasses the durable tier.
func SkipL3() Option { return func(o *callOptions) { o.skipL3 = true } }

// WithTTL overrides the durable tier's expiry for one Set. The distributed
// tier's TTL is fixed per bucket, so only tier 3 honors the override.
func WithTTL(d time.Duration) Option { return func(o *callOptions) { o.ttl = d } }

// Get looks the key up tier by tier and reports which tier served it.
// A lower-tier hit is promoted into every faster tier whose confidence gate
// it passes. Tier failures degrade to misses; a broken backend never fails
// a translation.
func (m *Manager) Get(ctx context.Context, key string, opts ...Option) (*Entry, Tier) {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}

	if !options.skipL1 {
		if entry, ok := m.l1.Get(key); ok {
			m.observeHit(key, TierL1)
			return entry, TierL1
		}
	}

	if m.l2 != nil && !options.skipL2 {
		if entry, ok := m.l2.Get(ctx, key); ok {
			m.promote(ctx, key, entry, TierL2)
			m.observeHit(key, TierL2)
			return entry, TierL2
		}
	}

	if m.l3 != nil && !options.skipL3 {
		if entry, ok := m.l3.Get(ctx, key); ok {
			m.promote(ctx, key, entry, TierL3)
			m.observeHit(key, TierL3)
			return entry, TierL3
		}
	}

	m.observeMiss(key)
	return nil, TierMiss
}

// promote copies a lower-tier hit into the faster tiers, honoring the L1
// confidence gate.
func (m *Manager) promote(ctx context.Context, key string, entry *Entry, from Tier) {
	if entry.Confidence.Score >= MinL1Confidence {
		m.l1.Set(key, entry)
	}
	if from == TierL3 && m.l2 != nil {
		if err := m.l2.Set(ctx, key, entry); err != nil {
			m.logger.Warn("promotion to distributed tier failed", "key", key, "error", err)
		}
	}
}

// Set writes the entry through the tiers its confidence qualifies for:
// the hot tier at MinL1Confidence, the distributed tier unconditionally,
// and the durable tier at MinL3Confidence. Below the L1 gate the entry only
// reaches the shared tiers, so it cannot crowd out reliable hot entries.
// Skip options exclude tiers the entry would otherwise qualify for.
func (m *Manager) Set(ctx context.Context, key string, entry *Entry, opts ...Option) error {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}
	confidence := entry.Confidence.Score

	if !options.skipL1 && confidence >= MinL1Confidence {
		m.l1.Set(key, entry)
	}

	var firstErr error
	if m.l2 != nil && !options.skipL2 {
		if err := m.l2.Set(ctx, key, entry); err != nil {
			firstErr = err
			m.publish(event.CacheError, map[string]any{"key": key, "tier": string(TierL2), "error": err.Error()})
		}
	}
	if m.l3 != nil && !options.skipL3 && confidence >= MinL3Confidence {
		if err := m.l3.Set(ctx, key, entry, options.ttl); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			m.publish(event.CacheError, map[string]any{"key": key, "tier": string(TierL3), "error": err.Error()})
		}
	}

	m.publish(event.CacheSet, map[string]any{"key": key, "confidence": confidence})
	return firstErr
}

// Invalidate removes entries matching pattern from every tier and returns
// the total removed. A trailing '*' matches any key suffix, so
// "tool-centric->task-centric:*" clears one direction.
func (m *Manager) Invalidate(ctx context.Context, pattern string) (int, error) {
	removed := m.l1.DeleteMatching(pattern)

	var firstErr error
	if m.l2 != nil {
		n, err := m.l2.DeleteMatching(ctx, pattern)
		removed += n
		if err != nil {
			firstErr = err
		}
	}
	if m.l3 != nil {
		n, err := m.l3.DeleteMatching(ctx, pattern)
		removed += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.publish(event.CacheCleared, map[string]any{"pattern": pattern, "removed": removed})
	return removed, firstErr
}

// Warm seeds the hot tier with the durable tier's most recently used
// entries and replays them into the distributed tier so restarted peers
// share the warm set. No-op without a durable tier.
func (m *Manager) Warm(ctx context.Context, limit int) (int, error) {
	if m.l3 == nil {
		return 0, nil
	}
	entries, err := m.l3.WarmKeys(ctx, limit)
	if err != nil {
		return 0, err
	}

	warmed := 0
	for key, entry := range entries {
		if entry.Confidence.Score >= MinL1Confidence {
			m.l1.Set(key, entry)
			warmed++
		}
	}
	if m.l2 != nil {
		if err := m.l2.SetBatch(ctx, entries); err != nil {
			m.logger.Warn("distributed tier warm replay failed", "error", err)
		}
	}
	m.publish(event.CacheWarmed, map[string]any{"count": warmed})
	m.logger.Info("cache warmed from durable tier", "entries", warmed)
	return warmed, nil
}

// Stats returns per-tier counters and the hot-tier size.
func (m *Manager) Stats() Stats {
	stats := Stats{
		L1:     m.l1Stats.Snapshot(),
		L2:     m.l2Stats.Snapshot(),
		L1Size: m.l1.Len(),
	}
	if m.l3 != nil {
		stats.L3 = m.l3.Stats()
	}
	return stats
}

// Clear empties the hot tier only. Shared and durable tiers are left for
// Invalidate with an explicit pattern.
func (m *Manager) Clear() {
	m.l1.Clear()
	m.publish(event.CacheCleared, map[string]any{"pattern": "l1"})
}

// Close releases the durable tier. The distributed tier's connection is
// owned by the caller.
func (m *Manager) Close() error {
	if m.l3 != nil {
		return m.l3.Close()
	}
	return nil
}

func (m *Manager) observeHit(key string, tier Tier) {
	if m.lookups != nil {
		m.lookups.WithLabelValues(string(tier)).Inc()
	}
	m.publish(event.CacheHit, map[string]any{"key": key, "tier": string(tier)})
}

func (m *Manager) observeMiss(key string) {
	if m.lookups != nil {
		m.lookups.WithLabelValues(string(TierMiss)).Inc()
	}
	m.publish(event.CacheMiss, map[string]any{"key": key})
}

func (m *Manager) publish(t event.Type, fields map[string]any) {
	if m.bus != nil {
		m.bus.Publish(t, fields)
	}
}
