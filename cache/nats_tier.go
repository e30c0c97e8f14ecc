package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/c360/agentbridge/errors"
	"github.com/c360/agentbridge/natsclient"
	"github.com/c360/agentbridge/pkg/retry"
)

// KV is the byte-valued key-value surface the distributed tier needs.
// natsclient.KVStore satisfies it; tests substitute an in-memory double.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// BatchKV is the optional batch-write surface. natsclient.KVStore provides
// it; backends without it fall back to sequential puts.
type BatchKV interface {
	PutBatch(ctx context.Context, entries map[string][]byte) error
}

// kvRetry bounds transient-failure retries on single KV operations. One
// short retry rides out a NATS reconnect; anything longer and the tier
// degrades to a miss instead of stalling the translation.
var kvRetry = retry.Config{
	MaxAttempts:  2,
	InitialDelay: 25 * time.Millisecond,
	MaxDelay:     100 * time.Millisecond,
	Multiplier:   2.0,
}

// kvTier serializes entries as JSON into a KV bucket. Canonical cache keys
// are re-encoded onto the KV key charset on the way in and decoded on the
// way out of Keys-based scans. The bucket's TTL handles expiry server-side.
type kvTier struct {
	kv     KV
	logger *slog.Logger
	stats  *TierStats
}

func newKVTier(kv KV, logger *slog.Logger, stats *TierStats) *kvTier {
	return &kvTier{kv: kv, logger: logger, stats: stats}
}

func (t *kvTier) Get(ctx context.Context, key string) (*Entry, bool) {
	data, err := retry.DoWithResult(ctx, kvRetry, func() ([]byte, error) {
		data, err := t.kv.Get(ctx, encodeKVKey(key))
		if err != nil && stderrors.Is(err, natsclient.ErrKeyNotFound) {
			// A missing key is an answer, not a transient failure.
			return nil, retry.NonRetryable(err)
		}
		return data, err
	})
	if err != nil {
		if stderrors.Is(err, natsclient.ErrKeyNotFound) {
			t.stats.miss()
		} else {
			t.stats.failure()
			t.logger.Warn("distributed tier read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.stats.failure()
		t.logger.Warn("distributed tier entry corrupt, dropping", "key", key, "error", err)
		_ = t.kv.Delete(ctx, encodeKVKey(key))
		return nil, false
	}
	t.stats.hit()
	return &entry, true
}

func (t *kvTier) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		t.stats.failure()
		return errors.WrapCache(err, "kvtier", "Set", "marshal entry")
	}
	err = retry.Do(ctx, kvRetry, func() error {
		return t.kv.Put(ctx, encodeKVKey(key), data)
	})
	if err != nil {
		t.stats.failure()
		return err
	}
	t.stats.set()
	return nil
}

// SetBatch writes several entries, using the backend's batch surface when it
// has one. Entries that fail to marshal are skipped.
func (t *kvTier) SetBatch(ctx context.Context, entries map[string]*Entry) error {
	encoded := make(map[string][]byte, len(entries))
	for key, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			t.logger.Warn("distributed tier batch entry marshal failed, skipping", "key", key, "error", err)
			continue
		}
		encoded[encodeKVKey(key)] = data
	}
	if len(encoded) == 0 {
		return nil
	}

	if batch, ok := t.kv.(BatchKV); ok {
		if err := batch.PutBatch(ctx, encoded); err != nil {
			t.stats.failure()
			return err
		}
		t.stats.set()
		return nil
	}

	var firstErr error
	for key, data := range encoded {
		if err := t.kv.Put(ctx, key, data); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			t.logger.Warn("distributed tier batch put failed", "key", key, "error", err)
		}
	}
	if firstErr != nil {
		t.stats.failure()
		return firstErr
	}
	t.stats.set()
	return nil
}

// DeleteMatching scans bucket keys and removes those whose canonical form
// matches the pattern. The scan is proportional to bucket size, which the
// TTL keeps bounded.
func (t *kvTier) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	keys, err := t.kv.Keys(ctx)
	if err != nil {
		t.stats.failure()
		return 0, err
	}

	encoded := encodeKVKey(pattern)
	removed := 0
	for _, key := range keys {
		if !matchPattern(key, encoded) {
			continue
		}
		if err := t.kv.Delete(ctx, key); err != nil {
			t.logger.Warn("distributed tier delete failed", "key", key, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
