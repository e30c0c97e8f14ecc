package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/agentbridge/errors"
)

// KVOptions configures KV operation behavior.
type KVOptions struct {
	Timeout      time.Duration // Per-operation timeout
	MaxValueSize int           // Maximum accepted value size
}

// DefaultKVOptions returns the defaults used by the cache tiers.
func DefaultKVOptions() KVOptions {
	return KVOptions{
		Timeout:      5 * time.Second,
		MaxValueSize: 1 << 20, // 1MB
	}
}

// KVStore provides byte-valued get/put/delete/keys operations on one
// JetStream KV bucket. Not-found conditions are normalized to
// errors.ErrKeyNotFound-style sentinels so callers can branch cleanly.
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  *slog.Logger
}

// ErrKeyNotFound is returned when a key does not exist in the bucket.
var ErrKeyNotFound = stderrors.New("kv key not found")

// NewKVStore wraps a bucket with operation defaults.
func (c *Client) NewKVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  c.logger,
	}
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

// Get retrieves the value for key. Returns ErrKeyNotFound for missing keys.
func (kv *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	entry, err := kv.bucket.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.WrapCache(err, "kvstore", "Get", "get "+key)
	}
	return entry.Value(), nil
}

// Put stores value under key (last writer wins).
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) error {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return errors.WrapCache(errors.ErrInvalidCacheKey, "kvstore", "Put", "value exceeds max size")
	}

	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if _, err := kv.bucket.Put(ctx, key, value); err != nil {
		return errors.WrapCache(err, "kvstore", "Put", "put "+key)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	if err := kv.bucket.Delete(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return errors.WrapCache(err, "kvstore", "Delete", "delete "+key)
	}
	return nil
}

// Keys lists all keys in the bucket. An empty bucket yields an empty slice.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, errors.WrapCache(err, "kvstore", "Keys", "list keys")
	}
	return keys, nil
}

// PutBatch writes several entries, continuing past individual failures and
// returning the first error encountered. NATS pipelines the underlying
// publishes on one connection, so this is a single round-trip burst rather
// than N sequential round trips.
func (kv *KVStore) PutBatch(ctx context.Context, entries map[string][]byte) error {
	var firstErr error
	for key, value := range entries {
		if err := kv.Put(ctx, key, value); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			kv.logger.Warn("kv batch write failed for key", "key", key, "error", err)
		}
	}
	return firstErr
}
