package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360/agentbridge/errors"
)

// DefaultL3TTL keeps durable entries for 30 days before they age out.
const DefaultL3TTL = 30 * 24 * time.Hour

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translations (
	key           TEXT PRIMARY KEY,
	entry         BLOB NOT NULL,
	confidence    REAL NOT NULL,
	direction     TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	last_accessed INTEGER NOT NULL,
	hit_count     INTEGER NOT NULL DEFAULT 0,
	expires_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_translations_direction ON translations(direction);
CREATE INDEX IF NOT EXISTS idx_translations_expires ON translations(expires_at);
`

// SQLiteStore is the durable tier 3 backing store. Only high-confidence
// entries belong here; the manager enforces the gate before writing.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	stats  *TierStats
}

// OpenSQLiteStore opens (creating if needed) the durable store at path.
// Pass ":memory:" for an ephemeral store in tests.
func OpenSQLiteStore(ctx context.Context, path string, ttl time.Duration, logger *slog.Logger) (*SQLiteStore, error) {
	if ttl <= 0 {
		ttl = DefaultL3TTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.WrapCache(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"sqlitestore", "Open", "open "+path)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.WrapCache(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"sqlitestore", "Open", "ping "+path)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.WrapCache(fmt.Errorf("%w: %w", errors.ErrStorageUnavailable, err),
			"sqlitestore", "Open", "apply schema")
	}

	return &SQLiteStore{db: db, ttl: ttl, logger: logger, stats: &TierStats{}}, nil
}

// Get returns the entry for key if present and unexpired. Expired rows are
// deleted on read.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, bool) {
	var (
		blob      []byte
		expiresAt int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT entry, expires_at FROM translations WHERE key = ?`, key)
	if err := row.Scan(&blob, &expiresAt); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			s.stats.miss()
		} else {
			s.stats.failure()
			s.logger.Warn("durable tier read failed", "key", key, "error", err)
		}
		return nil, false
	}

	if time.Now().Unix() >= expiresAt {
		s.stats.miss()
		if _, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE key = ?`, key); err != nil {
			s.logger.Warn("durable tier expiry delete failed", "key", key, "error", err)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(blob, &entry); err != nil {
		s.stats.failure()
		s.logger.Warn("durable tier entry corrupt, dropping", "key", key, "error", err)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM translations WHERE key = ?`, key)
		return nil, false
	}

	s.stats.hit()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE translations SET last_accessed = ?, hit_count = hit_count + 1 WHERE key = ?`,
		time.Now().Unix(), key); err != nil {
		s.logger.Warn("durable tier access update failed", "key", key, "error", err)
	}
	return &entry, true
}

// Set upserts the entry under key with a fresh expiry. A positive ttl
// overrides the store default for this entry only.
func (s *SQLiteStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		s.stats.failure()
		return errors.WrapCache(err, "sqlitestore", "Set", "marshal entry")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO translations (key, entry, confidence, direction, created_at, last_accessed, hit_count, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(key) DO UPDATE SET
			entry = excluded.entry,
			confidence = excluded.confidence,
			last_accessed = excluded.last_accessed,
			expires_at = excluded.expires_at`,
		key, blob, entry.Confidence.Score, entry.Metadata.Direction,
		now.Unix(), now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		s.stats.failure()
		return errors.WrapCache(err, "sqlitestore", "Set", "upsert "+key)
	}
	s.stats.set()
	return nil
}

// DeleteMatching removes entries whose key matches the invalidation pattern
// and returns the number removed.
func (s *SQLiteStore) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM translations WHERE key GLOB ?`, escapeGlob(prefix)+"*")
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM translations WHERE key = ?`, pattern)
	}
	if err != nil {
		s.stats.failure()
		return 0, errors.WrapCache(err, "sqlitestore", "DeleteMatching", "delete "+pattern)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// escapeGlob neutralizes GLOB metacharacters in a literal prefix.
func escapeGlob(s string) string {
	replacer := strings.NewReplacer("*", "[*]", "?", "[?]", "[", "[[]")
	return replacer.Replace(s)
}

// Purge removes all expired rows. Intended for a periodic housekeeping
// ticker; also safe to call on demand.
func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM translations WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, errors.WrapCache(err, "sqlitestore", "Purge", "delete expired")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// WarmKeys returns the most recently accessed unexpired entries, newest
// first, for seeding the hot tier on startup.
func (s *SQLiteStore) WarmKeys(ctx context.Context, limit int) (map[string]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, entry FROM translations
		WHERE expires_at > ?
		ORDER BY last_accessed DESC
		LIMIT ?`, time.Now().Unix(), limit)
	if err != nil {
		return nil, errors.WrapCache(err, "sqlitestore", "WarmKeys", "query recent")
	}
	defer rows.Close()

	warm := make(map[string]*Entry, limit)
	for rows.Next() {
		var (
			key  string
			blob []byte
		)
		if err := rows.Scan(&key, &blob); err != nil {
			return nil, errors.WrapCache(err, "sqlitestore", "WarmKeys", "scan row")
		}
		var entry Entry
		if err := json.Unmarshal(blob, &entry); err != nil {
			s.logger.Warn("durable tier entry corrupt, skipping warm", "key", key, "error", err)
			continue
		}
		warm[key] = &entry
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapCache(err, "sqlitestore", "WarmKeys", "iterate rows")
	}
	return warm, nil
}

// Stats returns the durable tier counters.
func (s *SQLiteStore) Stats() Snapshot {
	return s.stats.Snapshot()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
