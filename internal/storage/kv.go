package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

// KVStore is a device.KV on top of the kv table. Database failures are
// logged and reported as misses or dropped writes.
type KVStore struct {
	db      *sql.DB
	timeout time.Duration
}

// KV returns the key-value view of the repository.
func (r *SQLiteRepository) KV() *KVStore {
	return &KVStore{db: r.db, timeout: 5 * time.Second}
}

func (s *KVStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "KV read failed", "key", key, "error", err)
		return nil, false
	}
	return v, true
}

func (s *KVStore) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		slog.WarnContext(ctx, "KV write failed", "key", key, "error", err)
	}
}

func (s *KVStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		slog.WarnContext(ctx, "KV delete failed", "key", key, "error", err)
	}
}
