// Package sqlite provides a SQLite-backed store.Backend with a byte quota.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/quotastore/store"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	size       INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store persists cache entries in a single SQLite table.
type Store struct {
	sqlDB    *sql.DB
	capacity int
	closed   atomic.Bool
}

// Open opens (creating if needed) a SQLite store at path that holds at most
// capacity bytes. A capacity <= 0 uses store.DefaultCapacity.
func Open(path string, capacity int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if capacity <= 0 {
		capacity = store.DefaultCapacity
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// The quota check and the write share one transaction; a single
	// connection serializes them.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, capacity: capacity}, nil
}

// Close closes the SQLite handle. Operations after Close return
// store.ErrClosed, and closing twice is a no-op.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.sqlDB.Close()
}

// Capacity returns the configured capacity in bytes.
func (s *Store) Capacity() int {
	return s.capacity
}

// Get returns the value for key. Returns ("", false, nil) on miss.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.ready(ctx); err != nil {
		return "", false, err
	}
	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get entry: %w", err)
	}
	return value, true, nil
}

// Set upserts key. It fails with store.ErrQuotaExceeded when the sum of
// entry sizes, with this entry replaced, would exceed the capacity.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	size := store.EntrySize(key, value)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var used int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM entries WHERE key <> ?`, key,
	).Scan(&used); err != nil {
		return fmt.Errorf("sum entry sizes: %w", err)
	}
	if used+size > s.capacity {
		return fmt.Errorf("set %q (%d bytes used of %d): %w", key, used, s.capacity, store.ErrQuotaExceeded)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (key, value, size, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   size = excluded.size,
		   updated_at = excluded.updated_at`,
		key, value, size, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	return nil
}

// Remove deletes key. Idempotent - no error on miss.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Keys returns all keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key FROM entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Used returns the bytes currently held, read from the stored sizes.
func (s *Store) Used(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var used int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM entries`).Scan(&used); err != nil {
		return 0, fmt.Errorf("sum entry sizes: %w", err)
	}
	return used, nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil || s.closed.Load() {
		return store.ErrClosed
	}
	return nil
}

// Ensure Store implements store.Backend
var _ store.Backend = (*Store)(nil)
