package store

import (
	"context"
	"errors"
)

// Sentinel errors for backend operations.
var (
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// backend's capacity. Nothing is written in that case.
	ErrQuotaExceeded = errors.New("store: quota exceeded")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("store: backend is closed")
)

// Backend is the host key/value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Capacity: Set must fail with ErrQuotaExceeded (possibly wrapped) on overflow
//   and leave any previous value for the key untouched.
// - Errors: Get returns ("", false, nil) on miss. Remove is idempotent.
type Backend interface {
	// Get returns the stored value for key.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. No error on miss.
	Remove(ctx context.Context, key string) error

	// Keys lists all live keys in a stable order.
	Keys(ctx context.Context) ([]string, error)
}

// IsQuotaExceeded reports whether err signals a capacity overflow.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// EntrySize is the footprint of one entry: len(key) + len(value).
func EntrySize(key, value string) int {
	return len(key) + len(value)
}
