package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache operations.
var (
	ErrNilBackend = errors.New("cache: backend is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrOversizedItem matches any *OversizedItemError.
	ErrOversizedItem = errors.New("cache: item exceeds max item size")

	// ErrQuotaExceeded matches any *QuotaExceededError.
	ErrQuotaExceeded = errors.New("cache: storage quota exceeded")
)

// OversizedItemError reports a value that is larger than MaxItemSize even
// after compression. No write was attempted.
type OversizedItemError struct {
	Key        string
	Size       int
	Limit      int
	Compressed bool
}

func (e *OversizedItemError) Error() string {
	if e.Compressed {
		return fmt.Sprintf("cache: item %q is too large even after compression (%d > %d bytes)", e.Key, e.Size, e.Limit)
	}
	return fmt.Sprintf("cache: item %q is too large (%d > %d bytes)", e.Key, e.Size, e.Limit)
}

func (e *OversizedItemError) Is(target error) bool {
	return target == ErrOversizedItem
}

// QuotaExceededError reports a write the backend kept rejecting after
// eviction and retries. Err is the backend's last error.
type QuotaExceededError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("cache: cannot save %q after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

func (e *QuotaExceededError) Unwrap() error {
	return e.Err
}
