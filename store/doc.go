// Package store defines the host key/value backend consumed by the cache.
//
// A Backend is a flat string-to-string store with a platform-defined total
// capacity. When a write would exceed that capacity the backend must fail
// with an error matching ErrQuotaExceeded so callers can evict and retry.
//
// MemoryBackend is a capacity-bounded in-process implementation. The sqlite
// subpackage provides a durable one.
package store
