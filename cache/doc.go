// Package cache provides a quota-aware key/value cache on top of a
// store.Backend.
//
// Keys are classified by substring patterns as essential (never evicted),
// cleanable (eligible for bulk cleanup) or neither. When utilization
// reaches the cleanup threshold, Cleanup removes cleanable entries ordered
// by a pluggable Comparator. SafeSet compresses oversized JSON documents,
// retries quota failures through Cleanup, and as a last resort evicts the
// single largest non-essential entry. TTLGate adds a freshness check for
// time-stamped session documents, and Init starts a periodic sweep.
//
// All operations run synchronously on the caller's goroutine. Concurrent
// writers sharing one backend are last-write-wins.
package cache
