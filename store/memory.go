package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultCapacity approximates the 5 MiB quota browsers give localStorage.
const DefaultCapacity = 5 * 1024 * 1024

// MemoryBackend is an in-memory Backend with a fixed byte capacity.
type MemoryBackend struct {
	mu       sync.RWMutex
	entries  map[string]string
	used     int
	capacity int
}

// NewMemoryBackend creates a backend that holds at most capacity bytes,
// counted as len(key)+len(value) per entry. A capacity <= 0 uses
// DefaultCapacity.
func NewMemoryBackend(capacity int) *MemoryBackend {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryBackend{
		entries:  make(map[string]string),
		capacity: capacity,
	}
}

// Get returns the value for key. Returns ("", false, nil) on miss.
func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	value, ok := m.entries[key]
	m.mu.RUnlock()
	return value, ok, nil
}

// Set stores value, failing with ErrQuotaExceeded if the new total would
// exceed the capacity.
func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used + EntrySize(key, value)
	if old, ok := m.entries[key]; ok {
		next -= EntrySize(key, old)
	}
	if next > m.capacity {
		return fmt.Errorf("set %q (%d bytes used of %d): %w", key, m.used, m.capacity, ErrQuotaExceeded)
	}

	m.entries[key] = value
	m.used = next
	return nil
}

// Remove deletes key. Idempotent - no error on miss.
func (m *MemoryBackend) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	if old, ok := m.entries[key]; ok {
		m.used -= EntrySize(key, old)
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

// Keys returns all keys in lexical order.
func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

// Used returns the bytes currently held.
func (m *MemoryBackend) Used() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

// Capacity returns the configured capacity in bytes.
func (m *MemoryBackend) Capacity() int {
	return m.capacity
}

// Ensure MemoryBackend implements Backend
var _ Backend = (*MemoryBackend)(nil)
