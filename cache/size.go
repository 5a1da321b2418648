package cache

import (
	"context"
	"fmt"

	"github.com/jonwraymond/quotastore/store"
)

// Entry is one live key/value pair.
type Entry struct {
	Key   string
	Value string
	Size  int
	Class Classification
}

// SizeOf returns len(key)+len(value) for key, or 0 if it is absent.
func (c *Cache) SizeOf(ctx context.Context, key string) (int, error) {
	value, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return store.EntrySize(key, value), nil
}

// TotalSize sums SizeOf over every key.
//
// It is stateless: every call lists all keys and reads every value, so it
// costs O(n) backend reads. Callers needing frequent totals should reuse
// the result of one call.
func (c *Cache) TotalSize(ctx context.Context) (int, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// IsNearLimit reports whether utilization has reached the cleanup threshold.
func (c *Cache) IsNearLimit(ctx context.Context) (bool, error) {
	total, err := c.TotalSize(ctx)
	if err != nil {
		return false, err
	}
	return c.limits.NearLimit(total), nil
}

// entries reads every live entry in backend key order. Keys removed between
// listing and reading are skipped.
func (c *Cache) entries(ctx context.Context) ([]Entry, error) {
	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		value, ok, err := c.backend.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", key, err)
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Key:   key,
			Value: value,
			Size:  store.EntrySize(key, value),
			Class: c.classifier.Classify(key),
		})
	}
	return entries, nil
}
