package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonwraymond/quotastore/observe"
)

// TTLGate is a read-side freshness check for time-stamped documents such
// as saved analysis state. It does not affect writes or cleanup.
type TTLGate struct {
	cache *Cache
	ttl   time.Duration
}

// NewTTLGate creates a gate over c. A ttl <= 0 uses c's Limits.TTL.
func NewTTLGate(c *Cache, ttl time.Duration) *TTLGate {
	if ttl <= 0 {
		ttl = c.limits.TTL
	}
	return &TTLGate{cache: c, ttl: ttl}
}

// TTLGate returns a gate using the cache's configured TTL.
func (c *Cache) TTLGate() *TTLGate {
	return NewTTLGate(c, 0)
}

// Get returns the value for key if its timestamp is younger than the TTL.
// Entries that are older, or carry no readable timestamp, are deleted and
// reported as not found.
func (g *TTLGate) Get(ctx context.Context, key string) (string, bool, error) {
	c := g.cache
	var (
		value string
		fresh bool
	)
	err := c.obs.Run(ctx, c.meta("ttl_get", key), func(ctx context.Context) error {
		v, ok, err := c.Get(ctx, key)
		if err != nil || !ok {
			return err
		}

		stamp, ok := c.timestamps.Timestamp(v)
		if ok && c.now().Sub(stamp) < g.ttl {
			value, fresh = v, true
			return nil
		}

		if err := c.backend.Remove(ctx, key); err != nil {
			return err
		}
		size := len(key) + len(v)
		c.obs.Metrics().RecordEviction(ctx, observe.EvictStale, size)
		observe.SpanEvent(ctx, "cache.evict",
			observe.F("reason", observe.EvictStale),
			observe.F("size_bytes", size),
		)
		c.obs.Logger().WithOp(c.meta("ttl_get", key)).Info(ctx, "removed stale entry",
			observe.F("size_bytes", size),
			observe.F("has_timestamp", ok),
		)
		return nil
	})
	return value, fresh, err
}

// GetJSON is Get followed by json.Unmarshal into dst.
func (g *TTLGate) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	value, ok, err := g.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, err
	}
	return true, nil
}
