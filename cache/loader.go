package cache

import (
	"context"

	"github.com/jonwraymond/quotastore/observe"
)

// LoadFunc computes a value on a cache miss.
type LoadFunc func(ctx context.Context) (any, error)

// Load returns the cached value for key, or computes it with fn and stores
// the result with SafeSet.
//
// The returned string is the stored form: strings verbatim, anything else
// as JSON, compressed when SafeSet compressed it. SafeSet errors are
// returned, so essential writes never fail silently. A best-effort write
// that SafeSet dropped is logged and the computed value is still returned.
func (c *Cache) Load(ctx context.Context, key string, fn LoadFunc, opts ...WriteOption) (string, error) {
	if v, ok, err := c.Get(ctx, key); err != nil {
		return "", err
	} else if ok {
		return v, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return "", err
	}

	data, saved, err := c.safeSetData(ctx, key, value, opts)
	if err != nil {
		return "", err
	}
	if !saved {
		c.obs.Logger().WithOp(c.meta("load", key)).Warn(ctx, "loaded value not cached",
			observe.F("size_bytes", len(key)+len(data)),
		)
	}
	return data, nil
}
