package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonwraymond/quotastore/observe"
	"github.com/jonwraymond/quotastore/resilience"
	"github.com/jonwraymond/quotastore/store"
)

// WriteOptions controls a single SafeSet call.
type WriteOptions struct {
	// Compress allows compression of oversized structured values. Default: true.
	Compress bool

	// MaxRetries is how many cleanup-and-retry rounds follow a quota
	// failure. Default: 2.
	MaxRetries int

	// Essential marks data that must never be silently dropped: quota
	// failures are returned as errors and no emergency eviction runs.
	Essential bool
}

// WriteOption modifies WriteOptions.
type WriteOption func(*WriteOptions)

// DefaultWriteOptions returns Compress=true, MaxRetries=2, Essential=false.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Compress: true, MaxRetries: 2}
}

// WithCompress enables or disables compression.
func WithCompress(on bool) WriteOption {
	return func(o *WriteOptions) { o.Compress = on }
}

// WithMaxRetries sets the number of cleanup-and-retry rounds.
func WithMaxRetries(n int) WriteOption {
	return func(o *WriteOptions) { o.MaxRetries = max(n, 0) }
}

// WithEssential marks the write as essential.
func WithEssential(on bool) WriteOption {
	return func(o *WriteOptions) { o.Essential = on }
}

// SafeSet writes value under key, managing size and quota.
//
// A string value is stored verbatim. Any other value (including
// json.RawMessage) is treated as a structured document: it is marshaled to
// JSON and, if larger than MaxItemSize, compressed first.
//
// On a backend quota failure SafeSet runs Cleanup and retries, up to
// MaxRetries times, stopping early once a cleanup frees nothing. Then:
//   - essential writes return a *QuotaExceededError;
//   - other writes evict the single largest non-essential entry and try
//     once more, returning (false, nil) if that still fails or if nothing
//     could be evicted.
//
// A value still above MaxItemSize after compression yields an
// *OversizedItemError and nothing is written. Other backend errors are
// returned unchanged.
func (c *Cache) SafeSet(ctx context.Context, key string, value any, opts ...WriteOption) (bool, error) {
	_, saved, err := c.safeSetData(ctx, key, value, opts)
	return saved, err
}

// safeSetData runs SafeSet and also returns the stored form of value,
// after any compression. data is set whenever serialization succeeded.
func (c *Cache) safeSetData(ctx context.Context, key string, value any, opts []WriteOption) (data string, saved bool, err error) {
	o := DefaultWriteOptions()
	for _, opt := range opts {
		opt(&o)
	}

	err = c.obs.Run(ctx, c.meta("safe_set", key), func(ctx context.Context) error {
		var err error
		data, saved, err = c.safeSet(ctx, key, value, o)
		return err
	})
	return data, saved, err
}

func (c *Cache) safeSet(ctx context.Context, key string, value any, o WriteOptions) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	log := c.obs.Logger().WithOp(c.meta("safe_set", key))
	metrics := c.obs.Metrics()

	data, structured, err := serialize(value)
	if err != nil {
		return "", false, fmt.Errorf("cache: serialize %q: %w", key, err)
	}

	if size := store.EntrySize(key, data); size > c.limits.MaxItemSize {
		compressed := false
		if o.Compress && structured {
			out, changed, err := c.compressor.Compress(data)
			if err != nil {
				return data, false, fmt.Errorf("cache: compress %q: %w", key, err)
			}
			if changed {
				compressed = true
				metrics.RecordCompression(ctx, len(data), len(out))
				log.Info(ctx, "compressed oversized item",
					observe.F("size_before", size),
					observe.F("size_after", store.EntrySize(key, out)),
				)
				data = out
			}
		}
		if size := store.EntrySize(key, data); size > c.limits.MaxItemSize {
			return data, false, &OversizedItemError{Key: key, Size: size, Limit: c.limits.MaxItemSize, Compressed: compressed}
		}
	}

	set := func(ctx context.Context) error {
		err := c.backend.Set(ctx, key, data)
		if store.IsQuotaExceeded(err) {
			metrics.RecordQuotaExceeded(ctx, c.meta("safe_set", key))
		}
		return err
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: o.MaxRetries + 1,
		RetryIf:     store.IsQuotaExceeded,
		BeforeRetry: func(ctx context.Context, attempt int, err error) error {
			log.Warn(ctx, "storage quota exceeded, cleaning up",
				observe.F("attempt", attempt),
				observe.F("max_attempts", o.MaxRetries+1),
			)
			res, cerr := c.Cleanup(ctx)
			if cerr != nil {
				return cerr
			}
			if res.BytesFreed == 0 {
				return resilience.ErrAbortRetry
			}
			return nil
		},
	})

	attempts, err := retry.Attempts(ctx, set)
	if err == nil {
		log.Debug(ctx, "saved item", observe.F("size_bytes", store.EntrySize(key, data)))
		return data, true, nil
	}
	if !store.IsQuotaExceeded(err) {
		return data, false, err
	}

	if o.Essential {
		log.Error(ctx, "essential write rejected by storage quota", observe.F("attempts", attempts))
		return data, false, &QuotaExceededError{Key: key, Attempts: attempts, Err: err}
	}

	victim, found, verr := c.largestNonEssential(ctx)
	if verr != nil {
		return data, false, verr
	}
	if !found {
		log.Warn(ctx, "storage quota exceeded and nothing can be evicted", observe.F("attempts", attempts))
		return data, false, nil
	}
	if err := c.backend.Remove(ctx, victim.Key); err != nil {
		return data, false, fmt.Errorf("remove %q: %w", victim.Key, err)
	}
	metrics.RecordEviction(ctx, observe.EvictEmergency, victim.Size)
	observe.SpanEvent(ctx, "cache.evict",
		observe.F("reason", observe.EvictEmergency),
		observe.F("evicted_key", victim.Key),
		observe.F("size_bytes", victim.Size),
	)
	log.Warn(ctx, "emergency eviction",
		observe.F("evicted_key", victim.Key),
		observe.F("size_bytes", victim.Size),
	)

	if err := set(ctx); err != nil {
		if store.IsQuotaExceeded(err) {
			log.Warn(ctx, "best-effort write dropped", observe.F("attempts", attempts+1))
			return data, false, nil
		}
		return data, false, err
	}
	return data, true, nil
}

// serialize converts value to its stored form. structured reports whether
// the value may be compressed.
func serialize(value any) (data string, structured bool, err error) {
	switch v := value.(type) {
	case string:
		return v, false, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return "", false, errors.New("invalid JSON document")
		}
		return string(v), true, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false, err
		}
		return string(b), true, nil
	}
}
