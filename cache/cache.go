package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/quotastore/observe"
	"github.com/jonwraymond/quotastore/store"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Cache is a quota-aware cache over a store.Backend.
//
// Contract:
// - Concurrency: safe for concurrent use; operations are not isolated from
//   each other and concurrent writers are last-write-wins.
// - Ownership: the background sweep started by Init belongs to the Cache
//   and stops on Shutdown.
type Cache struct {
	backend     store.Backend
	backendName string
	limits      Limits
	classifier  *Classifier
	compressor  *Compressor
	comparator  Comparator
	timestamps  TimestampSource
	now         func() time.Time
	obs         *observe.Middleware

	sweeps singleflight.Group

	mu   sync.Mutex // guards stop and done
	stop context.CancelFunc
	done chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithLimits sets the capacity and eviction limits. Zero fields take defaults.
func WithLimits(l Limits) Option {
	return func(c *Cache) { c.limits = l }
}

// WithClassifier sets the key classifier.
func WithClassifier(cl *Classifier) Option {
	return func(c *Cache) { c.classifier = cl }
}

// WithComparator sets the eviction ordering used by Cleanup.
func WithComparator(cmp Comparator) Option {
	return func(c *Cache) { c.comparator = cmp }
}

// WithCompressor sets the compressor used for oversized documents.
func WithCompressor(cp *Compressor) Option {
	return func(c *Cache) { c.compressor = cp }
}

// WithTimestampSource sets how entry ages are derived.
func WithTimestampSource(ts TimestampSource) Option {
	return func(c *Cache) { c.timestamps = ts }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMiddleware sets the observability middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Cache) { c.obs = mw }
}

// WithBackendName labels telemetry with the backend in use.
func WithBackendName(name string) Option {
	return func(c *Cache) { c.backendName = name }
}

// New creates a Cache over backend.
func New(backend store.Backend, opts ...Option) (*Cache, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	c := &Cache{backend: backend}
	for _, opt := range opts {
		opt(c)
	}

	c.limits = c.limits.withDefaults()
	if err := c.limits.Validate(); err != nil {
		return nil, err
	}
	if c.classifier == nil {
		c.classifier = DefaultClassifier()
	}
	if c.compressor == nil {
		c.compressor = NewCompressor(CompressorConfig{})
	}
	if c.comparator == nil {
		c.comparator = BucketedAgeSize(c.limits.AgeBucket)
	}
	if c.timestamps == nil {
		c.timestamps = DefaultTimestamps()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.obs == nil {
		c.obs = observe.NoopMiddleware()
	}

	return c, nil
}

// Limits returns the effective limits.
func (c *Cache) Limits() Limits {
	return c.limits
}

// Classifier returns the key classifier.
func (c *Cache) Classifier() *Classifier {
	return c.classifier
}

// Get returns the raw stored value. Returns ("", false, nil) on miss.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}
	return c.backend.Get(ctx, key)
}

// Remove deletes key. Idempotent - no error on miss.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return c.backend.Remove(ctx, key)
}

func (c *Cache) meta(op, key string) observe.OpMeta {
	return observe.OpMeta{Op: op, Key: key, Backend: c.backendName}
}
