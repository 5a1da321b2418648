package cache

import (
	"errors"
	"time"
)

// Default tunables.
const (
	DefaultMaxTotalSize     = 4 * 1024 * 1024
	DefaultMaxItemSize      = 1 * 1024 * 1024
	DefaultCleanupThreshold = 0.8
	DefaultTTL              = 24 * time.Hour
	DefaultAgeBucket        = 24 * time.Hour
	DefaultCleanupInterval  = 30 * time.Minute
)

// Limits configures capacity and eviction behavior.
type Limits struct {
	// MaxTotalSize is the byte budget the cache manages against. It is
	// usually below the backend's hard capacity.
	MaxTotalSize int

	// MaxItemSize is the largest entry (len(key)+len(value)) SafeSet writes.
	MaxItemSize int

	// CleanupThreshold is the utilization ratio at which the store counts
	// as near its limit and Cleanup starts removing entries.
	CleanupThreshold float64

	// TTL is the freshness window used by TTLGate.
	TTL time.Duration

	// AgeBucket is the age difference below which the default comparator
	// orders by size instead of age.
	AgeBucket time.Duration

	// CleanupInterval is the period of the background sweep started by Init.
	CleanupInterval time.Duration
}

// DefaultLimits returns the default limits.
// 4 MiB total, 1 MiB per item, cleanup at 80%, 24h TTL and age bucket,
// sweep every 30 minutes.
func DefaultLimits() Limits {
	return Limits{
		MaxTotalSize:     DefaultMaxTotalSize,
		MaxItemSize:      DefaultMaxItemSize,
		CleanupThreshold: DefaultCleanupThreshold,
		TTL:              DefaultTTL,
		AgeBucket:        DefaultAgeBucket,
		CleanupInterval:  DefaultCleanupInterval,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxTotalSize <= 0 {
		l.MaxTotalSize = d.MaxTotalSize
	}
	if l.MaxItemSize <= 0 {
		l.MaxItemSize = d.MaxItemSize
	}
	if l.CleanupThreshold <= 0 {
		l.CleanupThreshold = d.CleanupThreshold
	}
	if l.TTL <= 0 {
		l.TTL = d.TTL
	}
	if l.AgeBucket <= 0 {
		l.AgeBucket = d.AgeBucket
	}
	if l.CleanupInterval <= 0 {
		l.CleanupInterval = d.CleanupInterval
	}
	return l
}

// Validate checks that the limits are consistent.
func (l Limits) Validate() error {
	if l.CleanupThreshold <= 0 || l.CleanupThreshold > 1 {
		return errors.New("cache: cleanup threshold must be in (0, 1]")
	}
	if l.MaxItemSize > l.MaxTotalSize {
		return errors.New("cache: max item size exceeds max total size")
	}
	return nil
}

// NearLimit reports whether total bytes reach the cleanup threshold.
func (l Limits) NearLimit(total int) bool {
	return float64(total) >= float64(l.MaxTotalSize)*l.CleanupThreshold
}

// Utilization returns total as a percentage of MaxTotalSize.
func (l Limits) Utilization(total int) float64 {
	return float64(total) / float64(l.MaxTotalSize) * 100
}
