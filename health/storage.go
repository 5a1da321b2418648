package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/quotastore/cache"
)

// StatsSource provides store usage snapshots. *cache.Cache implements it.
type StatsSource interface {
	Stats(ctx context.Context) (cache.Stats, error)
}

// StorageCheckerConfig sets the utilization bands, in percent.
type StorageCheckerConfig struct {
	// DegradedPercent is where usage stops being healthy. Default: 50.
	DegradedPercent float64

	// UnhealthyPercent is where usage becomes unhealthy. Default: 80,
	// matching the default cleanup threshold.
	UnhealthyPercent float64
}

// StorageChecker checks store utilization.
type StorageChecker struct {
	source StatsSource
	config StorageCheckerConfig
}

// NewStorageChecker creates a checker over source.
func NewStorageChecker(source StatsSource, config StorageCheckerConfig) *StorageChecker {
	if config.DegradedPercent <= 0 || config.DegradedPercent > 100 {
		config.DegradedPercent = 50
	}
	if config.UnhealthyPercent <= 0 || config.UnhealthyPercent > 100 {
		config.UnhealthyPercent = cache.DefaultCleanupThreshold * 100
	}
	config.UnhealthyPercent = max(config.UnhealthyPercent, config.DegradedPercent)
	return &StorageChecker{source: source, config: config}
}

// NewCacheChecker creates a checker whose unhealthy band starts at c's
// cleanup threshold.
func NewCacheChecker(c *cache.Cache) *StorageChecker {
	return NewStorageChecker(c, StorageCheckerConfig{
		UnhealthyPercent: c.Limits().CleanupThreshold * 100,
	})
}

// Name returns the name of this checker.
func (s *StorageChecker) Name() string {
	return "storage"
}

// Check reads a stats snapshot and classifies its utilization.
func (s *StorageChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	st, err := s.source.Stats(ctx)
	if err != nil {
		return Unhealthy("storage stats unavailable", err)
	}

	details := map[string]any{
		"total_size":          st.TotalSize,
		"total_items":         st.TotalItems,
		"utilization_percent": st.UtilizationPercent,
		"near_limit":          st.NearLimit,
	}
	if len(st.TopItems) > 0 {
		details["largest_key"] = st.TopItems[0].Key
		details["largest_size"] = st.TopItems[0].Size
	}

	usage := fmt.Sprintf("%s used (%.1f%%)", FormatSize(st.TotalSize), st.UtilizationPercent)
	switch {
	case st.UtilizationPercent >= s.config.UnhealthyPercent:
		return Unhealthy("storage usage critical: "+usage, ErrStorageFull).WithDetails(details)
	case st.UtilizationPercent >= s.config.DegradedPercent:
		return Degraded("storage usage high: " + usage).WithDetails(details)
	default:
		return Healthy("storage usage normal: " + usage).WithDetails(details)
	}
}

// FormatSize renders a byte count as B, KB or MB.
func FormatSize(bytes int) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%dB", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
	}
}

var _ Checker = (*StorageChecker)(nil)
