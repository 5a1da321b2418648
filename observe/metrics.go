package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Eviction reasons recorded on cache.evictions.
const (
	EvictCleanup   = "cleanup"
	EvictEmergency = "emergency"
	EvictStale     = "ttl"
)

// Metrics records cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOp records one cache operation with its duration and outcome.
	RecordOp(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordEviction records one removed entry and the bytes it held.
	RecordEviction(ctx context.Context, reason string, bytes int)

	// RecordCompression records a compressed write's size before and after.
	RecordCompression(ctx context.Context, before, after int)

	// RecordQuotaExceeded records a backend quota rejection.
	RecordQuotaExceeded(ctx context.Context, meta OpMeta)
}

type metricsImpl struct {
	opCount       metric.Int64Counter
	opErrors      metric.Int64Counter
	opDuration    metric.Float64Histogram
	evictions     metric.Int64Counter
	bytesFreed    metric.Int64Counter
	compressions  metric.Int64Counter
	bytesSaved    metric.Int64Counter
	quotaExceeded metric.Int64Counter
}

// NewMetrics creates the cache instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.opCount, "cache.op.total", "Total number of cache operations", "{call}"},
		{&m.opErrors, "cache.op.errors", "Total number of failed cache operations", "{error}"},
		{&m.evictions, "cache.evictions", "Entries removed by cleanup, emergency eviction or TTL", "{entry}"},
		{&m.bytesFreed, "cache.bytes_freed", "Bytes released by evictions", "By"},
		{&m.compressions, "cache.compressions", "Values compressed before writing", "{write}"},
		{&m.bytesSaved, "cache.compression.saved_bytes", "Bytes removed by compression", "By"},
		{&m.quotaExceeded, "cache.quota.exceeded", "Writes rejected by the backend quota", "{write}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.opDuration, err = meter.Float64Histogram(
		"cache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func opAttrs(meta OpMeta) metric.MeasurementOption {
	attrs := []attribute.KeyValue{attribute.String("cache.op", meta.Op)}
	if meta.Backend != "" {
		attrs = append(attrs, attribute.String("cache.backend", meta.Backend))
	}
	return metric.WithAttributes(attrs...)
}

// RecordOp records metrics for a cache operation. Keys are left out of
// metric attributes to bound cardinality.
func (m *metricsImpl) RecordOp(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := opAttrs(meta)

	m.opCount.Add(ctx, 1, opt)
	if err != nil {
		m.opErrors.Add(ctx, 1, opt)
	}
	m.opDuration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordEviction(ctx context.Context, reason string, bytes int) {
	opt := metric.WithAttributes(attribute.String("reason", reason))
	m.evictions.Add(ctx, 1, opt)
	m.bytesFreed.Add(ctx, int64(bytes), opt)
}

func (m *metricsImpl) RecordCompression(ctx context.Context, before, after int) {
	m.compressions.Add(ctx, 1)
	if saved := before - after; saved > 0 {
		m.bytesSaved.Add(ctx, int64(saved))
	}
}

func (m *metricsImpl) RecordQuotaExceeded(ctx context.Context, meta OpMeta) {
	m.quotaExceeded.Add(ctx, 1, opAttrs(meta))
}

type noopMetrics struct{}

func (noopMetrics) RecordOp(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordEviction(context.Context, string, int)           {}
func (noopMetrics) RecordCompression(context.Context, int, int)           {}
func (noopMetrics) RecordQuotaExceeded(context.Context, OpMeta)           {}
