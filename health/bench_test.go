package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/quotastore/cache"
	"github.com/jonwraymond/quotastore/store"
)

func BenchmarkStorageChecker_Check(b *testing.B) {
	ctx := context.Background()
	backend := store.NewMemoryBackend(0)
	for i := range 100 {
		_ = backend.Set(ctx, fmt.Sprintf("incivus_cache_%d", i), strings.Repeat("x", 1000))
	}
	c, _ := cache.New(backend)
	checker := NewCacheChecker(c)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Check(ctx)
	}
}

func BenchmarkAggregator_CheckAll(b *testing.B) {
	for _, sequential := range []bool{false, true} {
		b.Run(fmt.Sprintf("sequential=%v", sequential), func(b *testing.B) {
			agg := NewAggregator(AggregatorConfig{Sequential: sequential})
			for i := range 5 {
				agg.Register(fmt.Sprintf("c%d", i), fixed(StatusHealthy))
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = agg.CheckAll(ctx)
			}
		})
	}
}

func BenchmarkDetailedHandler_ServeHTTP(b *testing.B) {
	agg := NewAggregator()
	agg.Register("ok", fixed(StatusHealthy))
	handler := DetailedHandler(agg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	}
}
