package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/jonwraymond/quotastore/cache"
	"github.com/jonwraymond/quotastore/health"
	"github.com/jonwraymond/quotastore/store"
)

func ExampleNewCacheChecker() {
	ctx := context.Background()
	backend := store.NewMemoryBackend(0)
	_ = backend.Set(ctx, "incivus_analysis_state", strings.Repeat("x", 578))

	c, _ := cache.New(backend, cache.WithLimits(cache.Limits{MaxTotalSize: 1000, MaxItemSize: 500}))
	result := health.NewCacheChecker(c).Check(ctx)

	fmt.Println("Status:", result.Status)
	fmt.Println("Message:", result.Message)
	// Output:
	// Status: degraded
	// Message: storage usage high: 600B used (60.0%)
}

func ExampleNewCheckerFunc() {
	checker := health.NewCheckerFunc("backend", func(ctx context.Context) health.Result {
		return health.Healthy("sqlite reachable")
	})

	result := checker.Check(context.Background())
	fmt.Println(checker.Name(), result.Status, result.Message)
	// Output:
	// backend healthy sqlite reachable
}

func ExampleAggregator_OverallStatus() {
	agg := health.NewAggregator()
	agg.Register("storage", health.NewCheckerFunc("storage", func(context.Context) health.Result {
		return health.Degraded("storage usage high")
	}))
	agg.Register("backend", health.NewCheckerFunc("backend", func(context.Context) health.Result {
		return health.Healthy("ok")
	}))

	results := agg.CheckAll(context.Background())
	fmt.Println("Overall:", agg.OverallStatus(results))
	// Output:
	// Overall: degraded
}

func ExampleCleanupHandler() {
	ctx := context.Background()
	backend := store.NewMemoryBackend(0)
	_ = backend.Set(ctx, "incivus_old_state", strings.Repeat("o", 883))

	c, _ := cache.New(backend, cache.WithLimits(cache.Limits{MaxTotalSize: 1000, MaxItemSize: 500}))

	req := httptest.NewRequest(http.MethodPost, "/storage/cleanup", nil)
	rec := httptest.NewRecorder()
	health.CleanupHandler(c).ServeHTTP(rec, req)

	fmt.Println(rec.Code)
	fmt.Print(rec.Body.String())
	// Output:
	// 200
	// {"itemsRemoved":1,"bytesFreed":900,"sizeBefore":900,"sizeAfter":0}
}
