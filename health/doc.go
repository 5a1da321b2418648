// Package health reports the state of a quota-managed store.
//
// A Checker reports one component's Status: Healthy, Degraded, or
// Unhealthy. StorageChecker derives it from store utilization: below 50%
// is healthy, below the cleanup threshold is degraded, and anything at or
// above it is unhealthy until a cleanup brings usage down.
//
// # Basic Usage
//
//	c, _ := cache.New(backend)
//	agg := health.NewAggregator()
//	agg.Register("storage", health.NewStorageChecker(c, health.StorageCheckerConfig{}))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)      // /healthz, /readyz, /health
//	health.RegisterStorageHandlers(mux, c) // /storage/stats, /storage/cleanup
//
// GET /storage/stats returns cache.Stats as JSON. POST /storage/cleanup
// runs a cleanup pass and returns its cache.CleanupResult.
package health
