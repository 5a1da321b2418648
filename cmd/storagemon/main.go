// Package main runs the storage diagnostics server: a quota-aware cache over
// the configured backend with health, stats and cleanup endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/quotastore/cache"
	"github.com/jonwraymond/quotastore/config"
	"github.com/jonwraymond/quotastore/health"
	"github.com/jonwraymond/quotastore/observe"
	"github.com/jonwraymond/quotastore/store"
	"github.com/jonwraymond/quotastore/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	var addr string

	flag.StringVar(&configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to YAML config file (default: QUOTASTORE_CONFIG)")
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		_ = obs.Shutdown(sctx)
	}()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("middleware: %w", err)
	}
	logger := obs.Logger().With(observe.F("component", "storagemon"))

	c, err := cache.New(backend,
		cache.WithLimits(cfg.CacheLimits()),
		cache.WithClassifier(cfg.Classifier()),
		cache.WithMiddleware(mw),
		cache.WithBackendName(cfg.Backend),
	)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		_ = c.Shutdown(sctx)
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(cfg, c, backend),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "diagnostics server listening",
			observe.Field{Key: "addr", Value: cfg.Addr},
			observe.Field{Key: "backend", Value: cfg.Backend},
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	logger.Info(sctx, "shutting down")
	return srv.Shutdown(sctx)
}

// openBackend opens the configured host store and returns its closer.
func openBackend(cfg config.Config) (store.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		path := filepath.Clean(cfg.SQLitePath)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		s, err := sqlite.Open(path, cfg.Capacity)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendMemory, "":
		return store.NewMemoryBackend(cfg.Capacity), func() error { return nil }, nil
	default:
		return nil, nil, config.ErrInvalidBackend
	}
}

// backendChecker reports whether the host store answers a key listing.
func backendChecker(name string, backend store.Backend) health.Checker {
	return health.NewCheckerFunc("backend", func(ctx context.Context) health.Result {
		keys, err := backend.Keys(ctx)
		if err != nil {
			return health.Unhealthy("backend unavailable", err)
		}
		return health.Healthy("backend reachable").WithDetails(map[string]any{
			"backend": name,
			"keys":    len(keys),
		})
	})
}

func newMux(cfg config.Config, c *cache.Cache, backend store.Backend) *http.ServeMux {
	agg := health.NewAggregator()
	agg.Register("storage", health.NewCacheChecker(c))
	agg.Register("backend", backendChecker(cfg.Backend, backend))

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	health.RegisterStorageHandlers(mux, c)
	if cfg.Telemetry.MetricsExporter == "prometheus" {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}
