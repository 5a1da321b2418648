package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/jonwraymond/quotastore/cache"
	"github.com/jonwraymond/quotastore/observe"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotastore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.CacheLimits() != cache.DefaultLimits() {
		t.Errorf("CacheLimits() = %+v, want defaults", cfg.CacheLimits())
	}
	if cfg.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Backend)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
backend: sqlite
sqlite_path: /tmp/store.db
capacity: 10485760
limits:
  max_total_size: 8388608
  cleanup_threshold: 0.9
  cleanup_interval: 5m
  cleanable_patterns: [session_, draft_]
telemetry:
  log_level: debug
  metrics_exporter: prometheus
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend != BackendSQLite || cfg.SQLitePath != "/tmp/store.db" || cfg.Capacity != 10485760 {
		t.Errorf("backend settings = %q %q %d", cfg.Backend, cfg.SQLitePath, cfg.Capacity)
	}
	l := cfg.CacheLimits()
	if l.MaxTotalSize != 8388608 || l.CleanupThreshold != 0.9 || l.CleanupInterval != 5*time.Minute {
		t.Errorf("CacheLimits() = %+v", l)
	}
	if l.MaxItemSize != cache.DefaultMaxItemSize || l.TTL != cache.DefaultTTL {
		t.Errorf("unset fields should keep defaults: %+v", l)
	}
	if !slices.Equal(cfg.Limits.CleanablePatterns, []string{"session_", "draft_"}) {
		t.Errorf("CleanablePatterns = %v", cfg.Limits.CleanablePatterns)
	}
	if !cfg.Classifier().Classify("session_42").Cleanable {
		t.Error("Classifier() should use configured patterns")
	}
	if cfg.Telemetry.LogLevel != "debug" || cfg.Telemetry.MetricsExporter != "prometheus" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
limits:
  max_total_size: 8388608
  ttl: 12h
telemetry:
  log_level: debug
`)
	t.Setenv("QUOTASTORE_MAX_TOTAL_SIZE", "2097152")
	t.Setenv("QUOTASTORE_MAX_ITEM_SIZE", "524288")
	t.Setenv("QUOTASTORE_CLEANUP_INTERVAL", "1m")
	t.Setenv("QUOTASTORE_ESSENTIAL_PATTERNS", "vault_,billing_")
	t.Setenv("QUOTASTORE_LOG_LEVEL", "warn")
	t.Setenv("QUOTASTORE_ADDR", "127.0.0.1:9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	l := cfg.CacheLimits()
	if l.MaxTotalSize != 2097152 || l.MaxItemSize != 524288 || l.CleanupInterval != time.Minute {
		t.Errorf("env should override: %+v", l)
	}
	if l.TTL != 12*time.Hour {
		t.Errorf("TTL = %v, want file value 12h", l.TTL)
	}
	if !slices.Equal(cfg.Limits.EssentialPatterns, []string{"vault_", "billing_"}) {
		t.Errorf("EssentialPatterns = %v", cfg.Limits.EssentialPatterns)
	}
	if cfg.Telemetry.LogLevel != "warn" || cfg.Addr != "127.0.0.1:9090" {
		t.Errorf("LogLevel = %q, Addr = %q", cfg.Telemetry.LogLevel, cfg.Addr)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr error
	}{
		{name: "unknown backend", file: "backend: redis\n", wantErr: ErrInvalidBackend},
		{name: "sqlite without path", file: "backend: sqlite\n", wantErr: ErrMissingSQLitePath},
		{name: "capacity below budget", file: "capacity: 1024\n", wantErr: ErrInvalidCapacity},
		{name: "bad exporter", env: map[string]string{"QUOTASTORE_METRICS_EXPORTER": "statsd"}, wantErr: observe.ErrInvalidMetricsExporter},
		{name: "bad log level", env: map[string]string{"QUOTASTORE_LOG_LEVEL": "loud"}, wantErr: observe.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			if _, err := Load(path); !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown key", file: "bogus: 1\n"},
		{name: "bad yaml", file: "limits: [\n"},
		{name: "bad threshold", file: "limits:\n  cleanup_threshold: 2\n"},
		{name: "bad env int", env: map[string]string{"QUOTASTORE_MAX_TOTAL_SIZE": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestObserveConfig(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.TracingExporter = "stdout"

	obs := cfg.ObserveConfig()
	if !obs.Tracing.Enabled || obs.Metrics.Enabled || !obs.Logging.Enabled {
		t.Errorf("ObserveConfig() = %+v", obs)
	}
	if obs.ServiceName != "quotastore" {
		t.Errorf("ServiceName = %q", obs.ServiceName)
	}
}
