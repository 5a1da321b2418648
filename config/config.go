package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/quotastore/cache"
	"github.com/jonwraymond/quotastore/observe"
)

// EnvPrefix prefixes every environment variable read by ParseEnv.
const EnvPrefix = "QUOTASTORE_"

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Sentinel errors for configuration.
var (
	ErrInvalidBackend    = errors.New("config: backend must be memory or sqlite")
	ErrMissingSQLitePath = errors.New("config: sqlite backend requires sqlite_path")
	ErrInvalidCapacity   = errors.New("config: capacity must not be below max_total_size")
)

// Config is the full service configuration.
type Config struct {
	// Backend selects the host store: memory or sqlite.
	Backend string `env:"BACKEND" yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `env:"SQLITE_PATH" yaml:"sqlite_path"`

	// Capacity is the backend's hard quota in bytes. Zero means the
	// backend default.
	Capacity int `env:"CAPACITY" yaml:"capacity"`

	// Addr is the listen address of the diagnostics server.
	Addr string `env:"ADDR" yaml:"addr"`

	Limits    Limits    `yaml:"limits"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Limits mirrors cache.Limits plus the classifier pattern lists.
type Limits struct {
	MaxTotalSize     int           `env:"MAX_TOTAL_SIZE" yaml:"max_total_size"`
	MaxItemSize      int           `env:"MAX_ITEM_SIZE" yaml:"max_item_size"`
	CleanupThreshold float64       `env:"CLEANUP_THRESHOLD" yaml:"cleanup_threshold"`
	TTL              time.Duration `env:"TTL" yaml:"ttl"`
	AgeBucket        time.Duration `env:"AGE_BUCKET" yaml:"age_bucket"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" yaml:"cleanup_interval"`

	EssentialPatterns []string `env:"ESSENTIAL_PATTERNS" envSeparator:"," yaml:"essential_patterns"`
	CleanablePatterns []string `env:"CLEANABLE_PATTERNS" envSeparator:"," yaml:"cleanable_patterns"`
}

// Telemetry selects logging, tracing and metrics outputs.
type Telemetry struct {
	ServiceName     string  `env:"SERVICE_NAME" yaml:"service_name"`
	LogLevel        string  `env:"LOG_LEVEL" yaml:"log_level"`
	TracingExporter string  `env:"TRACING_EXPORTER" yaml:"tracing_exporter"`
	SamplePct       float64 `env:"TRACE_SAMPLE_PCT" yaml:"trace_sample_pct"`
	MetricsExporter string  `env:"METRICS_EXPORTER" yaml:"metrics_exporter"`
}

// Default returns the built-in configuration: an in-memory backend with
// the default cache limits, no tracing or metrics export, info logging.
func Default() Config {
	l := cache.DefaultLimits()
	return Config{
		Backend: BackendMemory,
		Addr:    ":8080",
		Limits: Limits{
			MaxTotalSize:      l.MaxTotalSize,
			MaxItemSize:       l.MaxItemSize,
			CleanupThreshold:  l.CleanupThreshold,
			TTL:               l.TTL,
			AgeBucket:         l.AgeBucket,
			CleanupInterval:   l.CleanupInterval,
			EssentialPatterns: slices.Clone(cache.DefaultEssentialPatterns),
			CleanablePatterns: slices.Clone(cache.DefaultCleanablePatterns),
		},
		Telemetry: Telemetry{
			ServiceName:     "quotastore",
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "none",
		},
	}
}

// Load resolves defaults, the YAML file at path (skipped if path is
// empty) and the environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes the YAML file at path over cfg. Unknown keys are errors.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays QUOTASTORE_* environment variables onto cfg. Unset
// variables leave the current value untouched.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return ErrMissingSQLitePath
		}
	default:
		return fmt.Errorf("%w, got %q", ErrInvalidBackend, c.Backend)
	}

	limits := c.CacheLimits()
	if err := limits.Validate(); err != nil {
		return err
	}
	if c.Capacity > 0 && c.Capacity < c.Limits.MaxTotalSize {
		return fmt.Errorf("%w: %d < %d", ErrInvalidCapacity, c.Capacity, c.Limits.MaxTotalSize)
	}

	obs := c.ObserveConfig()
	return obs.Validate()
}

// CacheLimits converts the limits section to cache.Limits.
func (c Config) CacheLimits() cache.Limits {
	return cache.Limits{
		MaxTotalSize:     c.Limits.MaxTotalSize,
		MaxItemSize:      c.Limits.MaxItemSize,
		CleanupThreshold: c.Limits.CleanupThreshold,
		TTL:              c.Limits.TTL,
		AgeBucket:        c.Limits.AgeBucket,
		CleanupInterval:  c.Limits.CleanupInterval,
	}
}

// Classifier builds the key classifier. An empty list keeps the defaults.
func (c Config) Classifier() *cache.Classifier {
	essential := c.Limits.EssentialPatterns
	if len(essential) == 0 {
		essential = cache.DefaultEssentialPatterns
	}
	cleanable := c.Limits.CleanablePatterns
	if len(cleanable) == 0 {
		cleanable = cache.DefaultCleanablePatterns
	}
	return cache.NewClassifier(essential, cleanable)
}

// ObserveConfig converts the telemetry section to observe.Config.
func (c Config) ObserveConfig() observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: t.ServiceName,
		Attributes:  map[string]string{"cache.backend": c.Backend},
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "" && t.TracingExporter != "none",
			Exporter:  t.TracingExporter,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "" && t.MetricsExporter != "none",
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
		},
	}
}
