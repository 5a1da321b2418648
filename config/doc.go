// Package config loads quotastore settings.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables prefixed with QUOTASTORE_. Later layers
// override earlier ones only for the fields they set.
//
// Example file:
//
//	backend: sqlite
//	sqlite_path: /var/lib/quotastore/store.db
//	limits:
//	  max_total_size: 4194304
//	  cleanup_threshold: 0.8
//	  cleanup_interval: 30m
//	telemetry:
//	  log_level: info
//	  metrics_exporter: prometheus
package config
