// Package config loads the engine's tunables (cache TTL and capacity,
// tolerance epsilon bounds, snapshot cadence, bbolt storage path) from an
// optional YAML file, environment variables, and defaults, the way a
// production CLI's config loading layers viper over config.yaml (§6
// "Configuration").
//
// Grounded on a production repo's cmd/bd/config.go viper usage (v := viper.New(),
// SetConfigType("yaml"), SetConfigFile, ReadInConfig tolerating a missing
// file).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable this package reads,
// e.g. PLATETOPO_CACHE_TTL_SECONDS.
const EnvPrefix = "PLATETOPO"

// Config holds every engine tunable (SPEC_FULL §10.3 "Configuration").
type Config struct {
	// StorageDir is the directory bbolt database files live under.
	StorageDir string `mapstructure:"storage_dir"`

	// CacheTTLSeconds is the PartitionCache entry lifetime.
	CacheTTLSeconds int64 `mapstructure:"cache_ttl_seconds"`
	// CacheCapacity bounds the number of distinct cache entries kept
	// before eviction is triggered by the caller's maintenance loop.
	CacheCapacity int `mapstructure:"cache_capacity"`

	// SnapshotEveryNEvents is loaded and defaulted here, but no package in
	// this module reads it: the partition service persists a snapshot
	// after every successful live materialization.
	SnapshotEveryNEvents int64 `mapstructure:"snapshot_every_n_events"`
	// SnapshotKeepLatest bounds CompactSnapshots' retention.
	SnapshotKeepLatest int `mapstructure:"snapshot_keep_latest"`

	// DefaultEpsilonMin/Max bound the Default tolerance policy's
	// escalation loop (radians).
	DefaultEpsilonMin float64 `mapstructure:"default_epsilon_min"`
	DefaultEpsilonMax float64 `mapstructure:"default_epsilon_max"`

	// TelemetryEnabled turns on the stdout otel exporters for local
	// development (SPEC_FULL §10.3 "dev telemetry").
	TelemetryEnabled bool `mapstructure:"telemetry_enabled"`
}

// defaults mirrors the values a fresh Config should have with no file and
// no environment overrides present.
func defaults() Config {
	return Config{
		StorageDir:           "./data",
		CacheTTLSeconds:      300,
		CacheCapacity:        10_000,
		SnapshotEveryNEvents: 1000,
		SnapshotKeepLatest:   5,
		DefaultEpsilonMin:    1e-12,
		DefaultEpsilonMax:    1e-6,
		TelemetryEnabled:     false,
	}
}

// Load reads configPath (if non-empty and present) as YAML, then overlays
// PLATETOPO_-prefixed environment variables, then returns the merged
// Config. A missing configPath is not an error, mirroring the tolerant
// ReadInConfig handling a production CLI's config loader uses.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	d := defaults()
	v.SetDefault("storage_dir", d.StorageDir)
	v.SetDefault("cache_ttl_seconds", d.CacheTTLSeconds)
	v.SetDefault("cache_capacity", d.CacheCapacity)
	v.SetDefault("snapshot_every_n_events", d.SnapshotEveryNEvents)
	v.SetDefault("snapshot_keep_latest", d.SnapshotKeepLatest)
	v.SetDefault("default_epsilon_min", d.DefaultEpsilonMin)
	v.SetDefault("default_epsilon_max", d.DefaultEpsilonMax)
	v.SetDefault("telemetry_enabled", d.TelemetryEnabled)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.DefaultEpsilonMin < 0 || cfg.DefaultEpsilonMax < cfg.DefaultEpsilonMin {
		return Config{}, fmt.Errorf("config: default_epsilon_min/max must satisfy 0 <= min <= max, got [%v, %v]",
			cfg.DefaultEpsilonMin, cfg.DefaultEpsilonMax)
	}
	return cfg, nil
}

// CacheTTL returns CacheTTLSeconds as a time.Duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
