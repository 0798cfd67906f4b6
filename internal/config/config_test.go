package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, int64(300), cfg.CacheTTLSeconds)
	require.Equal(t, 10_000, cfg.CacheCapacity)
	require.Equal(t, 1e-12, cfg.DefaultEpsilonMin)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_ttl_seconds: 60\nsnapshot_keep_latest: 9\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(60), cfg.CacheTTLSeconds)
	require.Equal(t, 9, cfg.SnapshotKeepLatest)
	require.Equal(t, 10_000, cfg.CacheCapacity, "unset keys still take their default")
}

func TestLoad_EnvOverridesFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_ttl_seconds: 60\n"), 0o644))

	t.Setenv("PLATETOPO_CACHE_TTL_SECONDS", "120")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(120), cfg.CacheTTLSeconds)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
}

func TestLoad_RejectsInvertedEpsilonBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_epsilon_min: 1e-3\ndefault_epsilon_max: 1e-6\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_CacheTTL(t *testing.T) {
	cfg := Config{CacheTTLSeconds: 45}
	require.Equal(t, int64(45), int64(cfg.CacheTTL().Seconds()))
}
