// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"playtime/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OverridesPath = filepath.Join(base, "overrides.json")
	cfg.Paths.LockPath = filepath.Join(base, "playtime.lock")
	cfg.Journal.Path = filepath.Join(base, "journal.db")
	cfg.Daemon.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRefreshPolicy overrides the ID cache refresh policy.
func WithRefreshPolicy(policy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.IDCache.RefreshPolicy = policy
	}
}

// WithResultTTLHours overrides the result cache freshness window.
func WithResultTTLHours(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.ResultCache.TTLHours = hours
	}
}
