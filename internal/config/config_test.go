package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[catalog]
base_url = "https://example.com/"
rate_per_second = 2.0

[idcache]
refresh_policy = "session"

[resultcache]
ttl_hours = 6
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Catalog.BaseURL != "https://example.com" {
		t.Fatalf("base_url not normalized: %q", cfg.Catalog.BaseURL)
	}
	if cfg.IDCache.RefreshPolicy != RefreshPolicySession {
		t.Fatalf("refresh_policy = %q", cfg.IDCache.RefreshPolicy)
	}
	if cfg.ResultTTL() != 6*time.Hour {
		t.Fatalf("ResultTTL = %v", cfg.ResultTTL())
	}
	// Untouched sections keep defaults.
	if cfg.Catalog.SearchPath != defaultCatalogSearchPath {
		t.Fatalf("search_path = %q", cfg.Catalog.SearchPath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PLAYTIME_CATALOG_BASE_URL", "https://env.example.com")
	t.Setenv("PLAYTIME_IDCACHE_MAX_AGE_DAYS", "3")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.BaseURL != "https://env.example.com" {
		t.Fatalf("env override not applied: %q", cfg.Catalog.BaseURL)
	}
	if cfg.IDCacheMaxAge() != 3*24*time.Hour {
		t.Fatalf("IDCacheMaxAge = %v", cfg.IDCacheMaxAge())
	}
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := Default()
	cfg.IDCache.RefreshPolicy = "sometimes"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown refresh policy")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	if !strings.Contains(SampleConfig(), "refresh_policy = \"max_age\"") {
		t.Fatal("sample config should document the default refresh policy")
	}
	if !strings.Contains(SampleConfig(), "ttl_hours = 24") {
		t.Fatal("sample config should document the default result TTL")
	}
}
