package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	CacheDir      string `toml:"cache_dir" env:"CACHE_DIR"`
	LogDir        string `toml:"log_dir" env:"LOG_DIR"`
	OverridesPath string `toml:"overrides_path" env:"OVERRIDES_PATH"`
	LockPath      string `toml:"lock_path" env:"LOCK_PATH"`
}

// Catalog configures access to the completion-time catalog site.
type Catalog struct {
	BaseURL        string  `toml:"base_url" env:"BASE_URL"`
	SearchPath     string  `toml:"search_path" env:"SEARCH_PATH"`
	UserAgent      string  `toml:"user_agent" env:"USER_AGENT"`
	RequestTimeout int     `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
	RatePerSecond  float64 `toml:"rate_per_second" env:"RATE_PER_SECOND"`
	RateBurst      int     `toml:"rate_burst" env:"RATE_BURST"`
}

// Storefront configures the storefront title source.
type Storefront struct {
	BaseURL        string `toml:"base_url" env:"BASE_URL"`
	RequestTimeout int    `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// IDCache configures the storefront-to-catalog ID mapping cache.
type IDCache struct {
	// RefreshPolicy selects the cadence for discarding imported mappings:
	// "max_age" expires them after MaxAgeDays, "session" requires a fresh
	// import every process lifetime.
	RefreshPolicy string `toml:"refresh_policy" env:"REFRESH_POLICY"`
	MaxAgeDays    int    `toml:"max_age_days" env:"MAX_AGE_DAYS"`
}

// ResultCache configures the per-app result cache.
type ResultCache struct {
	TTLHours int `toml:"ttl_hours" env:"TTL_HOURS"`
}

// Journal configures the SQLite lookup journal.
type Journal struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Path    string `toml:"path" env:"PATH"`
}

// Daemon configures the local HTTP API server.
type Daemon struct {
	Bind string `toml:"bind" env:"BIND"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// Config is the root configuration document.
type Config struct {
	Paths       Paths       `toml:"paths" envPrefix:"PATHS_"`
	Catalog     Catalog     `toml:"catalog" envPrefix:"CATALOG_"`
	Storefront  Storefront  `toml:"storefront" envPrefix:"STOREFRONT_"`
	IDCache     IDCache     `toml:"idcache" envPrefix:"IDCACHE_"`
	ResultCache ResultCache `toml:"resultcache" envPrefix:"RESULTCACHE_"`
	Journal     Journal     `toml:"journal" envPrefix:"JOURNAL_"`
	Daemon      Daemon      `toml:"daemon" envPrefix:"DAEMON_"`
	Logging     Logging     `toml:"logging" envPrefix:"LOGGING_"`
}

// CatalogTimeout returns the catalog per-request timeout as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeout) * time.Second
}

// StorefrontTimeout returns the storefront per-request timeout as a duration.
func (c *Config) StorefrontTimeout() time.Duration {
	return time.Duration(c.Storefront.RequestTimeout) * time.Second
}

// ResultTTL returns the result cache freshness window.
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultCache.TTLHours) * time.Hour
}

// IDCacheMaxAge returns the absolute age ceiling for imported ID mappings.
func (c *Config) IDCacheMaxAge() time.Duration {
	return time.Duration(c.IDCache.MaxAgeDays) * 24 * time.Hour
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Load reads configuration from the provided path (or the default search
// locations when empty), applies environment overrides, and returns the
// normalized, validated result along with the resolved path and whether a
// file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "PLAYTIME_"}); err != nil {
		return nil, "", false, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// EnsureDirectories creates the cache and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DefaultConfigPath returns the user-level configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/playtime/config.toml")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("playtime.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// ExpandPath resolves a leading ~ against the user's home directory and
// makes relative paths absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
