package config

const (
	defaultCacheDir      = "~/.cache/playtime"
	defaultLogDir        = "~/.local/share/playtime/logs"
	defaultOverridesPath = "~/.config/playtime/overrides.json"
	defaultLockPath      = "~/.local/share/playtime/playtime.lock"

	defaultCatalogBaseURL        = "https://howlongtobeat.com"
	defaultCatalogSearchPath     = "/api/search"
	defaultCatalogUserAgent      = "playtime/dev"
	defaultCatalogTimeoutSeconds = 10
	defaultCatalogRatePerSecond  = 4.0
	defaultCatalogRateBurst      = 2

	defaultStorefrontBaseURL        = "https://store.steampowered.com"
	defaultStorefrontTimeoutSeconds = 10

	// RefreshPolicyMaxAge expires imported ID mappings after max_age_days.
	RefreshPolicyMaxAge = "max_age"
	// RefreshPolicySession requires a fresh import every process lifetime.
	RefreshPolicySession = "session"

	defaultIDCacheRefreshPolicy = RefreshPolicyMaxAge
	defaultIDCacheMaxAgeDays    = 7

	defaultResultTTLHours = 24

	defaultJournalEnabled = true
	defaultJournalPath    = "~/.local/share/playtime/journal.db"

	defaultDaemonBind = "127.0.0.1:7788"

	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:      defaultCacheDir,
			LogDir:        defaultLogDir,
			OverridesPath: defaultOverridesPath,
			LockPath:      defaultLockPath,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			SearchPath:     defaultCatalogSearchPath,
			UserAgent:      defaultCatalogUserAgent,
			RequestTimeout: defaultCatalogTimeoutSeconds,
			RatePerSecond:  defaultCatalogRatePerSecond,
			RateBurst:      defaultCatalogRateBurst,
		},
		Storefront: Storefront{
			BaseURL:        defaultStorefrontBaseURL,
			RequestTimeout: defaultStorefrontTimeoutSeconds,
		},
		IDCache: IDCache{
			RefreshPolicy: defaultIDCacheRefreshPolicy,
			MaxAgeDays:    defaultIDCacheMaxAgeDays,
		},
		ResultCache: ResultCache{
			TTLHours: defaultResultTTLHours,
		},
		Journal: Journal{
			Enabled: defaultJournalEnabled,
			Path:    defaultJournalPath,
		},
		Daemon: Daemon{
			Bind: defaultDaemonBind,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
