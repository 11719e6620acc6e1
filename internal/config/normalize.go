package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeStorefront()
	c.normalizeIDCache()
	c.normalizeLogging()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CacheDir, err = ExpandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OverridesPath, err = ExpandPath(c.Paths.OverridesPath); err != nil {
		return fmt.Errorf("paths.overrides_path: %w", err)
	}
	if c.Paths.LockPath, err = ExpandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	c.Catalog.SearchPath = strings.TrimSpace(c.Catalog.SearchPath)
	if c.Catalog.SearchPath != "" && !strings.HasPrefix(c.Catalog.SearchPath, "/") {
		c.Catalog.SearchPath = "/" + c.Catalog.SearchPath
	}
	c.Catalog.UserAgent = strings.TrimSpace(c.Catalog.UserAgent)
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeoutSeconds
	}
	if c.Catalog.RatePerSecond <= 0 {
		c.Catalog.RatePerSecond = defaultCatalogRatePerSecond
	}
	if c.Catalog.RateBurst <= 0 {
		c.Catalog.RateBurst = defaultCatalogRateBurst
	}
}

func (c *Config) normalizeStorefront() {
	c.Storefront.BaseURL = strings.TrimRight(strings.TrimSpace(c.Storefront.BaseURL), "/")
	if c.Storefront.RequestTimeout <= 0 {
		c.Storefront.RequestTimeout = defaultStorefrontTimeoutSeconds
	}
}

func (c *Config) normalizeIDCache() {
	c.IDCache.RefreshPolicy = strings.ToLower(strings.TrimSpace(c.IDCache.RefreshPolicy))
	if c.IDCache.RefreshPolicy == "" {
		c.IDCache.RefreshPolicy = defaultIDCacheRefreshPolicy
	}
	if c.IDCache.MaxAgeDays <= 0 {
		c.IDCache.MaxAgeDays = defaultIDCacheMaxAgeDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func (c *Config) normalizeJournal() error {
	var err error
	if c.Journal.Path, err = ExpandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}
