package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateStorefront(); err != nil {
		return err
	}
	if err := c.validateIDCache(); err != nil {
		return err
	}
	if err := c.validateResultCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url must be set")
	}
	if _, err := url.ParseRequestURI(c.Catalog.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url: %w", err)
	}
	if c.Catalog.SearchPath == "" {
		return errors.New("catalog.search_path must be set (fallback search endpoint)")
	}
	return nil
}

func (c *Config) validateStorefront() error {
	if c.Storefront.BaseURL == "" {
		return errors.New("storefront.base_url must be set")
	}
	if _, err := url.ParseRequestURI(c.Storefront.BaseURL); err != nil {
		return fmt.Errorf("storefront.base_url: %w", err)
	}
	return nil
}

func (c *Config) validateIDCache() error {
	switch c.IDCache.RefreshPolicy {
	case RefreshPolicyMaxAge, RefreshPolicySession:
	default:
		return fmt.Errorf("idcache.refresh_policy must be %q or %q, got %q",
			RefreshPolicyMaxAge, RefreshPolicySession, c.IDCache.RefreshPolicy)
	}
	return nil
}

func (c *Config) validateResultCache() error {
	if c.ResultCache.TTLHours <= 0 {
		return errors.New("resultcache.ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}
