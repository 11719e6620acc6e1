package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"log/slog"

	"playtime/internal/config"
	"playtime/internal/daemon"
	"playtime/internal/hltb"
	"playtime/internal/idcache"
	"playtime/internal/journal"
	"playtime/internal/logging"
	"playtime/internal/overrides"
	"playtime/internal/resolve"
	"playtime/internal/resultcache"
	"playtime/internal/storefront"
)

// engine bundles the fully wired resolution stack for CLI commands.
type engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *resolve.Resolver
	journal  *journal.Store
	ids      *idcache.Cache
	results  *resultcache.Cache
}

func newEngine(cfg *config.Config) (*engine, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	session, err := hltb.NewSession(cfg.Catalog.BaseURL, cfg.Catalog.SearchPath, cfg.Catalog.UserAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("init catalog session: %w", err)
	}
	catalog, err := hltb.NewClient(session, cfg.Catalog.UserAgent, logger,
		hltb.WithHTTPClient(&http.Client{Timeout: cfg.CatalogTimeout()}),
		hltb.WithRateLimit(cfg.Catalog.RatePerSecond, cfg.Catalog.RateBurst))
	if err != nil {
		return nil, fmt.Errorf("init catalog client: %w", err)
	}
	names, err := storefront.New(cfg.Storefront.BaseURL, logger,
		storefront.WithHTTPClient(&http.Client{Timeout: cfg.StorefrontTimeout()}))
	if err != nil {
		return nil, fmt.Errorf("init storefront client: %w", err)
	}

	table, err := overrides.Load(cfg.Paths.OverridesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	ids := idcache.NewCache(filepath.Join(cfg.Paths.CacheDir, "ids.json"),
		cfg.IDCache.RefreshPolicy, cfg.IDCacheMaxAge(), logger)
	results := resultcache.NewCache(filepath.Join(cfg.Paths.CacheDir, "results.json"),
		cfg.ResultTTL(), logger)

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	opts := []resolve.Option{}
	if store != nil {
		opts = append(opts, resolve.WithJournal(store))
	}
	resolver, err := resolve.New(catalog, names, table, ids, results, logger, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("init resolver: %w", err)
	}

	return &engine{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		journal:  store,
		ids:      ids,
		results:  results,
	}, nil
}

func (e *engine) Close() {
	if e.journal != nil {
		_ = e.journal.Close()
	}
}

func (e *engine) newDaemon() (*daemon.Daemon, error) {
	return daemon.New(e.cfg, e.resolver, e.journal, e.ids, e.results, e.logger)
}
