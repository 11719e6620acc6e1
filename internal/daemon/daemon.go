package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"playtime/internal/config"
	"playtime/internal/idcache"
	"playtime/internal/journal"
	"playtime/internal/logging"
	"playtime/internal/resolve"
	"playtime/internal/resultcache"
)

// Daemon hosts the resolver as a background service and enforces
// single-instance execution via a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *resolve.Resolver
	journal  *journal.Store
	ids      *idcache.Cache
	results  *resultcache.Cache

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	LockFilePath  string `json:"lock_file_path"`
	JournalPath   string `json:"journal_path,omitempty"`
	IDMappings    int    `json:"id_mappings"`
	CachedResults int    `json:"cached_results"`
	ActingUserID  int64  `json:"acting_user_id,omitempty"`
}

// New constructs a daemon with initialized dependencies. The journal store
// may be nil when journaling is disabled.
func New(cfg *config.Config, resolver *resolve.Resolver, store *journal.Store, ids *idcache.Cache, results *resultcache.Cache, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || resolver == nil || ids == nil || results == nil {
		return nil, errors.New("daemon requires config, resolver, and caches")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.Paths.LockPath
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		resolver: resolver,
		journal:  store,
		ids:      ids,
		results:  results,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another playtime daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}
	d.api = api
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("playtime daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("playtime daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// APIAddr reports the address the HTTP API is listening on. Before Start
// it returns the configured bind address.
func (d *Daemon) APIAddr() string {
	if d.api != nil {
		return d.api.addr()
	}
	return d.cfg.Daemon.Bind
}

// Resolve looks up the completion-time record for a storefront app.
func (d *Daemon) Resolve(ctx context.Context, storefrontID int64) (resolve.Outcome, error) {
	return d.resolver.Resolve(ctx, storefrontID)
}

// ImportLibrary reconciles the ID mapping cache from a user's catalog library.
func (d *Daemon) ImportLibrary(ctx context.Context, userID int64) (bool, error) {
	return d.resolver.ImportLibrary(ctx, userID)
}

// History returns recent journal records, optionally filtered to one app.
func (d *Daemon) History(ctx context.Context, storefrontID int64, limit int) ([]journal.Record, error) {
	if d.journal == nil {
		return nil, nil
	}
	if storefrontID > 0 {
		return d.journal.ByStorefrontID(ctx, storefrontID, limit)
	}
	return d.journal.Recent(ctx, limit)
}

// ClearCaches drops both the ID mapping cache and the result cache.
func (d *Daemon) ClearCaches() error {
	if err := d.ids.Clear(); err != nil {
		return fmt.Errorf("clear id cache: %w", err)
	}
	if err := d.results.Clear(); err != nil {
		return fmt.Errorf("clear result cache: %w", err)
	}
	d.logger.Info("caches cleared")
	return nil
}

// Status reports the current daemon state.
func (d *Daemon) Status() Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		IDMappings:    d.ids.Len(),
		CachedResults: d.results.Len(),
		ActingUserID:  d.resolver.ActingUser(),
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	return status
}
