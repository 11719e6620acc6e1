package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"playtime/internal/hltb"
	"playtime/internal/idcache"
	"playtime/internal/journal"
	"playtime/internal/logging"
	"playtime/internal/overrides"
	"playtime/internal/resultcache"
	"playtime/internal/services"
	"playtime/internal/storefront"
)

// Catalog is the slice of the completion-time catalog the resolver needs.
// *hltb.Client satisfies it.
type Catalog interface {
	Search(ctx context.Context, query string) ([]hltb.SearchResult, error)
	GameDetail(ctx context.Context, catalogID int64) (*hltb.GameRecord, error)
	UserLibrary(ctx context.Context, userID int64) ([]hltb.LibraryMapping, error)
}

// Outcome is the result of one resolution. A nil Record with a nil error is
// a confirmed miss; SearchedName then carries the last query attempted so a
// caller can offer a manual search. Refresh is non-nil only when stale data
// was served and a background revalidation is in flight.
type Outcome struct {
	Record       *hltb.GameRecord
	FromCache    bool
	SearchedName string
	Refresh      *Refresh
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithJournal records every resolution outcome in the lookup journal.
func WithJournal(store *journal.Store) Option {
	return func(r *Resolver) {
		r.journal = store
	}
}

// WithUser sets the user whose bulk-imported ID mappings may be consulted
// before the first import of the session.
func WithUser(userID int64) Option {
	return func(r *Resolver) {
		r.actingUser = userID
	}
}

// Resolver turns storefront app IDs into catalog completion-time records.
type Resolver struct {
	catalog   Catalog
	names     storefront.NameSource
	overrides *overrides.Table
	ids       *idcache.Cache
	results   *resultcache.Cache
	journal   *journal.Store
	logger    *slog.Logger

	mu         sync.Mutex
	current    int64
	actingUser int64
	inflight   map[int64]*Refresh
}

func New(catalog Catalog, names storefront.NameSource, table *overrides.Table, ids *idcache.Cache, results *resultcache.Cache, logger *slog.Logger, opts ...Option) (*Resolver, error) {
	if catalog == nil {
		return nil, errors.New("resolve: catalog is required")
	}
	if names == nil {
		return nil, errors.New("resolve: storefront name source is required")
	}
	if table == nil || ids == nil || results == nil {
		return nil, errors.New("resolve: overrides and caches are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	resolver := &Resolver{
		catalog:   catalog,
		names:     names,
		overrides: table,
		ids:       ids,
		results:   results,
		logger:    logging.NewComponentLogger(logger, "resolver"),
		inflight:  make(map[int64]*Refresh),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	if resolver.actingUser == 0 {
		// Trust the owner of the persisted mapping set so the direct-ID
		// path survives restarts. The cache's refresh policy still decides
		// whether those mappings are usable.
		resolver.actingUser = ids.Owner()
	}
	return resolver, nil
}

// SetCurrent records the app the user is currently viewing. Resolve updates
// it automatically; a UI driving the resolver directly may set it on
// navigation so completed refreshes can be attributed correctly.
func (r *Resolver) SetCurrent(storefrontID int64) {
	r.mu.Lock()
	r.current = storefrontID
	r.mu.Unlock()
}

func (r *Resolver) Current() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Resolver) setActingUser(userID int64) {
	r.mu.Lock()
	r.actingUser = userID
	r.mu.Unlock()
}

// ActingUser is the user whose imported ID mappings are trusted.
func (r *Resolver) ActingUser() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actingUser
}

// ctxLogger attaches the request's correlation ID so engine records line
// up with journal rows.
func (r *Resolver) ctxLogger(ctx context.Context) *slog.Logger {
	if id, ok := services.CorrelationIDFromContext(ctx); ok && id != "" {
		return r.logger.With(logging.String(logging.FieldCorrelationID, id))
	}
	return r.logger
}

// Resolve produces the completion-time record for a storefront app. Fresh
// cached entries return immediately. Stale entries return immediately too,
// with the old data and a Refresh handle for the background revalidation.
// Only on a cold miss does the call block on network lookups.
func (r *Resolver) Resolve(ctx context.Context, storefrontID int64) (Outcome, error) {
	if storefrontID <= 0 {
		return Outcome{}, services.Wrap(services.ErrMalformed, "resolver", "resolve", "storefront id must be positive", nil)
	}
	if _, ok := services.CorrelationIDFromContext(ctx); !ok {
		ctx = services.WithCorrelationID(ctx, "")
	}
	r.SetCurrent(storefrontID)
	start := time.Now()

	if entry, ok := r.results.Lookup(storefrontID); ok {
		if !r.results.Stale(entry) {
			r.recordJournal(ctx, storefrontID, entry.Record, journal.OutcomeCacheHit, "", time.Since(start))
			return Outcome{Record: entry.Record, FromCache: true}, nil
		}
		refresh := r.startRefresh(ctx, storefrontID)
		r.ctxLogger(ctx).Debug("serving stale entry",
			logging.Int64(logging.FieldStorefrontID, storefrontID),
			logging.Bool("miss", entry.Miss()))
		r.recordJournal(ctx, storefrontID, entry.Record, journal.OutcomeStaleServed, "", time.Since(start))
		return Outcome{Record: entry.Record, FromCache: true, Refresh: refresh}, nil
	}

	record, query, err := r.lookup(ctx, storefrontID)
	switch {
	case err == nil:
		if storeErr := r.results.Store(storefrontID, record); storeErr != nil {
			r.ctxLogger(ctx).Warn("result not persisted",
				logging.Int64(logging.FieldStorefrontID, storefrontID),
				logging.Error(storeErr))
		}
		r.recordJournal(ctx, storefrontID, record, journal.OutcomeHit, query, time.Since(start))
		return Outcome{Record: record, SearchedName: query}, nil
	case services.IsMiss(err):
		// Confirmed misses are cached so repeat views don't re-search;
		// operational failures are not, so the next view retries.
		if storeErr := r.results.Store(storefrontID, nil); storeErr != nil {
			r.ctxLogger(ctx).Warn("miss not persisted",
				logging.Int64(logging.FieldStorefrontID, storefrontID),
				logging.Error(storeErr))
		}
		r.recordJournal(ctx, storefrontID, nil, journal.OutcomeMiss, query, time.Since(start))
		return Outcome{SearchedName: query}, nil
	default:
		r.recordJournal(ctx, storefrontID, nil, journal.OutcomeError, query, time.Since(start))
		return Outcome{SearchedName: query}, err
	}
}

// lookup prefers a bulk-imported ID mapping, a direct fetch that cannot
// mismatch, and falls back to the fuzzy name path. A valid mapping is
// authoritative: its failure is never retried by name.
func (r *Resolver) lookup(ctx context.Context, storefrontID int64) (*hltb.GameRecord, string, error) {
	if catalogID, ok := r.ids.Lookup(r.ActingUser(), storefrontID); ok {
		record, err := r.resolveByID(ctx, storefrontID, catalogID)
		return record, "", err
	}
	return r.resolveByName(ctx, storefrontID)
}

func (r *Resolver) resolveByID(ctx context.Context, storefrontID, catalogID int64) (*hltb.GameRecord, error) {
	record, err := r.catalog.GameDetail(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	r.ctxLogger(ctx).Info("resolved by imported mapping",
		logging.Int64(logging.FieldStorefrontID, storefrontID),
		logging.Int64(logging.FieldCatalogID, catalogID),
		logging.String(logging.FieldStrategy, "id"))
	return record, nil
}

func (r *Resolver) resolveByName(ctx context.Context, storefrontID int64) (*hltb.GameRecord, string, error) {
	var lastQuery string
	var lastErr error
	for _, strategy := range r.buildNameStrategies(storefrontID) {
		query, err := strategy.query(ctx)
		if err != nil {
			if errors.Is(err, errSkipStrategy) {
				continue
			}
			return nil, lastQuery, err
		}
		lastQuery = query

		results, err := r.catalog.Search(ctx, query)
		if err != nil {
			return nil, query, err
		}
		sel := selectBestMatch(query, results)
		if !sel.ok {
			r.ctxLogger(ctx).Debug("no candidate within threshold",
				logging.Int64(logging.FieldStorefrontID, storefrontID),
				logging.String(logging.FieldQuery, query),
				logging.String(logging.FieldStrategy, strategy.name),
				logging.Int("results", len(results)))
			lastErr = services.Wrap(services.ErrNotFound, "resolver", "search", "no acceptable match for "+query, nil)
			continue
		}

		record := sel.best.record
		if !sel.exact && len(sel.contenders) > 1 {
			if verified, ok := r.verifyContenders(ctx, storefrontID, sel.contenders); ok {
				record = *verified
			}
		}
		r.ctxLogger(ctx).Info("resolved by name",
			logging.Int64(logging.FieldStorefrontID, storefrontID),
			logging.Int64(logging.FieldCatalogID, record.ID),
			logging.String(logging.FieldQuery, query),
			logging.String(logging.FieldStrategy, strategy.name),
			logging.Bool("exact", sel.exact),
			logging.Int("distance", sel.best.distance))
		return &record, query, nil
	}
	if lastErr == nil {
		lastErr = services.Wrap(services.ErrNotFound, "resolver", "search", "no match found", nil)
	}
	return nil, lastQuery, lastErr
}

// maxVerifyCandidates bounds the extra round trips spent disambiguating a
// non-exact match.
const maxVerifyCandidates = 3

// verifyContenders checks ambiguous contenders against the storefront ID
// recorded on their catalog pages. Verification failures are soft: the
// distance winner stands when nothing confirms.
func (r *Resolver) verifyContenders(ctx context.Context, storefrontID int64, contenders []matchCandidate) (*hltb.GameRecord, bool) {
	limit := len(contenders)
	if limit > maxVerifyCandidates {
		limit = maxVerifyCandidates
	}
	for _, candidate := range contenders[:limit] {
		detail, err := r.catalog.GameDetail(ctx, candidate.record.ID)
		if err != nil {
			continue
		}
		if detail.SteamAppID == storefrontID {
			r.ctxLogger(ctx).Debug("match verified by storefront id",
				logging.Int64(logging.FieldStorefrontID, storefrontID),
				logging.Int64(logging.FieldCatalogID, detail.ID))
			return detail, true
		}
	}
	return nil, false
}

// ImportLibrary fetches a user's library mappings from the catalog and
// reconciles the ID cache with them. A private or empty library reports
// (false, nil) and leaves any existing mappings untouched.
func (r *Resolver) ImportLibrary(ctx context.Context, ownerUserID int64) (bool, error) {
	if ownerUserID <= 0 {
		return false, services.Wrap(services.ErrConfiguration, "resolver", "import", "catalog user id must be positive", nil)
	}
	if _, ok := services.CorrelationIDFromContext(ctx); !ok {
		ctx = services.WithCorrelationID(ctx, "")
	}
	start := time.Now()

	mappings, err := r.catalog.UserLibrary(ctx, ownerUserID)
	if err != nil {
		if services.IsMiss(err) {
			r.ctxLogger(ctx).Info("library unavailable, keeping existing mappings",
				logging.Int64("user_id", ownerUserID),
				logging.Error(err))
			r.recordImport(ctx, ownerUserID, 0, journal.OutcomeImportEmpty, time.Since(start))
			return false, nil
		}
		r.recordImport(ctx, ownerUserID, 0, journal.OutcomeImportFailed, time.Since(start))
		return false, err
	}

	byStorefront := make(map[int64]int64, len(mappings))
	for _, mapping := range mappings {
		byStorefront[mapping.StorefrontID] = mapping.CatalogID
	}
	if len(byStorefront) == 0 {
		r.ctxLogger(ctx).Info("library empty, keeping existing mappings",
			logging.Int64("user_id", ownerUserID))
		r.recordImport(ctx, ownerUserID, 0, journal.OutcomeImportEmpty, time.Since(start))
		return false, nil
	}

	if err := r.ids.Reconcile(byStorefront, ownerUserID); err != nil {
		r.recordImport(ctx, ownerUserID, 0, journal.OutcomeImportFailed, time.Since(start))
		return false, err
	}
	r.setActingUser(ownerUserID)
	r.ctxLogger(ctx).Info("library imported",
		logging.Int64("user_id", ownerUserID),
		logging.Int("mappings", len(byStorefront)))
	r.recordImport(ctx, ownerUserID, len(byStorefront), journal.OutcomeImport, time.Since(start))
	return true, nil
}

func (r *Resolver) recordJournal(ctx context.Context, storefrontID int64, record *hltb.GameRecord, outcome, query string, elapsed time.Duration) {
	if r.journal == nil {
		return
	}
	correlationID, _ := services.CorrelationIDFromContext(ctx)
	rec := journal.Record{
		CorrelationID: correlationID,
		StorefrontID:  storefrontID,
		Outcome:       outcome,
		Query:         query,
		Duration:      elapsed,
	}
	if record != nil {
		rec.CatalogID = record.ID
		rec.Title = record.Title
	}
	if err := r.journal.Record(ctx, rec); err != nil {
		r.logger.Warn("journal write failed", logging.Error(err))
	}
}

func (r *Resolver) recordImport(ctx context.Context, ownerUserID int64, mappings int, outcome string, elapsed time.Duration) {
	if r.journal == nil {
		return
	}
	correlationID, _ := services.CorrelationIDFromContext(ctx)
	// StorefrontID doubles as the library owner for import rows; the
	// mapping count goes in the free-text query column.
	rec := journal.Record{
		CorrelationID: correlationID,
		StorefrontID:  ownerUserID,
		Outcome:       outcome,
		Query:         fmt.Sprintf("%d mappings", mappings),
		Duration:      elapsed,
	}
	if err := r.journal.Record(ctx, rec); err != nil {
		r.logger.Warn("journal write failed", logging.Error(err))
	}
}
