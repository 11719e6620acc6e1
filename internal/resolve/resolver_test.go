package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"playtime/internal/config"
	"playtime/internal/hltb"
	"playtime/internal/idcache"
	"playtime/internal/journal"
	"playtime/internal/logging"
	"playtime/internal/overrides"
	"playtime/internal/resultcache"
	"playtime/internal/services"
)

type fakeCatalog struct {
	mu          sync.Mutex
	searchFn    func(query string) ([]hltb.SearchResult, error)
	searches    []string
	details     map[int64]hltb.GameRecord
	detailCalls []int64
	library     []hltb.LibraryMapping
	libraryErr  error
}

func (f *fakeCatalog) Search(_ context.Context, query string) ([]hltb.SearchResult, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(query)
}

func (f *fakeCatalog) GameDetail(_ context.Context, catalogID int64) (*hltb.GameRecord, error) {
	f.mu.Lock()
	f.detailCalls = append(f.detailCalls, catalogID)
	f.mu.Unlock()
	record, ok := f.details[catalogID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "detail", fmt.Sprintf("game %d", catalogID), nil)
	}
	return &record, nil
}

func (f *fakeCatalog) UserLibrary(context.Context, int64) ([]hltb.LibraryMapping, error) {
	if f.libraryErr != nil {
		return nil, f.libraryErr
	}
	return f.library, nil
}

func (f *fakeCatalog) searchQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *fakeCatalog) detailCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.detailCalls)
}

type fakeNames struct {
	mu    sync.Mutex
	names map[int64]string
	calls int
}

func (f *fakeNames) AppName(_ context.Context, appID int64) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	name, ok := f.names[appID]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "storefront", "appdetails", fmt.Sprintf("app %d", appID), nil)
	}
	return name, nil
}

func (f *fakeNames) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type resolverFixture struct {
	catalog *fakeCatalog
	names   *fakeNames
	ids     *idcache.Cache
	results *resultcache.Cache
	dir     string
}

func newFixture(t *testing.T, resultTTL time.Duration) *resolverFixture {
	t.Helper()
	dir := t.TempDir()
	return &resolverFixture{
		catalog: &fakeCatalog{},
		names:   &fakeNames{names: make(map[int64]string)},
		ids:     idcache.NewCache(filepath.Join(dir, "ids.json"), config.RefreshPolicyMaxAge, 7*24*time.Hour, logging.NewNop()),
		results: resultcache.NewCache(filepath.Join(dir, "results.json"), resultTTL, logging.NewNop()),
		dir:     dir,
	}
}

func (fx *resolverFixture) resolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	table, err := overrides.Load("", logging.NewNop())
	if err != nil {
		t.Fatalf("load empty overrides: %v", err)
	}
	return fx.resolverWithOverrides(t, table, opts...)
}

func (fx *resolverFixture) resolverWithOverrides(t *testing.T, table *overrides.Table, opts ...Option) *Resolver {
	t.Helper()
	resolver, err := New(fx.catalog, fx.names, table, fx.ids, fx.results, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func singleResult(id int64, title string) []hltb.SearchResult {
	return []hltb.SearchResult{{Record: hltb.GameRecord{ID: id, Title: title, MainHours: 20}}}
}

func TestResolveExactMatchShortCircuits(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.names.names[1145360] = "Hades™"
	fx.catalog.searchFn = func(query string) ([]hltb.SearchResult, error) {
		return []hltb.SearchResult{
			{Record: hltb.GameRecord{ID: 2, Title: "Hades II"}},
			{Record: hltb.GameRecord{ID: 1, Title: "Hades", MainHours: 21.5}},
		}, nil
	}
	resolver := fx.resolver(t)

	outcome, err := resolver.Resolve(context.Background(), 1145360)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record == nil || outcome.Record.Title != "Hades" {
		t.Fatalf("expected exact match on Hades, got %+v", outcome.Record)
	}
	if queries := fx.catalog.searchQueries(); len(queries) != 1 || queries[0] != "Hades" {
		t.Fatalf("expected one sanitized search, got %v", queries)
	}
	if fx.catalog.detailCallCount() != 0 {
		t.Fatal("exact match must not trigger verification round trips")
	}
}

func TestResolveFallsBackToSimplifiedTitle(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.names.names[211420] = "DARK SOULS™: Prepare To Die Edition"
	fx.catalog.searchFn = func(query string) ([]hltb.SearchResult, error) {
		if strings.EqualFold(query, "dark souls") {
			return singleResult(2224, "Dark Souls"), nil
		}
		return nil, nil
	}
	resolver := fx.resolver(t)

	outcome, err := resolver.Resolve(context.Background(), 211420)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record == nil || outcome.Record.ID != 2224 {
		t.Fatalf("expected match via simplified title, got %+v", outcome.Record)
	}
	queries := fx.catalog.searchQueries()
	if len(queries) != 2 {
		t.Fatalf("expected sanitized + simplified searches, got %v", queries)
	}
	if queries[1] != "DARK SOULS" {
		t.Fatalf("expected simplified query, got %q", queries[1])
	}
	if outcome.SearchedName != "DARK SOULS" {
		t.Fatalf("expected searched name from winning strategy, got %q", outcome.SearchedName)
	}
}

func TestResolveOverrideBypassesStorefront(t *testing.T) {
	fx := newFixture(t, time.Hour)
	path := filepath.Join(fx.dir, "overrides.json")
	payload := `[{"app_id": 1004640, "title": "Final Fantasy Tactics: The Ivalice Chronicles"}]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	table, err := overrides.Load(path, logging.NewNop())
	if err != nil {
		t.Fatalf("load overrides: %v", err)
	}
	fx.catalog.searchFn = func(query string) ([]hltb.SearchResult, error) {
		return singleResult(152558, "Final Fantasy Tactics: The Ivalice Chronicles"), nil
	}
	resolver := fx.resolverWithOverrides(t, table)

	outcome, err := resolver.Resolve(context.Background(), 1004640)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record == nil || outcome.Record.ID != 152558 {
		t.Fatalf("expected override match, got %+v", outcome.Record)
	}
	if fx.names.callCount() != 0 {
		t.Fatal("override must not fetch the storefront title")
	}
	queries := fx.catalog.searchQueries()
	if len(queries) != 1 || queries[0] != "Final Fantasy Tactics: The Ivalice Chronicles" {
		t.Fatalf("override title must be searched verbatim, got %v", queries)
	}
}

func TestResolvePrefersImportedMapping(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.catalog.library = []hltb.LibraryMapping{{StorefrontID: 620, CatalogID: 4386}}
	fx.catalog.details = map[int64]hltb.GameRecord{
		4386: {ID: 4386, Title: "Portal 2", MainHours: 8.5, SteamAppID: 620},
	}
	resolver := fx.resolver(t)

	imported, err := resolver.ImportLibrary(context.Background(), 77)
	if err != nil || !imported {
		t.Fatalf("import: imported=%v err=%v", imported, err)
	}
	outcome, err := resolver.Resolve(context.Background(), 620)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record == nil || outcome.Record.ID != 4386 {
		t.Fatalf("expected direct fetch via mapping, got %+v", outcome.Record)
	}
	if queries := fx.catalog.searchQueries(); len(queries) != 0 {
		t.Fatalf("mapped app must never hit name search, got %v", queries)
	}
	if fx.names.callCount() != 0 {
		t.Fatal("mapped app must not fetch the storefront title")
	}
}

func TestResolvePersistedMappingSurvivesRestart(t *testing.T) {
	fx := newFixture(t, time.Hour)
	if err := fx.ids.Reconcile(map[int64]int64{620: 4386}, 77); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// A new process rebuilds everything from disk and knows nothing about
	// the importing user beyond what the blob records.
	fx.ids = idcache.NewCache(filepath.Join(fx.dir, "ids.json"), config.RefreshPolicyMaxAge, 7*24*time.Hour, logging.NewNop())
	fx.catalog.details = map[int64]hltb.GameRecord{
		4386: {ID: 4386, Title: "Portal 2", MainHours: 8.5, SteamAppID: 620},
	}
	resolver := fx.resolver(t)

	if resolver.ActingUser() != 77 {
		t.Fatalf("ActingUser = %d, want the persisted owner", resolver.ActingUser())
	}
	outcome, err := resolver.Resolve(context.Background(), 620)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record == nil || outcome.Record.ID != 4386 {
		t.Fatalf("expected direct fetch via reloaded mapping, got %+v", outcome.Record)
	}
	if queries := fx.catalog.searchQueries(); len(queries) != 0 {
		t.Fatalf("reloaded mapping must never hit name search, got %v", queries)
	}
	if fx.names.callCount() != 0 {
		t.Fatal("reloaded mapping must not fetch the storefront title")
	}
}

func TestResolveCachesConfirmedMiss(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.names.names[999] = "Obscure Visual Novel"
	resolver := fx.resolver(t)

	outcome, err := resolver.Resolve(context.Background(), 999)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record != nil {
		t.Fatalf("expected confirmed miss, got %+v", outcome.Record)
	}
	if outcome.SearchedName != "Obscure Visual Novel" {
		t.Fatalf("miss must carry the searched name, got %q", outcome.SearchedName)
	}

	// A cached miss is served immediately but is always considered stale,
	// so a background recheck starts every time it is viewed.
	again, err := resolver.Resolve(context.Background(), 999)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !again.FromCache || again.Record != nil {
		t.Fatalf("expected cached miss, got fromCache=%v record=%+v", again.FromCache, again.Record)
	}
	if again.Refresh == nil {
		t.Fatal("cached miss must start a background recheck")
	}
	if record, err := again.Refresh.Wait(context.Background()); err != nil || record != nil {
		t.Fatalf("recheck should confirm the miss, got record=%+v err=%v", record, err)
	}
}

func TestResolveDoesNotCacheOperationalFailures(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.names.names[440] = "Team Fortress 2"
	fx.catalog.searchFn = func(string) ([]hltb.SearchResult, error) {
		return nil, services.Wrap(services.ErrTransport, "catalog", "search", "connection refused", nil)
	}
	resolver := fx.resolver(t)

	if _, err := resolver.Resolve(context.Background(), 440); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), 440); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error on retry, got %v", err)
	}
	if got := len(fx.catalog.searchQueries()); got != 2 {
		t.Fatalf("failures must not be cached, got %d searches", got)
	}
}

func TestResolveServesStaleAndRefreshes(t *testing.T) {
	fx := newFixture(t, time.Nanosecond)
	fx.names.names[413150] = "Stardew Valley"
	if err := fx.results.Store(413150, &hltb.GameRecord{ID: 42066, Title: "Stardew Valley", MainHours: 52}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	fx.catalog.searchFn = func(query string) ([]hltb.SearchResult, error) {
		return []hltb.SearchResult{{Record: hltb.GameRecord{ID: 42066, Title: "Stardew Valley", MainHours: 53.5}}}, nil
	}
	resolver := fx.resolver(t)
	time.Sleep(time.Millisecond)

	outcome, err := resolver.Resolve(context.Background(), 413150)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !outcome.FromCache || outcome.Record == nil || outcome.Record.MainHours != 52 {
		t.Fatalf("expected stale data served immediately, got %+v", outcome)
	}
	if outcome.Refresh == nil {
		t.Fatal("stale serve must start a background refresh")
	}

	refreshed, err := outcome.Refresh.Wait(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed == nil || refreshed.MainHours != 53.5 {
		t.Fatalf("expected refreshed hours, got %+v", refreshed)
	}
	entry, ok := fx.results.Lookup(413150)
	if !ok || entry.Record == nil || entry.Record.MainHours != 53.5 {
		t.Fatalf("refresh must replace the cached entry, got %+v", entry)
	}
}

func TestRefreshWritesToItsOwnSlot(t *testing.T) {
	fx := newFixture(t, time.Nanosecond)
	fx.names.names[413150] = "Stardew Valley"
	fx.names.names[504230] = "Celeste"
	if err := fx.results.Store(413150, &hltb.GameRecord{ID: 42066, Title: "Stardew Valley", MainHours: 52}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	release := make(chan struct{})
	fx.catalog.searchFn = func(query string) ([]hltb.SearchResult, error) {
		switch query {
		case "Stardew Valley":
			<-release
			return singleResult(42066, "Stardew Valley"), nil
		case "Celeste":
			return singleResult(42986, "Celeste"), nil
		default:
			return nil, nil
		}
	}
	resolver := fx.resolver(t)
	time.Sleep(time.Millisecond)

	stale, err := resolver.Resolve(context.Background(), 413150)
	if err != nil {
		t.Fatalf("resolve stale: %v", err)
	}
	if stale.Refresh == nil {
		t.Fatal("expected refresh handle")
	}

	// Navigate away while the refresh is blocked upstream.
	fresh, err := resolver.Resolve(context.Background(), 504230)
	if err != nil {
		t.Fatalf("resolve after navigation: %v", err)
	}
	if fresh.Record == nil || fresh.Record.ID != 42986 {
		t.Fatalf("expected fresh resolution for new app, got %+v", fresh.Record)
	}
	close(release)
	if _, err := stale.Refresh.Wait(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	first, ok := fx.results.Lookup(413150)
	if !ok || first.Record == nil || first.Record.ID != 42066 {
		t.Fatalf("refresh landed in the wrong slot: %+v", first)
	}
	second, ok := fx.results.Lookup(504230)
	if !ok || second.Record == nil || second.Record.ID != 42986 {
		t.Fatalf("navigated app entry clobbered: %+v", second)
	}
}

func TestResolveDeduplicatesInflightRefreshes(t *testing.T) {
	fx := newFixture(t, time.Nanosecond)
	fx.names.names[413150] = "Stardew Valley"
	if err := fx.results.Store(413150, &hltb.GameRecord{ID: 42066, Title: "Stardew Valley"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	release := make(chan struct{})
	fx.catalog.searchFn = func(string) ([]hltb.SearchResult, error) {
		<-release
		return singleResult(42066, "Stardew Valley"), nil
	}
	resolver := fx.resolver(t)
	time.Sleep(time.Millisecond)

	first, err := resolver.Resolve(context.Background(), 413150)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), 413150)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first.Refresh == nil || second.Refresh == nil || first.Refresh != second.Refresh {
		t.Fatal("concurrent stale serves must share one refresh")
	}
	close(release)
	if _, err := first.Refresh.Wait(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := len(fx.catalog.searchQueries()); got != 1 {
		t.Fatalf("expected a single upstream search, got %d", got)
	}
}

func TestResolveVerifiesAmbiguousContenders(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.names.names[48000] = "Limbo"
	fx.catalog.searchFn = func(string) ([]hltb.SearchResult, error) {
		return []hltb.SearchResult{
			{Record: hltb.GameRecord{ID: 100, Title: "Limbos"}},
			{Record: hltb.GameRecord{ID: 200, Title: "Limbo2"}},
		}, nil
	}
	fx.catalog.details = map[int64]hltb.GameRecord{
		100: {ID: 100, Title: "Limbos", SteamAppID: 999},
		200: {ID: 200, Title: "Limbo2", MainHours: 3.5, SteamAppID: 48000},
	}
	resolver := fx.resolver(t)

	outcome, err := resolver.Resolve(context.Background(), 48000)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if outcome.Record == nil || outcome.Record.ID != 200 {
		t.Fatalf("expected storefront-verified candidate, got %+v", outcome.Record)
	}
}

func TestImportLibraryPrivateKeepsExistingMappings(t *testing.T) {
	fx := newFixture(t, time.Hour)
	if err := fx.ids.Reconcile(map[int64]int64{620: 4386}, 77); err != nil {
		t.Fatalf("seed mappings: %v", err)
	}
	fx.catalog.libraryErr = services.Wrap(services.ErrPrivateSource, "catalog", "library", "user 77", nil)
	resolver := fx.resolver(t, WithUser(77))

	imported, err := resolver.ImportLibrary(context.Background(), 77)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported {
		t.Fatal("private library must report no import")
	}
	if !fx.ids.Valid(77) {
		t.Fatal("private library must not invalidate existing mappings")
	}
}

func TestImportJournalRecordsMappingCount(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.catalog.library = []hltb.LibraryMapping{{StorefrontID: 620, CatalogID: 4386}}
	store, err := journal.Open(filepath.Join(fx.dir, "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()
	resolver := fx.resolver(t, WithJournal(store))

	if _, err := resolver.ImportLibrary(context.Background(), 77); err != nil {
		t.Fatalf("import: %v", err)
	}
	records, err := store.Recent(context.Background(), 1)
	if err != nil || len(records) != 1 {
		t.Fatalf("Recent = %d records, err %v", len(records), err)
	}
	rec := records[0]
	if rec.Outcome != journal.OutcomeImport || rec.StorefrontID != 77 {
		t.Fatalf("unexpected import row: %+v", rec)
	}
	if rec.CatalogID != 0 {
		t.Fatalf("import row must not carry a catalog id, got %d", rec.CatalogID)
	}
	if rec.Query != "1 mappings" {
		t.Fatalf("Query = %q, want the mapping count", rec.Query)
	}
}

func TestResolveLogsCorrelationID(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.names.names[1145360] = "Hades"
	fx.catalog.searchFn = func(string) ([]hltb.SearchResult, error) {
		return singleResult(1, "Hades"), nil
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	table, err := overrides.Load("", logging.NewNop())
	if err != nil {
		t.Fatalf("load empty overrides: %v", err)
	}
	resolver, err := New(fx.catalog, fx.names, table, fx.ids, fx.results, logger)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	ctx := services.WithCorrelationID(context.Background(), "corr-1234")
	if _, err := resolver.Resolve(ctx, 1145360); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(buf.String(), "correlation_id=corr-1234") {
		t.Fatalf("expected correlation id in log output, got:\n%s", buf.String())
	}
}

func TestResolveRejectsNonPositiveID(t *testing.T) {
	fx := newFixture(t, time.Hour)
	resolver := fx.resolver(t)

	if _, err := resolver.Resolve(context.Background(), 0); !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
