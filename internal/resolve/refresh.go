package resolve

import (
	"context"
	"time"

	"playtime/internal/hltb"
	"playtime/internal/journal"
	"playtime/internal/logging"
	"playtime/internal/services"
)

// Refresh tracks one background revalidation of a stale cache entry.
// Result is valid once Done is closed; Wait blocks for it.
type Refresh struct {
	storefrontID int64
	done         chan struct{}
	record       *hltb.GameRecord
	err          error
}

func (f *Refresh) StorefrontID() int64 {
	return f.storefrontID
}

// Done is closed when the refresh has finished and its result, if any,
// has been written to the cache.
func (f *Refresh) Done() <-chan struct{} {
	return f.done
}

// Result reports the refreshed record. A confirmed miss yields (nil, nil).
// Callers must wait on Done first; Wait combines the two.
func (f *Refresh) Result() (*hltb.GameRecord, error) {
	return f.record, f.err
}

func (f *Refresh) Wait(ctx context.Context) (*hltb.GameRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.record, f.err
	}
}

// startRefresh begins revalidating a stale entry, deduplicating against an
// already in-flight refresh for the same app. The work runs detached from
// the triggering call's context: serving stale data must not tie the
// revalidation's lifetime to a request that has already returned.
func (r *Resolver) startRefresh(ctx context.Context, storefrontID int64) *Refresh {
	r.mu.Lock()
	if existing, ok := r.inflight[storefrontID]; ok {
		r.mu.Unlock()
		return existing
	}
	refresh := &Refresh{storefrontID: storefrontID, done: make(chan struct{})}
	r.inflight[storefrontID] = refresh
	r.mu.Unlock()

	background := context.Background()
	if correlationID, ok := services.CorrelationIDFromContext(ctx); ok {
		background = services.WithCorrelationID(background, correlationID)
	}

	go r.runRefresh(background, refresh)
	return refresh
}

func (r *Resolver) runRefresh(ctx context.Context, refresh *Refresh) {
	start := time.Now()
	storefrontID := refresh.storefrontID
	record, query, err := r.lookup(ctx, storefrontID)

	switch {
	case err == nil:
		if storeErr := r.results.Store(storefrontID, record); storeErr != nil {
			r.ctxLogger(ctx).Warn("refresh result not persisted",
				logging.Int64(logging.FieldStorefrontID, storefrontID),
				logging.Error(storeErr))
		}
		refresh.record = record
		r.recordJournal(ctx, storefrontID, record, journal.OutcomeHit, query, time.Since(start))
	case services.IsMiss(err):
		// A confirmed miss replaces the stale entry too.
		if storeErr := r.results.Store(storefrontID, nil); storeErr != nil {
			r.ctxLogger(ctx).Warn("refresh miss not persisted",
				logging.Int64(logging.FieldStorefrontID, storefrontID),
				logging.Error(storeErr))
		}
		r.recordJournal(ctx, storefrontID, nil, journal.OutcomeMiss, query, time.Since(start))
	default:
		// Operational failure: keep the stale entry, surface the error to
		// anyone waiting on the handle.
		refresh.err = err
		r.ctxLogger(ctx).Warn("background refresh failed",
			logging.Int64(logging.FieldStorefrontID, storefrontID),
			logging.Error(err))
		r.recordJournal(ctx, storefrontID, nil, journal.OutcomeError, query, time.Since(start))
	}

	if current := r.Current(); current != 0 && current != storefrontID {
		r.ctxLogger(ctx).Debug("refresh completed after navigation",
			logging.Int64(logging.FieldStorefrontID, storefrontID),
			logging.Int64("current_id", current))
	}

	r.mu.Lock()
	delete(r.inflight, storefrontID)
	r.mu.Unlock()
	close(refresh.done)
}
