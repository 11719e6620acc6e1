package resolve

import (
	"context"
	"errors"

	"playtime/internal/textutil"
)

// errSkipStrategy signals that a strategy produced nothing new to search
// for and the chain should move on without counting it as a failure.
var errSkipStrategy = errors.New("skip strategy")

type nameStrategy struct {
	name  string
	query func(ctx context.Context) (string, error)
}

// buildNameStrategies returns the ordered fallback chain for resolving an
// app by name. An override replaces the whole chain: its title is taken
// verbatim, with no storefront fetch and no sanitization. Otherwise the
// storefront title is fetched once, sanitized, and shared between the
// sanitized and simplified strategies.
func (r *Resolver) buildNameStrategies(storefrontID int64) []nameStrategy {
	if title, ok := r.overrides.Lookup(storefrontID); ok {
		return []nameStrategy{{
			name: "override",
			query: func(context.Context) (string, error) {
				return title, nil
			},
		}}
	}

	var sanitized string
	fetch := func(ctx context.Context) (string, error) {
		if sanitized != "" {
			return sanitized, nil
		}
		raw, err := r.names.AppName(ctx, storefrontID)
		if err != nil {
			return "", err
		}
		sanitized = textutil.Sanitize(raw)
		return sanitized, nil
	}

	return []nameStrategy{
		{name: "sanitized", query: fetch},
		{
			name: "simplified",
			query: func(ctx context.Context) (string, error) {
				base, err := fetch(ctx)
				if err != nil {
					return "", err
				}
				simplified := textutil.Simplify(base)
				if simplified == base {
					return "", errSkipStrategy
				}
				return simplified, nil
			},
		},
	}
}
