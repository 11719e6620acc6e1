// Package textutil provides title normalization and similarity helpers for
// name-based catalog matching.
//
// The primary use cases are:
//   - Sanitizing storefront titles (trademark glyphs, decorative punctuation)
//   - Simplifying sanitized titles by stripping edition/suffix qualifiers
//   - Computing case-insensitive Levenshtein distance between title pairs
//
// Simplify is only defined on sanitized input: callers must run Sanitize
// first. Levenshtein distance is the sole similarity metric used by the
// match selector.
package textutil
