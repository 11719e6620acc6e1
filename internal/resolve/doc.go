// Package resolve implements the game identity resolution engine: given a
// storefront app ID, produce the catalog's completion-time record.
//
// A resolution consults, in order: the result cache (with stale-while-
// revalidate semantics), the bulk-imported ID mapping cache (direct fetch,
// correct by construction), and finally the fuzzy name-search path. The
// name path is an ordered, short-circuiting strategy chain: the manual
// override title when one exists, otherwise the sanitized storefront title,
// then its simplified form. Candidates are scored with Levenshtein distance
// and selected under a length-proportional threshold; an exact title match
// wins immediately without any distance computation.
//
// Stale cache reads return immediately with the old value plus a Refresh
// handle for the in-flight background revalidation. The refreshed value is
// always written to the cache slot of the app it was started for, so a
// refresh resolving after the user navigated elsewhere can never clobber
// the currently displayed item.
package resolve
