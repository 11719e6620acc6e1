// Package idcache persists the storefront-to-catalog ID mapping produced by
// bulk library imports.
//
// The cache is written once per import: Reconcile replaces the whole mapping
// set atomically and stamps it with the owning user and the import time.
// Between imports it is read-only. A mapping is only served when the acting
// user matches the stamped owner and the configured refresh cadence still
// considers the import fresh — either an absolute age ceiling ("max_age")
// or a mandatory re-import every process lifetime ("session").
package idcache
