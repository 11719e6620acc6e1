// Package resultcache persists per-app lookup outcomes with
// stale-while-revalidate semantics.
//
// Every lookup outcome is cached, success and confirmed miss alike. Reads
// report staleness against a fixed TTL, with one deliberate exception: a
// miss entry is always stale regardless of age, so a later manual-override
// addition or upstream correction is picked up without waiting out the TTL.
// Writes replace whole entries; nothing is deleted automatically short of
// an explicit Clear.
package resultcache
