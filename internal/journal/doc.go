// Package journal persists a diagnostic record of every resolution the
// engine performs, backed by SQLite.
//
// The journal is strictly observational: the resolver works identically
// with it disabled, and journal write failures never fail a lookup. Its
// value is in diagnosing upstream API drift — a run of transport or
// malformed outcomes in `playtime history` is the first user-adjacent
// signal that the catalog rotated an endpoint.
package journal
