// Package services defines shared error classification and context helpers
// consumed by the catalog client, the resolver, and the HTTP API.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (transport, upstream, malformed, not-found, private source)
//     uniform across components.
//   - Context helpers that stamp per-lookup correlation identifiers for
//     logging and the lookup journal.
//
// Every failure in the resolution engine is recoverable: callers translate
// these markers into "no data available" outcomes rather than halting.
package services
