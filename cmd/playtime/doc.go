// Package main hosts the playtime CLI entrypoint and command graph.
//
// The Cobra-based command tree wires terminal invocations onto the
// resolution engine: one-shot lookups, bulk library imports, cache
// maintenance, journal inspection, configuration scaffolding, and the
// long-running daemon with its local HTTP API. It centralizes
// configuration resolution and structured logging setup so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
