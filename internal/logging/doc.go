// Package logging centralizes slog logger construction and the attribute
// helpers shared across the resolution engine.
//
// Loggers are built from config-driven options (level, format, optional log
// directory). Components derive their own logger with NewComponentLogger so
// every record carries a stable component attribute. Field name constants
// keep attribute keys consistent between the engine, the HTTP API, and the
// lookup journal.
package logging
