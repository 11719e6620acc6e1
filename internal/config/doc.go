// Package config loads and validates playtime configuration.
//
// Configuration is resolved in three layers: compiled defaults, an optional
// TOML file (~/.config/playtime/config.toml or ./playtime.toml), and
// PLAYTIME_-prefixed environment variable overrides. The loaded value is
// normalized (path expansion, URL trimming) and validated before use; an
// invalid configuration is a startup error, never a runtime condition.
package config
