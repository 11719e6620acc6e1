// Package daemon runs the long-lived resolution service: a single-instance
// process guarded by a file lock that exposes the resolver, the caches, and
// the lookup journal over a local HTTP API.
package daemon
