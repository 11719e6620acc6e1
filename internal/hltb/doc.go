// Package hltb implements the client for the completion-time catalog's
// private API.
//
// The API was never designed for third-party consumption: the search
// endpoint path and its access token rotate with the site's client bundle,
// and the direct-fetch endpoint embeds a build identifier that changes on
// every deploy. Session owns that discovery state process-wide and refreshes
// the token when it ages past a fixed validity window. Client performs the
// actual HTTP calls with a fixed timeout and classifies every outcome into
// the services error taxonomy at this boundary; untyped payloads never
// propagate past it. Retry policy belongs to callers — some failures, such
// as a private profile, are not transient.
package hltb
