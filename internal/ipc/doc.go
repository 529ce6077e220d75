// Package ipc is the CLI side of the daemon's admin HTTP API.
//
// The daemon serves /api/v1/admin on paths.api_bind behind paths.api_token.
// Dial resolves a loopback address for the bind, checks /healthz, and
// returns a Client whose calls carry the bearer token and fail fast when the
// daemon is offline. Commands that must work without a daemon fall back to
// the store through queueaccess.
package ipc
