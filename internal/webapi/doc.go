// Package webapi serves the HTTP API used by the Telegram Mini App and the
// web editor.
//
// Routes live under /api/v1. Users authenticate once with Mini App initData
// and then send the issued session token as a bearer token (or as the token
// query parameter on the websocket endpoint). Admin routes use the static
// api_token instead. /healthz and /readyz sit outside the versioned prefix.
package webapi
