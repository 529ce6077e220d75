// Command swipely runs the carousel daemon and administers it.
//
// `swipely serve` starts the daemon in the foreground; `start`, `stop` and
// `restart` manage a detached instance. Job and user commands talk to a
// running daemon over its admin API when paths.api_token is set and fall
// back to the SQLite database otherwise.
package main
