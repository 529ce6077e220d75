// Package daemon coordinates the long-running Swipely process.
//
// It wires configuration, job storage, the workflow manager, the HTTP API and
// the Telegram poller into a single lifecycle with flock-based locking to
// prevent multiple instances. Jobs left in a processing state by a previous
// run are returned to the start of their stage before the lanes begin.
//
// Keep orchestration logic here: generation steps live in the pipeline
// package and request handling in webapi and bot, while the daemon focuses on
// startup, shutdown and status reporting.
package daemon
