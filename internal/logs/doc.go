// Package logs reads the daemon's run log for the CLI: last-N-lines
// snapshots, offset-based follow mode and per-job filtering of both the
// console and JSON log formats.
package logs
