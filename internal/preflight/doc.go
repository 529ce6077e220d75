// Package preflight provides readiness checks for the external services,
// binaries and directories Swipely depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failing check, so a
//     missing bot token or unwritable output directory is visible before the
//     first user hits it.
//   - The CLI "swipely status" command uses the individual check functions
//     to display service health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
