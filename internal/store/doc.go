// Package store persists Swipely state in SQLite: generation jobs, Telegram
// users and their subscription tier, daily usage counters, style presets,
// generation history and payments.
//
// Jobs follow the pipeline status enum; the Store provides heartbeat tracking,
// stuck-job recovery and retry transitions so the workflow manager can resume
// after crashes without extra bookkeeping. Usage counters are keyed by UTC date
// and incremented with a guarded UPDATE so concurrent requests cannot exceed a
// quota.
//
// Schema changes bump schemaVersion in schema.go; operators back up and
// recreate the database to adopt a new schema.
package store
