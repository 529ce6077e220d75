// Package api defines wire-format types, converters and the shared carousel
// service used by the HTTP API, the Telegram bot and the CLI.
//
// # Key Types
//
// Carousel: transport representation of a generation job with progress,
// slides and format settings.
//
// WorkflowStatus: daemon running state, job stats, stage health and last job.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Services
//
// CarouselService: creates generation jobs behind the usage guard and turns
// slide edits into render-only jobs.
//
// JobService: read and maintenance operations over the job store returning
// DTOs.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for the Mini App. Internal enums (store.Status,
// store.Source) are exposed as lowercase strings. Timestamps use RFC3339 with
// milliseconds.
package api
