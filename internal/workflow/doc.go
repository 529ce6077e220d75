// Package workflow advances generation jobs through the configured stages.
//
// The Manager polls the job store, reclaims stale work via heartbeats, and
// feeds jobs into the registered stage handlers (writer, describer,
// illustrator, exporter, deliverer) while capturing progress and failure
// metadata. Failures refund the daily quota the job consumed and tell the
// bot user what happened. The manager also aggregates job stats, calls stage
// health checks, and emits queue-level notifications when work starts or
// drains.
//
// Two lanes run independently: text (carousel writing and scene
// description, bound by the LLM) and media (image generation, rendering,
// delivery). A render-only job created by a Mini App edit enters the media
// lane directly, so edits do not wait behind new prompts.
package workflow
