// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, Telegram user IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap and Details helpers that let the
//     bot, the HTTP API and the workflow manager classify failures the same way.
//
// Subpackages hold the outbound clients (OpenRouter, Gemini, Telegram, YooKassa,
// drapto). Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
