// Package config loads, normalizes, and validates Swipely configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and TELEGRAM_BOT_TOKEN. The Config type centralizes every
// knob the daemon and CLI need so credentials, quotas and output directories
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
