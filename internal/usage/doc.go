// Package usage enforces the per-day generation quotas of the free and pro
// tiers.
//
// Counters are keyed by UTC day, so a new day starts at zero without any
// reset job. Consume checks and increments in one store transaction; callers
// that later fail to produce a carousel give the generation back with Refund.
package usage
