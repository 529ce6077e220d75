// Package notifications pushes operator alerts to ntfy.
//
// Callers publish typed events (payment received, job failed, queue started
// or drained, test) with a free-form payload; the ntfy service formats title,
// message, tags and priority per event. Each category can be switched off in
// [notifications], and identical messages inside the dedup window are dropped
// so a flapping provider does not flood the topic. Without a topic the service
// is a no-op.
package notifications
