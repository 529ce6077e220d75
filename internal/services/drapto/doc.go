// Package drapto wraps the Drapto Go library for AV1 re-encodes of promo
// videos.
//
// Drapto reports through a rich Reporter interface; the adapter here folds
// those callbacks into a flat ProgressUpdate stream (percent, stage, message)
// which is all the promo generator shows. Tests swap the Client interface for
// fakes so the real encoder never runs.
package drapto
