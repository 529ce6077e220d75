// Package promo turns a rendered carousel into a short promotional video.
//
// Slides are stitched into an H.264 MP4 slideshow with ffmpeg, each slide held
// for a fixed time with fade transitions. When enabled, the MP4 is re-encoded
// to AV1 with the drapto library for smaller uploads.
package promo
