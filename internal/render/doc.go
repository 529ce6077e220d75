// Package render screenshots slide HTML documents into PNG files with a
// headless Chrome driven by go-rod.
//
// The browser is launched on first use and reused across jobs. Every slide is
// drawn in its own incognito page so styles never leak between documents, and
// a carousel is rendered with bounded parallelism.
package render
