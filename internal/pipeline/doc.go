// Package pipeline implements the stage handlers that turn a prompt into a
// finished carousel.
//
// Writer asks the LLM for slide text, Describer turns slides into scene
// briefs for Photo Mode, Illustrator generates one image per slide with
// Gemini, Exporter renders the slide templates to PNG, and Deliverer hands
// the result to the user. Each handler implements stage.Handler; the
// workflow manager moves jobs between their statuses, persists progress and
// keeps heartbeats alive while a handler runs.
//
// Jobs without Photo Mode pass through Describer and Illustrator untouched.
// Illustrator never fails a job because of one slide: a slide whose image
// could not be produced carries a textual placeholder instead.
package pipeline
