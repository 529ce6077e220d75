// Package carousel defines the plain records that describe a carousel: slides,
// free-positioned text elements, output format settings, saved style presets
// and generation history entries.
//
// It also owns the two pieces of logic every front-end shares: slide count
// clamping and the <hl>…</hl> highlight markup parser used by the templates.
package carousel
