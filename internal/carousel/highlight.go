package carousel

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

const (
	highlightOpen  = "<hl>"
	highlightClose = "</hl>"
)

// Segment is a run of text that is either highlighted or plain.
type Segment struct {
	Text      string `json:"text"`
	Highlight bool   `json:"highlight"`
}

var (
	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	markupPolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowNoAttrs().OnElements("hl")
		markupPolicy = p
	})
	return markupPolicy
}

// ParseHighlights splits text into plain and highlighted segments using the
// <hl>…</hl> markup. Any other HTML is stripped. An unclosed <hl> highlights
// to the end of the text and a stray </hl> is dropped. Adjacent segments with
// the same highlight state are merged and empty segments are omitted.
func ParseHighlights(text string) []Segment {
	clean := policy().Sanitize(text)

	var (
		segments    []Segment
		highlighted bool
	)
	appendText := func(raw string) {
		if raw == "" {
			return
		}
		value := html.UnescapeString(raw)
		if n := len(segments); n > 0 && segments[n-1].Highlight == highlighted {
			segments[n-1].Text += value
			return
		}
		segments = append(segments, Segment{Text: value, Highlight: highlighted})
	}

	rest := clean
	for rest != "" {
		idx := strings.Index(rest, "<")
		if idx < 0 {
			appendText(rest)
			break
		}
		appendText(rest[:idx])
		rest = rest[idx:]
		lower := strings.ToLower(rest)
		switch {
		case strings.HasPrefix(lower, highlightOpen):
			highlighted = true
			rest = rest[len(highlightOpen):]
		case strings.HasPrefix(lower, highlightClose):
			highlighted = false
			rest = rest[len(highlightClose):]
		default:
			appendText("<")
			rest = rest[1:]
		}
	}
	return segments
}

// PlainText returns the text with all markup removed.
func PlainText(text string) string {
	var b strings.Builder
	for _, seg := range ParseHighlights(text) {
		b.WriteString(seg.Text)
	}
	return b.String()
}
