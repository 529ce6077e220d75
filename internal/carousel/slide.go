package carousel

import (
	"errors"
	"fmt"
	"strings"
)

// SlideType identifies the narrative role of a slide.
type SlideType string

const (
	SlideHook    SlideType = "hook"
	SlideContent SlideType = "content"
	SlideCTA     SlideType = "cta"
)

const (
	// MinSlides and MaxSlides bound every carousel regardless of configuration.
	MinSlides = 3
	MaxSlides = 15

	maxTitleRunes   = 160
	maxContentRunes = 900
	maxElements     = 12
)

// ParseSlideType converts a loose string into a known SlideType.
func ParseSlideType(value string) (SlideType, bool) {
	switch SlideType(strings.ToLower(strings.TrimSpace(value))) {
	case SlideHook:
		return SlideHook, true
	case SlideContent:
		return SlideContent, true
	case SlideCTA:
		return SlideCTA, true
	default:
		return "", false
	}
}

// Slide is one page of a carousel.
type Slide struct {
	Type             SlideType     `json:"type"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	ImagePrompt      string        `json:"image_prompt,omitempty"`
	ImagePath        string        `json:"image_path,omitempty"`
	ImagePlaceholder string        `json:"image_placeholder,omitempty"`
	Elements         []TextElement `json:"elements,omitempty"`
}

// HasImage reports whether the slide carries a generated picture.
func (s Slide) HasImage() bool {
	return strings.TrimSpace(s.ImagePath) != ""
}

// TextElement is a free text block the editor lets users drag around the slide.
// X and Y are percentages of the slide width and height.
type TextElement struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize int     `json:"font_size,omitempty"`
	Color    string  `json:"color,omitempty"`
	Align    string  `json:"align,omitempty"`
}

// Clamp keeps the element inside the slide and normalizes styling fields.
func (e *TextElement) Clamp() {
	e.X = clampPercent(e.X)
	e.Y = clampPercent(e.Y)
	e.Text = strings.TrimSpace(e.Text)
	if e.FontSize <= 0 {
		e.FontSize = 32
	}
	if e.FontSize > 160 {
		e.FontSize = 160
	}
	switch strings.ToLower(strings.TrimSpace(e.Align)) {
	case "left", "right", "center":
		e.Align = strings.ToLower(strings.TrimSpace(e.Align))
	default:
		e.Align = "center"
	}
}

func clampPercent(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// ClampSlideCount bounds a requested slide count. Bounds outside the global
// MinSlides..MaxSlides range are tightened to it.
func ClampSlideCount(n, lower, upper int) int {
	if lower < MinSlides {
		lower = MinSlides
	}
	if upper <= 0 || upper > MaxSlides {
		upper = MaxSlides
	}
	if upper < lower {
		upper = lower
	}
	switch {
	case n < lower:
		return lower
	case n > upper:
		return upper
	default:
		return n
	}
}

// Normalize trims text, fills missing slide types and clamps text elements.
// The first slide defaults to a hook and, for carousels of three or more
// slides, the last defaults to a call to action.
func Normalize(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	for i, slide := range slides {
		slide.Title = truncateRunes(strings.TrimSpace(slide.Title), maxTitleRunes)
		slide.Content = truncateRunes(strings.TrimSpace(slide.Content), maxContentRunes)
		slide.ImagePrompt = strings.TrimSpace(slide.ImagePrompt)
		slide.ImagePlaceholder = strings.TrimSpace(slide.ImagePlaceholder)
		if parsed, ok := ParseSlideType(string(slide.Type)); ok {
			slide.Type = parsed
		} else {
			slide.Type = defaultType(i, len(slides))
		}
		if len(slide.Elements) > maxElements {
			slide.Elements = slide.Elements[:maxElements]
		}
		elements := make([]TextElement, 0, len(slide.Elements))
		for j, el := range slide.Elements {
			el.Clamp()
			if el.Text == "" {
				continue
			}
			if strings.TrimSpace(el.ID) == "" {
				el.ID = fmt.Sprintf("el-%d-%d", i+1, j+1)
			}
			elements = append(elements, el)
		}
		if len(elements) == 0 {
			elements = nil
		}
		slide.Elements = elements
		out[i] = slide
	}
	return out
}

func defaultType(index, total int) SlideType {
	switch {
	case index == 0:
		return SlideHook
	case total >= MinSlides && index == total-1:
		return SlideCTA
	default:
		return SlideContent
	}
}

// Validate checks a carousel is renderable.
func Validate(slides []Slide) error {
	if len(slides) < MinSlides {
		return fmt.Errorf("carousel needs at least %d slides, got %d", MinSlides, len(slides))
	}
	if len(slides) > MaxSlides {
		return fmt.Errorf("carousel allows at most %d slides, got %d", MaxSlides, len(slides))
	}
	for i, slide := range slides {
		if strings.TrimSpace(slide.Title) == "" && strings.TrimSpace(slide.Content) == "" && len(slide.Elements) == 0 {
			return fmt.Errorf("slide %d is empty", i+1)
		}
	}
	return nil
}

// ErrEmptyPrompt is returned when a generation request carries no topic.
var ErrEmptyPrompt = errors.New("prompt is empty")

// MaxPromptRunes caps the topic sent to the LLM.
const MaxPromptRunes = 2000

// CleanPrompt trims a user prompt and rejects blank or oversized input.
func CleanPrompt(prompt string, maxRunes int) (string, error) {
	prompt = strings.Join(strings.Fields(prompt), " ")
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if maxRunes > 0 {
		prompt = truncateRunes(prompt, maxRunes)
	}
	return prompt, nil
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit]))
}
