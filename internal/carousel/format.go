package carousel

import "strings"

// Format names an output aspect ratio.
type Format string

const (
	FormatSquare   Format = "square"
	FormatPortrait Format = "portrait"
	FormatStories  Format = "stories"
)

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int
	Height int
}

var formatDimensions = map[Format]Dimensions{
	FormatSquare:   {Width: 1080, Height: 1080},
	FormatPortrait: {Width: 1080, Height: 1350},
	FormatStories:  {Width: 1080, Height: 1920},
}

// AllFormats returns the supported formats in display order.
func AllFormats() []Format {
	return []Format{FormatSquare, FormatPortrait, FormatStories}
}

// ParseFormat accepts format names and the common ratio aliases.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "square", "1:1", "1x1":
		return FormatSquare, true
	case "portrait", "4:5", "4x5":
		return FormatPortrait, true
	case "stories", "story", "9:16", "9x16":
		return FormatStories, true
	default:
		return "", false
	}
}

// Dimensions returns the pixel size of the format, defaulting to square.
func (f Format) Dimensions() Dimensions {
	if d, ok := formatDimensions[f]; ok {
		return d
	}
	return formatDimensions[FormatSquare]
}

// AspectRatio returns the ratio string image models expect.
func (f Format) AspectRatio() string {
	switch f {
	case FormatPortrait:
		return "4:5"
	case FormatStories:
		return "9:16"
	default:
		return "1:1"
	}
}

// FormatSettings controls how slides are laid out on export.
type FormatSettings struct {
	Format           Format  `json:"format"`
	ShowSlideNumbers bool    `json:"show_slide_numbers"`
	ShowHandle       bool    `json:"show_handle"`
	Handle           string  `json:"handle,omitempty"`
	FontScale        float64 `json:"font_scale,omitempty"`

	// Character is an optional description of the recurring Photo Mode figure.
	Character string `json:"character,omitempty"`
}

// DefaultSettings returns square output with slide numbers.
func DefaultSettings() FormatSettings {
	return FormatSettings{Format: FormatSquare, ShowSlideNumbers: true, FontScale: 1}
}

// Normalize fills defaults and bounds the font scale.
func (s FormatSettings) Normalize() FormatSettings {
	if parsed, ok := ParseFormat(string(s.Format)); ok {
		s.Format = parsed
	} else {
		s.Format = FormatSquare
	}
	s.Handle = strings.TrimSpace(s.Handle)
	s.Character = strings.TrimSpace(s.Character)
	if s.Handle != "" && !strings.HasPrefix(s.Handle, "@") {
		s.Handle = "@" + s.Handle
	}
	if s.Handle == "" {
		s.ShowHandle = false
	}
	switch {
	case s.FontScale <= 0:
		s.FontScale = 1
	case s.FontScale < 0.6:
		s.FontScale = 0.6
	case s.FontScale > 1.6:
		s.FontScale = 1.6
	}
	return s
}
