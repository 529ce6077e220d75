package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Layout names a slide composition.
type Layout string

const (
	LayoutCentered Layout = "centered"
	LayoutSplit    Layout = "split"
	LayoutCard     Layout = "card"
	LayoutList     Layout = "list"
	LayoutPhoto    Layout = "photo"
	LayoutQuote    Layout = "quote"
)

// Highlight names how <hl> segments are drawn.
type Highlight string

const (
	HighlightMarker    Highlight = "marker"
	HighlightUnderline Highlight = "underline"
	HighlightColor     Highlight = "color"
	HighlightBox       Highlight = "box"
)

// Colors is a style palette.
type Colors struct {
	Background string `yaml:"background" json:"background"`
	Surface    string `yaml:"surface" json:"surface"`
	Text       string `yaml:"text" json:"text"`
	Muted      string `yaml:"muted" json:"muted"`
	Accent     string `yaml:"accent" json:"accent"`
}

// Fonts are CSS font-family stacks.
type Fonts struct {
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
}

// Style is one catalog entry.
type Style struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Layout      Layout    `yaml:"layout" json:"layout"`
	Highlight   Highlight `yaml:"highlight" json:"highlight"`
	Colors      Colors    `yaml:"colors" json:"colors"`
	Background  string    `yaml:"background,omitempty" json:"background,omitempty"`
	Fonts       Fonts     `yaml:"fonts" json:"fonts"`
	TitleWeight int       `yaml:"title_weight" json:"title_weight"`
	Uppercase   bool      `yaml:"uppercase,omitempty" json:"uppercase,omitempty"`
	Glow        bool      `yaml:"glow,omitempty" json:"glow,omitempty"`
	HardShadow  bool      `yaml:"hard_shadow,omitempty" json:"hard_shadow,omitempty"`
}

type catalogFile struct {
	Default string  `yaml:"default"`
	Styles  []Style `yaml:"styles"`
}

// Catalog is an ordered, read-only set of styles.
type Catalog struct {
	styles       []Style
	byID         map[string]int
	defaultStyle string
}

var (
	hexColor     = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	styleIDValid = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	cssUnsafe    = strings.NewReplacer("<", "", ">", "", "{", "", "}", "", ";", "", "\"", "", "\\", "")

	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogYAML)
	})
	return defaultCatalog, defaultErr
}

// MustDefault returns the embedded catalog and panics if it does not parse.
func MustDefault() *Catalog {
	catalog, err := Default()
	if err != nil {
		panic(err)
	}
	return catalog
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode style catalog: %w", err)
	}
	if len(file.Styles) == 0 {
		return nil, errors.New("style catalog is empty")
	}
	catalog := &Catalog{byID: make(map[string]int, len(file.Styles))}
	for i := range file.Styles {
		style := file.Styles[i]
		if err := style.validate(); err != nil {
			return nil, err
		}
		if style.TitleWeight == 0 {
			style.TitleWeight = 700
		}
		if _, dup := catalog.byID[style.ID]; dup {
			return nil, fmt.Errorf("style %q declared twice", style.ID)
		}
		catalog.byID[style.ID] = len(catalog.styles)
		catalog.styles = append(catalog.styles, style)
	}
	catalog.defaultStyle = strings.TrimSpace(file.Default)
	if catalog.defaultStyle == "" {
		catalog.defaultStyle = catalog.styles[0].ID
	}
	if _, ok := catalog.byID[catalog.defaultStyle]; !ok {
		return nil, fmt.Errorf("default style %q is not in the catalog", catalog.defaultStyle)
	}
	return catalog, nil
}

func (s Style) validate() error {
	if !styleIDValid.MatchString(s.ID) {
		return fmt.Errorf("style id %q is invalid", s.ID)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("style %s: name is required", s.ID)
	}
	switch s.Layout {
	case LayoutCentered, LayoutSplit, LayoutCard, LayoutList, LayoutPhoto, LayoutQuote:
	default:
		return fmt.Errorf("style %s: unknown layout %q", s.ID, s.Layout)
	}
	switch s.Highlight {
	case HighlightMarker, HighlightUnderline, HighlightColor, HighlightBox:
	default:
		return fmt.Errorf("style %s: unknown highlight %q", s.ID, s.Highlight)
	}
	for name, value := range map[string]string{
		"background": s.Colors.Background,
		"surface":    s.Colors.Surface,
		"text":       s.Colors.Text,
		"muted":      s.Colors.Muted,
		"accent":     s.Colors.Accent,
	} {
		if !hexColor.MatchString(value) {
			return fmt.Errorf("style %s: colors.%s %q is not a hex colour", s.ID, name, value)
		}
	}
	if s.Fonts.Title == "" || s.Fonts.Body == "" {
		return fmt.Errorf("style %s: fonts.title and fonts.body are required", s.ID)
	}
	return nil
}

// Get returns the style with the given id, or the default style when the id is unknown.
func (c *Catalog) Get(id string) Style {
	if idx, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]; ok {
		return c.styles[idx]
	}
	return c.styles[c.byID[c.defaultStyle]]
}

// Lookup reports whether id names a catalog style.
func (c *Catalog) Lookup(id string) (Style, bool) {
	idx, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Style{}, false
	}
	return c.styles[idx], true
}

// List returns styles in catalog order.
func (c *Catalog) List() []Style {
	out := make([]Style, len(c.styles))
	copy(out, c.styles)
	return out
}

// IDs returns style ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.styles))
	for i, style := range c.styles {
		ids[i] = style.ID
	}
	return ids
}

// DefaultID is the fallback style id.
func (c *Catalog) DefaultID() string {
	return c.defaultStyle
}

// IsHexColor reports whether value is a #rgb, #rrggbb or #rrggbbaa colour.
func IsHexColor(value string) bool {
	return hexColor.MatchString(value)
}
