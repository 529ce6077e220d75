package templates

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"swipely/internal/carousel"
)

//go:embed slide.html.tmpl
var slideTemplateSource string

var slideTemplate = template.Must(template.New("slide.html").Parse(slideTemplateSource))

// Document is everything needed to draw one slide.
type Document struct {
	Slide    carousel.Slide
	Index    int
	Total    int
	Style    Style
	Settings carousel.FormatSettings
	Lang     string
}

type elementView struct {
	ID       string
	Text     string
	X        float64
	Y        float64
	FontSize int
	Color    string
	Align    string
}

type slideView struct {
	Lang        string
	Width       int
	Height      int
	CSS         template.CSS
	Layout      Layout
	Type        carousel.SlideType
	PlainTitle  string
	Title       []carousel.Segment
	Content     [][]carousel.Segment
	Image       template.URL
	Placeholder string
	Elements    []elementView
	Number      string
	Handle      string
}

// Render produces a standalone HTML document for one slide. Slides that carry
// a generated image (or a placeholder for one) use the photo layout with the
// style's palette.
func Render(doc Document) (string, error) {
	settings := doc.Settings.Normalize()
	dims := settings.Format.Dimensions()
	style := doc.Style

	view := slideView{
		Lang:       strings.TrimSpace(doc.Lang),
		Width:      dims.Width,
		Height:     dims.Height,
		Layout:     style.Layout,
		Type:       doc.Slide.Type,
		PlainTitle: carousel.PlainText(doc.Slide.Title),
		Title:      carousel.ParseHighlights(doc.Slide.Title),
		Content:    contentLines(doc.Slide.Content),
	}
	if view.Lang == "" {
		view.Lang = "en"
	}
	if view.Type == "" {
		view.Type = carousel.SlideContent
	}
	switch {
	case doc.Slide.HasImage():
		uri, err := imageDataURI(doc.Slide.ImagePath)
		if err != nil {
			return "", err
		}
		view.Layout = LayoutPhoto
		view.Image = uri
	case strings.TrimSpace(doc.Slide.ImagePlaceholder) != "":
		view.Layout = LayoutPhoto
		view.Placeholder = doc.Slide.ImagePlaceholder
	}
	if settings.ShowSlideNumbers && doc.Total > 1 {
		view.Number = fmt.Sprintf("%d/%d", doc.Index+1, doc.Total)
	}
	if settings.ShowHandle {
		view.Handle = settings.Handle
	}
	scale := float64(dims.Width) / 1080 * settings.FontScale
	for _, el := range doc.Slide.Elements {
		el.Clamp()
		color := el.Color
		if !IsHexColor(color) {
			color = style.Colors.Text
		}
		view.Elements = append(view.Elements, elementView{
			ID:       el.ID,
			Text:     el.Text,
			X:        el.X,
			Y:        el.Y,
			FontSize: int(float64(el.FontSize) * scale),
			Color:    color,
			Align:    el.Align,
		})
	}
	view.CSS = stylesheet(style, view.Layout, doc.Slide, dims, settings.FontScale)

	var buf bytes.Buffer
	if err := slideTemplate.ExecuteTemplate(&buf, "slide", view); err != nil {
		return "", fmt.Errorf("render slide %d: %w", doc.Index+1, err)
	}
	return buf.String(), nil
}

// RenderAll renders every slide of a carousel with one style.
func RenderAll(slides []carousel.Slide, style Style, settings carousel.FormatSettings, lang string) ([]string, error) {
	docs := make([]string, 0, len(slides))
	for i, slide := range slides {
		html, err := Render(Document{Slide: slide, Index: i, Total: len(slides), Style: style, Settings: settings, Lang: lang})
		if err != nil {
			return nil, err
		}
		docs = append(docs, html)
	}
	return docs, nil
}

func contentLines(content string) [][]carousel.Segment {
	var lines [][]carousel.Segment
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•*"))
		if line == "" {
			continue
		}
		lines = append(lines, carousel.ParseHighlights(line))
	}
	return lines
}

func imageDataURI(path string) (template.URL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read slide image: %w", err)
	}
	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
	default:
		return "", fmt.Errorf("slide image %s has unsupported type %s", path, mime)
	}
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)), nil
}

func titleSize(slide carousel.Slide, layout Layout) float64 {
	size := 72.0
	switch slide.Type {
	case carousel.SlideHook:
		size = 96
	case carousel.SlideCTA:
		size = 80
	}
	switch layout {
	case LayoutPhoto, LayoutList:
		size *= 0.8
	case LayoutQuote:
		size *= 0.9
	}
	if n := utf8.RuneCountInString(carousel.PlainText(slide.Title)); n > 60 {
		size *= 0.75
	} else if n > 35 {
		size *= 0.88
	}
	return size
}

func stylesheet(style Style, layout Layout, slide carousel.Slide, dims carousel.Dimensions, fontScale float64) template.CSS {
	scale := float64(dims.Width) / 1080 * fontScale
	px := func(v float64) string { return fmt.Sprintf("%.0fpx", v*scale) }
	pad := float64(dims.Width) * 0.08

	c := style.Colors
	background := c.Background
	if style.Background != "" {
		background = cssUnsafe.Replace(style.Background)
	}
	transform := "none"
	if style.Uppercase {
		transform = "uppercase"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*{box-sizing:border-box;margin:0;padding:0}")
	fmt.Fprintf(&b, "html,body{width:%dpx;height:%dpx;overflow:hidden}", dims.Width, dims.Height)
	fmt.Fprintf(&b, "body{position:relative;background:%s;color:%s;font-family:%s;display:flex;flex-direction:column;-webkit-font-smoothing:antialiased}",
		background, c.Text, cssUnsafe.Replace(style.Fonts.Body))
	fmt.Fprintf(&b, ".title{font-family:%s;font-weight:%d;font-size:%s;line-height:1.1;text-transform:%s;letter-spacing:-0.01em}",
		cssUnsafe.Replace(style.Fonts.Title), style.TitleWeight, px(titleSize(slide, layout)), transform)
	fmt.Fprintf(&b, ".content,.items{font-size:%s;line-height:1.45;color:%s;margin-top:%s}", px(40), c.Muted, px(36))
	if style.Glow {
		fmt.Fprintf(&b, ".title{text-shadow:0 0 12px %s,0 0 32px %s}", c.Accent, c.Accent)
	}

	switch style.Highlight {
	case HighlightMarker:
		fmt.Fprintf(&b, ".hl{background:linear-gradient(transparent 58%%,%s 58%%);padding:0 .05em}", c.Accent)
	case HighlightUnderline:
		fmt.Fprintf(&b, ".hl{text-decoration:underline;text-decoration-color:%s;text-decoration-thickness:.12em;text-underline-offset:.14em}", c.Accent)
	case HighlightColor:
		fmt.Fprintf(&b, ".hl{color:%s}", c.Accent)
	case HighlightBox:
		fmt.Fprintf(&b, ".hl{background:%s;color:%s;padding:0 .15em;border-radius:.1em;box-decoration-break:clone;-webkit-box-decoration-break:clone}", c.Accent, c.Background)
	}

	switch layout {
	case LayoutSplit:
		fmt.Fprintf(&b, ".panel{flex:0 0 46%%;background:%s;color:%s;display:flex;align-items:flex-end;padding:%.0fpx}", c.Accent, c.Background, pad)
		fmt.Fprintf(&b, ".body{flex:1;padding:%.0fpx;border-top:%s solid %s}", pad, px(6), c.Text)
		fmt.Fprintf(&b, ".panel .hl{color:%s}", c.Text)
	case LayoutCard:
		fmt.Fprintf(&b, "body{align-items:center;justify-content:center}")
		shadow := "0 24px 60px rgba(0,0,0,.18)"
		border := "none"
		if style.HardShadow {
			shadow = fmt.Sprintf("%s %s 0 %s", px(16), px(16), c.Text)
			border = fmt.Sprintf("%s solid %s", px(6), c.Text)
		}
		fmt.Fprintf(&b, ".card{width:84%%;padding:%.0fpx;background:%s;border-radius:%s;box-shadow:%s;border:%s}", pad, c.Surface, px(32), shadow, border)
	case LayoutList:
		fmt.Fprintf(&b, ".body{padding:%.0fpx;display:flex;flex-direction:column;justify-content:center;flex:1}", pad)
		fmt.Fprintf(&b, ".items{padding-left:1.2em}.items li{margin-bottom:.5em}.items li::marker{color:%s;font-weight:700}", c.Accent)
	case LayoutPhoto:
		fmt.Fprintf(&b, ".photo{flex:0 0 58%%;margin:%.0fpx %.0fpx 0;background:%s;padding:%s %s %s;box-shadow:0 16px 40px rgba(0,0,0,.2)}",
			pad*0.6, pad*0.6, c.Surface, px(24), px(24), px(24))
		fmt.Fprintf(&b, ".photo img{width:100%%;height:100%%;object-fit:cover;display:block}")
		fmt.Fprintf(&b, ".placeholder{width:100%%;height:100%%;display:flex;align-items:center;justify-content:center;text-align:center;padding:%s;background:%s;color:%s;font-size:%s;font-style:italic}",
			px(48), c.Background, c.Muted, px(34))
		fmt.Fprintf(&b, ".body{flex:1;padding:%.0fpx %.0fpx;display:flex;flex-direction:column;justify-content:center}", pad*0.6, pad)
		fmt.Fprintf(&b, ".content{margin-top:%s}", px(18))
	case LayoutQuote:
		fmt.Fprintf(&b, ".body{flex:1;padding:%.0fpx;display:flex;flex-direction:column;justify-content:center}", pad*1.2)
		fmt.Fprintf(&b, ".mark{font-family:Georgia,serif;font-size:%s;line-height:.8;color:%s}", px(240), c.Accent)
		fmt.Fprintf(&b, ".content{font-style:italic}")
	default:
		fmt.Fprintf(&b, ".body{flex:1;padding:%.0fpx;display:flex;flex-direction:column;justify-content:center;align-items:center;text-align:center}", pad)
	}

	if slide.Type == carousel.SlideCTA && layout != LayoutPhoto {
		fmt.Fprintf(&b, ".type-cta .content{display:inline-block;margin-top:%s;padding:%s %s;border-radius:999px;background:%s;color:%s;font-weight:700}",
			px(48), px(20), px(40), c.Accent, c.Background)
	}

	fmt.Fprintf(&b, ".element{position:absolute;transform:translate(-50%%,-50%%);white-space:pre-wrap;max-width:90%%;font-weight:700}")
	fmt.Fprintf(&b, ".badge{position:absolute;bottom:%s;font-size:%s;color:%s;opacity:.85}", px(40), px(28), c.Muted)
	fmt.Fprintf(&b, ".number{right:%s}.handle{left:%s}", px(48), px(48))
	if layout == LayoutSplit {
		fmt.Fprintf(&b, ".number{top:%s;bottom:auto;color:%s}", px(40), c.Background)
	}
	return template.CSS(b.String())
}
