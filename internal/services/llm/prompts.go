package llm

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const carouselSystemPrompt = `You write Instagram carousel copy.

Return JSON only, in this exact shape:
{"slides":[{"type":"hook|content|cta","title":"...","content":"..."}]}

Rules:
- The first slide is a "hook": a short, scroll-stopping title and at most one supporting sentence.
- Middle slides are "content": one idea per slide, a title under 8 words and 1-3 short sentences.
- The last slide is a "cta": ask the reader to save, share, follow or comment.
- Wrap the one or two most important words of a title in <hl>...</hl>. Use no other markup.
- No emoji in titles. No hashtags. No numbering in titles.
- Write every slide in the requested language.`

const scenesSystemPrompt = `You turn carousel slides into illustration briefs for an image model.

Return JSON only, in this exact shape:
{"scenes":["...","..."]}

Rules:
- Exactly one scene per slide, in slide order.
- Each scene is one or two English sentences describing a single visual moment: subject, action, setting, lighting.
- Keep the same main character across every scene. Describe their look consistently.
- No text, letters, logos or captions inside the image.`

// languageName renders a BCP 47 code as an English language name for prompts.
// Unknown codes fall back to English.
func languageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "English"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "English"
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return "English"
}

func carouselUserPrompt(req CarouselRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Prompt)
	fmt.Fprintf(&b, "Slides: exactly %d\n", req.SlideCount)
	fmt.Fprintf(&b, "Language: %s\n", languageName(req.Language))
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&b, "Visual style of the carousel (match the voice to it): %s\n", tone)
	}
	return b.String()
}

func scenesUserPrompt(slides []slideText, characterHint string) string {
	var b strings.Builder
	if hint := strings.TrimSpace(characterHint); hint != "" {
		fmt.Fprintf(&b, "Main character: %s\n\n", hint)
	}
	fmt.Fprintf(&b, "Slides (%d):\n", len(slides))
	for i, s := range slides {
		fmt.Fprintf(&b, "%d. %s | %s\n", i+1, s.Title, s.Content)
	}
	return b.String()
}
