package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"swipely/internal/carousel"
)

// ErrTooFewSlides is returned when the model produced fewer slides than requested.
var ErrTooFewSlides = errors.New("llm returned too few slides")

// ErrSceneCount is returned when scene descriptions do not line up with slides.
var ErrSceneCount = errors.New("llm scene count mismatch")

// CarouselRequest describes a slide-text generation.
type CarouselRequest struct {
	Prompt     string
	SlideCount int
	Language   string
	Tone       string
}

type carouselPayload struct {
	Slides []carousel.Slide `json:"slides"`
}

type scenesPayload struct {
	Scenes []string `json:"scenes"`
}

type slideText struct {
	Title   string
	Content string
}

// GenerateCarousel writes slide text for a prompt. Extra slides are trimmed;
// fewer than requested is an error. The fallback model is tried once when the
// primary fails or returns an unusable payload.
func (c *Client) GenerateCarousel(ctx context.Context, req CarouselRequest) ([]carousel.Slide, error) {
	prompt, err := carousel.CleanPrompt(req.Prompt, carousel.MaxPromptRunes)
	if err != nil {
		return nil, err
	}
	req.Prompt = prompt
	req.SlideCount = carousel.ClampSlideCount(req.SlideCount, carousel.MinSlides, carousel.MaxSlides)

	var slides []carousel.Slide
	err = c.withFallback(ctx, func(model string) error {
		content, err := c.completeJSON(ctx, model, carouselSystemPrompt, carouselUserPrompt(req), 0.7)
		if err != nil {
			return err
		}
		parsed, err := parseCarousel(content, req.SlideCount)
		if err != nil {
			return err
		}
		slides = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate carousel: %w", err)
	}
	return slides, nil
}

func parseCarousel(content string, want int) ([]carousel.Slide, error) {
	var payload carouselPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		// Some models return the bare array.
		var bare []carousel.Slide
		if bareErr := DecodeLLMJSON(content, &bare); bareErr != nil {
			return nil, fmt.Errorf("parse slides: %w", err)
		}
		payload.Slides = bare
	}
	slides := make([]carousel.Slide, 0, len(payload.Slides))
	for _, slide := range payload.Slides {
		if strings.TrimSpace(slide.Title) == "" && strings.TrimSpace(slide.Content) == "" {
			continue
		}
		// Only text comes from the model.
		slides = append(slides, carousel.Slide{Type: slide.Type, Title: slide.Title, Content: slide.Content})
	}
	if len(slides) < want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTooFewSlides, len(slides), want)
	}
	slides = slides[:want]
	// The trimmed tail may have dropped the model's cta; let Normalize re-derive
	// the last slide's role.
	if slides[want-1].Type != carousel.SlideCTA {
		slides[want-1].Type = ""
	}
	return carousel.Normalize(slides), nil
}

// DescribeScenes returns one illustration brief per slide for Photo Mode.
func (c *Client) DescribeScenes(ctx context.Context, slides []carousel.Slide, characterHint string) ([]string, error) {
	if len(slides) == 0 {
		return nil, errors.New("describe scenes: no slides")
	}
	texts := make([]slideText, len(slides))
	for i, slide := range slides {
		texts[i] = slideText{Title: carousel.PlainText(slide.Title), Content: carousel.PlainText(slide.Content)}
	}
	user := scenesUserPrompt(texts, characterHint)

	var scenes []string
	err := c.withFallback(ctx, func(model string) error {
		content, err := c.completeJSON(ctx, model, scenesSystemPrompt, user, 0.8)
		if err != nil {
			return err
		}
		var payload scenesPayload
		if err := DecodeLLMJSON(content, &payload); err != nil {
			return fmt.Errorf("parse scenes: %w", err)
		}
		cleaned := make([]string, 0, len(payload.Scenes))
		for _, scene := range payload.Scenes {
			if scene = strings.TrimSpace(scene); scene != "" {
				cleaned = append(cleaned, scene)
			}
		}
		if len(cleaned) < len(slides) {
			return fmt.Errorf("%w: got %d, want %d", ErrSceneCount, len(cleaned), len(slides))
		}
		scenes = cleaned[:len(slides)]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("describe scenes: %w", err)
	}
	return scenes, nil
}
