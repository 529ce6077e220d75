package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"swipely/internal/config"
)

// ErrNoImage is returned when a response carries no inline image data.
var ErrNoImage = errors.New("gemini returned no image")

// Image is one generated picture.
type Image struct {
	Data     []byte
	MIMEType string
	Model    string
}

// Extension returns the file extension matching the MIME type.
func (img Image) Extension() string {
	switch strings.ToLower(img.MIMEType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Config holds the resolved [gemini] settings.
type Config struct {
	APIKey        string
	Model         string
	FallbackModel string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	Timeout time.Duration
}

// ConfigFrom maps the [gemini] section.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIKey:        cfg.Gemini.APIKey,
		Model:         cfg.Gemini.ImageModel,
		FallbackModel: cfg.Gemini.FallbackImageModel,
		Timeout:       2 * time.Minute,
	}
}

// Client wraps a genai client configured for image output.
type Client struct {
	genai    *genai.Client
	model    string
	fallback string
}

// NewClient builds a client for the Gemini API backend.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("gemini image model is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	fallback := strings.TrimSpace(cfg.FallbackModel)
	if fallback == model {
		fallback = ""
	}
	return &Client{genai: client, model: model, fallback: fallback}, nil
}

// GenerateImage renders prompt at the given aspect ratio ("1:1", "4:5", "9:16").
func (c *Client) GenerateImage(ctx context.Context, prompt, aspect string) (*Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("image prompt is empty")
	}
	img, err := c.generate(ctx, c.model, prompt, aspect)
	if err == nil || c.fallback == "" || ctx.Err() != nil {
		return img, err
	}
	img, fbErr := c.generate(ctx, c.fallback, prompt, aspect)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return img, nil
}

func (c *Client) generate(ctx context.Context, model, prompt, aspect string) (*Image, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}
	if aspect = strings.TrimSpace(aspect); aspect != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspect}
	}
	resp, err := c.genai.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", model, err)
	}
	img := firstInlineImage(resp)
	if img == nil {
		return nil, fmt.Errorf("%s: %w", model, ErrNoImage)
	}
	img.Model = model
	return img, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) *Image {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = http.DetectContentType(part.InlineData.Data)
			}
			if !strings.HasPrefix(mime, "image/") {
				continue
			}
			return &Image{Data: part.InlineData.Data, MIMEType: mime}
		}
	}
	return nil
}

// IsRetryable reports whether err looks like a rate limit or server hiccup.
func IsRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	return errors.Is(err, ErrNoImage)
}
