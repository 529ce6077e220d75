package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/services"
	"swipely/internal/store"
	"swipely/internal/templates"
)

// ErrBusy is returned when the user already has a carousel in flight.
var ErrBusy = errors.New("a carousel is already being generated")

// CarouselStore is the job persistence the carousel service needs.
type CarouselStore interface {
	NewJob(ctx context.Context, req store.JobRequest) (*store.Job, error)
	NewRenderJob(ctx context.Context, req store.JobRequest, slides []carousel.Slide) (*store.Job, error)
	GetByID(ctx context.Context, id int64) (*store.Job, error)
	ActiveForUser(ctx context.Context, telegramID int64) (int, error)
}

// QuotaGuard consumes and refunds daily generations.
type QuotaGuard interface {
	Consume(ctx context.Context, user *store.User, photo bool) (string, error)
	Refund(ctx context.Context, telegramID int64, day string, photo bool) error
}

// CreateRequest asks for a new carousel. Zero values fall back to the user's
// saved preferences.
type CreateRequest struct {
	Prompt     string                   `json:"prompt"`
	Style      string                   `json:"style,omitempty"`
	SlideCount int                      `json:"slideCount,omitempty"`
	PhotoMode  *bool                    `json:"photoMode,omitempty"`
	Settings   *carousel.FormatSettings `json:"settings,omitempty"`
	Language   string                   `json:"language,omitempty"`

	Source store.Source `json:"-"`
	ChatID int64        `json:"-"`
}

// EditRequest replaces a finished carousel's slides and re-renders them.
type EditRequest struct {
	Slides   []carousel.Slide         `json:"slides"`
	Style    string                   `json:"style,omitempty"`
	Settings *carousel.FormatSettings `json:"settings,omitempty"`
}

// CarouselService creates and edits carousels for any front-end.
type CarouselService struct {
	cfg     *config.Config
	store   CarouselStore
	guard   QuotaGuard
	catalog *templates.Catalog
}

// NewCarouselService wires the carousel service.
func NewCarouselService(cfg *config.Config, st CarouselStore, guard QuotaGuard, catalog *templates.Catalog) *CarouselService {
	return &CarouselService{cfg: cfg, store: st, guard: guard, catalog: catalog}
}

// Create validates the request, consumes one generation and enqueues the job.
// The generation is refunded when the job cannot be stored.
func (s *CarouselService) Create(ctx context.Context, user *store.User, req CreateRequest) (*store.Job, error) {
	if user == nil {
		return nil, services.Wrap(services.ErrValidation, "carousel", "create", "user is required", nil)
	}
	prompt, err := carousel.CleanPrompt(req.Prompt, carousel.MaxPromptRunes)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "carousel", "create", "Send a topic for the carousel", err)
	}

	styleID := firstNonEmpty(req.Style, user.Style, s.catalog.DefaultID())
	if _, ok := s.catalog.Lookup(styleID); !ok {
		return nil, services.Wrap(services.ErrValidation, "carousel", "create", fmt.Sprintf("unknown style %q", styleID), nil)
	}

	count := req.SlideCount
	if count <= 0 {
		count = user.SlideCount
	}
	if count <= 0 {
		count = s.cfg.Limits.DefaultSlides
	}
	count = carousel.ClampSlideCount(count, s.cfg.Limits.MinSlides, s.cfg.Limits.MaxSlides)

	photo := user.PhotoMode
	if req.PhotoMode != nil {
		photo = *req.PhotoMode
	}

	settings := carousel.DefaultSettings()
	if user.Format != "" {
		settings.Format = user.Format
	}
	if user.Handle != "" {
		settings.Handle = user.Handle
		settings.ShowHandle = true
	}
	if req.Settings != nil {
		settings = *req.Settings
	}
	settings = settings.Normalize()

	active, err := s.store.ActiveForUser(ctx, user.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("check active jobs: %w", err)
	}
	if active > 0 {
		return nil, ErrBusy
	}

	day, err := s.guard.Consume(ctx, user, photo)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = store.SourceWeb
	}
	job, err := s.store.NewJob(ctx, store.JobRequest{
		TelegramID: user.TelegramID,
		ChatID:     req.ChatID,
		Source:     source,
		Prompt:     prompt,
		Style:      styleID,
		Language:   firstNonEmpty(req.Language, user.Language),
		SlideCount: count,
		PhotoMode:  photo,
		Settings:   settings,
		UsageDay:   day,
	})
	if err != nil {
		if refundErr := s.guard.Refund(ctx, user.TelegramID, day, photo); refundErr != nil {
			return nil, errors.Join(fmt.Errorf("enqueue job: %w", err), refundErr)
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Get returns a job owned by the user.
func (s *CarouselService) Get(ctx context.Context, user *store.User, id int64) (*store.Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil || user == nil || job.TelegramID != user.TelegramID {
		return nil, services.Wrap(services.ErrNotFound, "carousel", "get", fmt.Sprintf("carousel %d not found", id), nil)
	}
	return job, nil
}

// Edit stores edited slides as a render-only job. Edits do not consume quota.
// A bot-created carousel keeps its chat so the re-rendered album lands there.
func (s *CarouselService) Edit(ctx context.Context, user *store.User, id int64, req EditRequest) (*store.Job, error) {
	source, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	slides := carousel.Normalize(req.Slides)
	if err := carousel.Validate(slides); err != nil {
		return nil, services.Wrap(services.ErrValidation, "carousel", "edit", err.Error(), nil)
	}
	if err := keepImages(source, slides); err != nil {
		return nil, err
	}

	styleID := firstNonEmpty(req.Style, source.Style, s.catalog.DefaultID())
	if _, ok := s.catalog.Lookup(styleID); !ok {
		return nil, services.Wrap(services.ErrValidation, "carousel", "edit", fmt.Sprintf("unknown style %q", styleID), nil)
	}
	settings := source.Settings()
	if req.Settings != nil {
		settings = req.Settings.Normalize()
	}

	active, err := s.store.ActiveForUser(ctx, user.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("check active jobs: %w", err)
	}
	if active > 0 {
		return nil, ErrBusy
	}

	job, err := s.store.NewRenderJob(ctx, store.JobRequest{
		TelegramID: user.TelegramID,
		ChatID:     source.ChatID,
		Source:     source.Source,
		Style:      styleID,
		Language:   source.Language,
		PhotoMode:  source.PhotoMode,
		Settings:   settings,
	}, slides)
	if err != nil {
		return nil, fmt.Errorf("enqueue render job: %w", err)
	}
	return job, nil
}

// keepImages restricts image paths in edited slides to the ones the source
// job produced, so a client cannot point the renderer at arbitrary files.
func keepImages(source *store.Job, slides []carousel.Slide) error {
	original, err := source.Slides()
	if err != nil {
		return services.Wrap(services.ErrValidation, "carousel", "edit", "source carousel is unreadable", err)
	}
	allowed := make(map[string]struct{}, len(original))
	for _, slide := range original {
		if slide.ImagePath != "" {
			allowed[slide.ImagePath] = struct{}{}
		}
	}
	for i := range slides {
		if slides[i].ImagePath == "" {
			continue
		}
		if _, ok := allowed[slides[i].ImagePath]; !ok {
			slides[i].ImagePath = ""
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
