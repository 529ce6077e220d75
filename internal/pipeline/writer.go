package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/services/llm"
	"swipely/internal/stage"
	"swipely/internal/store"
	"swipely/internal/templates"
)

const stageWriting = "writing"

// SlideWriter produces slide text.
type SlideWriter interface {
	GenerateCarousel(ctx context.Context, req llm.CarouselRequest) ([]carousel.Slide, error)
}

// HistoryStore records finished generations per user.
type HistoryStore interface {
	stage.ProgressStore
	AddHistory(ctx context.Context, telegramID int64, item carousel.HistoryItem, limit int) (*carousel.HistoryItem, error)
}

// Writer generates slide text from the job prompt.
type Writer struct {
	cfg     *config.Config
	store   HistoryStore
	llm     SlideWriter
	catalog *templates.Catalog
	logger  *slog.Logger
}

// NewWriter constructs the writing stage.
func NewWriter(cfg *config.Config, st HistoryStore, client SlideWriter, catalog *templates.Catalog, logger *slog.Logger) *Writer {
	w := &Writer{cfg: cfg, store: st, llm: client, catalog: catalog}
	w.SetLogger(logger)
	return w
}

// SetLogger swaps the stage logger; the workflow manager injects a job-scoped one.
func (w *Writer) SetLogger(logger *slog.Logger) {
	w.logger = logging.NewComponentLogger(loggerOrNop(logger), "writer")
}

func (w *Writer) Prepare(ctx context.Context, job *store.Job) error {
	job.InitProgress("Writing", "Writing slide text")
	logging.WithContext(ctx, w.logger).Info("starting slide writing",
		logging.String("style", job.Style),
		logging.Int("slides", job.SlideCount),
		logging.String("language", job.Language),
	)
	return nil
}

func (w *Writer) Execute(ctx context.Context, job *store.Job) error {
	logger := logging.WithContext(ctx, w.logger)
	style := w.catalog.Get(job.Style)
	req := llm.CarouselRequest{
		Prompt:     job.Prompt,
		SlideCount: carousel.ClampSlideCount(job.SlideCount, w.cfg.Limits.MinSlides, w.cfg.Limits.MaxSlides),
		Language:   job.Language,
		Tone:       style.Description,
	}
	stage.Report(ctx, w.store, w.logger, job, fmt.Sprintf("Asking the model for %d slides", req.SlideCount), 10)

	slides, err := w.llm.GenerateCarousel(ctx, req)
	if err != nil {
		return classifyLLMError(stageWriting, "generate carousel", err)
	}
	if err := stage.SaveSlides(job, slides, stageWriting); err != nil {
		return err
	}
	job.SlideCount = len(slides)
	job.SetProgress("", fmt.Sprintf("%d slides written", len(slides)), 100)

	if job.TelegramID != 0 {
		if _, err := w.store.AddHistory(ctx, job.TelegramID, carousel.HistoryItem{
			Prompt:     job.Prompt,
			Style:      style.ID,
			SlideCount: len(slides),
			JobID:      job.ID,
		}, w.cfg.Limits.HistorySize); err != nil {
			logging.WarnWithContext(logger, "history append failed", "history_append_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "generation missing from the user's history"),
			)
		}
	}
	logger.Info("slide writing completed",
		logging.Int("slides", len(slides)),
		logging.String("first_title", strings.TrimSpace(carousel.PlainText(slides[0].Title))),
	)
	return nil
}

func (w *Writer) HealthCheck(ctx context.Context) stage.Health {
	if w.llm == nil {
		return stage.Unhealthy(stageWriting, "llm client not configured")
	}
	if w.cfg != nil && strings.TrimSpace(w.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(stageWriting, "llm.api_key missing")
	}
	return stage.Healthy(stageWriting)
}

func loggerOrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	return logger
}
