package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"swipely/internal/carousel"
	"swipely/internal/logging"
	"swipely/internal/stage"
	"swipely/internal/store"
)

const stageDescribing = "describing"

// SceneDescriber turns slides into illustration briefs.
type SceneDescriber interface {
	DescribeScenes(ctx context.Context, slides []carousel.Slide, characterHint string) ([]string, error)
}

// Describer fills ImagePrompt on every slide of a Photo Mode job.
type Describer struct {
	store  stage.ProgressStore
	llm    SceneDescriber
	logger *slog.Logger
}

// NewDescriber constructs the scene description stage.
func NewDescriber(st stage.ProgressStore, client SceneDescriber, logger *slog.Logger) *Describer {
	d := &Describer{store: st, llm: client}
	d.SetLogger(logger)
	return d
}

// SetLogger swaps the stage logger.
func (d *Describer) SetLogger(logger *slog.Logger) {
	d.logger = logging.NewComponentLogger(loggerOrNop(logger), "describer")
}

func (d *Describer) Prepare(ctx context.Context, job *store.Job) error {
	if !job.PhotoMode {
		job.InitProgress("Describing", "Scene description skipped")
		return nil
	}
	job.InitProgress("Describing", "Describing scenes for Photo Mode")
	return nil
}

// Execute never fails on model errors: slides fall back to their own text as
// the scene brief.
func (d *Describer) Execute(ctx context.Context, job *store.Job) error {
	logger := logging.WithContext(ctx, d.logger)
	if !job.PhotoMode {
		job.SetProgress("", "Scene description skipped", 100)
		logger.Debug("photo mode off; scene description skipped")
		return nil
	}
	slides, err := stage.LoadSlides(job, stageDescribing)
	if err != nil {
		return err
	}
	var scenes []string
	if d.llm != nil {
		scenes, err = d.llm.DescribeScenes(ctx, slides, job.Settings().Character)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.WarnWithContext(logger, "scene description failed; using slide text", "scene_description_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "images follow slide text instead of model-written scenes"),
			)
			scenes = nil
		}
	}
	described := 0
	for i := range slides {
		if strings.TrimSpace(slides[i].ImagePrompt) != "" {
			continue
		}
		if i < len(scenes) {
			slides[i].ImagePrompt = scenes[i]
			described++
			continue
		}
		slides[i].ImagePrompt = fallbackScene(slides[i])
	}
	if err := stage.SaveSlides(job, slides, stageDescribing); err != nil {
		return err
	}
	job.SetProgress("", fmt.Sprintf("%d of %d scenes described", described, len(slides)), 100)
	logger.Info("scene description completed", logging.Int("described", described), logging.Int("slides", len(slides)))
	return nil
}

func (d *Describer) HealthCheck(context.Context) stage.Health {
	if d.llm == nil {
		return stage.Unhealthy(stageDescribing, "llm client not configured")
	}
	return stage.Healthy(stageDescribing)
}

func fallbackScene(slide carousel.Slide) string {
	title := carousel.PlainText(slide.Title)
	content := carousel.PlainText(slide.Content)
	if content == "" {
		return title
	}
	return title + ". " + content
}
