package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/services/gemini"
	"swipely/internal/stage"
	"swipely/internal/store"
	"swipely/internal/templates"
)

const stageIllustrating = "illustrating"

// ImageGenerator produces one picture from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspect string) (*gemini.Image, error)
}

// Illustrator generates Photo Mode images, one slide at a time.
type Illustrator struct {
	cfg     *config.Config
	store   stage.ProgressStore
	images  ImageGenerator
	catalog *templates.Catalog
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewIllustrator constructs the illustration stage. A nil generator turns
// every slide into a placeholder.
func NewIllustrator(cfg *config.Config, st stage.ProgressStore, images ImageGenerator, catalog *templates.Catalog, logger *slog.Logger) *Illustrator {
	i := &Illustrator{cfg: cfg, store: st, images: images, catalog: catalog, sleep: sleepContext}
	i.SetLogger(logger)
	return i
}

// SetLogger swaps the stage logger.
func (i *Illustrator) SetLogger(logger *slog.Logger) {
	i.logger = logging.NewComponentLogger(loggerOrNop(logger), "illustrator")
}

// SetSleeper overrides the pause between image requests.
func (i *Illustrator) SetSleeper(fn func(context.Context, time.Duration) error) {
	if fn != nil {
		i.sleep = fn
	}
}

func (i *Illustrator) Prepare(ctx context.Context, job *store.Job) error {
	if !job.PhotoMode {
		job.InitProgress("Illustrating", "Illustration skipped")
		return nil
	}
	job.InitProgress("Illustrating", "Generating images")
	if strings.TrimSpace(job.OutputDir) == "" {
		job.OutputDir = i.cfg.JobOutputDir(job.ID)
	}
	return nil
}

func (i *Illustrator) Execute(ctx context.Context, job *store.Job) error {
	logger := logging.WithContext(ctx, i.logger)
	if !job.PhotoMode {
		job.SetProgress("", "Illustration skipped", 100)
		return nil
	}
	slides, err := stage.LoadSlides(job, stageIllustrating)
	if err != nil {
		return err
	}
	imageDir := filepath.Join(job.OutputDir, "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageIllustrating, "create image dir",
			"Failed to create image directory; check output_dir permissions", err)
	}

	aspect := job.Settings().Format.AspectRatio()
	style := i.catalog.Get(job.Style)
	delay := time.Duration(i.cfg.Pipeline.ImageDelaySeconds) * time.Second
	generated, placeholders := 0, 0
	requested := false

	for idx := range slides {
		slide := &slides[idx]
		if slide.HasImage() {
			if _, err := os.Stat(slide.ImagePath); err == nil {
				generated++
				continue
			}
			slide.ImagePath = ""
		}
		if requested && delay > 0 {
			if err := i.sleep(ctx, delay); err != nil {
				return err
			}
		}
		requested = true

		scene := strings.TrimSpace(slide.ImagePrompt)
		if scene == "" {
			scene = fallbackScene(*slide)
		}
		slideLogger := logger.With(logging.Int(logging.FieldSlide, idx+1))
		path, err := i.illustrate(ctx, slideLogger, imagePrompt(scene, style, job.Settings().Character), aspect, imageDir, idx)
		switch {
		case err == nil:
			slide.ImagePath = path
			slide.ImagePlaceholder = ""
			generated++
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			logging.WarnWithContext(slideLogger, "image generation failed; using placeholder", "image_placeholder",
				logging.Error(err),
				logging.String(logging.FieldImpact, "slide shows the scene text instead of a picture"),
			)
			slide.ImagePlaceholder = scene
			placeholders++
		}

		if err := stage.SaveSlides(job, slides, stageIllustrating); err != nil {
			return err
		}
		stage.Report(ctx, i.store, i.logger, job,
			fmt.Sprintf("Image %d of %d", idx+1, len(slides)),
			float64(idx+1)/float64(len(slides))*100)
	}

	if err := stage.SaveSlides(job, slides, stageIllustrating); err != nil {
		return err
	}
	message := fmt.Sprintf("%d images generated", generated)
	if placeholders > 0 {
		message = fmt.Sprintf("%d images generated, %d placeholders", generated, placeholders)
	}
	job.SetProgress("", message, 100)
	logger.Info("illustration completed", logging.Int("generated", generated), logging.Int("placeholders", placeholders))
	return nil
}

// illustrate tries the generator up to image_attempts times with doubling
// pauses between retryable failures.
func (i *Illustrator) illustrate(ctx context.Context, logger *slog.Logger, prompt, aspect, dir string, idx int) (string, error) {
	if i.images == nil {
		return "", errors.New("image generator not configured")
	}
	attempts := max(i.cfg.Pipeline.ImageAttempts, 1)
	backoff := time.Duration(max(i.cfg.Pipeline.ImageDelaySeconds, 1)) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		img, err := i.images.GenerateImage(ctx, prompt, aspect)
		if err == nil {
			target := filepath.Join(dir, fmt.Sprintf("slide-%02d%s", idx+1, img.Extension()))
			if err := os.WriteFile(target, img.Data, 0o644); err != nil {
				return "", fmt.Errorf("write image: %w", err)
			}
			logger.Debug("image generated", logging.String("model", img.Model), logging.Int("bytes", len(img.Data)))
			return target, nil
		}
		lastErr = err
		if ctx.Err() != nil || !gemini.IsRetryable(err) || attempt == attempts {
			break
		}
		logger.Debug("image attempt failed; retrying", logging.Int("attempt", attempt), logging.Error(err))
		if err := i.sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}
	return "", lastErr
}

func (i *Illustrator) HealthCheck(context.Context) stage.Health {
	if i.images == nil {
		return stage.Unhealthy(stageIllustrating, "gemini.api_key missing; photo slides fall back to placeholders")
	}
	return stage.Healthy(stageIllustrating)
}

func imagePrompt(scene string, style templates.Style, character string) string {
	var b strings.Builder
	b.WriteString("Illustration for an Instagram carousel slide. ")
	b.WriteString(scene)
	if character != "" {
		b.WriteString(" Main character: ")
		b.WriteString(character)
		b.WriteString(".")
	}
	if style.Description != "" {
		fmt.Fprintf(&b, " Mood: %s.", style.Description)
	}
	if style.Colors.Accent != "" {
		fmt.Fprintf(&b, " Palette around %s and %s.", style.Colors.Background, style.Colors.Accent)
	}
	b.WriteString(" No text, letters or watermarks in the image.")
	return b.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
