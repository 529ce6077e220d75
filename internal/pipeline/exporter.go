package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/render"
	"swipely/internal/services"
	"swipely/internal/stage"
	"swipely/internal/store"
	"swipely/internal/templates"
)

const stageRendering = "rendering"

// SlideRenderer turns HTML documents into PNG files.
type SlideRenderer interface {
	RenderCarousel(ctx context.Context, docs []string, format carousel.Format, outDir string) ([]string, error)
	HealthCheck() error
}

// Exporter renders the slide templates to PNG files in the job directory.
type Exporter struct {
	cfg      *config.Config
	store    stage.ProgressStore
	renderer SlideRenderer
	catalog  *templates.Catalog
	logger   *slog.Logger
}

// NewExporter constructs the rendering stage.
func NewExporter(cfg *config.Config, st stage.ProgressStore, renderer SlideRenderer, catalog *templates.Catalog, logger *slog.Logger) *Exporter {
	e := &Exporter{cfg: cfg, store: st, renderer: renderer, catalog: catalog}
	e.SetLogger(logger)
	return e
}

// SetLogger swaps the stage logger.
func (e *Exporter) SetLogger(logger *slog.Logger) {
	e.logger = logging.NewComponentLogger(loggerOrNop(logger), "exporter")
}

func (e *Exporter) Prepare(ctx context.Context, job *store.Job) error {
	job.InitProgress("Rendering", "Rendering slides")
	if strings.TrimSpace(job.OutputDir) == "" {
		job.OutputDir = e.cfg.JobOutputDir(job.ID)
	}
	return nil
}

func (e *Exporter) Execute(ctx context.Context, job *store.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	slides, err := stage.LoadSlides(job, stageRendering)
	if err != nil {
		return err
	}
	if err := carousel.Validate(slides); err != nil {
		return services.Wrap(services.ErrValidation, stageRendering, "validate slides", "Slides are invalid", err)
	}
	settings := job.Settings()
	style := e.catalog.Get(job.Style)

	docs, err := templates.RenderAll(slides, style, settings, job.Language)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageRendering, "render templates", "Slide template could not be built", err)
	}
	stage.Report(ctx, e.store, e.logger, job, fmt.Sprintf("Exporting %d slides", len(docs)), 20)

	paths, err := e.renderer.RenderCarousel(ctx, docs, settings.Format, job.OutputDir)
	if err != nil {
		if errors.Is(err, context.Canceled) || services.Details(err).Kind != services.KindUnknown {
			return err
		}
		return services.Wrap(services.ErrExternalTool, stageRendering, "render carousel", "Slide export failed", err)
	}
	removeStaleSlides(job.OutputDir, len(paths))
	job.SetProgress("", fmt.Sprintf("%d slides rendered", len(paths)), 100)
	logger.Info("slides rendered",
		logging.Int("slides", len(paths)),
		logging.String("format", string(settings.Format)),
		logging.String("style", style.ID),
		logging.String("output_dir", job.OutputDir),
	)
	return nil
}

func (e *Exporter) HealthCheck(context.Context) stage.Health {
	if e.renderer == nil {
		return stage.Unhealthy(stageRendering, "renderer not configured")
	}
	if err := e.renderer.HealthCheck(); err != nil {
		return stage.Unhealthy(stageRendering, err.Error())
	}
	return stage.Healthy(stageRendering)
}

// SlidePaths lists the rendered PNGs of a job in slide order, stopping at
// the first missing file.
func SlidePaths(outputDir string) []string {
	var paths []string
	for i := 0; i < carousel.MaxSlides; i++ {
		path := filepath.Join(outputDir, render.SlideFileName(i))
		if _, err := os.Stat(path); err != nil {
			break
		}
		paths = append(paths, path)
	}
	return paths
}

// removeStaleSlides deletes PNGs left from an earlier, longer render.
func removeStaleSlides(outputDir string, keep int) {
	for i := keep; i < carousel.MaxSlides; i++ {
		_ = os.Remove(filepath.Join(outputDir, render.SlideFileName(i)))
	}
}
