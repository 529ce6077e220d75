package promo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/render"
	"swipely/internal/services"
	"swipely/internal/services/drapto"
	"swipely/internal/store"
)

const (
	// FrameRate is the output frame rate.
	FrameRate = 30
	// FileName is the MP4 written next to the slides.
	FileName = "promo.mp4"

	fadeSeconds = 0.4
)

// Result describes a finished promo.
type Result struct {
	Path     string        `json:"path"`
	AV1Path  string        `json:"av1_path,omitempty"`
	Slides   int           `json:"slides"`
	Duration time.Duration `json:"duration"`
}

// CommandRunner executes ffmpeg.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Option customizes a Builder.
type Option func(*Builder)

// WithRunner replaces the ffmpeg runner. Tests use it.
func WithRunner(runner CommandRunner) Option {
	return func(b *Builder) {
		if runner != nil {
			b.run = runner
		}
	}
}

// WithEncoder sets the AV1 encoder used when encode_av1 is on.
func WithEncoder(encoder drapto.Client) Option {
	return func(b *Builder) { b.encoder = encoder }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder produces promo videos.
type Builder struct {
	ffmpeg          string
	secondsPerSlide float64
	encodeAV1       bool
	encoder         drapto.Client
	run             CommandRunner
	logger          *slog.Logger
}

// NewBuilder creates a builder from the [promo] section.
func NewBuilder(cfg config.Promo, opts ...Option) *Builder {
	seconds := cfg.SecondsPerSlide
	if seconds <= 2*fadeSeconds {
		seconds = 2.5
	}
	b := &Builder{
		ffmpeg:          strings.TrimSpace(cfg.FFmpegBin),
		secondsPerSlide: seconds,
		encodeAV1:       cfg.EncodeAV1,
		run:             runCommand,
		logger:          logging.NewNop(),
	}
	if b.ffmpeg == "" {
		b.ffmpeg = "ffmpeg"
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.encodeAV1 && b.encoder == nil {
		b.encoder = drapto.NewLibrary()
	}
	b.logger = logging.NewComponentLogger(b.logger, "promo")
	return b
}

// FromJob builds a promo from a completed job's rendered slides.
func (b *Builder) FromJob(ctx context.Context, job *store.Job, fallbackDir string) (*Result, error) {
	if job == nil {
		return nil, services.Wrap(services.ErrValidation, "promo", "load job", "job is required", nil)
	}
	if job.Status != store.StatusCompleted {
		return nil, services.Wrap(services.ErrValidation, "promo", "load job",
			fmt.Sprintf("job %d is %s, promo needs a completed carousel", job.ID, job.Status), nil)
	}
	dir := job.OutputDir
	if dir == "" {
		dir = fallbackDir
	}
	slides, err := SlidePaths(dir, job.SlideCount)
	if err != nil {
		return nil, err
	}
	dims := job.Settings().Format.Dimensions()
	ctx = services.WithJobID(ctx, job.ID)
	return b.Build(ctx, slides, dims, filepath.Join(dir, FileName))
}

// SlidePaths lists slide PNGs in dir in order. With count <= 0 it collects
// slides until the first gap; otherwise every one of count slides must exist.
func SlidePaths(dir string, count int) ([]string, error) {
	limit := count
	if limit <= 0 {
		limit = carousel.MaxSlides
	}
	paths := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		path := filepath.Join(dir, render.SlideFileName(i))
		if _, err := os.Stat(path); err != nil {
			if count <= 0 && errors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, services.Wrap(services.ErrNotFound, "promo", "collect slides",
				fmt.Sprintf("slide %d is missing", i+1), err)
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "promo", "collect slides", "no rendered slides in "+dir, nil)
	}
	return paths, nil
}

// Build writes an MP4 slideshow of slides to output.
func (b *Builder) Build(ctx context.Context, slides []string, dims carousel.Dimensions, output string) (*Result, error) {
	if len(slides) == 0 {
		return nil, services.Wrap(services.ErrValidation, "promo", "build", "no slides", nil)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "promo", "prepare output", "create output directory", err)
	}
	logger := logging.WithContext(ctx, b.logger)
	started := time.Now()

	args := Args(slides, b.secondsPerSlide, dims, output)
	if err := b.run(ctx, b.ffmpeg, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, services.Wrap(services.ErrConfiguration, "promo", "ffmpeg",
				fmt.Sprintf("%s not found; set promo.ffmpeg_bin", b.ffmpeg), err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "promo", "ffmpeg", "slideshow encode failed", err)
	}

	result := &Result{
		Path:     output,
		Slides:   len(slides),
		Duration: time.Duration(float64(len(slides)) * b.secondsPerSlide * float64(time.Second)),
	}
	logger.Info("promo video written",
		logging.String("path", output),
		logging.Int("slides", len(slides)),
		logging.Duration("elapsed", time.Since(started)),
	)

	if b.encodeAV1 && b.encoder != nil {
		av1, err := b.encoder.Encode(ctx, output, filepath.Dir(output), func(update drapto.ProgressUpdate) {
			if update.Warning {
				logger.Warn("av1 encode warning", logging.String("message", update.Message))
			}
		})
		if err != nil {
			// The MP4 is still usable.
			logging.WarnWithContext(logger, "av1 encode failed", "promo_av1_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "only the H.264 promo is available"),
			)
		} else {
			result.AV1Path = av1
		}
	}
	return result, nil
}

// Args builds the ffmpeg argument list: every slide is looped for seconds,
// scaled and padded to dims, faded in and out, then concatenated.
func Args(slides []string, seconds float64, dims carousel.Dimensions, output string) []string {
	hold := strconv.FormatFloat(seconds, 'f', 2, 64)
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, slide := range slides {
		args = append(args, "-loop", "1", "-framerate", strconv.Itoa(FrameRate), "-t", hold, "-i", slide)
	}

	fadeOut := strconv.FormatFloat(seconds-fadeSeconds, 'f', 2, 64)
	fade := strconv.FormatFloat(fadeSeconds, 'f', 2, 64)
	var filter strings.Builder
	for i := range slides {
		fmt.Fprintf(&filter,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d,format=yuv420p,fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s[v%d];",
			i, dims.Width, dims.Height, dims.Width, dims.Height, FrameRate, fade, fadeOut, fade, i)
	}
	for i := range slides {
		fmt.Fprintf(&filter, "[v%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[out]", len(slides))

	return append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(FrameRate),
		"-movflags", "+faststart",
		output,
	)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
