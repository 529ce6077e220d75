package promo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/promo"
	"swipely/internal/render"
	"swipely/internal/services"
	"swipely/internal/services/drapto"
	"swipely/internal/store"
	"swipely/internal/testsupport"
)

func TestArgsLoopsEverySlideAndConcats(t *testing.T) {
	slides := []string{"/a/slide-01.png", "/a/slide-02.png", "/a/slide-03.png"}
	args := promo.Args(slides, 2.5, carousel.FormatPortrait.Dimensions(), "/a/promo.mp4")

	joined := strings.Join(args, " ")
	if strings.Count(joined, "-loop 1 -framerate 30 -t 2.50 -i") != 3 {
		t.Fatalf("expected three looped inputs, got %q", joined)
	}
	if !strings.Contains(joined, "concat=n=3:v=1:a=0[out]") {
		t.Fatalf("expected concat filter, got %q", joined)
	}
	if !strings.Contains(joined, "scale=1080:1350") || !strings.Contains(joined, "fade=t=out:st=2.10:d=0.40") {
		t.Fatalf("expected scale and fade for portrait, got %q", joined)
	}
	if args[len(args)-1] != "/a/promo.mp4" || !strings.Contains(joined, "-c:v libx264") {
		t.Fatalf("unexpected output args %q", joined)
	}
}

type recordingEncoder struct {
	input string
	err   error
}

func (e *recordingEncoder) Encode(_ context.Context, input, outputDir string, progress func(drapto.ProgressUpdate)) (string, error) {
	e.input = input
	if progress != nil {
		progress(drapto.ProgressUpdate{Percent: 100})
	}
	if e.err != nil {
		return "", e.err
	}
	return drapto.OutputPath(input, outputDir), nil
}

func writeSlides(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		testsupport.WritePNG(t, filepath.Join(dir, render.SlideFileName(i)))
	}
}

func TestFromJobBuildsPromoAndAV1(t *testing.T) {
	dir := t.TempDir()
	writeSlides(t, dir, 3)

	var gotName string
	var gotArgs []string
	encoder := &recordingEncoder{}
	builder := promo.NewBuilder(config.Promo{FFmpegBin: "ffmpeg-test", SecondsPerSlide: 2, EncodeAV1: true},
		promo.WithEncoder(encoder),
		promo.WithRunner(func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
		}),
	)

	job := &store.Job{ID: 5, Status: store.StatusCompleted, SlideCount: 3, OutputDir: dir}
	result, err := builder.FromJob(context.Background(), job, "")
	if err != nil {
		t.Fatalf("FromJob: %v", err)
	}
	if gotName != "ffmpeg-test" || len(gotArgs) == 0 {
		t.Fatalf("ffmpeg not invoked: %q %v", gotName, gotArgs)
	}
	if result.Path != filepath.Join(dir, promo.FileName) || result.Slides != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Duration.Seconds() != 6 {
		t.Fatalf("duration = %s, want 6s", result.Duration)
	}
	if encoder.input != result.Path || result.AV1Path != filepath.Join(dir, "promo.mkv") {
		t.Fatalf("expected av1 encode of the mp4, got %+v (input %q)", result, encoder.input)
	}
}

func TestAV1FailureKeepsMP4(t *testing.T) {
	dir := t.TempDir()
	writeSlides(t, dir, 2)
	builder := promo.NewBuilder(config.Promo{EncodeAV1: true},
		promo.WithEncoder(&recordingEncoder{err: errors.New("svt-av1 missing")}),
		promo.WithRunner(func(context.Context, string, ...string) error { return nil }),
	)
	result, err := builder.Build(context.Background(),
		[]string{filepath.Join(dir, render.SlideFileName(0)), filepath.Join(dir, render.SlideFileName(1))},
		carousel.FormatSquare.Dimensions(), filepath.Join(dir, promo.FileName))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.AV1Path != "" {
		t.Fatalf("expected no av1 path, got %q", result.AV1Path)
	}
}

func TestFromJobRejectsIncompleteOrMissingSlides(t *testing.T) {
	builder := promo.NewBuilder(config.Promo{}, promo.WithRunner(func(context.Context, string, ...string) error { return nil }))

	_, err := builder.FromJob(context.Background(), &store.Job{ID: 1, Status: store.StatusRendering}, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	dir := t.TempDir()
	writeSlides(t, dir, 1)
	_, err = builder.FromJob(context.Background(), &store.Job{ID: 2, Status: store.StatusCompleted, SlideCount: 3, OutputDir: dir}, "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing slide, got %v", err)
	}
}

func TestRunnerErrorIsExternal(t *testing.T) {
	dir := t.TempDir()
	writeSlides(t, dir, 1)
	builder := promo.NewBuilder(config.Promo{}, promo.WithRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1: invalid filter")
	}))
	_, err := builder.Build(context.Background(), []string{filepath.Join(dir, render.SlideFileName(0))},
		carousel.FormatSquare.Dimensions(), filepath.Join(dir, promo.FileName))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
