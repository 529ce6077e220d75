package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/pipeline"
	"swipely/internal/render"
	"swipely/internal/services"
	"swipely/internal/services/gemini"
	"swipely/internal/services/llm"
	"swipely/internal/services/telegram"
	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/testsupport"
)

type fakeWriter struct {
	req    llm.CarouselRequest
	slides []carousel.Slide
	err    error
}

func (f *fakeWriter) GenerateCarousel(_ context.Context, req llm.CarouselRequest) ([]carousel.Slide, error) {
	f.req = req
	return f.slides, f.err
}

type fakeDescriber struct {
	scenes []string
	err    error
}

func (f *fakeDescriber) DescribeScenes(context.Context, []carousel.Slide, string) ([]string, error) {
	return f.scenes, f.err
}

type fakeImages struct {
	mu       sync.Mutex
	prompts  []string
	failFor  map[int]error
	calls    int
	pngBytes []byte
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt, aspect string) (*gemini.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if err, ok := f.failFor[f.calls]; ok {
		return nil, err
	}
	return &gemini.Image{Data: f.pngBytes, MIMEType: "image/png", Model: "fake-" + aspect}, nil
}

type fakeRenderer struct {
	docs []string
	t    *testing.T
}

func (f *fakeRenderer) RenderCarousel(_ context.Context, docs []string, _ carousel.Format, outDir string) ([]string, error) {
	f.docs = docs
	paths := make([]string, len(docs))
	for i := range docs {
		paths[i] = filepath.Join(outDir, render.SlideFileName(i))
		testsupport.WritePNG(f.t, paths[i])
	}
	return paths, nil
}

func (f *fakeRenderer) HealthCheck() error { return nil }

type fakeMessenger struct {
	albums   [][]telegram.Photo
	messages []string
	err      error
}

func (f *fakeMessenger) SendAlbum(_ context.Context, _ int64, photos []telegram.Photo) error {
	if f.err != nil {
		return f.err
	}
	f.albums = append(f.albums, photos)
	return nil
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ int64, text string, _ telegram.SendOptions) (*telegram.Message, error) {
	f.messages = append(f.messages, text)
	return &telegram.Message{}, nil
}

func setup(t *testing.T) (*config.Config, *store.Store, *templates.Catalog) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return cfg, testsupport.MustOpenStore(t, cfg), templates.MustDefault()
}

func TestWriterStoresSlidesAndHistory(t *testing.T) {
	cfg, st, catalog := setup(t)
	ctx := context.Background()
	testsupport.NewUser(t, st, 77)
	job := testsupport.NewJob(t, st, 77, "Morning routines")
	job.Style = "neon"

	fake := &fakeWriter{slides: testsupport.SampleSlides()}
	writer := pipeline.NewWriter(cfg, st, fake, catalog, logging.NewNop())
	if err := writer.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := writer.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fake.req.Tone != catalog.Get("neon").Description || fake.req.SlideCount != 5 {
		t.Fatalf("unexpected request %+v", fake.req)
	}
	slides, err := job.Slides()
	if err != nil || len(slides) != 3 {
		t.Fatalf("expected 3 stored slides, got %d (%v)", len(slides), err)
	}
	if job.SlideCount != 3 || job.ProgressPercent != 100 {
		t.Fatalf("unexpected job state %+v", job)
	}
	history, err := st.ListHistory(ctx, 77)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 1 || history[0].JobID != job.ID || history[0].Style != "neon" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestWriterRetryKeepsSingleHistoryEntry(t *testing.T) {
	cfg, st, catalog := setup(t)
	ctx := context.Background()
	testsupport.NewUser(t, st, 78)
	job := testsupport.NewJob(t, st, 78, "Retry safe")

	writer := pipeline.NewWriter(cfg, st, &fakeWriter{slides: testsupport.SampleSlides()}, catalog, logging.NewNop())
	for attempt := 0; attempt < 2; attempt++ {
		if err := writer.Execute(ctx, job); err != nil {
			t.Fatalf("Execute attempt %d: %v", attempt, err)
		}
	}
	history, err := st.ListHistory(ctx, 78)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one history entry after retry, got %d", len(history))
	}
}

func TestWriterClassifiesMissingKey(t *testing.T) {
	cfg, st, catalog := setup(t)
	job := testsupport.NewJob(t, st, 0, "Topic")
	writer := pipeline.NewWriter(cfg, st, &fakeWriter{err: llm.ErrNoAPIKey}, catalog, nil)
	err := writer.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDescriberSkipsWithoutPhotoMode(t *testing.T) {
	_, st, _ := setup(t)
	job := testsupport.NewJob(t, st, 0, "Topic")
	describer := pipeline.NewDescriber(st, &fakeDescriber{err: errors.New("must not be called")}, nil)
	if err := describer.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.ProgressMessage != "Scene description skipped" {
		t.Fatalf("unexpected progress %q", job.ProgressMessage)
	}
}

func TestDescriberFallsBackToSlideText(t *testing.T) {
	_, st, _ := setup(t)
	job := testsupport.NewJob(t, st, 0, "Topic")
	job.PhotoMode = true
	if err := job.SetSlides(testsupport.SampleSlides()); err != nil {
		t.Fatalf("SetSlides: %v", err)
	}
	describer := pipeline.NewDescriber(st, &fakeDescriber{err: errors.New("model down")}, nil)
	if err := describer.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	slides, _ := job.Slides()
	if slides[1].ImagePrompt != "Wake early. Same time every day." {
		t.Fatalf("unexpected fallback scene %q", slides[1].ImagePrompt)
	}
	if slides[0].ImagePrompt != "Stop scrolling. Three habits that change mornings" {
		t.Fatalf("expected highlight markup stripped, got %q", slides[0].ImagePrompt)
	}
}

func TestIllustratorUsesPlaceholderOnFailure(t *testing.T) {
	cfg, st, catalog := setup(t)
	cfg.Pipeline.ImageDelaySeconds = 3
	cfg.Pipeline.ImageAttempts = 2
	job := testsupport.NewJob(t, st, 0, "Topic")
	job.PhotoMode = true
	slides := testsupport.SampleSlides()
	for i := range slides {
		slides[i].ImagePrompt = "scene " + string(rune('A'+i))
	}
	if err := job.SetSlides(slides); err != nil {
		t.Fatalf("SetSlides: %v", err)
	}

	images := &fakeImages{
		pngBytes: testsupport.PNGBytes(t),
		failFor: map[int]error{
			2: gemini.ErrNoImage,
			3: gemini.ErrNoImage,
		},
	}
	var sleeps []time.Duration
	illustrator := pipeline.NewIllustrator(cfg, st, images, catalog, nil)
	illustrator.SetSleeper(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	})

	ctx := context.Background()
	if err := illustrator.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := illustrator.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, _ := job.Slides()
	if !got[0].HasImage() || !got[2].HasImage() {
		t.Fatalf("expected images on slides 1 and 3: %+v", got)
	}
	if got[1].HasImage() || got[1].ImagePlaceholder != "scene B" {
		t.Fatalf("expected placeholder on slide 2: %+v", got[1])
	}
	if _, err := os.Stat(got[0].ImagePath); err != nil {
		t.Fatalf("image file missing: %v", err)
	}
	if images.calls != 4 {
		t.Fatalf("expected 4 generator calls (one retry), got %d", images.calls)
	}
	want := []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}
	if !strings.Contains(images.prompts[0], "scene A") || !strings.Contains(images.prompts[0], "No text") {
		t.Fatalf("unexpected prompt %q", images.prompts[0])
	}
	if !strings.Contains(job.ProgressMessage, "1 placeholders") {
		t.Fatalf("unexpected progress %q", job.ProgressMessage)
	}
}

func TestExporterRendersAndRemovesStaleSlides(t *testing.T) {
	cfg, st, catalog := setup(t)
	job := testsupport.NewJob(t, st, 0, "Topic")
	if err := job.SetSlides(testsupport.SampleSlides()); err != nil {
		t.Fatalf("SetSlides: %v", err)
	}
	renderer := &fakeRenderer{t: t}
	exporter := pipeline.NewExporter(cfg, st, renderer, catalog, nil)
	ctx := context.Background()
	if err := exporter.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	stale := filepath.Join(job.OutputDir, render.SlideFileName(5))
	testsupport.WritePNG(t, stale)

	if err := exporter.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(renderer.docs) != 3 || !strings.Contains(renderer.docs[0], "scrolling") {
		t.Fatalf("unexpected documents rendered")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale slide removed, err=%v", err)
	}
	if paths := pipeline.SlidePaths(job.OutputDir); len(paths) != 3 {
		t.Fatalf("expected 3 slide paths, got %v", paths)
	}
}

func TestExporterRejectsInvalidSlides(t *testing.T) {
	cfg, st, catalog := setup(t)
	job := testsupport.NewJob(t, st, 0, "Topic")
	if err := job.SetSlides(testsupport.SampleSlides()[:2]); err != nil {
		t.Fatalf("SetSlides: %v", err)
	}
	exporter := pipeline.NewExporter(cfg, st, &fakeRenderer{t: t}, catalog, nil)
	if err := exporter.Execute(context.Background(), job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func renderedJob(t *testing.T, st *store.Store, cfg *config.Config, source store.Source) *store.Job {
	t.Helper()
	job := testsupport.NewJob(t, st, 55, "Topic")
	job.Source = source
	job.ChatID = 55
	job.Language = "ru"
	job.OutputDir = cfg.JobOutputDir(job.ID)
	if err := job.SetSlides(testsupport.SampleSlides()); err != nil {
		t.Fatalf("SetSlides: %v", err)
	}
	for i := range 3 {
		testsupport.WritePNG(t, filepath.Join(job.OutputDir, render.SlideFileName(i)))
	}
	return job
}

func TestDelivererSendsAlbumForBotJobs(t *testing.T) {
	cfg, st, _ := setup(t)
	cfg.Telegram.MiniAppURL = "https://app.example.com/"
	job := renderedJob(t, st, cfg, store.SourceBot)
	bot := &fakeMessenger{}
	deliverer := pipeline.NewDeliverer(cfg, bot, nil)
	if err := deliverer.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(bot.albums) != 1 || len(bot.albums[0]) != 3 {
		t.Fatalf("unexpected albums %+v", bot.albums)
	}
	if bot.albums[0][0].Caption != "Stop scrolling" {
		t.Fatalf("unexpected caption %q", bot.albums[0][0].Caption)
	}
	if len(bot.messages) != 1 || !strings.Contains(bot.messages[0], "Карусель готова") {
		t.Fatalf("unexpected follow-up %v", bot.messages)
	}
}

func TestDelivererCompletesWebJobsWithoutBot(t *testing.T) {
	cfg, st, _ := setup(t)
	job := renderedJob(t, st, cfg, store.SourceWeb)
	deliverer := pipeline.NewDeliverer(cfg, nil, nil)
	if err := deliverer.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.ProgressMessage != "3 slides ready" {
		t.Fatalf("unexpected progress %q", job.ProgressMessage)
	}
}

func TestDelivererToleratesBlockedBot(t *testing.T) {
	cfg, st, _ := setup(t)
	job := renderedJob(t, st, cfg, store.SourceBot)
	bot := &fakeMessenger{err: &telegram.APIError{Method: "sendMediaGroup", Code: http.StatusForbidden, Description: "bot was blocked by the user"}}
	deliverer := pipeline.NewDeliverer(cfg, bot, nil)
	if err := deliverer.Execute(context.Background(), job); err != nil {
		t.Fatalf("expected blocked delivery to succeed, got %v", err)
	}
	if !strings.Contains(job.ProgressMessage, "blocked") {
		t.Fatalf("unexpected progress %q", job.ProgressMessage)
	}
}
