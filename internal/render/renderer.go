package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/errgroup"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/services"
)

// Options configure the browser.
type Options struct {
	ChromeBin   string
	Headless    bool
	Concurrency int
	Timeout     time.Duration
}

// OptionsFromConfig maps the [render] section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{Headless: true, Concurrency: 2, Timeout: 30 * time.Second}
	}
	return Options{
		ChromeBin:   cfg.Render.ChromeBin,
		Headless:    cfg.Render.Headless,
		Concurrency: cfg.Render.Concurrency,
		Timeout:     time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
	}
}

// Renderer owns one Chrome process.
type Renderer struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
}

// New creates a renderer. Chrome starts lazily on the first render.
func New(opts Options, logger *slog.Logger) *Renderer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{opts: opts, logger: logging.NewComponentLogger(logger, "render")}
}

// SlideFileName is the PNG name for the slide at index.
func SlideFileName(index int) string {
	return fmt.Sprintf("slide-%02d.png", index+1)
}

// Available reports the Chrome binary that would be used.
func (r *Renderer) Available() (string, bool) {
	if r.opts.ChromeBin != "" {
		info, err := os.Stat(r.opts.ChromeBin)
		return r.opts.ChromeBin, err == nil && !info.IsDir()
	}
	return launcher.LookPath()
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return r.browser, nil
		}
		r.logger.Warn("chrome connection lost; relaunching")
		r.closeLocked()
	}

	bin, ok := r.Available()
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "rendering", "locate chrome",
			"Chrome or Chromium not found; set render.chrome_bin", nil)
	}

	l := launcher.New().Bin(bin).Headless(r.opts.Headless).NoSandbox(true).Leakless(false).
		Set("hide-scrollbars").Set("font-render-hinting", "none")
	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, services.Wrap(services.ErrExternalTool, "rendering", "launch chrome", "Failed to start Chrome", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, services.Wrap(services.ErrExternalTool, "rendering", "connect chrome", "Failed to connect to Chrome", err)
	}
	r.launch = l
	r.browser = browser
	r.logger.Info("chrome started", logging.String("bin", bin), logging.Bool("headless", r.opts.Headless))
	return browser, nil
}

// RenderPNG draws one HTML document at the given size.
func (r *Renderer) RenderPNG(ctx context.Context, html string, dims carousel.Dimensions) ([]byte, error) {
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "rendering", "incognito context", "Chrome refused a new context", err)
	}
	defer func() { _ = incognito.Close() }()

	pageCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "rendering", "create page", "Chrome refused a new page", err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(pageCtx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             dims.Width,
		Height:            dims.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, wrapPageErr(pageCtx, "set viewport", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, wrapPageErr(pageCtx, "load document", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, wrapPageErr(pageCtx, "wait load", err)
	}
	png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
	if err != nil {
		return nil, wrapPageErr(pageCtx, "screenshot", err)
	}
	return png, nil
}

func wrapPageErr(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "rendering", op, "Slide render timed out", err)
	}
	return services.Wrap(services.ErrExternalTool, "rendering", op, "Slide render failed", err)
}

// RenderCarousel writes docs[i] to outDir/slide-NN.png and returns the paths
// in slide order. Up to Concurrency slides render at once.
func (r *Renderer) RenderCarousel(ctx context.Context, docs []string, format carousel.Format, outDir string) ([]string, error) {
	if len(docs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "rendering", "render carousel", "No slides to render", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	dims := format.Dimensions()
	paths := make([]string, len(docs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Concurrency)
	for i, doc := range docs {
		group.Go(func() error {
			png, err := r.RenderPNG(groupCtx, doc, dims)
			if err != nil {
				return fmt.Errorf("slide %d: %w", i+1, err)
			}
			target := filepath.Join(outDir, SlideFileName(i))
			if err := writeFileAtomic(target, png); err != nil {
				return err
			}
			paths[i] = target
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	r.logger.Debug("carousel rendered", logging.Int("slides", len(docs)), logging.String("dir", outDir))
	return paths, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Close shuts Chrome down.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

func (r *Renderer) closeLocked() {
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
	if r.launch != nil {
		r.launch.Kill()
		r.launch.Cleanup()
		r.launch = nil
	}
}

// HealthCheck reports whether Chrome can be found.
func (r *Renderer) HealthCheck() error {
	if bin, ok := r.Available(); !ok {
		if bin == "" {
			return services.Wrap(services.ErrConfiguration, "rendering", "health", "Chrome or Chromium not found on PATH", nil)
		}
		return services.Wrap(services.ErrConfiguration, "rendering", "health", fmt.Sprintf("Chrome binary %s not found", bin), nil)
	}
	return nil
}
