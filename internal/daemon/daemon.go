package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"swipely/internal/api"
	"swipely/internal/config"
	"swipely/internal/deps"
	"swipely/internal/logging"
	"swipely/internal/preflight"
	"swipely/internal/store"
	"swipely/internal/workflow"
)

// LockFileName is created in the data directory while a daemon runs.
const LockFileName = "swipely.lock"

// Poller is a background update source such as the Telegram bot.
type Poller interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	workflow *workflow.Manager
	bot      Poller
	api      *apiServer

	lockPath  string
	lock      *flock.Flock
	startedAt time.Time

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithBot attaches the Telegram poller.
func WithBot(p Poller) Option {
	return func(d *Daemon) { d.bot = p }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SetHandler installs the HTTP handler served on paths.api_bind. It must be
// called before Start; an empty bind leaves the API off.
func (d *Daemon) SetHandler(handler http.Handler) {
	d.api = newAPIServer(d.cfg.Paths.APIBind, handler, d.logger)
}

// Start acquires the daemon lock and launches the workflow, HTTP API and bot.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another swipely daemon instance is already running")
	}

	if reset, err := d.store.ResetStuckProcessing(ctx); err != nil {
		d.logger.Warn("reset stuck jobs failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reset_stuck_failed"),
			logging.String(logging.FieldErrorHint, "run swipely jobs list to inspect in-flight jobs"),
		)
	} else if reset > 0 {
		d.logger.Info("resumed interrupted jobs", logging.Int64("count", reset))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return fmt.Errorf("start api: %w", err)
	}
	if d.bot != nil {
		if err := d.bot.Start(d.ctx); err != nil {
			logging.WarnWithContext(d.logger, "telegram bot not started", "bot_start_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "bot users get no replies; the web API still works"),
			)
		}
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("swipely daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.cfg.Paths.APIBind),
		logging.Bool("bot", d.bot != nil),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock. Jobs still
// in flight resume from the start of their stage on the next Start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.bot != nil {
		d.bot.Stop()
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("swipely daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Addr returns the HTTP API listen address, or "" when the API is off.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// ResetStuck transitions in-flight jobs back to the start of their stage.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	summary := d.workflow.Status(ctx)
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Workflow:     api.FromStatusSummary(summary),
		Dependencies: DependencyStatuses(preflight.CheckSystemDeps(d.cfg)),
	}
	if d.bot != nil {
		status.BotRunning = d.bot.Running()
	}
	return status
}

// DependencyStatuses converts binary checks for API payloads.
func DependencyStatuses(statuses []deps.Status) []api.DependencyStatus {
	out := make([]api.DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}
