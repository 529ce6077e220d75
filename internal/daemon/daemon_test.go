package daemon_test

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"swipely/internal/config"
	"swipely/internal/daemon"
	"swipely/internal/logging"
	"swipely/internal/stage"
	"swipely/internal/store"
	"swipely/internal/testsupport"
	"swipely/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *store.Job) error { return nil }
func (noopStage) Execute(context.Context, *store.Job) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

type fakePoller struct {
	running atomic.Bool
	started atomic.Int32
}

func (p *fakePoller) Start(context.Context) error {
	p.started.Add(1)
	p.running.Store(true)
	return nil
}

func (p *fakePoller) Stop()         { p.running.Store(false) }
func (p *fakePoller) Running() bool { return p.running.Load() }

func newDaemon(t *testing.T, cfg *config.Config, opts ...daemon.Option) (*daemon.Daemon, *store.Store) {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, st, logger)
	mgr.ConfigureStages(workflow.StageSet{Writer: noopStage{}, Exporter: noopStage{}})
	d, err := daemon.New(cfg, st, logger, mgr, opts...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, st
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	poller := &fakePoller{}
	d, _ := newDaemon(t, cfg, daemon.WithBot(poller))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running || !status.BotRunning {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.LockFilePath != d.LockPath() || status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected paths in status %+v", status)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report")
	}

	d.Stop()
	if d.Running() || poller.Running() {
		t.Fatal("expected daemon and bot stopped")
	}
	if poller.started.Load() != 1 {
		t.Fatalf("expected bot started once, got %d", poller.started.Load())
	}
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second, _ := newDaemon(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock conflict for second daemon")
	}
}

func TestDaemonResumesStuckJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, st := newDaemon(t, cfg)

	job := testsupport.NewJob(t, st, 11, "Morning routines")
	job.Status = store.StatusWriting
	if err := st.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	reset, err := d.ResetStuck(context.Background())
	if err != nil {
		t.Fatalf("ResetStuck: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected one job reset, got %d", reset)
	}
	reloaded, err := st.GetByID(context.Background(), job.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != store.StatusPending {
		t.Fatalf("status = %s, want pending", reloaded.Status)
	}
}

func TestDaemonServesHandler(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"
	d, _ := newDaemon(t, cfg)
	d.SetHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	resp, err := http.Get("http://" + d.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
}
