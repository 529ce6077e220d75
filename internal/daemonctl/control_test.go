package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"swipely/internal/daemonctl"
	"swipely/internal/daemonrun"
	"swipely/internal/testsupport"
)

func holdLock(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })
}

func TestProcessInfoWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || running || pid != 0 {
		t.Fatalf("ProcessInfo = %v, %d, %v", running, pid, err)
	}
	if _, err := daemonctl.StopAndTerminate(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestProcessInfoReadsPIDWhileLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	holdLock(t, daemonctl.LockPath(cfg))
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	pidFile := filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName)
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(4242)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || !running || pid != 4242 {
		t.Fatalf("ProcessInfo = %v, %d, %v", running, pid, err)
	}
	if err := daemonctl.WaitForShutdown(cfg, 300*time.Millisecond); err == nil {
		t.Fatal("expected timeout while lock is held")
	}
}

func TestStopRefusesOwnProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	holdLock(t, daemonctl.LockPath(cfg))
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	pidFile := filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName)
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.StopAndTerminate(cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal the test process")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, st, 5, "offline stats")

	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Live || snap.Status.Running {
		t.Fatalf("expected offline snapshot, got %+v", snap.Status)
	}
	if snap.Status.Workflow.JobStats["pending"] != 1 {
		t.Fatalf("expected pending job in stats, got %+v", snap.Status.Workflow.JobStats)
	}
	if len(snap.Status.Dependencies) == 0 || len(snap.Checks) == 0 {
		t.Fatal("expected dependency and preflight results")
	}
}
