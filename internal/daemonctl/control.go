package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"swipely/internal/api"
	"swipely/internal/config"
	"swipely/internal/daemon"
	"swipely/internal/daemonrun"
	"swipely/internal/ipc"
	"swipely/internal/preflight"
	"swipely/internal/store"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// ErrDaemonNotRunning indicates no daemon holds the lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached `swipely serve` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// LockPath returns where a running daemon holds its lock.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, daemon.LockFileName)
}

// ProcessInfo reports whether a daemon holds the lock and its pid when known.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	if cfg == nil {
		return false, 0, errors.New("configuration not available")
	}
	lock := flock.New(LockPath(cfg))
	acquired, err := lock.TryLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("probe daemon lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return false, 0, nil
	}
	return true, daemonrun.ReadPID(cfg), nil
}

// WaitForStart waits until a daemon holds the lock.
func WaitForStart(cfg *config.Config, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, pid, err := ProcessInfo(cfg)
		if err != nil {
			return 0, err
		}
		if running {
			return pid, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return 0, fmt.Errorf("daemon failed to start within %s; check %s", timeout, filepath.Join(cfg.Paths.LogDir, "swipely.log"))
}

// EnsureStarted launches the daemon unless one already runs.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StartResult{}, err
	}
	if running {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	pid, err = WaitForStart(cfg, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: pid}, nil
}

// WaitForShutdown waits for the daemon lock to be released.
func WaitForShutdown(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, _, err := ProcessInfo(cfg)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// StopAndTerminate sends SIGTERM and force-kills the process if it is still
// alive after gracePeriod.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("daemon holds %s but no pid file found in %s", LockPath(cfg), cfg.Paths.LogDir)
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if WaitForShutdown(cfg, gracePeriod) == nil {
		return result, nil
	}

	if err := proc.Kill(); err != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	_ = os.Remove(filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName))
	result.ForcedKill = true
	return result, nil
}

// Snapshot is the status view printed by `swipely status`.
type Snapshot struct {
	Status api.DaemonStatus
	// Live is true when the status came from the daemon API.
	Live   bool
	Checks []preflight.Result
}

// BuildStatusSnapshot asks the running daemon for its status and falls back
// to the database and local dependency checks when the API is unreachable.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}
	if client, err := ipc.Dial(ctx, cfg); err == nil {
		defer client.Close()
		if status, statusErr := client.Status(ctx); statusErr == nil && status != nil {
			snap.Status = *status
			snap.Live = true
		}
	}

	if !snap.Live {
		running, pid, err := ProcessInfo(cfg)
		if err != nil {
			return nil, err
		}
		snap.Status.Running = running
		snap.Status.PID = pid
		snap.Status.DatabasePath = cfg.DatabasePath()
		snap.Status.LockFilePath = LockPath(cfg)
		snap.Status.Dependencies = daemon.DependencyStatuses(preflight.CheckSystemDeps(cfg))

		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if st, openErr := store.Open(cfg); openErr == nil {
			if stats, statsErr := st.Stats(queryCtx); statsErr == nil {
				snap.Status.Workflow.JobStats = api.MergeJobStats(stats)
			}
			_ = st.Close()
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	snap.Checks = preflight.RunAll(checkCtx, cfg)
	return snap, nil
}
