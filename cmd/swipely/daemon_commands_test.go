package main

import (
	"os"
	"strings"
	"testing"

	"swipely/internal/logs"
)

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "== Dependencies ==")

	out, _, err = runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestLogsFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "2026-01-01T00:00:00Z INFO workflow: writing job_id=3\n" +
		"2026-01-01T00:00:01Z ERROR workflow: failed job_id=4\n" +
		"2026-01-01T00:00:02Z INFO workflow: delivered job_id=3\n"
	if err := os.WriteFile(logs.CurrentPath(env.cfg.Paths.LogDir), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--job", "3"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "delivered job_id=3")
	if strings.Contains(out, "job_id=4") {
		t.Fatalf("unexpected line for other job: %s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--level", "error"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "writing") || !strings.Contains(out, "failed job_id=4") {
		t.Fatalf("unexpected level filtering: %s", out)
	}
}
