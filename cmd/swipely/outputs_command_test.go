package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOutputsPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	old := filepath.Join(env.cfg.Paths.OutputDir, "job-000042")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stamp := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(old, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"outputs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("outputs list: %v", err)
	}
	requireContains(t, out, "job-000042")

	out, _, err = runCLI(t, []string{"outputs", "prune"}, env.configPath)
	if err != nil {
		t.Fatalf("outputs prune: %v", err)
	}
	requireContains(t, out, "Removed 1 directories")
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old output directory to be removed")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{512: "512 B", 2048: "2.0 KiB", 5 << 20: "5.0 MiB"}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
