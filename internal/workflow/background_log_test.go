package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"swipely/internal/store"
	"swipely/internal/testsupport"
)

func TestJobLoggerWritesAndRemoves(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logs := NewJobLogger(cfg)

	job := &store.Job{ID: 12}
	logger, closer, err := logs.Open(job)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	logger.Info("rendering slides")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(cfg.Paths.LogDir, "jobs", "job-000012.log")
	if logs.Path(job.ID) != path {
		t.Fatalf("unexpected path %q", logs.Path(job.ID))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(content), "rendering slides") || !strings.Contains(string(content), `"job_id":12`) {
		t.Fatalf("unexpected job log content %q", content)
	}

	if err := logs.Remove(job.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected log removed, err=%v", err)
	}
	if err := logs.Remove(job.ID); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
}

func TestDeriveStageLabel(t *testing.T) {
	cases := map[store.Status]string{
		store.StatusIllustrating: "Illustrating",
		store.StatusCompleted:    "Completed",
		"":                       "",
	}
	for status, want := range cases {
		if got := deriveStageLabel(status); got != want {
			t.Fatalf("deriveStageLabel(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestCountActiveJobsIgnoresTerminal(t *testing.T) {
	stats := map[store.Status]int{
		store.StatusPending:   2,
		store.StatusRendering: 1,
		store.StatusCompleted: 9,
		store.StatusFailed:    4,
	}
	if got := countActiveJobs(stats); got != 3 {
		t.Fatalf("expected 3 active jobs, got %d", got)
	}
}
