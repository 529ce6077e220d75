package outputs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"swipely/internal/logging"
	"swipely/internal/store"
	"swipely/internal/testsupport"
)

func makeDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "slide-01.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestPruneInvalidRoots(t *testing.T) {
	for _, root := range []string{"", "   ", "/nonexistent/swipely/outputs"} {
		result := Prune(context.Background(), root, time.Hour, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Fatalf("expected empty result for %q, got %+v", root, result)
		}
	}
}

func TestPruneRemovesOldInactiveDirectories(t *testing.T) {
	root := t.TempDir()
	old := makeDir(t, root, "job-000001", 48*time.Hour)
	busy := makeDir(t, root, "job-000002", 48*time.Hour)
	fresh := makeDir(t, root, "job-000003", time.Minute)
	cli := makeDir(t, root, "render-01jabc", 72*time.Hour)

	result := Prune(context.Background(), root, 24*time.Hour, map[int64]struct{}{2: {}}, logging.NewNop())
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %+v", result.Removed)
	}
	if result.Freed() != 6 {
		t.Fatalf("freed = %d, want 6", result.Freed())
	}
	for _, gone := range []string{old, cli} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Fatalf("%s should be removed", gone)
		}
	}
	for _, kept := range []string{busy, fresh} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("%s should be kept: %v", kept, err)
		}
	}
}

func TestPruneDisabled(t *testing.T) {
	root := t.TempDir()
	makeDir(t, root, "job-000009", 1000*time.Hour)
	if result := Prune(context.Background(), root, 0, nil, nil); len(result.Removed) != 0 {
		t.Fatalf("expected no removals with retention disabled, got %+v", result.Removed)
	}
}

func TestListAndJobIDFromName(t *testing.T) {
	root := t.TempDir()
	makeDir(t, root, "job-000010", time.Hour)
	makeDir(t, root, "job-000011", 2*time.Hour)
	dirs, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 2 || dirs[0].JobID != 11 || dirs[1].JobID != 10 {
		t.Fatalf("unexpected listing: %+v", dirs)
	}
	if _, ok := JobIDFromName("job-abc"); ok {
		t.Fatal("expected parse failure")
	}
}

func TestPruneInactiveKeepsRunningJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.OutputRetentionDays = 1
	st := testsupport.MustOpenStore(t, cfg)

	running := testsupport.NewJob(t, st, 1, "still writing")
	done := testsupport.NewJob(t, st, 2, "finished")
	done.Status = store.StatusCompleted
	if err := st.Update(context.Background(), done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	runningDir := makeDir(t, cfg.Paths.OutputDir, filepath.Base(cfg.JobOutputDir(running.ID)), 72*time.Hour)
	doneDir := makeDir(t, cfg.Paths.OutputDir, filepath.Base(cfg.JobOutputDir(done.ID)), 72*time.Hour)

	result, err := PruneInactive(context.Background(), cfg.Paths.OutputDir, Retention(cfg), st, logging.NewNop())
	if err != nil {
		t.Fatalf("PruneInactive: %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0].Path != doneDir {
		t.Fatalf("unexpected removals: %+v", result.Removed)
	}
	if _, err := os.Stat(runningDir); err != nil {
		t.Fatalf("running job output should be kept: %v", err)
	}
}
