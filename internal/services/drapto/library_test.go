package drapto

import (
	"path/filepath"
	"testing"

	draptolib "github.com/five82/drapto"
)

func TestOutputPath(t *testing.T) {
	got := OutputPath("/tmp/job-000001/promo.mp4", "/tmp/out")
	if got != filepath.Join("/tmp/out", "promo.mkv") {
		t.Fatalf("unexpected output path %q", got)
	}
}

func TestProgressReporterFoldsEvents(t *testing.T) {
	var updates []ProgressUpdate
	rep := newProgressReporter(func(u ProgressUpdate) { updates = append(updates, u) })

	rep.StageProgress(draptolib.StageProgress{Stage: "analysis", Percent: 10, Message: "probing"})
	rep.Warning("odd stream")
	rep.Hardware(draptolib.HardwareSummary{})
	rep.OperationComplete("done")

	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}
	if updates[0].Stage != "analysis" || updates[0].Percent != 10 {
		t.Fatalf("unexpected stage update %+v", updates[0])
	}
	if !updates[1].Warning {
		t.Fatal("expected warning flag")
	}
	if updates[2].Percent != 100 {
		t.Fatalf("expected completion at 100, got %v", updates[2].Percent)
	}
}
