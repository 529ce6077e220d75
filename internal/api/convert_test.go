package api

import (
	"testing"
	"time"

	"swipely/internal/stage"
	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/testsupport"
	"swipely/internal/workflow"
)

func TestFromJobIncludesSlidesAndLane(t *testing.T) {
	created := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	job := &store.Job{
		ID:              3,
		Status:          store.StatusDescribed,
		Source:          store.SourceBot,
		Prompt:          "Morning habits",
		Style:           "neon",
		SlideCount:      3,
		ProgressStage:   "Describing",
		ProgressPercent: 100,
		CreatedAt:       created,
	}
	if err := job.SetSlides(testsupport.SampleSlides()); err != nil {
		t.Fatalf("SetSlides: %v", err)
	}

	dto := FromJob(job)
	if dto.Lane != "media" {
		t.Fatalf("expected media lane for described job, got %q", dto.Lane)
	}
	if len(dto.Slides) != 3 || dto.Slides[0].Title != "Stop <hl>scrolling</hl>" {
		t.Fatalf("unexpected slides: %+v", dto.Slides)
	}
	if dto.CreatedAt != "2026-10-19T08:30:00.000Z" {
		t.Fatalf("unexpected created at %q", dto.CreatedAt)
	}
	if dto.Settings.Format == "" {
		t.Fatal("expected normalized settings")
	}
}

func TestFromJobSkipsCorruptSlides(t *testing.T) {
	dto := FromJob(&store.Job{ID: 1, Status: store.StatusFailed, SlidesJSON: "{not json"})
	if dto.Slides != nil {
		t.Fatalf("expected slides omitted, got %+v", dto.Slides)
	}
	if dto.Lane != "" {
		t.Fatalf("expected no lane for failed job, got %q", dto.Lane)
	}
}

func TestFromStatusSummarySortsHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running: true,
		QueueStats: map[store.Status]int{
			store.StatusPending: 2,
		},
		StageHealth: map[string]stage.Health{
			"writer":   stage.Healthy("writer"),
			"exporter": stage.Unhealthy("exporter", "chrome missing"),
		},
		LastJob: &store.Job{ID: 9, Status: store.StatusCompleted},
	}
	wf := FromStatusSummary(summary)
	if len(wf.StageHealth) != 2 || wf.StageHealth[0].Name != "exporter" || wf.StageHealth[0].Ready {
		t.Fatalf("unexpected stage health: %+v", wf.StageHealth)
	}
	if wf.JobStats["pending"] != 2 || wf.JobStats["completed"] != 0 {
		t.Fatalf("unexpected stats: %+v", wf.JobStats)
	}
	if _, ok := wf.JobStats["failed"]; !ok {
		t.Fatal("expected zero-filled status keys")
	}
	if wf.LastJob == nil || wf.LastJob.ID != 9 {
		t.Fatalf("unexpected last job: %+v", wf.LastJob)
	}
}

func TestFromTemplatesCoversCatalog(t *testing.T) {
	catalog := templates.MustDefault()
	got := FromTemplates(catalog.List())
	if len(got) != 16 {
		t.Fatalf("expected 16 templates, got %d", len(got))
	}
	for _, tpl := range got {
		if tpl.ID == "" || tpl.Background == "" || tpl.Accent == "" {
			t.Fatalf("incomplete template entry: %+v", tpl)
		}
	}
}
