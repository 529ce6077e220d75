package logs_test

import (
	"testing"

	"swipely/internal/logs"
)

func TestJobFilter(t *testing.T) {
	keep := logs.JobFilter(12)
	cases := map[string]bool{
		"2026-01-01T00:00:00Z INFO render: done job_id=12 slides=5": true,
		"2026-01-01T00:00:00Z INFO render: done job_id=123":         false,
		`{"time":"x","level":"INFO","msg":"done","job_id":12}`:      true,
		`{"time":"x","level":"INFO","msg":"done","job_id":120}`:     false,
		"2026-01-01T00:00:00Z INFO daemon: started":                 false,
	}
	for line, want := range cases {
		if got := keep(line); got != want {
			t.Fatalf("JobFilter(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	if logs.LevelFilter("") != nil {
		t.Fatal("expected nil filter for empty level")
	}
	keep := logs.All(logs.LevelFilter("warn"), nil)
	if keep("2026-01-01T00:00:00Z INFO bot: update") {
		t.Fatal("info line should be dropped")
	}
	if !keep("2026-01-01T00:00:00Z ERROR bot: send failed") {
		t.Fatal("error line should pass")
	}
	if !keep(`{"level":"WARN","msg":"slow"}`) {
		t.Fatal("json warn line should pass")
	}
	if !keep("continuation line") {
		t.Fatal("unrecognized lines pass")
	}
}
