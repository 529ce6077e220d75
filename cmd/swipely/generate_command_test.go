package main

import (
	"strings"
	"testing"
)

func TestGenerateValidatesInput(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"generate", "habits", "--style", "nope"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown style") {
		t.Fatalf("expected unknown style error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"generate", "habits", "--format", "banner"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"generate", "   "}, env.configPath); err == nil {
		t.Fatal("expected empty prompt error")
	}

	jobs, err := env.store.List(t.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected input must not create jobs, got %d", len(jobs))
	}
}
