package testsupport

import (
	"context"
	"testing"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewJob enqueues a web generation job for tests.
func NewJob(t testing.TB, st *store.Store, telegramID int64, prompt string) *store.Job {
	t.Helper()

	job, err := st.NewJob(context.Background(), store.JobRequest{
		TelegramID: telegramID,
		Source:     store.SourceWeb,
		Prompt:     prompt,
		Style:      "minimal",
		SlideCount: 5,
		Settings:   carousel.DefaultSettings(),
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// NewUser registers a Telegram user for tests.
func NewUser(t testing.TB, st *store.Store, telegramID int64) *store.User {
	t.Helper()

	user, err := st.EnsureUser(context.Background(), store.Profile{TelegramID: telegramID, Username: "tester", Language: "en"})
	if err != nil {
		t.Fatalf("store.EnsureUser: %v", err)
	}
	return user
}

// SampleSlides returns a small valid carousel.
func SampleSlides() []carousel.Slide {
	return []carousel.Slide{
		{Type: carousel.SlideHook, Title: "Stop <hl>scrolling</hl>", Content: "Three habits that change mornings"},
		{Type: carousel.SlideContent, Title: "Wake early", Content: "Same time every day."},
		{Type: carousel.SlideCTA, Title: "Save this", Content: "Follow for more"},
	}
}
