package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"swipely/internal/carousel"
	"swipely/internal/store"
	"swipely/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, st, 42, "Morning routines")
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != store.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}

	fetched, err := st.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Prompt != "Morning routines" || fetched.Settings().Format != carousel.FormatSquare {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}

	health, err := st.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingTables) != 0 || health.TotalJobs != 1 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health details: %+v", health)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.NewJob(t, first, 1, "persist me")
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenStore(t, cfg)
	jobs, err := second.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job after reopen, got %d", len(jobs))
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := st.GetByID(context.Background(), 999)
	if err != nil || job != nil {
		t.Fatalf("expected nil job without error, got %#v, %v", job, err)
	}
}

func TestNewJobRequiresPrompt(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := st.NewJob(context.Background(), store.JobRequest{Style: "minimal"}); err == nil {
		t.Fatal("expected error when prompt missing")
	}
}

func TestNewRenderJobStartsAtIllustrated(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := st.NewRenderJob(ctx, store.JobRequest{TelegramID: 7, Style: "bold", Settings: carousel.DefaultSettings()}, testsupport.SampleSlides())
	if err != nil {
		t.Fatalf("NewRenderJob failed: %v", err)
	}
	if job.Status != store.StatusIllustrated {
		t.Fatalf("expected illustrated, got %s", job.Status)
	}
	if job.SlideCount != 3 {
		t.Fatalf("expected slide count from slides, got %d", job.SlideCount)
	}
	slides, err := job.Slides()
	if err != nil {
		t.Fatalf("Slides failed: %v", err)
	}
	if len(slides) != 3 || slides[0].Type != carousel.SlideHook {
		t.Fatalf("unexpected slides: %+v", slides)
	}

	if _, err := st.NewRenderJob(ctx, store.JobRequest{Style: "bold"}, nil); err == nil {
		t.Fatal("expected error without slides")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	cases := []struct {
		initial  store.Status
		expected store.Status
	}{
		{store.StatusWriting, store.StatusPending},
		{store.StatusDescribing, store.StatusWritten},
		{store.StatusIllustrating, store.StatusDescribed},
		{store.StatusRendering, store.StatusIllustrated},
		{store.StatusDelivering, store.StatusRendered},
		{store.StatusCompleted, store.StatusCompleted},
	}
	var ids []int64
	for i, tc := range cases {
		job := testsupport.NewJob(t, st, int64(i+1), fmt.Sprintf("prompt %d", i))
		job.Status = tc.initial
		if err := st.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	affected, err := st.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if affected != 5 {
		t.Fatalf("expected 5 reset jobs, got %d", affected)
	}
	for i, tc := range cases {
		job, err := st.GetByID(ctx, ids[i])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.initial, tc.expected, job.Status)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	stale := testsupport.NewJob(t, st, 1, "stale")
	stale.Status = store.StatusRendering
	old := time.Now().Add(-time.Hour).UTC()
	stale.LastHeartbeat = &old
	if err := st.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.NewJob(t, st, 2, "fresh")
	fresh.Status = store.StatusWriting
	if err := st.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := st.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	reclaimed, err := st.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", reclaimed)
	}
	got, _ := st.GetByID(ctx, stale.ID)
	if got.Status != store.StatusIllustrated || got.LastHeartbeat != nil {
		t.Fatalf("unexpected reclaimed job: status=%s heartbeat=%v", got.Status, got.LastHeartbeat)
	}
	got, _ = st.GetByID(ctx, fresh.ID)
	if got.Status != store.StatusWriting {
		t.Fatalf("fresh job should stay writing, got %s", got.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	generated := testsupport.NewJob(t, st, 1, "retry me")
	generated.SetFailed("llm exploded")
	if err := st.Update(ctx, generated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	edited, err := st.NewRenderJob(ctx, store.JobRequest{TelegramID: 1, Style: "minimal"}, testsupport.SampleSlides())
	if err != nil {
		t.Fatalf("NewRenderJob failed: %v", err)
	}
	edited.SetFailed("chrome missing")
	if err := st.Update(ctx, edited); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := st.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 retried, got %d", count)
	}
	got, _ := st.GetByID(ctx, generated.ID)
	if got.Status != store.StatusPending || got.ErrorMessage != "" {
		t.Fatalf("unexpected generated job after retry: %+v", got)
	}
	got, _ = st.GetByID(ctx, edited.ID)
	if got.Status != store.StatusIllustrated {
		t.Fatalf("render job should restart at illustrated, got %s", got.Status)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	first := testsupport.NewJob(t, st, 1, "first")
	testsupport.NewJob(t, st, 1, "second")

	next, err := st.NextForStatuses(ctx, store.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected first job, got %#v", next)
	}
	none, err := st.NextForStatuses(ctx, store.StatusRendered)
	if err != nil || none != nil {
		t.Fatalf("expected no job, got %#v, %v", none, err)
	}
}

func TestEnsureUserAndPreferences(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	user, err := st.EnsureUser(ctx, store.Profile{TelegramID: 10, Username: "anna", Language: "RU"})
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if user.Tier != store.TierFree || user.Language != "ru" {
		t.Fatalf("unexpected new user: %+v", user)
	}

	style := "neon"
	format := carousel.FormatStories
	count := 7
	photo := true
	user, err = st.UpdatePreferences(ctx, 10, store.Preferences{Style: &style, Format: &format, SlideCount: &count, PhotoMode: &photo})
	if err != nil {
		t.Fatalf("UpdatePreferences failed: %v", err)
	}
	if user.Style != "neon" || user.Format != carousel.FormatStories || user.SlideCount != 7 || !user.PhotoMode {
		t.Fatalf("preferences not applied: %+v", user)
	}

	user, err = st.EnsureUser(ctx, store.Profile{TelegramID: 10})
	if err != nil {
		t.Fatalf("EnsureUser second call failed: %v", err)
	}
	if user.Username != "anna" || user.Style != "neon" {
		t.Fatalf("second contact should keep profile and preferences: %+v", user)
	}

	if _, err := st.GetUser(ctx, 11); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiredProDowngradesOnRead(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewUser(t, st, 5)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })
	user, err := st.SetTier(ctx, 5, store.TierPro, 30)
	if err != nil {
		t.Fatalf("SetTier failed: %v", err)
	}
	if user.Tier != store.TierPro || user.ProUntil == nil || !user.ProUntil.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected pro user: %+v", user)
	}

	// Extending an active subscription stacks on the current expiry.
	user, err = st.SetTier(ctx, 5, store.TierPro, 10)
	if err != nil {
		t.Fatalf("SetTier extend failed: %v", err)
	}
	if !user.ProUntil.Equal(now.AddDate(0, 0, 40)) {
		t.Fatalf("expected stacked expiry, got %v", user.ProUntil)
	}

	st.SetClock(func() time.Time { return now.AddDate(0, 0, 41) })
	user, err = st.GetUser(ctx, 5)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Tier != store.TierFree || user.ProUntil != nil {
		t.Fatalf("expected downgrade after expiry, got %+v", user)
	}
}

func TestConsumeUsageHonoursLimits(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	day := "2026-03-01"

	for i := 0; i < 3; i++ {
		if _, err := st.ConsumeUsage(ctx, 1, day, false, 3, 0); err != nil {
			t.Fatalf("consume %d failed: %v", i, err)
		}
	}
	if _, err := st.ConsumeUsage(ctx, 1, day, false, 3, 0); !errors.Is(err, store.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}

	// A new day starts from zero.
	usage, err := st.ConsumeUsage(ctx, 1, "2026-03-02", false, 3, 0)
	if err != nil {
		t.Fatalf("consume next day failed: %v", err)
	}
	if usage.Generations != 1 {
		t.Fatalf("expected fresh counter, got %+v", usage)
	}

	if _, err := st.ConsumeUsage(ctx, 2, day, true, 10, 0); !errors.Is(err, store.ErrQuotaExhausted) {
		t.Fatalf("photo with zero photo limit should be refused, got %v", err)
	}
	untouched, err := st.UsageFor(ctx, 2, day)
	if err != nil {
		t.Fatalf("UsageFor failed: %v", err)
	}
	if untouched.Generations != 0 {
		t.Fatalf("refused photo request must not count, got %+v", untouched)
	}

	if err := st.RefundUsage(ctx, 1, day, false); err != nil {
		t.Fatalf("RefundUsage failed: %v", err)
	}
	usage, _ = st.UsageFor(ctx, 1, day)
	if usage.Generations != 2 {
		t.Fatalf("expected refund to decrement, got %+v", usage)
	}
	if err := st.ResetUsage(ctx, 1, day); err != nil {
		t.Fatalf("ResetUsage failed: %v", err)
	}
	usage, _ = st.UsageFor(ctx, 1, day)
	if usage.Generations != 0 {
		t.Fatalf("expected reset counters, got %+v", usage)
	}
}

func TestPresetCRUD(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	created, err := st.CreatePreset(ctx, 1, carousel.StylePreset{Name: " Brand ", Style: "bold", Settings: carousel.DefaultSettings()})
	if err != nil {
		t.Fatalf("CreatePreset failed: %v", err)
	}
	if created.ID == "" || created.Name != "Brand" {
		t.Fatalf("unexpected preset: %+v", created)
	}
	if _, err := st.CreatePreset(ctx, 1, carousel.StylePreset{Name: "Brand", Style: "neon"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}
	if _, err := st.CreatePreset(ctx, 2, carousel.StylePreset{Name: "Brand", Style: "neon"}); err != nil {
		t.Fatalf("other users may reuse names: %v", err)
	}
	if _, err := st.CreatePreset(ctx, 1, carousel.StylePreset{Style: "neon"}); !errors.Is(err, store.ErrInvalidPreset) {
		t.Fatalf("expected ErrInvalidPreset, got %v", err)
	}

	created.Style = "retro"
	created.Settings.Format = carousel.FormatSquare
	updated, err := st.UpdatePreset(ctx, 1, *created)
	if err != nil {
		t.Fatalf("UpdatePreset failed: %v", err)
	}
	if updated.Style != "retro" || updated.Settings.Format != carousel.FormatSquare {
		t.Fatalf("unexpected updated preset: %+v", updated)
	}

	if _, err := st.GetPreset(ctx, 2, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("presets must be scoped to owner, got %v", err)
	}

	list, err := st.ListPresets(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPresets = %v, %v", list, err)
	}
	if err := st.DeletePreset(ctx, 1, created.ID); err != nil {
		t.Fatalf("DeletePreset failed: %v", err)
	}
	if err := st.DeletePreset(ctx, 1, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestHistoryIsCapped(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := st.AddHistory(ctx, 1, carousel.HistoryItem{Prompt: fmt.Sprintf("prompt %d", i), Style: "minimal", SlideCount: 5}, 10); err != nil {
			t.Fatalf("AddHistory failed: %v", err)
		}
	}
	if _, err := st.AddHistory(ctx, 2, carousel.HistoryItem{Prompt: "other", Style: "minimal", SlideCount: 5}, 10); err != nil {
		t.Fatalf("AddHistory failed: %v", err)
	}

	items, err := st.ListHistory(ctx, 1)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(items) != 10 {
		t.Fatalf("expected 10 history items, got %d", len(items))
	}
	if items[0].Prompt != "prompt 11" || items[9].Prompt != "prompt 2" {
		t.Fatalf("unexpected history order: first=%q last=%q", items[0].Prompt, items[9].Prompt)
	}
	others, _ := st.ListHistory(ctx, 2)
	if len(others) != 1 {
		t.Fatalf("other user's history must be untouched, got %d", len(others))
	}
}

func TestHistoryKeepsOneEntryPerJob(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, 3, "retry me")

	first, err := st.AddHistory(ctx, 3, carousel.HistoryItem{Prompt: "retry me", Style: "minimal", SlideCount: 5, JobID: job.ID}, 10)
	if err != nil {
		t.Fatalf("AddHistory failed: %v", err)
	}
	again, err := st.AddHistory(ctx, 3, carousel.HistoryItem{Prompt: "retry me", Style: "minimal", SlideCount: 6, JobID: job.ID}, 10)
	if err != nil {
		t.Fatalf("AddHistory retry failed: %v", err)
	}
	if again.ID != first.ID || again.SlideCount != 5 {
		t.Fatalf("expected retry to return the stored entry, got %+v want id %s", again, first.ID)
	}

	items, err := st.ListHistory(ctx, 3)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(items) != 1 || items[0].JobID != job.ID {
		t.Fatalf("expected a single entry for job %d, got %+v", job.ID, items)
	}
}

func TestMarkPaymentSucceededIsIdempotent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewUser(t, st, 9)

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })

	if _, err := st.CreatePayment(ctx, store.Payment{ID: "pay-1", TelegramID: 9, Amount: "299.00", Currency: "RUB", Days: 30, IdempotenceKey: "k1"}); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	payment, applied, err := st.MarkPaymentSucceeded(ctx, "pay-1")
	if err != nil {
		t.Fatalf("MarkPaymentSucceeded failed: %v", err)
	}
	if !applied || payment.Status != store.PaymentSucceeded {
		t.Fatalf("expected first settlement to apply, got applied=%v payment=%+v", applied, payment)
	}
	_, applied, err = st.MarkPaymentSucceeded(ctx, "pay-1")
	if err != nil {
		t.Fatalf("second MarkPaymentSucceeded failed: %v", err)
	}
	if applied {
		t.Fatal("duplicate webhook must not apply twice")
	}

	user, err := st.GetUser(ctx, 9)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Tier != store.TierPro || !user.ProUntil.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("expected 30 days of pro, got %+v", user)
	}

	if _, _, err := st.MarkPaymentSucceeded(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	revenue, err := st.Revenue(ctx)
	if err != nil {
		t.Fatalf("Revenue failed: %v", err)
	}
	if revenue["RUB"] != "299.00" {
		t.Fatalf("unexpected revenue: %v", revenue)
	}
}

func TestPaidRenewalKeepsPermanentPro(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewUser(t, st, 7)

	if _, err := st.SetTier(ctx, 7, store.TierPro, 0); err != nil {
		t.Fatalf("SetTier failed: %v", err)
	}
	if _, err := st.CreatePayment(ctx, store.Payment{ID: "pay-7", TelegramID: 7, Amount: "299.00", Currency: "RUB", Days: 30, IdempotenceKey: "k7"}); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if _, applied, err := st.MarkPaymentSucceeded(ctx, "pay-7"); err != nil || !applied {
		t.Fatalf("MarkPaymentSucceeded = %v, %v", applied, err)
	}
	if _, err := st.SetTier(ctx, 7, store.TierPro, 10); err != nil {
		t.Fatalf("SetTier with days failed: %v", err)
	}

	user, err := st.GetUser(ctx, 7)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Tier != store.TierPro || user.ProUntil != nil {
		t.Fatalf("expected permanent pro to survive renewals, got tier=%s pro_until=%v", user.Tier, user.ProUntil)
	}
}

func TestAdminStats(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.NewUser(t, st, 1)
	testsupport.NewUser(t, st, 2)
	if _, err := st.SetTier(ctx, 2, store.TierPro, 0); err != nil {
		t.Fatalf("SetTier failed: %v", err)
	}
	testsupport.NewJob(t, st, 1, "one")
	if _, err := st.ConsumeUsage(ctx, 1, store.DayKey(time.Now()), false, 3, 0); err != nil {
		t.Fatalf("ConsumeUsage failed: %v", err)
	}

	stats, err := st.AdminStats(ctx)
	if err != nil {
		t.Fatalf("AdminStats failed: %v", err)
	}
	if stats.UsersByTier[store.TierFree] != 1 || stats.UsersByTier[store.TierPro] != 1 {
		t.Fatalf("unexpected tiers: %v", stats.UsersByTier)
	}
	if stats.JobsByStatus[store.StatusPending] != 1 || stats.GenerationsToday != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
