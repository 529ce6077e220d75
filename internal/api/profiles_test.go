package api_test

import (
	"context"
	"errors"
	"testing"

	"swipely/internal/api"
	"swipely/internal/services"
	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/testsupport"
	"swipely/internal/usage"
)

func newProfileService(t *testing.T) (*api.ProfileService, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAdmins(7))
	st := testsupport.MustOpenStore(t, cfg)
	return api.NewProfileService(cfg, st, usage.NewGuard(st, cfg.Limits), templates.MustDefault()), st
}

func ptr[T any](v T) *T { return &v }

func TestProfileShowsDefaultsAndUsage(t *testing.T) {
	svc, st := newProfileService(t)
	user := testsupport.NewUser(t, st, 7)

	profile, err := svc.Profile(context.Background(), user)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !profile.IsAdmin || profile.Tier != "free" || profile.Format != "square" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.Style == "" || profile.SlideCount == 0 {
		t.Fatalf("expected defaults filled in, got %+v", profile)
	}
	if profile.Usage.Limit != 3 || profile.Usage.Remaining != 3 {
		t.Fatalf("unexpected usage: %+v", profile.Usage)
	}
}

func TestUpdatePreferencesValidates(t *testing.T) {
	svc, st := newProfileService(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, 8)

	updated, err := svc.UpdatePreferences(ctx, user, api.PreferenceUpdate{
		Style:      ptr("neon"),
		Format:     ptr("4:5"),
		SlideCount: ptr(9),
		Handle:     ptr("@studio"),
		Language:   ptr("ru-RU"),
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if updated.Style != "neon" || updated.Format != "portrait" || updated.SlideCount != 9 || updated.Handle != "studio" || updated.Language != "ru" {
		t.Fatalf("unexpected user: %+v", updated)
	}

	cases := map[string]api.PreferenceUpdate{
		"style":  {Style: ptr("comic-sans")},
		"format": {Format: ptr("landscape")},
		"slides": {SlideCount: ptr(40)},
		"handle": {Handle: ptr("two words")},
	}
	for name, update := range cases {
		if _, err := svc.UpdatePreferences(ctx, updated, update); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestPhotoModeRequiresPro(t *testing.T) {
	svc, st := newProfileService(t)
	ctx := context.Background()
	user := testsupport.NewUser(t, st, 9)

	if _, err := svc.UpdatePreferences(ctx, user, api.PreferenceUpdate{PhotoMode: ptr(true)}); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden on free tier, got %v", err)
	}
	pro, err := st.SetTier(ctx, 9, store.TierPro, 30)
	if err != nil {
		t.Fatalf("SetTier: %v", err)
	}
	updated, err := svc.UpdatePreferences(ctx, pro, api.PreferenceUpdate{PhotoMode: ptr(true)})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if !updated.PhotoMode {
		t.Fatal("expected photo mode enabled")
	}
}
