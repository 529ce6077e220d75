package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"swipely/internal/carousel"
	"swipely/internal/config"
	"swipely/internal/i18n"
	"swipely/internal/services"
	"swipely/internal/store"
	"swipely/internal/templates"
	"swipely/internal/usage"
)

// ProfileStore is the user persistence the profile service needs.
type ProfileStore interface {
	GetUser(ctx context.Context, telegramID int64) (*store.User, error)
	UpdatePreferences(ctx context.Context, telegramID int64, prefs store.Preferences) (*store.User, error)
}

// UsageReporter reports today's quota standing.
type UsageReporter interface {
	Status(ctx context.Context, user *store.User) (usage.Status, error)
}

// PreferenceUpdate changes generation defaults. Nil fields are kept.
type PreferenceUpdate struct {
	Style      *string `json:"style,omitempty"`
	Format     *string `json:"format,omitempty"`
	SlideCount *int    `json:"slideCount,omitempty"`
	PhotoMode  *bool   `json:"photoMode,omitempty"`
	Handle     *string `json:"handle,omitempty"`
	Language   *string `json:"language,omitempty"`
}

// ProfileService reads and edits user profiles for the bot and the web API.
type ProfileService struct {
	cfg     *config.Config
	store   ProfileStore
	usage   UsageReporter
	catalog *templates.Catalog
}

// NewProfileService wires the profile service.
func NewProfileService(cfg *config.Config, st ProfileStore, reporter UsageReporter, catalog *templates.Catalog) *ProfileService {
	return &ProfileService{cfg: cfg, store: st, usage: reporter, catalog: catalog}
}

// Profile builds the account view of a user.
func (s *ProfileService) Profile(ctx context.Context, user *store.User) (Profile, error) {
	status, err := s.usage.Status(ctx, user)
	if err != nil {
		return Profile{}, err
	}
	return FromUser(user, status, s.cfg.IsAdmin(user.TelegramID), s.catalog.DefaultID(), s.cfg.Limits.DefaultSlides), nil
}

// UpdatePreferences validates and stores new defaults. Photo Mode can only be
// switched on when the user's plan includes photo generations.
func (s *ProfileService) UpdatePreferences(ctx context.Context, user *store.User, update PreferenceUpdate) (*store.User, error) {
	var prefs store.Preferences
	if update.Style != nil {
		id := strings.TrimSpace(*update.Style)
		if _, ok := s.catalog.Lookup(id); !ok {
			return nil, services.Wrap(services.ErrValidation, "profile", "style", fmt.Sprintf("Unknown style %q", id), nil)
		}
		prefs.Style = &id
	}
	if update.Format != nil {
		format, ok := carousel.ParseFormat(*update.Format)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "profile", "format", fmt.Sprintf("Unknown format %q", *update.Format), nil)
		}
		prefs.Format = &format
	}
	if update.SlideCount != nil {
		n := *update.SlideCount
		if n < s.cfg.Limits.MinSlides || n > s.cfg.Limits.MaxSlides {
			return nil, services.Wrap(services.ErrValidation, "profile", "slides",
				fmt.Sprintf("Slide count must be between %d and %d", s.cfg.Limits.MinSlides, s.cfg.Limits.MaxSlides), nil)
		}
		prefs.SlideCount = &n
	}
	if update.PhotoMode != nil {
		if *update.PhotoMode {
			status, err := s.usage.Status(ctx, user)
			if err != nil {
				return nil, err
			}
			if !status.PhotoAllowed {
				return nil, services.Wrap(services.ErrForbidden, "profile", "photo mode",
					fmt.Sprintf("Photo mode is not available on the %s plan", status.Tier), nil)
			}
		}
		prefs.PhotoMode = update.PhotoMode
	}
	if update.Handle != nil {
		handle := strings.TrimPrefix(strings.TrimSpace(*update.Handle), "@")
		if len(handle) > 30 || strings.ContainsAny(handle, " \t\n") {
			return nil, services.Wrap(services.ErrValidation, "profile", "handle", "Handle must be a single word of at most 30 characters", nil)
		}
		prefs.Handle = &handle
	}
	if update.Language != nil {
		code := i18n.Code(*update.Language)
		prefs.Language = &code
	}

	updated, err := s.store.UpdatePreferences(ctx, user.TelegramID, prefs)
	if errors.Is(err, store.ErrNotFound) {
		return nil, services.Wrap(services.ErrNotFound, "profile", "update", "Unknown user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return updated, nil
}

// FromUser converts a user and its usage standing into the profile view.
// Unset preferences are shown as the defaults a new carousel would use.
func FromUser(user *store.User, status usage.Status, isAdmin bool, defaultStyle string, defaultSlides int) Profile {
	profile := Profile{
		TelegramID: user.TelegramID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		Language:   i18n.Code(user.Language),
		Tier:       string(status.Tier),
		Style:      firstNonEmpty(user.Style, defaultStyle),
		Format:     string(user.Format),
		SlideCount: user.SlideCount,
		PhotoMode:  user.PhotoMode,
		Handle:     user.Handle,
		IsAdmin:    isAdmin,
		Usage:      status,
	}
	if profile.Format == "" {
		profile.Format = string(carousel.FormatSquare)
	}
	if profile.SlideCount <= 0 {
		profile.SlideCount = defaultSlides
	}
	if status.ProUntil != nil {
		profile.ProUntil = status.ProUntil.UTC().Format(time.RFC3339)
	}
	return profile
}
