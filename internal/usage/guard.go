package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swipely/internal/config"
	"swipely/internal/services"
	"swipely/internal/store"
)

// Store is the persistence the guard needs.
type Store interface {
	UsageFor(ctx context.Context, telegramID int64, day string) (store.Usage, error)
	ConsumeUsage(ctx context.Context, telegramID int64, day string, photo bool, limit, photoLimit int) (store.Usage, error)
	RefundUsage(ctx context.Context, telegramID int64, day string, photo bool) error
}

// Quota is the limit set that applies to one tier.
type Quota struct {
	Daily      int
	PhotoDaily int
}

// Status reports a user's standing for the current day.
type Status struct {
	Tier           store.Tier `json:"tier"`
	Day            string     `json:"day"`
	Used           int        `json:"used"`
	Limit          int        `json:"limit"`
	Remaining      int        `json:"remaining"`
	PhotoUsed      int        `json:"photo_used"`
	PhotoLimit     int        `json:"photo_limit"`
	PhotoRemaining int        `json:"photo_remaining"`
	PhotoAllowed   bool       `json:"photo_allowed"`
	ProUntil       *time.Time `json:"pro_until,omitempty"`
}

// Guard checks and consumes quota.
type Guard struct {
	store  Store
	limits config.Limits
	now    func() time.Time
}

// NewGuard builds a guard over the [limits] section.
func NewGuard(st Store, limits config.Limits) *Guard {
	return &Guard{store: st, limits: limits, now: time.Now}
}

// SetClock overrides the time source.
func (g *Guard) SetClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// QuotaFor returns the limits of a tier.
func (g *Guard) QuotaFor(tier store.Tier) Quota {
	if tier == store.TierPro {
		return Quota{Daily: g.limits.ProDaily, PhotoDaily: g.limits.ProPhotoDaily}
	}
	return Quota{Daily: g.limits.FreeDaily, PhotoDaily: g.limits.FreePhotoDaily}
}

// Today returns the usage day key for now.
func (g *Guard) Today() string {
	return store.DayKey(g.now())
}

// Status returns today's counters and limits for the user.
func (g *Guard) Status(ctx context.Context, user *store.User) (Status, error) {
	if user == nil {
		return Status{}, errors.New("user is required")
	}
	now := g.now()
	tier := user.EffectiveTier(now)
	quota := g.QuotaFor(tier)
	day := store.DayKey(now)
	counters, err := g.store.UsageFor(ctx, user.TelegramID, day)
	if err != nil {
		return Status{}, services.Wrap(services.ErrTransient, "usage", "read usage", "Failed to read usage counters", err)
	}
	status := Status{
		Tier:           tier,
		Day:            day,
		Used:           counters.Generations,
		Limit:          quota.Daily,
		Remaining:      max(quota.Daily-counters.Generations, 0),
		PhotoUsed:      counters.PhotoGenerations,
		PhotoLimit:     quota.PhotoDaily,
		PhotoRemaining: max(quota.PhotoDaily-counters.PhotoGenerations, 0),
		PhotoAllowed:   quota.PhotoDaily > 0,
	}
	if tier == store.TierPro {
		status.ProUntil = user.ProUntil
	}
	return status, nil
}

// Check reports whether the user may start a generation now without
// consuming anything.
func (g *Guard) Check(ctx context.Context, user *store.User, photo bool) error {
	status, err := g.Status(ctx, user)
	if err != nil {
		return err
	}
	return evaluate(status, photo)
}

// Consume takes one generation (and one photo generation when photo is set)
// from today's quota and returns the day it was charged to.
func (g *Guard) Consume(ctx context.Context, user *store.User, photo bool) (string, error) {
	status, err := g.Status(ctx, user)
	if err != nil {
		return "", err
	}
	if err := evaluate(status, photo); err != nil {
		return "", err
	}
	quota := g.QuotaFor(status.Tier)
	_, err = g.store.ConsumeUsage(ctx, user.TelegramID, status.Day, photo, quota.Daily, quota.PhotoDaily)
	if errors.Is(err, store.ErrQuotaExhausted) {
		return "", services.Wrap(services.ErrLimitExceeded, "usage", "consume", limitMessage(status, photo), err)
	}
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "usage", "consume", "Failed to record usage", err)
	}
	return status.Day, nil
}

// Refund gives back a generation charged to day.
func (g *Guard) Refund(ctx context.Context, telegramID int64, day string, photo bool) error {
	if telegramID == 0 || day == "" {
		return nil
	}
	return g.store.RefundUsage(ctx, telegramID, day, photo)
}

func evaluate(status Status, photo bool) error {
	if photo && !status.PhotoAllowed {
		return services.Wrap(services.ErrForbidden, "usage", "check",
			fmt.Sprintf("Photo mode is not available on the %s plan", status.Tier), nil)
	}
	if status.Remaining <= 0 || (photo && status.PhotoRemaining <= 0) {
		return services.Wrap(services.ErrLimitExceeded, "usage", "check", limitMessage(status, photo), nil)
	}
	return nil
}

func limitMessage(status Status, photo bool) string {
	if photo && status.PhotoRemaining <= 0 && status.Remaining > 0 {
		return fmt.Sprintf("Daily photo limit of %d reached", status.PhotoLimit)
	}
	return fmt.Sprintf("Daily limit of %d carousels reached", status.Limit)
}
