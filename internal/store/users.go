package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"swipely/internal/carousel"
)

// Profile carries the Telegram-provided identity fields refreshed on every contact.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	Language   string
}

// EnsureUser inserts a user on first contact and refreshes the profile fields
// afterwards. Preferences and tier are never touched here.
func (s *Store) EnsureUser(ctx context.Context, profile Profile) (*User, error) {
	if profile.TelegramID == 0 {
		return nil, errors.New("telegram id is required")
	}
	now := formatTime(s.clock())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO users (telegram_id, username, first_name, language, tier, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (telegram_id) DO UPDATE SET
             username = COALESCE(excluded.username, users.username),
             first_name = COALESCE(excluded.first_name, users.first_name),
             language = COALESCE(excluded.language, users.language),
             updated_at = excluded.updated_at`,
		profile.TelegramID,
		nullableString(strings.TrimSpace(profile.Username)),
		nullableString(strings.TrimSpace(profile.FirstName)),
		nullableString(strings.ToLower(strings.TrimSpace(profile.Language))),
		TierFree,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return s.GetUser(ctx, profile.TelegramID)
}

// GetUser loads a user. An expired pro subscription is downgraded on read.
func (s *Store) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	now := s.clock()
	if user.Tier == TierPro && user.EffectiveTier(now) == TierFree {
		if err := s.execWithoutResultRetry(ctx,
			`UPDATE users SET tier = ?, pro_until = NULL, updated_at = ? WHERE telegram_id = ? AND tier = ?`,
			TierFree, formatTime(now), telegramID, TierPro,
		); err != nil {
			return nil, fmt.Errorf("downgrade expired pro: %w", err)
		}
		user.Tier = TierFree
		user.ProUntil = nil
	}
	return user, nil
}

// Preferences are the bot-side generation defaults of a user. Nil fields are left unchanged.
type Preferences struct {
	Style      *string
	Format     *carousel.Format
	SlideCount *int
	PhotoMode  *bool
	Handle     *string
	Language   *string
}

// UpdatePreferences applies the non-nil preference fields.
func (s *Store) UpdatePreferences(ctx context.Context, telegramID int64, prefs Preferences) (*User, error) {
	var (
		sets []string
		args []any
	)
	if prefs.Style != nil {
		sets = append(sets, "style = ?")
		args = append(args, nullableString(*prefs.Style))
	}
	if prefs.Format != nil {
		sets = append(sets, "format = ?")
		args = append(args, nullableString(string(*prefs.Format)))
	}
	if prefs.SlideCount != nil {
		sets = append(sets, "slide_count = ?")
		args = append(args, *prefs.SlideCount)
	}
	if prefs.PhotoMode != nil {
		sets = append(sets, "photo_mode = ?")
		args = append(args, boolToInt(*prefs.PhotoMode))
	}
	if prefs.Handle != nil {
		sets = append(sets, "handle = ?")
		args = append(args, nullableString(strings.TrimSpace(*prefs.Handle)))
	}
	if prefs.Language != nil {
		sets = append(sets, "language = ?")
		args = append(args, nullableString(*prefs.Language))
	}
	if len(sets) == 0 {
		return s.GetUser(ctx, telegramID)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(s.clock()), telegramID)

	res, err := s.execWithRetry(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE telegram_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, telegramID)
}

// SetTier changes a user's tier. For pro, days > 0 extends from the later of
// now and the current expiry; days == 0 grants a permanent pro tier.
func (s *Store) SetTier(ctx context.Context, telegramID int64, tier Tier, days int) (*User, error) {
	if _, ok := ParseTier(string(tier)); !ok {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.setTierTx(ctx, tx, telegramID, tier, days)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, telegramID)
}

func (s *Store) setTierTx(ctx context.Context, tx *sql.Tx, telegramID int64, tier Tier, days int) error {
	now := s.clock()
	var proUntil *time.Time
	if tier == TierPro && days > 0 {
		base := now
		var (
			currentTier  string
			currentUntil sql.NullString
		)
		err := tx.QueryRowContext(ctx, `SELECT tier, pro_until FROM users WHERE telegram_id = ?`, telegramID).
			Scan(&currentTier, &currentUntil)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read tier: %w", err)
		}
		if Tier(currentTier) == TierPro && !currentUntil.Valid {
			// Permanent pro already covers any extension.
			return nil
		}
		if Tier(currentTier) == TierPro {
			if until, perr := parseTimeString(currentUntil.String); perr == nil && until.After(base) {
				base = until
			}
		}
		expiry := base.Add(time.Duration(days) * 24 * time.Hour)
		proUntil = &expiry
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET tier = ?, pro_until = ?, updated_at = ? WHERE telegram_id = ?`,
		tier, nullableTime(proUntil), formatTime(now), telegramID)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns users ordered by most recent activity.
func (s *Store) ListUsers(ctx context.Context, limit int) ([]*User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY updated_at DESC, telegram_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
