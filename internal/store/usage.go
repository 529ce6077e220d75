package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrQuotaExhausted is returned by ConsumeUsage when the counter is already at its limit.
var ErrQuotaExhausted = errors.New("daily quota exhausted")

// UsageFor returns a user's counters for the given day. Days without a row are zero.
func (s *Store) UsageFor(ctx context.Context, telegramID int64, day string) (Usage, error) {
	usage := Usage{TelegramID: telegramID, Day: day}
	err := s.db.QueryRowContext(ctx,
		`SELECT generations, photo_generations FROM usage WHERE telegram_id = ? AND day = ?`,
		telegramID, day,
	).Scan(&usage.Generations, &usage.PhotoGenerations)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, nil
	}
	if err != nil {
		return usage, fmt.Errorf("read usage: %w", err)
	}
	return usage, nil
}

// ConsumeUsage increments the day's generation counter (and the photo counter
// when photo is set) only while both stay within their limits. The check and
// the increment happen in one transaction.
func (s *Store) ConsumeUsage(ctx context.Context, telegramID int64, day string, photo bool, limit, photoLimit int) (Usage, error) {
	var usage Usage
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO usage (telegram_id, day) VALUES (?, ?) ON CONFLICT (telegram_id, day) DO NOTHING`,
			telegramID, day,
		); err != nil {
			return fmt.Errorf("seed usage: %w", err)
		}
		query := `UPDATE usage SET generations = generations + 1, photo_generations = photo_generations + ?
            WHERE telegram_id = ? AND day = ? AND generations < ?`
		args := []any{boolToInt(photo), telegramID, day, limit}
		if photo {
			query += ` AND photo_generations < ?`
			args = append(args, photoLimit)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("consume usage: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrQuotaExhausted
		}
		usage = Usage{TelegramID: telegramID, Day: day}
		return tx.QueryRowContext(ctx,
			`SELECT generations, photo_generations FROM usage WHERE telegram_id = ? AND day = ?`,
			telegramID, day,
		).Scan(&usage.Generations, &usage.PhotoGenerations)
	})
	if err != nil {
		return Usage{TelegramID: telegramID, Day: day}, err
	}
	return usage, nil
}

// RefundUsage gives back one generation (and one photo generation when photo is set).
func (s *Store) RefundUsage(ctx context.Context, telegramID int64, day string, photo bool) error {
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE usage SET generations = MAX(generations - 1, 0),
            photo_generations = MAX(photo_generations - ?, 0)
         WHERE telegram_id = ? AND day = ?`,
		boolToInt(photo), telegramID, day,
	); err != nil {
		return fmt.Errorf("refund usage: %w", err)
	}
	return nil
}

// ResetUsage clears a user's counters for a day.
func (s *Store) ResetUsage(ctx context.Context, telegramID int64, day string) error {
	if err := s.execWithoutResultRetry(ctx,
		`DELETE FROM usage WHERE telegram_id = ? AND day = ?`, telegramID, day,
	); err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	return nil
}
