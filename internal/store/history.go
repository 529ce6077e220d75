package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"swipely/internal/carousel"
)

// AddHistory records a generation and prunes the user's history to keep at most limit rows.
// A job that already has an entry returns the stored one, so retried jobs are listed once.
func (s *Store) AddHistory(ctx context.Context, telegramID int64, item carousel.HistoryItem, limit int) (*carousel.HistoryItem, error) {
	if limit <= 0 {
		limit = 10
	}
	item.Prompt = strings.TrimSpace(item.Prompt)
	item.ID = ulid.Make().String()
	item.CreatedAt = s.clock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if item.JobID != 0 {
			var createdRaw string
			err := tx.QueryRowContext(ctx,
				`SELECT id, prompt, style, slide_count, created_at FROM history
                 WHERE telegram_id = ? AND job_id = ? LIMIT 1`,
				telegramID, item.JobID,
			).Scan(&item.ID, &item.Prompt, &item.Style, &item.SlideCount, &createdRaw)
			switch {
			case err == nil:
				item.CreatedAt, _ = parseTimeString(createdRaw)
				return nil
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("lookup history: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (id, telegram_id, prompt, style, slide_count, job_id, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, telegramID, item.Prompt, item.Style, item.SlideCount, nullableJobID(item.JobID), formatTime(item.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM history WHERE telegram_id = ? AND id NOT IN (
                SELECT id FROM history WHERE telegram_id = ? ORDER BY id DESC LIMIT ?
            )`,
			telegramID, telegramID, limit,
		); err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListHistory returns a user's history, newest first.
func (s *Store) ListHistory(ctx context.Context, telegramID int64) ([]carousel.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, style, slide_count, job_id, created_at FROM history
         WHERE telegram_id = ? ORDER BY id DESC`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	items := []carousel.HistoryItem{}
	for rows.Next() {
		var (
			item       carousel.HistoryItem
			jobID      sql.NullInt64
			createdRaw string
		)
		if err := rows.Scan(&item.ID, &item.Prompt, &item.Style, &item.SlideCount, &jobID, &createdRaw); err != nil {
			return nil, err
		}
		item.JobID = jobID.Int64
		item.CreatedAt, _ = parseTimeString(createdRaw)
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableJobID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
