package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"swipely/internal/carousel"
)

// JobRequest describes a new generation job.
type JobRequest struct {
	TelegramID int64
	ChatID     int64
	Source     Source
	Prompt     string
	Style      string
	Language   string
	SlideCount int
	PhotoMode  bool
	Settings   carousel.FormatSettings
	UsageDay   string
}

// NewJob enqueues a generation job that starts with slide writing.
func (s *Store) NewJob(ctx context.Context, req JobRequest) (*Job, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	return s.insertJob(ctx, req, nil, StatusPending)
}

// NewRenderJob enqueues a job for slides that already exist (editor changes,
// CLI renders). It skips writing and illustration and starts at rendering.
func (s *Store) NewRenderJob(ctx context.Context, req JobRequest, slides []carousel.Slide) (*Job, error) {
	if len(slides) == 0 {
		return nil, errors.New("slides are required")
	}
	return s.insertJob(ctx, req, slides, StatusIllustrated)
}

func (s *Store) insertJob(ctx context.Context, req JobRequest, slides []carousel.Slide, status Status) (*Job, error) {
	if req.Source == "" {
		req.Source = SourceWeb
	}
	job := &Job{}
	if err := job.SetSettings(req.Settings); err != nil {
		return nil, err
	}
	if slides != nil {
		if err := job.SetSlides(slides); err != nil {
			return nil, err
		}
		req.SlideCount = len(slides)
	}
	timestamp := formatTime(s.clock())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            telegram_id, chat_id, source, prompt, style, language, slide_count, photo_mode,
            settings_json, slides_json, usage_day, status, created_at, updated_at, progress_percent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		req.TelegramID,
		req.ChatID,
		req.Source,
		nullableString(req.Prompt),
		req.Style,
		nullableString(req.Language),
		req.SlideCount,
		boolToInt(req.PhotoMode),
		job.SettingsJSON,
		nullableString(job.SlidesJSON),
		nullableString(req.UsageDay),
		status,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job returns nil without error.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = s.clock()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET style = ?, language = ?, slide_count = ?, photo_mode = ?, settings_json = ?,
             slides_json = ?, output_dir = ?, usage_day = ?, status = ?, error_message = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?,
             last_heartbeat = ?
         WHERE id = ?`,
		job.Style,
		nullableString(job.Language),
		job.SlideCount,
		boolToInt(job.PhotoMode),
		nullableString(job.SettingsJSON),
		nullableString(job.SlidesJSON),
		nullableString(job.OutputDir),
		nullableString(job.UsageDay),
		job.Status,
		nullableString(job.ErrorMessage),
		nullableString(job.ProgressStage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		formatTime(job.UpdatedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	query += ` ORDER BY created_at, id`
	return s.queryJobs(ctx, query, args...)
}

// ListForUser returns the most recent jobs of a Telegram user, newest first.
func (s *Store) ListForUser(ctx context.Context, telegramID int64, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE telegram_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		telegramID, limit)
}

// ActiveForUser counts jobs of a user that have not reached a terminal status.
func (s *Store) ActiveForUser(ctx context.Context, telegramID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM jobs WHERE telegram_id = ? AND status NOT IN (?, ?)`,
		telegramID, StatusCompleted, StatusFailed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextForStatuses returns the oldest job matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + makePlaceholders(len(statuses)) + `) ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, statusArgs(statuses)...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}
