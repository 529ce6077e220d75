package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// rollbackCase renders a CASE expression that moves in-flight statuses back
// to the start status of their stage, along with its bind arguments.
func rollbackCase() (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(stageRollbackTransitions)*2)
	b.WriteString("CASE status")
	for _, tr := range stageRollbackTransitions {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, tr.from, tr.to)
	}
	b.WriteString(" ELSE status END")
	return b.String(), args
}

func inFlightStatuses() []Status {
	out := make([]Status, 0, len(stageRollbackTransitions))
	for _, tr := range stageRollbackTransitions {
		out = append(out, tr.from)
	}
	return out
}

// ResetStuckProcessing resets jobs in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseExpr, args := rollbackCase()
	inFlight := inFlightStatuses()
	args = append(args, formatTime(s.clock()))
	args = append(args, statusArgs(inFlight)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = `+caseExpr+`,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(inFlight))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTime(s.clock())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns jobs whose heartbeat expired before cutoff to
// the start of their current stage.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseExpr, args := rollbackCase()
	inFlight := inFlightStatuses()
	args = append(args, formatTime(s.clock()))
	args = append(args, statusArgs(inFlight)...)
	args = append(args, formatTime(cutoff))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = `+caseExpr+`,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`+makePlaceholders(len(inFlight))+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back for reprocessing. Render-only jobs (slides
// without a prompt) restart at rendering; generation jobs start over.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := formatTime(s.clock())
	query := `UPDATE jobs
        SET status = CASE WHEN slides_json IS NOT NULL AND prompt IS NULL THEN ? ELSE ? END,
            progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE status = ?`
	args := []any{StatusIllustrated, StatusPending, now, StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}
