package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			if IsProcessingStatus(status) {
				health.Processing += count
			} else {
				health.Pending += count
			}
		}
	}
	return health, nil
}

// AdminStats summarizes the service for the admin panel.
type AdminStats struct {
	UsersByTier      map[Tier]int
	JobsByStatus     map[Status]int
	GenerationsToday int
	PhotoToday       int
	Revenue          map[string]string
}

// AdminStats collects user, job, usage and revenue figures.
func (s *Store) AdminStats(ctx context.Context) (AdminStats, error) {
	stats := AdminStats{UsersByTier: map[Tier]int{}}

	now := s.clock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE WHEN tier = ? AND (pro_until IS NULL OR pro_until > ?) THEN ? ELSE ? END AS effective, COUNT(1)
         FROM users GROUP BY effective`,
		TierPro, formatTime(now), TierPro, TierFree)
	if err != nil {
		return stats, fmt.Errorf("users by tier: %w", err)
	}
	for rows.Next() {
		var tier Tier
		var count int
		if err := rows.Scan(&tier, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.UsersByTier[tier] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.JobsByStatus, err = s.Stats(ctx); err != nil {
		return stats, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(generations), 0), COALESCE(SUM(photo_generations), 0) FROM usage WHERE day = ?`,
		DayKey(now),
	).Scan(&stats.GenerationsToday, &stats.PhotoToday); err != nil {
		return stats, fmt.Errorf("usage today: %w", err)
	}

	if stats.Revenue, err = s.Revenue(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// CheckHealth returns diagnostic information about the database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("list tables: %w", err)
	}
	present := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			health.Error = err.Error()
			return health, fmt.Errorf("scan table name: %w", err)
		}
		present[name] = struct{}{}
	}
	rows.Close()
	for _, table := range expectedTables {
		if _, ok := present[table]; !ok {
			health.MissingTables = append(health.MissingTables, table)
		}
	}

	if _, ok := present["jobs"]; ok {
		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM jobs").Scan(&health.TotalJobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
