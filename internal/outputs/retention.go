package outputs

import (
	"context"
	"log/slog"
	"time"

	"swipely/internal/config"
	"swipely/internal/store"
)

// JobLister is the store subset used to find jobs still in flight.
type JobLister interface {
	List(ctx context.Context, statuses ...store.Status) ([]*store.Job, error)
}

// Retention converts paths.output_retention_days into a max age.
func Retention(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Paths.OutputRetentionDays <= 0 {
		return 0
	}
	return time.Duration(cfg.Paths.OutputRetentionDays) * 24 * time.Hour
}

// PruneInactive prunes root while keeping directories of unfinished jobs.
func PruneInactive(ctx context.Context, root string, maxAge time.Duration, jobs JobLister, logger *slog.Logger) (PruneResult, error) {
	if maxAge <= 0 {
		return PruneResult{}, nil
	}
	var open []store.Status
	for _, status := range store.AllStatuses() {
		if !status.IsTerminal() {
			open = append(open, status)
		}
	}
	active := make(map[int64]struct{})
	if jobs != nil {
		inflight, err := jobs.List(ctx, open...)
		if err != nil {
			return PruneResult{}, err
		}
		for _, job := range inflight {
			active[job.ID] = struct{}{}
		}
	}
	return Prune(ctx, root, maxAge, active, logger), nil
}
