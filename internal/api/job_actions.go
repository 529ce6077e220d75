package api

import (
	"context"

	"swipely/internal/store"
)

// JobActionStore captures the job operations needed by per-job retry and remove workflows.
type JobActionStore interface {
	GetByID(ctx context.Context, id int64) (*store.Job, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
}

type RetryJobOutcome string

const (
	RetryJobUpdated   RetryJobOutcome = "retried"
	RetryJobNotFound  RetryJobOutcome = "not_found"
	RetryJobNotFailed RetryJobOutcome = "not_failed"
)

type RetryJobResult struct {
	ID      int64           `json:"id"`
	Outcome RetryJobOutcome `json:"outcome"`
}

type RetryJobsResult struct {
	UpdatedCount int64            `json:"updatedCount"`
	Items        []RetryJobResult `json:"items"`
}

// RetryFailedJobsByID validates IDs and retries only failed jobs.
func RetryFailedJobsByID(ctx context.Context, st JobActionStore, ids []int64) (RetryJobsResult, error) {
	result := RetryJobsResult{Items: make([]RetryJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := st.GetByID(ctx, id)
		if err != nil {
			return RetryJobsResult{}, err
		}
		if job == nil {
			result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobNotFound})
			continue
		}
		if job.Status != store.StatusFailed {
			result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
			continue
		}
		updated, err := st.RetryFailed(ctx, id)
		if err != nil {
			return RetryJobsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobUpdated})
			continue
		}
		result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
	}
	return result, nil
}

type RemoveJobOutcome string

const (
	RemoveJobRemoved  RemoveJobOutcome = "removed"
	RemoveJobNotFound RemoveJobOutcome = "not_found"
)

type RemoveJobResult struct {
	ID      int64            `json:"id"`
	Outcome RemoveJobOutcome `json:"outcome"`
}

type RemoveJobsResult struct {
	RemovedCount int64             `json:"removedCount"`
	Items        []RemoveJobResult `json:"items"`
}

// RemoveJobsByID removes jobs one-by-one so each ID can report removed/not_found.
func RemoveJobsByID(ctx context.Context, st JobActionStore, ids []int64) (RemoveJobsResult, error) {
	result := RemoveJobsResult{Items: make([]RemoveJobResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := st.Remove(ctx, id)
		if err != nil {
			return RemoveJobsResult{}, err
		}
		if removed {
			result.RemovedCount++
			result.Items = append(result.Items, RemoveJobResult{ID: id, Outcome: RemoveJobRemoved})
			continue
		}
		result.Items = append(result.Items, RemoveJobResult{ID: id, Outcome: RemoveJobNotFound})
	}
	return result, nil
}
