package api

import (
	"context"

	"swipely/internal/store"
)

// JobReader abstracts job persistence interactions needed for API queries.
type JobReader interface {
	List(ctx context.Context, statuses ...store.Status) ([]*store.Job, error)
	Stats(ctx context.Context) (map[store.Status]int, error)
	GetByID(ctx context.Context, id int64) (*store.Job, error)
}

// JobService exposes read-only job operations returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(st JobReader) *JobService {
	if st == nil {
		return nil
	}
	return &JobService{store: st}
}

// List returns jobs filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...store.Status) ([]Carousel, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Stats returns job counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeJobStats(stats), nil
}

// Describe fetches a single job.
func (s *JobService) Describe(ctx context.Context, id int64) (*Carousel, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}
