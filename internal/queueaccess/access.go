package queueaccess

import (
	"context"
	"fmt"
	"time"

	"swipely/internal/api"
	"swipely/internal/ipc"
	"swipely/internal/services"
	"swipely/internal/store"
)

// Access provides job and user administration regardless of whether the
// daemon API or the database backs it.
type Access interface {
	Stats(ctx context.Context) (*api.AdminStats, error)
	List(ctx context.Context, statuses []string) ([]api.Carousel, error)
	Describe(ctx context.Context, id int64) (*api.Carousel, error)
	Retry(ctx context.Context, ids []int64) (api.RetryJobsResult, error)
	RetryAll(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (api.RemoveJobsResult, error)
	Clear(ctx context.Context, statuses []string) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	Users(ctx context.Context, limit int) ([]api.UserSummary, error)
	SetTier(ctx context.Context, telegramID int64, tier string, days int) (*api.UserSummary, error)
	ResetUsage(ctx context.Context, telegramID int64) error
}

// ErrDaemonRunning is returned for operations only safe while the daemon is
// stopped.
var ErrDaemonRunning = fmt.Errorf("%w: daemon is running; stop it first", services.ErrValidation)

// NewIPCAccess returns an Access backed by the daemon admin API.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(st *store.Store) Access {
	return &storeAccess{store: st, jobs: api.NewJobService(st), now: time.Now}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(ctx context.Context) (*api.AdminStats, error) {
	return a.client.Stats(ctx)
}

func (a *ipcAccess) List(ctx context.Context, statuses []string) ([]api.Carousel, error) {
	return a.client.Jobs(ctx, statuses)
}

func (a *ipcAccess) Describe(ctx context.Context, id int64) (*api.Carousel, error) {
	return a.client.Job(ctx, id)
}

func (a *ipcAccess) Retry(ctx context.Context, ids []int64) (api.RetryJobsResult, error) {
	return a.client.Retry(ctx, ids)
}

func (a *ipcAccess) RetryAll(ctx context.Context) (int64, error) {
	failed, err := a.client.Jobs(ctx, []string{string(store.StatusFailed)})
	if err != nil || len(failed) == 0 {
		return 0, err
	}
	ids := make([]int64, 0, len(failed))
	for _, item := range failed {
		ids = append(ids, item.ID)
	}
	result, err := a.client.Retry(ctx, ids)
	return result.UpdatedCount, err
}

func (a *ipcAccess) Remove(ctx context.Context, ids []int64) (api.RemoveJobsResult, error) {
	out := api.RemoveJobsResult{Items: make([]api.RemoveJobResult, 0, len(ids))}
	for _, id := range ids {
		result, err := a.client.Remove(ctx, id)
		if err != nil {
			return out, err
		}
		out.RemovedCount += result.RemovedCount
		out.Items = append(out.Items, result.Items...)
	}
	return out, nil
}

func (a *ipcAccess) Clear(ctx context.Context, statuses []string) (int64, error) {
	items, err := a.client.Jobs(ctx, statuses)
	if err != nil {
		return 0, err
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	result, err := a.Remove(ctx, ids)
	return result.RemovedCount, err
}

// ResetStuck is refused: the running daemon owns in-flight jobs and resumes
// them itself on the next start.
func (a *ipcAccess) ResetStuck(context.Context) (int64, error) {
	return 0, ErrDaemonRunning
}

func (a *ipcAccess) Users(ctx context.Context, limit int) ([]api.UserSummary, error) {
	return a.client.Users(ctx, limit)
}

func (a *ipcAccess) SetTier(ctx context.Context, telegramID int64, tier string, days int) (*api.UserSummary, error) {
	return a.client.SetTier(ctx, telegramID, tier, days)
}

func (a *ipcAccess) ResetUsage(ctx context.Context, telegramID int64) error {
	return a.client.ResetUsage(ctx, telegramID)
}

type storeAccess struct {
	store *store.Store
	jobs  *api.JobService
	now   func() time.Time
}

func (a *storeAccess) Stats(ctx context.Context) (*api.AdminStats, error) {
	stats, err := a.store.AdminStats(ctx)
	if err != nil {
		return nil, err
	}
	out := api.FromAdminStats(stats)
	return &out, nil
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Carousel, error) {
	filters, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	return a.jobs.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.Carousel, error) {
	return a.jobs.Describe(ctx, id)
}

func (a *storeAccess) Retry(ctx context.Context, ids []int64) (api.RetryJobsResult, error) {
	return api.RetryFailedJobsByID(ctx, a.store, ids)
}

func (a *storeAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (api.RemoveJobsResult, error) {
	return api.RemoveJobsByID(ctx, a.store, ids)
}

func (a *storeAccess) Clear(ctx context.Context, statuses []string) (int64, error) {
	filters, err := parseStatuses(statuses)
	if err != nil {
		return 0, err
	}
	switch {
	case len(filters) == 0:
		return a.store.Clear(ctx)
	case len(filters) == 1 && filters[0] == store.StatusCompleted:
		return a.store.ClearCompleted(ctx)
	case len(filters) == 1 && filters[0] == store.StatusFailed:
		return a.store.ClearFailed(ctx)
	}
	jobs, err := a.store.List(ctx, filters...)
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, job := range jobs {
		ok, err := a.store.Remove(ctx, job.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) Users(ctx context.Context, limit int) ([]api.UserSummary, error) {
	users, err := a.store.ListUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return api.FromUsers(users, a.now()), nil
}

func (a *storeAccess) SetTier(ctx context.Context, telegramID int64, tier string, days int) (*api.UserSummary, error) {
	parsed, ok := store.ParseTier(tier)
	if !ok || days < 0 {
		return nil, services.Wrap(services.ErrValidation, "admin", "tier", "tier must be free or pro and days non-negative", nil)
	}
	user, err := a.store.SetTier(ctx, telegramID, parsed, days)
	if err != nil {
		return nil, err
	}
	summary := api.FromUsers([]*store.User{user}, a.now())[0]
	return &summary, nil
}

func (a *storeAccess) ResetUsage(ctx context.Context, telegramID int64) error {
	return a.store.ResetUsage(ctx, telegramID, store.DayKey(a.now()))
}

func parseStatuses(values []string) ([]store.Status, error) {
	var out []store.Status
	for _, value := range values {
		status, ok := store.ParseStatus(value)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "admin", "status", "unknown status "+value, nil)
		}
		out = append(out, status)
	}
	return out, nil
}
