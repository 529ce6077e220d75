// Package stageexec runs pipeline stages in the foreground, outside the
// daemon's lane workers, with the same status transitions and failure
// bookkeeping the workflow manager applies.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"swipely/internal/logging"
	"swipely/internal/notifications"
	"swipely/internal/services"
	"swipely/internal/stage"
	"swipely/internal/store"
	"swipely/internal/workflow"
)

// Step is one stage and the statuses it moves a job through.
type Step struct {
	Name       string
	Handler    stage.Handler
	Processing store.Status
	Done       store.Status
}

// Options carries the shared dependencies of a run.
type Options struct {
	Logger   *slog.Logger
	Store    stage.ProgressStore
	Notifier notifications.Service
	// Progress is called after every persisted transition.
	Progress func(*store.Job)
}

type loggerAware interface {
	SetLogger(*slog.Logger)
}

// Run executes one step against job.
func Run(ctx context.Context, opts Options, step Step, job *store.Job) error {
	if step.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", step.Name)
	}
	if opts.Store == nil {
		return errors.New("job store is required")
	}
	if job == nil {
		return errors.New("job is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	stageCtx := services.WithStage(services.WithJobID(ctx, job.ID), step.Name)
	stageLogger := logging.WithContext(stageCtx, logger)
	if aware, ok := step.Handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(step.Processing)),
	)
	started := time.Now()

	markProcessing(job, step.Processing)
	if err := persist(stageCtx, opts, job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	if err := step.Handler.Prepare(stageCtx, job); err != nil {
		return fail(stageCtx, stageLogger, opts, step.Name, job, err)
	}
	if err := persist(stageCtx, opts, job); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	if err := step.Handler.Execute(stageCtx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fail(stageCtx, stageLogger, opts, step.Name, job, err)
	}

	if job.Status == step.Processing || job.Status == "" {
		job.Status = step.Done
	}
	job.LastHeartbeat = nil
	if job.Status == store.StatusCompleted {
		job.ProgressPercent = 100
	}
	if err := persist(stageCtx, opts, job); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.String("progress_message", strings.TrimSpace(job.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return nil
}

// RunAll executes steps in order, starting at the first step whose
// processing status follows the job's current status.
func RunAll(ctx context.Context, opts Options, steps []Step, job *store.Job) error {
	for _, step := range steps {
		if job.Status == store.StatusCompleted {
			return nil
		}
		if skip(job.Status, step) {
			continue
		}
		if err := Run(ctx, opts, step, job); err != nil {
			return err
		}
	}
	return nil
}

// skip reports whether job has already passed step.
func skip(current store.Status, step Step) bool {
	order := store.AllStatuses()
	index := func(status store.Status) int {
		for i, s := range order {
			if s == status {
				return i
			}
		}
		return -1
	}
	return index(current) >= index(step.Done)
}

func persist(ctx context.Context, opts Options, job *store.Job) error {
	if err := opts.Store.Update(ctx, job); err != nil {
		return err
	}
	if opts.Progress != nil {
		opts.Progress(job)
	}
	return nil
}

func fail(ctx context.Context, logger *slog.Logger, opts Options, stageName string, job *store.Job, stageErr error) error {
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	job.SetFailed(message)

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_kind", string(details.Kind)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if err := persist(ctx, opts, job); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	if opts.Notifier != nil {
		if err := opts.Notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
			"job_id": job.ID,
			"stage":  stageName,
			"error":  stageErr,
		}); err != nil {
			logger.Debug("stage failure notification failed", logging.Error(err))
		}
	}
	return stageErr
}

func markProcessing(job *store.Job, processing store.Status) {
	now := time.Now().UTC()
	job.Status = processing
	label := stageLabel(processing)
	job.ProgressStage = label
	job.ProgressMessage = label + " started"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	job.LastHeartbeat = &now
}

func stageLabel(status store.Status) string {
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

// FromStageSet orders the workflow's handlers into steps, skipping nil ones.
func FromStageSet(set workflow.StageSet) []Step {
	candidates := []Step{
		{Name: "writer", Handler: set.Writer, Processing: store.StatusWriting, Done: store.StatusWritten},
		{Name: "describer", Handler: set.Describer, Processing: store.StatusDescribing, Done: store.StatusDescribed},
		{Name: "illustrator", Handler: set.Illustrator, Processing: store.StatusIllustrating, Done: store.StatusIllustrated},
		{Name: "exporter", Handler: set.Exporter, Processing: store.StatusRendering, Done: store.StatusRendered},
		{Name: "deliverer", Handler: set.Deliverer, Processing: store.StatusDelivering, Done: store.StatusCompleted},
	}
	steps := make([]Step, 0, len(candidates))
	for _, step := range candidates {
		if step.Handler != nil {
			steps = append(steps, step)
		}
	}
	return steps
}
