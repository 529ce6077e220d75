package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"swipely/internal/logging"
	"swipely/internal/store"
)

func (m *Manager) processJob(ctx context.Context, lane *laneState, laneLogger *slog.Logger, job *store.Job) error {
	stage, ok := lane.stageForStatus(job.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(job.Status)))
		m.waitForJobOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stage.name, job, requestID)
	stageLogger, closeLog := m.stageLoggerForLane(stageCtx, laneLogger, job)
	defer closeLog()
	if aware, ok := stage.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, lane, stage.processingStatus, job); err != nil {
		stageLogger.Error("failed to transition job to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, lane, stageLogger, stage, job)
}

func (m *Manager) executeStage(ctx context.Context, lane *laneState, stageLogger *slog.Logger, stage pipelineStage, job *store.Job) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stage.processingStatus)),
		logging.String("source", string(job.Source)),
		logging.String("style", job.Style),
		logging.Bool("photo_mode", job.PhotoMode),
	)

	handler := stage.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stage.name))
		job.SetFailed(fmt.Sprintf("stage %s missing handler", stage.name))
		if err := m.store.Update(ctx, job); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		m.setLastError(errors.New("stage handler unavailable"))
		return errors.New("stage handler unavailable")
	}

	if err := handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, stageLogger, stage.name, job, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stageLogger, stage.name, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if job.Status == stage.processingStatus || job.Status == "" {
		job.Status = stage.doneStatus
	}
	job.LastHeartbeat = nil
	if job.Status == store.StatusCompleted {
		job.ProgressStage = deriveStageLabel(store.StatusCompleted)
		job.ProgressPercent = 100
		if strings.TrimSpace(job.ProgressMessage) == "" {
			job.ProgressMessage = deriveStageLabel(store.StatusCompleted)
		}
	}
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.String("progress_stage", strings.TrimSpace(job.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(job.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	if lane != nil && lane.logger != nil && job.Status == store.StatusCompleted {
		logging.WithContext(ctx, lane.logger).Info(
			"job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.Duration("job_duration", time.Since(job.CreatedAt)),
		)
	}
	m.setLastJob(job)
	m.checkQueueCompletion(ctx)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler StageHandler, job *store.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, lane *laneState, processing store.Status, job *store.Job) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	setJobProcessingState(job, processing)
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastJob(job)
	if lane == nil || lane.notificationsEnabled {
		m.onJobStarted(ctx)
	}
	return nil
}

func setJobProcessingState(job *store.Job, processing store.Status) {
	now := time.Now().UTC()
	job.Status = processing
	job.InitProgress(deriveStageLabel(processing), fmt.Sprintf("%s started", deriveStageLabel(processing)))
	job.LastHeartbeat = &now
}

func nopClose() {}

func closeQuietly(logger *slog.Logger, closer io.Closer) func() {
	return func() {
		if err := closer.Close(); err != nil {
			logger.Debug("close job log failed", logging.Error(err))
		}
	}
}
