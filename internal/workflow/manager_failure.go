package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"swipely/internal/i18n"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/store"
)

func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stageName string, job *store.Job, stageErr error) {
	logger = logger.With(logging.String(logging.FieldComponent, "workflow-manager"))

	message := classifyStageFailure(stageName, stageErr)
	job.SetFailed(message)

	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("resolved_status", string(store.StatusFailed)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.String("error_kind", string(details.Kind)),
		logging.Alert("stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)

	m.refundUsage(ctx, logger, job)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastJob(job)
	m.notifyStageError(ctx, stageName, job, stageErr)
	m.messageUser(ctx, logger, job, details.Kind)
	m.checkQueueCompletion(ctx)
}

// refundUsage gives the generation back and clears the usage day so a retry
// or a second failure cannot refund twice.
func (m *Manager) refundUsage(ctx context.Context, logger *slog.Logger, job *store.Job) {
	if m.refunder == nil || job.TelegramID == 0 || strings.TrimSpace(job.UsageDay) == "" {
		return
	}
	if err := m.refunder.Refund(ctx, job.TelegramID, job.UsageDay, job.PhotoMode); err != nil {
		logging.WarnWithContext(logger, "usage refund failed", "usage_refund_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "reset the user's usage with swipely users reset"),
			logging.String(logging.FieldImpact, "the failed generation still counts toward today's quota"),
		)
		return
	}
	logger.Info("usage refunded",
		logging.String(logging.FieldEventType, "usage_refunded"),
		logging.String("usage_day", job.UsageDay),
	)
	job.UsageDay = ""
}

func (m *Manager) messageUser(ctx context.Context, logger *slog.Logger, job *store.Job, kind services.ErrorKind) {
	if m.messenger == nil || job.Source != store.SourceBot || job.ChatID == 0 {
		return
	}
	reason := i18n.T(job.Language, reasonKey(kind))
	if err := m.messenger.NotifyFailure(ctx, job, reason); err != nil {
		logger.Debug("failure message not delivered", logging.Error(err))
	}
}

func reasonKey(kind services.ErrorKind) string {
	switch kind {
	case services.KindTimeout:
		return i18n.KeyReasonTimeout
	case services.KindValidation:
		return i18n.KeyReasonInvalid
	case services.KindConfiguration:
		return i18n.KeyReasonConfig
	default:
		return i18n.KeyReasonService
	}
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}

	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}
