package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/store"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	name := lane.name
	if name == "" {
		name = string(lane.kind)
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", name)),
		logging.String("lane", name),
	)
}

// stageLoggerForLane returns a logger that writes to both the lane logger and
// the job's own log file. The returned func closes the job log.
func (m *Manager) stageLoggerForLane(ctx context.Context, laneLogger *slog.Logger, job *store.Job) (*slog.Logger, func()) {
	base := laneLogger
	if base == nil {
		base = m.logger
	}
	closeLog := nopClose

	if job != nil && m.jobLogs != nil && m.jobLogs.Path(job.ID) != "" {
		jobLogger, closer, err := m.jobLogs.Open(job)
		if err != nil {
			base.Warn("job log unavailable", logging.Error(err))
		} else {
			base = logging.Tee(base, jobLogger)
			closeLog = closeQuietly(base, closer)
		}
	}
	return logging.WithContext(ctx, base), closeLog
}

func withStageContext(ctx context.Context, stageName string, job *store.Job, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if job != nil {
		ctx = services.WithJobID(ctx, job.ID)
		if job.TelegramID != 0 {
			ctx = services.WithUserID(ctx, job.TelegramID)
		}
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status store.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
