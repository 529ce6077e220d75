package workflow

import (
	"context"
	"log/slog"

	"swipely/internal/stage"
	"swipely/internal/store"
)

// StageHandler is the contract each registered stage satisfies.
type StageHandler = stage.Handler

// loggerAware stages accept a per-job logger before they run.
type loggerAware interface {
	SetLogger(*slog.Logger)
}

// Refunder returns a consumed generation to the user's daily quota.
type Refunder interface {
	Refund(ctx context.Context, telegramID int64, day string, photo bool) error
}

// FailureMessenger tells a bot user that their carousel failed.
type FailureMessenger interface {
	NotifyFailure(ctx context.Context, job *store.Job, reason string) error
}

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Writer      stage.Handler
	Describer   stage.Handler
	Illustrator stage.Handler
	Exporter    stage.Handler
	Deliverer   stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      store.Status
	processingStatus store.Status
	doneStatus       store.Status
}

type laneKind string

const (
	laneText  laneKind = laneKind(store.LaneText)
	laneMedia laneKind = laneKind(store.LaneMedia)
)

type laneState struct {
	kind                 laneKind
	name                 string
	stages               []pipelineStage
	statusOrder          []store.Status
	stageByStart         map[store.Status]pipelineStage
	processingStatuses   []store.Status
	logger               *slog.Logger
	notificationsEnabled bool
	runReclaimer         bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[store.Status]pipelineStage, len(l.stages))
	l.statusOrder = make([]store.Status, 0, len(l.stages))
	seenProcessing := make(map[store.Status]struct{})
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
		if stg.processingStatus != "" {
			if _, ok := seenProcessing[stg.processingStatus]; !ok {
				l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
				seenProcessing[stg.processingStatus] = struct{}{}
			}
		}
	}
}

func (l *laneState) stageForStatus(status store.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}
