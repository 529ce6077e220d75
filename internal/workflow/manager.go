package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/notifications"
	"swipely/internal/store"
)

// Manager coordinates job processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *store.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service
	refunder     Refunder
	messenger    FailureMessenger

	heartbeat *HeartbeatMonitor
	jobLogs   *JobLogger

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *store.Job

	queueActive bool
	queueStart  time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the ntfy notifier built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithRefunder sets how failed jobs return their quota.
func WithRefunder(refunder Refunder) ManagerOption {
	return func(m *Manager) { m.refunder = refunder }
}

// WithFailureMessenger sets who tells bot users about failed jobs.
func WithFailureMessenger(messenger FailureMessenger) ManagerOption {
	return func(m *Manager) { m.messenger = messenger }
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		notifier:     notifications.NewService(cfg),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			st,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		jobLogs: NewJobLogger(cfg),
		lanes:   make(map[laneKind]*laneState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
