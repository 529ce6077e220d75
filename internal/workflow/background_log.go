package workflow

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"swipely/internal/config"
	"swipely/internal/logging"
	"swipely/internal/store"
)

// JobLogger manages dedicated log files for generation jobs so an operator
// can read one job's story end to end.
type JobLogger struct {
	baseDir string
	cfg     *config.Config
}

// NewJobLogger creates a job logger rooted at <log_dir>/jobs.
func NewJobLogger(cfg *config.Config) *JobLogger {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "jobs")
	}
	return &JobLogger{baseDir: dir, cfg: cfg}
}

// Path returns the log file of a job.
func (b *JobLogger) Path(jobID int64) string {
	if strings.TrimSpace(b.baseDir) == "" {
		return ""
	}
	return filepath.Join(b.baseDir, fmt.Sprintf("job-%06d.log", jobID))
}

// Open returns a logger writing to the job's file. The closer must be called
// once the stage finishes.
func (b *JobLogger) Open(job *store.Job) (*slog.Logger, io.Closer, error) {
	if job == nil {
		return nil, nil, errors.New("job is nil")
	}
	path := b.Path(job.ID)
	if path == "" {
		return nil, nil, errors.New("job log directory not configured")
	}
	level := "info"
	if b.cfg != nil && strings.TrimSpace(b.cfg.Logging.Level) != "" {
		level = b.cfg.Logging.Level
	}
	// Job logs are always JSON so the API and CLI can parse them.
	logger, closer, err := logging.NewFileLogger(path, logging.Options{Level: level, Format: "json"})
	if err != nil {
		return nil, nil, err
	}
	return logger.With(logging.Int64(logging.FieldJobID, job.ID)), closer, nil
}

// Remove deletes a job's log file.
func (b *JobLogger) Remove(jobID int64) error {
	path := b.Path(jobID)
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
