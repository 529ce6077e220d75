// Package outputs manages rendered carousel directories under
// paths.output_dir.
package outputs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"swipely/internal/logging"
)

const jobDirPrefix = "job-"

// Dir describes one output directory.
type Dir struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	JobID   int64     `json:"job_id,omitempty"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// PruneResult lists what a prune removed and what it could not.
type PruneResult struct {
	Removed []Dir
	Errors  []PruneError
}

// PruneError pairs a directory with its removal error.
type PruneError struct {
	Path string
	Err  error
}

// Freed sums the bytes of removed directories.
func (r PruneResult) Freed() int64 {
	var total int64
	for _, dir := range r.Removed {
		total += dir.Size
	}
	return total
}

// JobIDFromName parses "job-000042" into 42.
func JobIDFromName(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, jobDirPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List returns every directory in root, oldest first.
func List(root string) ([]Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dirs := make([]Dir, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(root, entry.Name())
		dir := Dir{Name: entry.Name(), Path: path, ModTime: info.ModTime(), Size: dirSize(path)}
		dir.JobID, _ = JobIDFromName(entry.Name())
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].ModTime.Before(dirs[j].ModTime) })
	return dirs, nil
}

// Prune removes directories older than maxAge. Directories of jobs listed
// in active are kept regardless of age.
func Prune(ctx context.Context, root string, maxAge time.Duration, active map[int64]struct{}, logger *slog.Logger) PruneResult {
	var result PruneResult
	if maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	dirs, err := List(root)
	if err != nil {
		result.Errors = append(result.Errors, PruneError{Path: root, Err: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if !dir.ModTime.Before(cutoff) {
			continue
		}
		if _, busy := active[dir.JobID]; busy && dir.JobID > 0 {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, PruneError{Path: dir.Path, Err: err})
			logger.Warn("failed to remove output directory",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "output_prune_failed"),
				logging.String(logging.FieldErrorHint, "check paths.output_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir)
		logger.Debug("removed output directory",
			logging.String("path", dir.Path),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.String(logging.FieldEventType, "output_pruned"),
		)
	}
	if len(result.Removed) > 0 {
		logger.Info("pruned carousel outputs",
			logging.Int("removed", len(result.Removed)),
			logging.Int64("freed_bytes", result.Freed()),
			logging.String(logging.FieldEventType, "output_prune"),
		)
	}
	return result
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil && !d.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
