package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"swipely/internal/config"
)

// LogFileName is the daemon log file written under the configured log directory.
const LogFileName = "swipely.log"

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	// Development adds caller information at every level.
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	errPaths := opts.ErrorOutputPaths
	if len(errPaths) == 0 {
		errPaths = []string{"stderr"}
	}
	w, err := openSinks(append(append([]string{}, paths...), errPaths...))
	if err != nil {
		return nil, err
	}
	handler, err := buildHandler(w, opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// NewFileLogger writes to a single file and returns it for closing. Per-job
// background logs use this.
func NewFileLogger(path string, opts Options) (*slog.Logger, io.Closer, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, nil, err
	}
	handler, err := buildHandler(file, opts)
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return slog.New(handler), file, nil
}

// NewFromConfig logs to stdout and, when a log directory is set, to
// swipely.log inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: "console"}
	if cfg == nil {
		return New(opts)
	}
	opts.Level = cfg.Logging.Level
	opts.Format = cfg.Logging.Format
	opts.OutputPaths = []string{"stdout"}
	opts.ErrorOutputPaths = []string{"stderr"}
	if dir := cfg.Paths.LogDir; dir != "" {
		logPath := filepath.Join(dir, LogFileName)
		opts.OutputPaths = append(opts.OutputPaths, logPath)
		opts.ErrorOutputPaths = append(opts.ErrorOutputPaths, logPath)
	}
	return New(opts)
}

func buildHandler(w io.Writer, opts Options) (slog.Handler, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	withCaller := opts.Development || level.Level() <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return &consoleHandler{out: &lockedWriter{w: w}, level: level, withCaller: withCaller}, nil
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			AddSource:   withCaller,
			ReplaceAttr: jsonKeys,
		}), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// jsonKeys keeps the JSON schema stable: ts in RFC3339 UTC, lowercase level
// and a short file:line caller.
func jsonKeys(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return attr
}

// parseLevel accepts slog level names plus zap-era aliases; anything else is info.
func parseLevel(value string) slog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "info":
		return slog.LevelInfo
	case "warning":
		return slog.LevelWarn
	case "dpanic", "panic", "fatal":
		return slog.LevelError
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func openSinks(paths []string) (io.Writer, error) {
	seen := make(map[string]bool, len(paths))
	var sinks []io.Writer
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		switch path {
		case "stdout":
			sinks = append(sinks, os.Stdout)
		case "stderr":
			sinks = append(sinks, os.Stderr)
		default:
			file, err := openAppend(path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, file)
		}
	}
	switch len(sinks) {
	case 0:
		return os.Stdout, nil
	case 1:
		return sinks[0], nil
	default:
		return io.MultiWriter(sinks...), nil
	}
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
