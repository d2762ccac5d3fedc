// Package plog provides the structured logger used by the executive and
// the planner command. It wraps log/slog with a lumberjack rotating-file
// sink so long-running executive processes don't need an external log
// rotator.
package plog

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps *slog.Logger with the file handle it was built from, mostly
// so tests can point it at a throwaway directory.
type Logger struct {
	*slog.Logger
	file  string
	Start time.Time
}

// Options configures New. Level defaults to "info" and Dir defaults to
// "planner-logs" when left empty.
type Options struct {
	Dir      string
	Level    string
	MaxSizeMB int
	MaxAge    int
}

// New builds a Logger writing JSON lines to a rotating file under opts.Dir.
func New(opts Options) *Logger {
	dir := opts.Dir
	if dir == "" {
		dir = "planner-logs"
	}
	maxSize := opts.MaxSizeMB
	if maxSize == 0 {
		maxSize = 32
	}
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = 14
	}

	w := &lumberjack.Logger{
		Filename: filepath.Join(dir, "planner.log"),
		MaxSize:  maxSize,
		MaxAge:   maxAge,
		Compress: true,
	}

	lvl := slog.LevelInfo
	switch opts.Level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return &Logger{Logger: slog.New(h), file: w.Filename, Start: time.Now()}
}

// NewDiscard returns a Logger that drops everything, for tests that don't
// care about log output but exercise code paths that log.
func NewDiscard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})), Start: time.Now()}
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{Logger: l.Logger.With(args...), file: l.file, Start: l.Start}
}

func (l *Logger) File() string { return l.file }
