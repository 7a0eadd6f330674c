package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. Development gets readable text at debug
// level, everything else JSON at info level.
func New(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "dev", "development", "local", "test":
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs New(env, os.Stdout) as the slog default and returns it.
func Init(env string) *slog.Logger {
	l := New(env, os.Stdout)
	slog.SetDefault(l)
	return l
}

// Discard is a logger for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// PartialFailure logs a secondary step that failed while the primary
// operation went through. These are never returned to callers.
func PartialFailure(l *slog.Logger, step string, err error, args ...any) {
	if l == nil {
		l = slog.Default()
	}
	fields := append([]any{"step", step, "error", err.Error()}, args...)
	l.Warn("partial failure", fields...)
}
