// Package logger reports transfer progress. Implementations differ only in
// how much they say; all of them report errors.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger receives progress events from the orchestrator.
type Logger interface {
	PhaseStart(phase string, attrs ...any)
	PhaseComplete(phase string, attrs ...any)
	ItemProcessed(phase string, item string, action string)
	Warn(msg string, attrs ...any)
	Error(operation string, path string, err error)
	With(attrs ...any) Logger
}

// NewSlog builds the slog.Logger used by the concrete loggers. format is
// "text" or "json".
func NewSlog(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// VerboseLogger reports every phase; items are logged at debug level.
type VerboseLogger struct {
	L *slog.Logger
}

func NewVerbose(l *slog.Logger) *VerboseLogger {
	return &VerboseLogger{L: l}
}

func (l *VerboseLogger) PhaseStart(phase string, attrs ...any) {
	l.L.Info("phase started", append([]any{"phase", phase}, attrs...)...)
}

func (l *VerboseLogger) PhaseComplete(phase string, attrs ...any) {
	l.L.Info("phase complete", append([]any{"phase", phase}, attrs...)...)
}

func (l *VerboseLogger) ItemProcessed(phase string, item string, action string) {
	l.L.Debug("item", "phase", phase, "action", action, "path", item)
}

func (l *VerboseLogger) Warn(msg string, attrs ...any) {
	l.L.Warn(msg, attrs...)
}

func (l *VerboseLogger) Error(operation string, path string, err error) {
	l.L.Error(operation+" failed", "path", path, "error", err)
}

func (l *VerboseLogger) With(attrs ...any) Logger {
	return &VerboseLogger{L: l.L.With(attrs...)}
}

// QuietLogger only reports problems: warnings, errors, and items whose action
// is not "ok".
type QuietLogger struct {
	L *slog.Logger
}

func NewQuiet(l *slog.Logger) *QuietLogger {
	return &QuietLogger{L: l}
}

func (l *QuietLogger) PhaseStart(phase string, attrs ...any) {}

func (l *QuietLogger) PhaseComplete(phase string, attrs ...any) {}

func (l *QuietLogger) ItemProcessed(phase string, item string, action string) {
	if action != "ok" {
		l.L.Warn(action, "phase", phase, "path", item)
	}
}

func (l *QuietLogger) Warn(msg string, attrs ...any) {
	l.L.Warn(msg, attrs...)
}

func (l *QuietLogger) Error(operation string, path string, err error) {
	l.L.Error(operation+" failed", "path", path, "error", err)
}

func (l *QuietLogger) With(attrs ...any) Logger {
	return &QuietLogger{L: l.L.With(attrs...)}
}

// NullLogger discards everything.
type NullLogger struct{}

func (NullLogger) PhaseStart(phase string, attrs ...any) {}

func (NullLogger) PhaseComplete(phase string, attrs ...any) {}

func (NullLogger) ItemProcessed(phase string, item string, action string) {}

func (NullLogger) Warn(msg string, attrs ...any) {}

func (NullLogger) Error(operation string, path string, err error) {}

func (n NullLogger) With(attrs ...any) Logger { return n }
