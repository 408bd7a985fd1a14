// Package logging provides the structured logger injected into every
// hsisomap component.
//
// There is no process-wide logger: constructors accept a *Logger through
// their options and fall back to Discard(). Sinks (stdout, stderr, a file)
// and severity levels are chosen by the caller via Config.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ErrUnknownFormat is returned by New for an unsupported Config.Format.
var ErrUnknownFormat = errors.New("logging: unknown format")

// Logger wraps slog.Logger with hsisomap-specific field helpers.
type Logger struct {
	*slog.Logger
}

// Config describes a logger sink.
//
// Format is "text" (default) or "json". Sink is "stderr" (default),
// "stdout", or a file path opened for append.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Sink   string `yaml:"sink"`
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a human-readable Logger writing to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a JSON Logger writing to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a Logger that drops every record.
func Discard() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// OrDiscard returns l, or Discard() when l is nil.
func OrDiscard(l *Logger) *Logger {
	if l == nil {
		return Discard()
	}

	return l
}

// New builds a Logger from cfg. The returned closer releases a file sink
// and is never nil.
func New(cfg Config) (*Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nopCloser{}, err
	}

	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Sink {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Sink, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("logging: open sink: %w", err)
		}
		w, closer = f, f
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return NewTextLogger(w, level), closer, nil
	case "json":
		return NewJSONLogger(w, level), closer, nil
	default:
		_ = closer.Close()
		return nil, nopCloser{}, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}
}

// ParseLevel maps "debug", "info", "warn", "error" (case-insensitive, empty
// means info) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging: level %q: %w", s, err)
	}

	return l, nil
}

// WithComponent tags records with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// WithRunID tags records with a pipeline run identifier.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{Logger: l.Logger.With("run_id", id)}
}

// WithTask tags records with a task name.
func (l *Logger) WithTask(name string) *Logger {
	return &Logger{Logger: l.Logger.With("task", name)}
}

// LogStage logs the completion (or failure) of a pipeline stage.
func (l *Logger) LogStage(ctx context.Context, stage string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "stage failed", "stage", stage, "elapsed", elapsed, "error", err)
		return
	}
	l.InfoContext(ctx, "stage completed", "stage", stage, "elapsed", elapsed)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
