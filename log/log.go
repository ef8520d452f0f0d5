// Package log provides structured logging for the trie engine. It wraps
// log/slog with named child loggers, one per component, so that prefetcher,
// trie and pathdb messages can be told apart in aggregate log output.
package log

import (
	"log/slog"
	"os"
)

// Logger wraps a slog.Logger tagged with a component name.
type Logger struct {
	inner *slog.Logger
}

var root *slog.Logger

func init() {
	root = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// SetHandler replaces the process-wide handler used by New. Intended for
// tests that want to capture or silence log output.
func SetHandler(h slog.Handler) {
	if h != nil {
		root = slog.New(h)
	}
}

// New returns a Logger for the named component, e.g. log.New("trie").
func New(component string) *Logger {
	return &Logger{inner: root.With("component", component)}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
