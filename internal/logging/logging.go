// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/lazypower/persona/internal/config"
)

// Logger wraps slog with a level that can change at runtime.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a logger writing to w in the configured format.
func New(w io.Writer, cfg config.LogConfig) *Logger {
	level := &slog.LevelVar{}
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h), level: level}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return New(io.Discard, config.LogConfig{Level: "error"})
}

// SetLevel changes the minimum level of every logger derived from l.
func (l *Logger) SetLevel(s string) {
	l.level.Set(ParseLevel(s))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
