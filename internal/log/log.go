// Package log provides structured logging for go-facerig.
// It wraps slog with a charmbracelet/log handler.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	charm "github.com/charmbracelet/log"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps a level name to a charm level.
// Valid levels: "debug", "info", "warn", "error"
func ParseLevel(level string) charm.Level {
	switch level {
	case "debug":
		return charm.DebugLevel
	case "warn":
		return charm.WarnLevel
	case "error":
		return charm.ErrorLevel
	default:
		return charm.InfoLevel
	}
}

// NewHandler builds the handler used by the global logger. JSON output is
// used when GO_ENV=production, text otherwise.
func NewHandler(w io.Writer, level string) *charm.Logger {
	opts := charm.Options{
		Level:           ParseLevel(level),
		Prefix:          "facerig",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}
	if os.Getenv("GO_ENV") == "production" {
		opts.Formatter = charm.JSONFormatter
	}
	return charm.NewWithOptions(w, opts)
}

// Init initializes the global logger with the specified level.
func Init(level string) {
	once.Do(func() {
		logger = slog.New(NewHandler(os.Stderr, level))
		slog.SetDefault(logger)
	})
}

// L returns the global logger instance.
// Falls back to info level if Init was never called.
func L() *slog.Logger {
	Init("info")
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
