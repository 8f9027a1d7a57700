package common

import (
	"io"
	"log"
	"log/slog"
	"strings"
)

// NewLogger builds a slog logger for the given level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupLogging installs the logger as the process default. The standard
// log package is routed through it as well, so log.Printf banners share the
// same handler and format.
func SetupLogging(w io.Writer, level, format string) *slog.Logger {
	logger := NewLogger(w, level, format)
	slog.SetDefault(logger)
	log.SetFlags(0)
	return logger
}

// NewConsole returns a plain logger for operator banners and run summaries.
// It writes straight to w and is not subject to the slog level filter.
func NewConsole(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
