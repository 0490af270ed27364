// Package logging configures the application-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// Init initializes the default slog logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func Init(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithSession returns a logger with a session_id field.
func WithSession(sessionID string) *slog.Logger {
	return slog.Default().With("session_id", sessionID)
}

// WithConnection returns a logger with a connection_id field.
func WithConnection(connectionID string) *slog.Logger {
	return slog.Default().With("connection_id", connectionID)
}

// WithDemoType returns a logger with a demo_type field.
func WithDemoType(demoType string) *slog.Logger {
	return slog.Default().With("demo_type", demoType)
}
