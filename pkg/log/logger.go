package log

import (
	"log/slog"
	"os"
)

// New constructs a JSON slog.Logger for a runtime component,
// preconfigured at info level
func New(component string) *slog.Logger {
	return NewWithLevel(component, slog.LevelInfo)
}

// NewWithLevel constructs a JSON slog.Logger at the provided level
func NewWithLevel(component string, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler).With(
		slog.String("component", component))
}

// WithSession scopes a logger to one conversation's session key
func WithSession(logger *slog.Logger, key string) *slog.Logger {
	return logger.With(slog.String("session", key))
}
