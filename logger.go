package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger with the given level.
// Debug-level runs also record the source location.
func NewLogger(level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(h)
}
