package logging

import (
	"log/slog"
	"os"
)

// New builds the application logger writing key-value text to stdout.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
