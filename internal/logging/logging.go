package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New creates a console slog.Logger with provided level string.
func New(level string) *slog.Logger {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      levelFromString(level),
		TimeFormat: time.DateTime,
	})
	return slog.New(handler)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
