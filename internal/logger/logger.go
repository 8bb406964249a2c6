package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger = slog.Default()

// New builds a text logger at the given level (debug, info, warn, error).
// DEBUG=true forces debug.
func New(level string) *slog.Logger {
	return newWithWriter(os.Stdout, level)
}

func newWithWriter(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init installs New(level) as the process default.
func Init(level string) *slog.Logger {
	Logger = New(level)
	slog.SetDefault(Logger)
	return Logger
}

func parseLevel(level string) slog.Level {
	if os.Getenv("DEBUG") == "true" {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
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
