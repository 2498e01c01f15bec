package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own logger from the configured level and
// format. The global slog default is left untouched so parallel app
// instances (and tests) keep isolated log streams.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "text" {
		return slog.New(slog.NewTextHandler(outW, opts))
	}
	return slog.New(slog.NewJSONHandler(outW, opts))
}

// parseLevel maps the flag value to a slog level, falling back to info
// for anything unrecognized.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
