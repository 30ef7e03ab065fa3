package app

import (
	"io"
	"log/slog"
)

// newLogger builds an isolated slog.Logger for one App instance; the
// global logger is left alone. Unknown levels fall back to info, since
// the CLI validates the level before the app sees it.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if levelStr != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(levelStr)); err == nil {
			level = parsed
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
