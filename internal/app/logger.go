package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app logger writing to w. The level uses slog's own
// names ("debug", "info", "warn", "error"); anything unparsable falls back to
// info. NewConfig has already rejected unknown levels and formats. The global
// logger is left untouched so that every App stays isolated.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
