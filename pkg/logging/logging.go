// Package logging provides the structured logger used throughout the
// pipeline. It never influences a verdict or finding; it is purely
// observational, written to stderr so stdout stays reserved for the CLI's
// own JSON/table output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger that writes JSON lines to w at the given level.
// level is case-insensitive: "debug", "info", "warn", "error"; unrecognized
// values default to "info".
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// NewDefault builds a logger writing to stderr at the given level.
func NewDefault(level string) *slog.Logger {
	return New(os.Stderr, level)
}

func parseLevel(level string) slog.Level {
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

// WithBundle returns a logger annotated with a bundle's source and hash,
// the two fields nearly every pipeline log line needs for correlation.
func WithBundle(l *slog.Logger, source, bundleSha256 string) *slog.Logger {
	return l.With("bundle_source", source, "bundle_sha256", bundleSha256)
}
