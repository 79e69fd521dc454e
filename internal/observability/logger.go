package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/device-telemetry-etl/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the job logger. Records go to stdout and, when cfg.LogFile
// is set, are appended to that file as well. The returned Closer releases the
// log file.
func NewLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	return newLogger(out, cfg.LogLevel, cfg.LogFormat), closer, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

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
