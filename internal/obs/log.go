package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"taskhub.org/internal/config"
)

const serviceName = "taskhub-api"

var shared atomic.Pointer[slog.Logger]

// Logger returns the shared structured logger used across the service.
// Until SetLogger is called it is slog.Default().
func Logger() *slog.Logger {
	if l := shared.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetLogger installs l as the shared logger and as the slog default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	shared.Store(l)
	slog.SetDefault(l)
}

// ResolveLogger returns l, or the shared logger when l is nil.
func ResolveLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}

// NewLogger builds a logger from configuration. Output is stdout unless
// cfg.Output is "stderr".
func NewLogger(cfg config.LoggingConfig, version string) *slog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLogger(out, cfg, version)
}

func newLogger(out io.Writer, cfg config.LoggingConfig, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)
}

func parseLevel(level string) slog.Level {
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
