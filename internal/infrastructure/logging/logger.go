package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
)

// ServiceName is attached to every log entry as the "service" field.
const ServiceName = "iot-simulator"

// Logger is a slog.Logger carrying the service and version fields. It
// satisfies the Logger interfaces declared by the simulator, client,
// platform, telemetry and api packages, so one instance (or a Component of
// it) can be handed to all of them.
type Logger struct {
	*slog.Logger
}

// New logs to stderr when cfg.Output is "stderr" and to stdout otherwise.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWithWriter(w, cfg, version)
}

// NewWithWriter logs to w. Format "text" selects slog's text handler;
// anything else is JSON.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(h).With("service", ServiceName, "version", version)}
}

// Discard drops everything. Tests hand it to components that require a
// logger.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// Default is the logger used before configuration is loaded: JSON on
// stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// parseLevel accepts slog's level names (case-insensitive, with offsets
// such as "warn+2") and "warning". Anything else is info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// With returns a Logger with extra default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Component tags entries with the emitting subsystem:
//
//	log.Component("platform").Info("platform started") // component=platform
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}
