package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tunes where and how verbosely Setup writes.
type Options struct {
	// File, when set, receives a rotated copy of every line written to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      slog.Level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs a JSON slog logger as the process default, bridges the
// standard library logger onto it and returns both the logger and a closer for
// the rotating file sink. Every line carries the service name and, when set,
// the environment.
func Setup(service, env string, opts Options) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(opts.File); path != "" {
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    positiveOr(opts.MaxSizeMB, 100),
			MaxBackups: positiveOr(opts.MaxBackups, 5),
			MaxAge:     positiveOr(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}
	logger := New(out, service, env, opts.Level)
	slog.SetDefault(logger)

	stdBridge := slog.NewLogLogger(logger.Handler(), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return logger, closer
}

// New builds a JSON logger writing to w without touching process globals.
func New(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})
	args := []any{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		args = append(args, slog.String("env", env))
	}
	return slog.New(handler).With(args...)
}

// ParseLevel maps debug/info/warn/error onto slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
