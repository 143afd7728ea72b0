// Package logger provides opinionated slog loggers for k-core services and CLIs
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// EnvLevel is the environment variable read by Init to override the level.
const EnvLevel = "KCORE_LOG"

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
	tee     []*slog.Logger
}

// New builds a *slog.Logger. The default is a text handler at Info level on
// os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	base := build(c)
	if len(c.tee) == 0 {
		return base
	}
	return Fanout(append([]*slog.Logger{base}, c.tee...)...)
}

func build(c *config) *slog.Logger {
	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stdout
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	switch {
	case c.pretty:
		cl := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
		return slog.New(cl)

	case c.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))

	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var (
	initOnce   sync.Once
	initLogger *slog.Logger
)

// Init builds the process-wide logger, tags it with the service name and
// installs it as the slog default. Only the first call has any effect; later
// calls return the logger built by the first one.
func Init(service string, opts ...Option) *slog.Logger {
	initOnce.Do(func() {
		if lvl, ok := ParseLevel(os.Getenv(EnvLevel)); ok {
			opts = append(opts, WithLevel(lvl))
		}
		initLogger = New(opts...).With("service", service)
		slog.SetDefault(initLogger)
	})
	return initLogger
}

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
