// Package logging wraps zerolog with the defaults every CallLogCSV binary
// shares.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	Level   string
	Format  string
	Service string
	Writer  io.Writer
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT and LOG_SERVICE.
func FromEnv() Options {
	return Options{
		Level:   strings.ToLower(getenv("LOG_LEVEL", "info")),
		Format:  strings.ToLower(getenv("LOG_FORMAT", "console")),
		Service: getenv("LOG_SERVICE", ""),
	}
}

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
)

// Init builds the root logger. Only the first call has any effect.
func Init(opt Options) {
	once.Do(func() {
		l := New(opt)
		root.Store(&l)
	})
}

// New builds a standalone logger from opt without touching the root logger.
func New(opt Options) zerolog.Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	return ctx.Logger()
}

// Get returns the root logger, initialising it from the environment if needed.
func Get() *zerolog.Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Named returns a child logger with a component field.
func Named(component string) *zerolog.Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// Nop returns a logger that discards everything; handy in tests.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func parseLevel(s string) zerolog.Level {
	switch strings.TrimSpace(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}
