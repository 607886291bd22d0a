// Package logging configures the zerolog loggers shared by missivd and the
// missiv CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Packages derive scoped loggers
// from it with Component.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config selects level and encoding for Init.
type Config struct {
	Level        string // trace, debug, info, warn, error
	Format       string // "json" or "console"
	Output       io.Writer
	EnableCaller bool
	NoColor      bool
}

// DefaultConfig logs info and above to stderr in console form.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: os.Stderr}
}

// Init replaces Logger and the global level. Loggers derived before the call
// keep their old writer, so Init belongs at the top of main.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	builder := zerolog.New(writerFor(cfg)).With().Timestamp()
	if cfg.EnableCaller {
		builder = builder.Caller()
	}
	Logger = builder.Logger()
}

func writerFor(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: cfg.NoColor}
}

// parseLevel accepts zerolog level names plus "warning". Unknown or empty
// names fall back to info.
func parseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Component returns Logger tagged with a component field.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func WithDesk(logger zerolog.Logger, deskID string) zerolog.Logger {
	return logger.With().Str("desk_id", deskID).Logger()
}

func WithConversation(logger zerolog.Logger, conversationID string) zerolog.Logger {
	return logger.With().Str("conversation_id", conversationID).Logger()
}

// OpenFile opens path for appending, creating it owner-writable.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
