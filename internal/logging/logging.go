// Package logging builds the zerolog loggers handed to the locator, loader,
// plugin manager and buffer contexts.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel names the environment variable consulted when no level is given.
const EnvLevel = "ACCELRT_LOG_LEVEL"

// ParseLevel maps debug|info|warn|error|off to a zerolog level.
// Unknown values fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// DefaultLevel returns the level from ACCELRT_LOG_LEVEL, or info.
func DefaultLevel() string {
	if v := os.Getenv(EnvLevel); v != "" {
		return v
	}
	return "info"
}

// New returns a logger writing to w at the given level. Console output is
// human-readable; otherwise one JSON object per line.
func New(level string, w io.Writer, console bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}
