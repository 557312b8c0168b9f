// Package logging builds the leveled log sink used by the preprocessor.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "GPP_LOG"

// DefaultLevel only lets warn and error directives through.
const DefaultLevel = slog.LevelWarn

// ParseLevel accepts debug, info, warn or error in any case. An empty
// string yields DefaultLevel.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLevel, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return DefaultLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
