// Package logging builds the slog logger shared by the CLI and the engine.
// Output goes to stderr so it never mixes with the tab-separated results on
// stdout.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "BMICON_LOG_LEVEL"

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// New returns a text logger writing to w at the given level. An invalid
// level falls back to warn and is reported in the returned error.
func New(w io.Writer, level string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})
	return slog.New(h), err
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
