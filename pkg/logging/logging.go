// Package logging builds the process-wide *slog.Logger.
//
// Outside production logs are colorized through tint;
// production emits JSON lines.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New constructs a logger writing to out.
func New(production bool, level string, out io.Writer) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(level))

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: true,
			Level:     lvl,
		})
	} else {
		handler = tint.NewHandler(out, &tint.Options{
			AddSource:  true,
			Level:      lvl,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR to their slog levels.
// Anything else is INFO.
func ParseLevel(val string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(val)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
