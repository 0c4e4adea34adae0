package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"INFO":  slog.LevelInfo,
		"nope":  slog.LevelInfo,
		"":      slog.LevelInfo,
	} {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewProductionJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(true, "INFO", &buf)

	l.Debug("hidden")
	l.Info("link created", "short_code", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "link created", line["msg"])
	require.Equal(t, "abc", line["short_code"])
}

func TestNewDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := New(false, "DEBUG", &buf)

	l.Debug("visible")
	require.Contains(t, buf.String(), "visible")
}
