package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("quiet")
	logger.Warn("settlement retried", "op", "create settlement")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "settlement retried")
	assert.Contains(t, out, "op=")
	// A buffer is not a terminal.
	assert.NotContains(t, out, "\x1b[")
}
