package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, "info", "json")
		logger.Info("Listener connected", "conn_id", "abc")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "Listener connected", rec["msg"])
		require.Equal(t, "abc", rec["conn_id"])
	})

	t.Run("text format filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, "warn", "text")
		logger.Info("hidden")
		logger.Warn("shown")

		out := buf.String()
		require.NotContains(t, out, "hidden")
		require.True(t, strings.Contains(out, "msg=shown"))
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, "loud", "text")
		require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
		require.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	})

	t.Run("installs default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := initLogger(&buf, "debug", "text")
		require.Same(t, logger, slog.Default())
	})
}
