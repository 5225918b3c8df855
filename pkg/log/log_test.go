package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "warn", "json")).With("module", "rules_engine")
	logger.Info("dropped")
	logger.Warn("rule skipped", "rule_id", "auto-escalate-overdue-capa")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rule skipped", entry["msg"])
	assert.Equal(t, "rules_engine", entry["module"])
	assert.Equal(t, "auto-escalate-overdue-capa", entry["rule_id"])
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer

	slog.New(NewHandler(&buf, "debug", "text")).Debug("sweep finished", "count", 3)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "count=3")
}
