package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestStructuredLogger_BasicEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLoggerWithWriter(&buf, "chessreview", "0.1.0", "info")

	logger.Info("engine started", "binary", "stockfish", "depth", 12)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "chessreview", entry.Service)
	assert.Equal(t, "engine started", entry.Message)
	assert.Equal(t, "stockfish", entry.Fields["binary"])
	assert.EqualValues(t, 12, entry.Fields["depth"])
}

func TestStructuredLogger_PrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLoggerWithWriter(&buf, "svc", "", "info")

	logger.Info("analyzed %d plies at depth %d", 40, 12)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "analyzed 40 plies at depth 12", entry.Message)
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLoggerWithWriter(&buf, "svc", "", "warn")

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestStructuredLogger_CorrelationIDsFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLoggerWithWriter(&buf, "svc", "", "info")

	ctx := ContextWithCorrelationID(context.Background(), "corr_123")
	ctx = ContextWithRequestID(ctx, "req_456")
	logger.WithContext(ctx).Info("handling request")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "corr_123", entry.CorrelationID)
	assert.Equal(t, "req_456", entry.RequestID)
}

func TestStructuredLogger_WithFieldIsolation(t *testing.T) {
	var buf bytes.Buffer
	base := NewStructuredLoggerWithWriter(&buf, "svc", "", "info")

	derived := base.WithField("tool", "analyzeGame")
	derived.Info("first")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "analyzeGame", entry.Fields["tool"])

	buf.Reset()
	base.Info("second")
	entry = decodeEntry(t, &buf)
	assert.NotContains(t, entry.Fields, "tool", "derived fields must not leak into the base logger")
}

func TestTextLogger_KeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "[test] ", "debug")

	logger.Info("cache opened", "entries", 3)
	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "cache opened")
	assert.Contains(t, out, "entries=3")
}

func TestTextLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "", "error")

	logger.Debug("hidden")
	logger.Warn("hidden")
	assert.Zero(t, buf.Len())

	logger.Error("boom")
	assert.Contains(t, buf.String(), "boom")
}

func TestGenerateIDs(t *testing.T) {
	corr := GenerateCorrelationID()
	req := GenerateRequestID()
	assert.True(t, strings.HasPrefix(corr, "corr_"))
	assert.True(t, strings.HasPrefix(req, "req_"))
	assert.NotEqual(t, GenerateCorrelationID(), GenerateCorrelationID())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, parseLevel("debug"))
	assert.Equal(t, WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, InfoLevel, parseLevel("unknown"))
}
