package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("debug msg", "k", "v")
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 4)
	assert.Equal(t, "debug msg", entries[0]["msg"])
	assert.Equal(t, "v", entries[0]["k"])
	assert.Equal(t, "ERROR", entries[3]["level"])
}

func TestSeleneLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept warn")
	l.Error("kept error")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "kept warn", entries[0]["msg"])
	assert.Equal(t, "kept error", entries[1]["msg"])
}

func TestSeleneLogger_KeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l.Info("chain started", "chain_id", "run-1", "steps", 3)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	// Args are structured key/value pairs, never folded into the message.
	assert.Equal(t, "chain started", entries[0]["msg"])
	assert.Equal(t, "run-1", entries[0]["chain_id"])
	assert.Equal(t, float64(3), entries[0]["steps"])
}

func TestSeleneLogger_ContextualCloning(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	scoped := base.WithComponent("router").WithChain("chain-1").WithContext("task", "summarize")
	scoped.Info("resolved")
	base.Info("plain")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "router", entries[0]["component"])
	assert.Equal(t, "chain-1", entries[0]["chain_id"])
	assert.Equal(t, "summarize", entries[0]["task"])

	// With* helpers clone; the base logger stays unscoped.
	assert.NotContains(t, entries[1], "component")
	assert.NotContains(t, entries[1], "task")
}

func TestSeleneLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	l.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestSeleneLogger_LogBackendCall(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l.LogBackendCall("local", "summarize", 20*time.Millisecond, true, nil)
	l.LogBackendCall("remote", "summarize", 5*time.Millisecond, false, errors.New("down"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Backend invocation completed", entries[0]["msg"])
	assert.Equal(t, true, entries[0]["success"])
	assert.Equal(t, "Backend invocation failed", entries[1]["msg"])
	assert.Equal(t, "down", entries[1]["error"])
	assert.Equal(t, "ERROR", entries[1]["level"])
}

func TestSeleneLogger_LogChainExecution(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l.LogChainExecution("chain-1", 3, time.Second, "succeeded")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "chain-1", entries[0]["chain_id"])
	assert.Equal(t, float64(3), entries[0]["step_count"])
	assert.Equal(t, "succeeded", entries[0]["status"])
}

func TestNewLogger_NilConfigDefaults(t *testing.T) {
	assert.NotNil(t, NewLogger(nil))
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
