package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcherLogger() (*DispatcherLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	return NewDispatcherLogger(logger), &buf
}

func TestDispatcherLogger_Debug(t *testing.T) {
	l, buf := newTestDispatcherLogger()

	l.Debug("handling intent", "command", "marker:create")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "handling intent", entry["message"])
	assert.Equal(t, "marker:create", entry["command"])
}

func TestDispatcherLogger_Info(t *testing.T) {
	l, buf := newTestDispatcherLogger()

	l.Info("intent complete", "command", "nav:next")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "nav:next", entry["command"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	l, buf := newTestDispatcherLogger()

	l.Error("intent failed", "command", "seek", "error", "device gone")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "device gone", entry["error"])
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, "b", "two"})
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, fields)
}

func TestToFields_OddCount(t *testing.T) {
	fields := toFields([]any{"a", 1, "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}

func TestToFields_NonStringKey(t *testing.T) {
	fields := toFields([]any{42, "ignored", "ok", true})
	assert.Equal(t, map[string]any{"ok": true}, fields)
}
