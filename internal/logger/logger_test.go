package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledDiscards(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	Init(Options{})
	assert.False(t, Enabled(slog.LevelError))
	Error("dropped")
}

func TestTextOutput(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	var out bytes.Buffer
	Init(Options{Enabled: true, Output: &out, Level: slog.LevelWarn})

	Info("hidden")
	Warn("buddy: allocation failed", "size", 200)

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "buddy: allocation failed")
	assert.Contains(t, out.String(), "size=200")
	assert.True(t, Enabled(slog.LevelError))
	assert.False(t, Enabled(slog.LevelDebug))
}

func TestJSONOutput(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	var out bytes.Buffer
	Init(Options{Enabled: true, Output: &out, Level: slog.LevelDebug, JSON: true})
	Debug("arena reset", "used", 64)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "arena reset", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.EqualValues(t, 64, rec["used"])
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("QI_LOG_LEVEL", "debug")
	level, ok := LevelFromEnv()
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, level)

	t.Setenv("QI_LOG_LEVEL", "nonsense")
	_, ok = LevelFromEnv()
	assert.False(t, ok)
}
