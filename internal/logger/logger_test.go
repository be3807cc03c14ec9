package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_FileOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reporter.log")

	log, err := New(LogConfig{Level: "debug", Format: "json", Output: out})
	require.NoError(t, err)

	log.Info("hello", "project", "chromium")
	log.Sync()

	assert.FileExists(t, out)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(LogConfig{Level: "loud", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestConvertFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &Logger{zap.New(core)}

	log.Warn("merge failed", "error", errors.New("boom"), "segments", 2, 42, "ignored")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.EqualValues(t, 2, ctx["segments"])
	assert.NotContains(t, ctx, "42")
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := (&Logger{zap.New(core)}).With("project", "firefox").Named("video")

	log.Debug("segment dropped")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "video", entries[0].LoggerName)
	assert.Equal(t, "firefox", entries[0].ContextMap()["project"])
}
