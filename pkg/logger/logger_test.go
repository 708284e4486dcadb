package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesTaggedLines(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	l, err := New(LevelDebug, logPath, false)
	require.NoError(t, err)

	prevDefault := defaultLogger
	defaultLogger = l
	defer func() { defaultLogger = prevDefault }()

	c := WithComponent("webchat.bootstrap")
	c.Debug("fetching page", "video_id", "abc123XYZ90")
	c.Warn("missing client version, using default", "fallback", "2.20240207.07.00")

	require.NoError(t, Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	assert.Contains(t, string(content), "[webchat.bootstrap]")
	assert.Contains(t, string(content), "video_id=abc123XYZ90")
	assert.Contains(t, string(content), "fallback=2.20240207.07.00")
}

func TestShouldLogRespectsLevel(t *testing.T) {
	tmpDir := t.TempDir()
	l, err := New(LevelWarn, filepath.Join(tmpDir, "lvl.log"), false)
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.shouldLog(LevelDebug))
	assert.False(t, l.shouldLog(LevelInfo))
	assert.True(t, l.shouldLog(LevelWarn))
	assert.True(t, l.shouldLog(LevelError))
}

func TestPersistAppendsInsteadOfTruncating(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "persist.log")
	require.NoError(t, os.WriteFile(logPath, []byte("existing\n"), 0644))

	l, err := New(LevelInfo, logPath, true)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "existing")
}

func TestFormatKVOddPairsMarksMissing(t *testing.T) {
	out := formatKV([]any{"key1", "val1", "dangling"})
	assert.Contains(t, out, "key1=val1")
	assert.Contains(t, out, "dangling=<missing>")
}
