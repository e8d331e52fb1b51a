package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	cleanup, err := Setup(Config{Dir: dir, Debug: true})
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	assert.Equal(t, filepath.Join(dir, Filename), Path())

	L().Debug("installer.fetch", "formula", "apigeecli")
	require.NoError(t, cleanup())

	assert.Empty(t, Path())

	content, err := os.ReadFile(filepath.Join(dir, Filename))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "installer.fetch", entry["msg"])
	assert.Equal(t, "apigeecli", entry["formula"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Contains(t, entry, "source")
}

func TestSetup_InfoLevelWithoutDebug(t *testing.T) {
	dir := t.TempDir()

	cleanup, err := Setup(Config{Dir: dir})
	require.NoError(t, err)

	L().Debug("hidden")
	L().Info("visible")
	require.NoError(t, cleanup())

	content, err := os.ReadFile(filepath.Join(dir, Filename))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden")
	assert.Contains(t, string(content), "visible")
}

func TestSetup_Errors(t *testing.T) {
	_, err := Setup(Config{})
	assert.Error(t, err)
	assert.Empty(t, Path())

	// a file where the directory should be
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err = Setup(Config{Dir: filepath.Join(blocker, "logs")})
	assert.Error(t, err)
	assert.NotNil(t, L())
}

func TestSetup_Twice(t *testing.T) {
	first, err := Setup(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, first)

	mu.RLock()
	previous := logFile
	mu.RUnlock()

	dir := t.TempDir()
	second, err := Setup(Config{Dir: dir})
	require.NoError(t, err)
	defer second()

	assert.Equal(t, filepath.Join(dir, Filename), Path())

	// the first log file was released when it got replaced
	_, err = previous.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
