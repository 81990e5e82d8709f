package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/granary/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNewTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := New(&buf, config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	defer c.Close()

	l.Info("quiet")
	l.Warn("loud", "city", "Sumer")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "city=Sumer")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := New(&buf, config.LogConfig{Format: "json"})
	require.NoError(t, err)
	defer c.Close()

	l.Info("settled", "year", 2)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "settled", line["msg"])
	assert.Equal(t, 2.0, line["year"])
}

func TestNewCopiesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "granary.log")
	var buf bytes.Buffer
	l, c, err := New(&buf, config.LogConfig{File: path, MaxSize: 1})
	require.NoError(t, err)

	l.Info("harvest", "bushels", 40)
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bushels=40")
	assert.Contains(t, buf.String(), "bushels=40")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, _, err := New(&bytes.Buffer{}, config.LogConfig{Format: "xml"})
	assert.Error(t, err)
}
