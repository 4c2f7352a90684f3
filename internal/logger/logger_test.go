package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "info", Service: "corpsite"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hello")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "corpsite", entry["service"])
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "loud"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	var buf bytes.Buffer
	log, err := newLogger(Config{Level: "info", LogFile: path, MaxSize: 1}, &buf)
	require.NoError(t, err)

	log.Info("to file")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Contains(t, buf.String(), "to file")
}
