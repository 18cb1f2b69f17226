package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONRenamesKeysAndTagsComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	Component(logger, "engine").Warn("flush failed", slog.Int("batch_size", 12))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "flush failed", record["msg"])
	assert.Equal(t, "engine", record[FieldComponent])
	assert.Equal(t, float64(12), record["batch_size"])
	assert.Contains(t, record, "ts")
	assert.NotContains(t, record, "source")
}

func TestNewConsoleFiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "level=error")
}

func TestNewDebugAddsSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("with caller")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestNewWritesLogFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "keepster.log")
	var buf bytes.Buffer
	logger, closer, err := New(Options{Output: &buf, FilePath: path})
	require.NoError(t, err)

	logger.Info("to both")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestNewRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	_, _, err := New(Options{Format: "xml"})
	require.ErrorContains(t, err, `log format: unsupported value "xml"`)

	_, _, err = New(Options{Level: "loud"})
	require.ErrorContains(t, err, `log level: unsupported value "loud"`)
}

func TestComponentNilLoggerDiscards(t *testing.T) {
	t.Parallel()

	logger := Component(nil, "tui")
	require.NotNil(t, logger)
	logger.Info("dropped")
}
