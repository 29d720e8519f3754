package logger_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestModuleScopingAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	root := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)

	log := root.Module("engine").Module("soft").With(logger.String("stream", "7"))
	log.Info("stream started",
		logger.Uint32("buffer_frames", 4800),
		logger.Duration("period", 10*time.Millisecond),
		logger.Float64("gain", 0.123456),
		logger.Error(errors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "stream started", e["msg"])
	assert.Equal(t, "engine.soft", e["module"])
	assert.Equal(t, "7", e["stream"])
	assert.InDelta(t, 4800, e["buffer_frames"], 0)
	assert.Equal(t, "10ms", e["period"])
	assert.InDelta(t, 0.123, e["gain"], 1e-9)
	assert.Equal(t, "boom", e["error"])
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelWarn, time.UTC).Module("rtthread")

	log.Trace("trace")
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Log(logger.LogLevelError, "error")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["msg"])
	assert.Equal(t, "error", entries[1]["msg"])
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(t.Context(), "abc-123")
	log.WithContext(ctx).Info("render")
	log.WithContext(t.Context()).Info("no trace")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc-123", entries[0]["trace_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "client.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"session": "error"},
	})
	require.NoError(t, err)

	cl.Module("audioclient").Debug("initialized", logger.Int("channels", 2))
	cl.Module("session").Info("filtered out")
	require.NoError(t, cl.Close())
	require.NoError(t, cl.Close(), "close is idempotent")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "audioclient", entries[0]["module"])
	assert.Equal(t, "DEBUG", entries[0]["level"])
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}
