package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), settings)
	assert.Same(t, settings, GetSettings())
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  period: 5ms
  buffer_duration: 40ms
  sample_rate: 44100
  channels: 1
timer:
  thread_name: custom_timer
  priority: high
metrics:
  enabled: true
  listen: "0.0.0.0:9999"
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Millisecond, settings.Engine.Period)
	assert.Equal(t, 40*time.Millisecond, settings.Engine.BufferDuration)
	assert.Equal(t, 44100, settings.Engine.SampleRate)
	assert.Equal(t, 1, settings.Engine.Channels)
	assert.Equal(t, DefaultBitsPerSample, settings.Engine.BitsPerSample)
	assert.Equal(t, "custom_timer", settings.Timer.ThreadName)
	assert.Equal(t, PriorityHigh, settings.Timer.Priority)
	assert.True(t, settings.Metrics.Enabled)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("AUDIOCLIENT_ENGINE_CHANNELS", "6")
	t.Setenv("AUDIOCLIENT_TIMER_PRIORITY", "normal")

	settings, err := Load(writeConfig(t, "debug: true\n"))
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, 6, settings.Engine.Channels)
	assert.Equal(t, PriorityNormal, settings.Timer.Priority)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("AUDIOCLIENT_ENGINE_PERIOD", "soon")

	_, err := Load(writeConfig(t, "debug: false\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUDIOCLIENT_ENGINE_PERIOD")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"defaults are valid", func(*Settings) {}, ""},
		{"unknown backend", func(s *Settings) { s.Engine.Backend = "wasapi" }, "backend"},
		{"zero period", func(s *Settings) { s.Engine.Period = 0 }, "period must be positive"},
		{"buffer shorter than period", func(s *Settings) { s.Engine.BufferDuration = time.Millisecond }, "at least one period"},
		{"zero channels", func(s *Settings) { s.Engine.Channels = 0 }, "channels"},
		{"24 bit", func(s *Settings) { s.Engine.BitsPerSample = 24 }, "bits per sample"},
		{"bad priority", func(s *Settings) { s.Timer.Priority = "urgent" }, "timer priority"},
		{"realtime required without realtime priority", func(s *Settings) {
			s.Timer.Priority = PriorityHigh
			s.Timer.RequireRealtime = true
		}, "require_realtime"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "dsn"},
		{"metrics bad listen", func(s *Settings) {
			s.Metrics.Enabled = true
			s.Metrics.Listen = "nope"
		}, "listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Defaults()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
