package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/errors"
)

func TestInitDisabledIsNoop(t *testing.T) {
	require.NoError(t, Init(conf.TelemetrySettings{}, "test"))
	assert.Nil(t, errors.GetTelemetryReporter())
	assert.True(t, Flush())
}

func TestInitRequiresDSN(t *testing.T) {
	err := Init(conf.TelemetrySettings{Enabled: true}, "test")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestInitRejectsMalformedDSN(t *testing.T) {
	err := Init(conf.TelemetrySettings{Enabled: true, DSN: "not-a-dsn"}, "test")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.Nil(t, errors.GetTelemetryReporter())
}

func TestDSNScrubber(t *testing.T) {
	t.Parallel()

	const dsn = "https://public@o1.ingest.example.com/42"
	scrub := dsnScrubber(dsn)

	got := scrub("upload to " + dsn + " failed for /home/alice/take.wav")
	assert.NotContains(t, got, "o1.ingest.example.com")
	assert.NotContains(t, got, "alice")
	assert.Contains(t, got, "[DSN]")

	got = dsnScrubber("")("dial https://key@other.example.com/1")
	assert.NotContains(t, got, "key@")
}

func TestPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.ServerName = "studio-pc"
	event.User = sentry.User{ID: "alice"}
	event.Tags = map[string]string{"hostname": "studio-pc", "component": "audioclient"}
	event.Contexts = map[string]sentry.Context{
		"os":     {"name": "linux"},
		"stream": {"id": 1},
	}

	out := applyPrivacyFilters(event, nil)
	assert.Empty(t, out.ServerName)
	assert.True(t, out.User.IsEmpty())
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "audioclient", out.Tags["component"])
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "stream")
}
