package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	t.Parallel()

	m, err := NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordOperation("start", nil)
	m.RecordOperation("start", nil)
	m.RecordOperation("start", errors.New("not initialized"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.operationsTotal.WithLabelValues("start", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues("start", StatusError)), 0)
}

func TestStreamAccounting(t *testing.T) {
	t.Parallel()

	m, err := NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.StreamOpened("render")
	m.StreamOpened("render")
	m.StreamClosed("render")
	m.RecordFrames("render", 480)
	m.RecordFrames("render", 0)
	m.RecordGlitch("render", GlitchUnderrun)
	m.RecordVolumePush()
	m.RecordTimerSpawn("realtime", nil)
	m.ObservePeriod("render", 200*time.Microsecond, 0.5)

	assert.InDelta(t, 1, testutil.ToFloat64(m.activeStreams.WithLabelValues("render")), 0)
	assert.InDelta(t, 480, testutil.ToFloat64(m.framesTotal.WithLabelValues("render")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.glitchesTotal.WithLabelValues("render", GlitchUnderrun)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.volumePushesTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.timerThreadsTotal.WithLabelValues("realtime", StatusSuccess)), 0)
	assert.InDelta(t, 0.5, testutil.ToFloat64(m.bufferFillRatio.WithLabelValues("render")), 0)
}

func TestNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var m *ClientMetrics
	assert.NotPanics(t, func() {
		m.RecordOperation("stop", nil)
		m.RecordFrames("capture", 10)
		m.RecordGlitch("capture", GlitchOverrun)
		m.StreamOpened("capture")
		m.StreamClosed("capture")
		m.RecordTimerSpawn("normal", errors.New("x"))
		m.RecordVolumePush()
		m.ObservePeriod("capture", time.Millisecond, 1)
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewClientMetrics(registry)
	require.NoError(t, err)
	_, err = NewClientMetrics(registry)
	assert.Error(t, err)
}

func TestObservePeriodHistogram(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewClientMetrics(registry)
	require.NoError(t, err)

	m.ObservePeriod("capture", 50*time.Microsecond, 0.25)
	m.ObservePeriod("capture", 2*time.Millisecond, 0.5)

	families, err := registry.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() != "audioclient_period_service_duration_seconds" {
			continue
		}
		require.Equal(t, dto.MetricType_HISTOGRAM, mf.GetType())
		require.Len(t, mf.GetMetric(), 1)
		hist = mf.GetMetric()[0].GetHistogram()
	}
	require.NotNil(t, hist, "period histogram not gathered")

	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 0.00205, hist.GetSampleSum(), 1e-9)
	assert.Len(t, hist.GetBucket(), 14)
}
