// Package metrics provides audio client stream metrics for observability
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Glitch kinds
const (
	GlitchUnderrun = "underrun"
	GlitchOverrun  = "overrun"
)

// ClientMetrics contains Prometheus metrics for stream clients and the engine
// that services them. All Record methods are safe on a nil receiver.
type ClientMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	framesTotal       *prometheus.CounterVec
	glitchesTotal     *prometheus.CounterVec
	activeStreams     *prometheus.GaugeVec
	timerThreadsTotal *prometheus.CounterVec
	volumePushesTotal prometheus.Counter
	periodDuration    *prometheus.HistogramVec
	bufferFillRatio   *prometheus.GaugeVec
}

// NewClientMetrics creates and registers client metrics
func NewClientMetrics(registry *prometheus.Registry) (*ClientMetrics, error) {
	m := &ClientMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ClientMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioclient_operations_total",
			Help: "Total number of stream client operations",
		},
		[]string{"operation", "status"},
	)

	m.framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioclient_frames_total",
			Help: "Total frames exchanged through the buffer protocol",
		},
		[]string{"flow"}, // render, capture
	)

	m.glitchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioclient_glitches_total",
			Help: "Total number of underruns and overruns seen by the engine",
		},
		[]string{"flow", "kind"},
	)

	m.activeStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audioclient_active_streams",
			Help: "Number of open engine streams",
		},
		[]string{"flow"},
	)

	m.timerThreadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioclient_timer_threads_total",
			Help: "Timer thread spawn attempts",
		},
		[]string{"priority", "status"},
	)

	m.volumePushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audioclient_volume_pushes_total",
			Help: "Total number of gain updates pushed to the engine",
		},
	)

	m.periodDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioclient_period_service_duration_seconds",
			Help:    "Time spent servicing one device period",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~80ms
		},
		[]string{"flow"},
	)

	m.bufferFillRatio = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audioclient_buffer_fill_ratio",
			Help: "Stream buffer fill level after the last period (0.0 to 1.0)",
		},
		[]string{"flow"},
	)
}

// RecordOperation counts a client call and its outcome
func (m *ClientMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordFrames adds frames moved through the buffer protocol
func (m *ClientMetrics) RecordFrames(flow string, frames uint32) {
	if m == nil || frames == 0 {
		return
	}
	m.framesTotal.WithLabelValues(flow).Add(float64(frames))
}

// RecordGlitch counts an underrun or overrun
func (m *ClientMetrics) RecordGlitch(flow, kind string) {
	if m == nil {
		return
	}
	m.glitchesTotal.WithLabelValues(flow, kind).Inc()
}

// StreamOpened increments the active stream gauge
func (m *ClientMetrics) StreamOpened(flow string) {
	if m == nil {
		return
	}
	m.activeStreams.WithLabelValues(flow).Inc()
}

// StreamClosed decrements the active stream gauge
func (m *ClientMetrics) StreamClosed(flow string) {
	if m == nil {
		return
	}
	m.activeStreams.WithLabelValues(flow).Dec()
}

// RecordTimerSpawn counts a timer thread spawn attempt
func (m *ClientMetrics) RecordTimerSpawn(priority string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.timerThreadsTotal.WithLabelValues(priority, status).Inc()
}

// RecordVolumePush counts one gain update sent to the engine
func (m *ClientMetrics) RecordVolumePush() {
	if m == nil {
		return
	}
	m.volumePushesTotal.Inc()
}

// ObservePeriod records how long one period took to service and the fill level after it
func (m *ClientMetrics) ObservePeriod(flow string, elapsed time.Duration, fill float64) {
	if m == nil {
		return
	}
	m.periodDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
	m.bufferFillRatio.WithLabelValues(flow).Set(fill)
}

// Describe implements prometheus.Collector
func (m *ClientMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.framesTotal.Describe(ch)
	m.glitchesTotal.Describe(ch)
	m.activeStreams.Describe(ch)
	m.timerThreadsTotal.Describe(ch)
	m.volumePushesTotal.Describe(ch)
	m.periodDuration.Describe(ch)
	m.bufferFillRatio.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *ClientMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.framesTotal.Collect(ch)
	m.glitchesTotal.Collect(ch)
	m.activeStreams.Collect(ch)
	m.timerThreadsTotal.Collect(ch)
	m.volumePushesTotal.Collect(ch)
	m.periodDuration.Collect(ch)
	m.bufferFillRatio.Collect(ch)
}
