// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBackend        = "soft"
	DefaultDevice         = "default"
	DefaultPeriod         = 10 * time.Millisecond
	DefaultBufferDuration = 100 * time.Millisecond
	DefaultSampleRate     = 48000
	DefaultChannels       = 2
	DefaultBitsPerSample  = 16

	DefaultTimerThreadName = "audio_client_timer"
	DefaultTimerPriority   = PriorityRealtime

	DefaultMetricsListen = "127.0.0.1:9464"
)

// Timer priority classes
const (
	PriorityRealtime = "realtime"
	PriorityHigh     = "high"
	PriorityNormal   = "normal"
)

// setDefaultConfig registers every key so that env overrides reach Unmarshal.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("engine.backend", DefaultBackend)
	v.SetDefault("engine.device", DefaultDevice)
	v.SetDefault("engine.period", DefaultPeriod)
	v.SetDefault("engine.buffer_duration", DefaultBufferDuration)
	v.SetDefault("engine.sample_rate", DefaultSampleRate)
	v.SetDefault("engine.channels", DefaultChannels)
	v.SetDefault("engine.bits_per_sample", DefaultBitsPerSample)

	v.SetDefault("timer.thread_name", DefaultTimerThreadName)
	v.SetDefault("timer.priority", DefaultTimerPriority)
	v.SetDefault("timer.require_realtime", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsListen)
}

// Defaults returns the settings produced by an empty config file.
func Defaults() *Settings {
	return &Settings{
		Engine: EngineSettings{
			Backend:        DefaultBackend,
			Device:         DefaultDevice,
			Period:         DefaultPeriod,
			BufferDuration: DefaultBufferDuration,
			SampleRate:     DefaultSampleRate,
			Channels:       DefaultChannels,
			BitsPerSample:  DefaultBitsPerSample,
		},
		Timer: TimerSettings{
			ThreadName: DefaultTimerThreadName,
			Priority:   DefaultTimerPriority,
		},
		Logging: LoggingSettings{Level: "info"},
		Metrics: MetricsSettings{Listen: DefaultMetricsListen},
	}
}
