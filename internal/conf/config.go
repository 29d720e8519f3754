// Package conf loads audio client settings from YAML, environment and defaults.
package conf

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/go-audioclient/internal/errors"
)

// EnvPrefix is prepended to every environment override, e.g. AUDIOCLIENT_ENGINE_PERIOD.
const EnvPrefix = "AUDIOCLIENT"

// Settings holds all runtime settings
type Settings struct {
	Debug     bool              `mapstructure:"debug" yaml:"debug"`
	Engine    EngineSettings    `mapstructure:"engine" yaml:"engine"`
	Timer     TimerSettings     `mapstructure:"timer" yaml:"timer"`
	Logging   LoggingSettings   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetrySettings `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsSettings   `mapstructure:"metrics" yaml:"metrics"`
}

// EngineSettings selects the engine backend and the stream defaults used by the CLI
type EngineSettings struct {
	Backend        string        `mapstructure:"backend" yaml:"backend"`                 // soft
	Device         string        `mapstructure:"device" yaml:"device"`                   // endpoint id, "default" picks the first
	Period         time.Duration `mapstructure:"period" yaml:"period"`                   // device period
	BufferDuration time.Duration `mapstructure:"buffer_duration" yaml:"buffer_duration"` // requested stream buffer
	SampleRate     int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels       int           `mapstructure:"channels" yaml:"channels"`
	BitsPerSample  int           `mapstructure:"bits_per_sample" yaml:"bits_per_sample"`
}

// TimerSettings configures the stream servicing thread
type TimerSettings struct {
	ThreadName      string `mapstructure:"thread_name" yaml:"thread_name"`
	Priority        string `mapstructure:"priority" yaml:"priority"` // realtime, high or normal
	RequireRealtime bool   `mapstructure:"require_realtime" yaml:"require_realtime"`
}

// LoggingSettings configures the central logger
type LoggingSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"` // empty disables file output
}

// TelemetrySettings configures Sentry error reporting
type TelemetrySettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configPath, or config.yaml from the default search paths when
// configPath is empty, applies environment overrides and validates the result.
// A missing config file is not an error; defaults apply.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVars(v); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_env").
			Build()
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("error reading config file: %w", err)).
				Category(errors.CategoryConfiguration).
				Context("operation", "read_config").
				Context("path", configPath).
				Build()
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Context("operation", "validate_config").
			Build()
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// GetSettings returns the last successfully loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
