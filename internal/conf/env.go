// env.go - environment variable bindings and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for an environment variable binding
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"engine.backend", "AUDIOCLIENT_ENGINE_BACKEND", validateEnvBackend},
		{"engine.device", "AUDIOCLIENT_ENGINE_DEVICE", nil},
		{"engine.period", "AUDIOCLIENT_ENGINE_PERIOD", validateEnvDuration},
		{"engine.buffer_duration", "AUDIOCLIENT_ENGINE_BUFFER_DURATION", validateEnvDuration},
		{"engine.sample_rate", "AUDIOCLIENT_ENGINE_SAMPLE_RATE", validateEnvPositiveInt},
		{"engine.channels", "AUDIOCLIENT_ENGINE_CHANNELS", validateEnvPositiveInt},

		{"timer.thread_name", "AUDIOCLIENT_TIMER_THREAD_NAME", nil},
		{"timer.priority", "AUDIOCLIENT_TIMER_PRIORITY", validateEnvPriority},
		{"timer.require_realtime", "AUDIOCLIENT_TIMER_REQUIRE_REALTIME", validateEnvBool},

		{"logging.level", "AUDIOCLIENT_LOGGING_LEVEL", nil},
		{"telemetry.enabled", "AUDIOCLIENT_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "AUDIOCLIENT_TELEMETRY_DSN", nil},
		{"metrics.enabled", "AUDIOCLIENT_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "AUDIOCLIENT_METRICS_LISTEN", nil},
	}
}

// bindEnvVars binds every variable and validates the ones that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 10ms")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvBackend(value string) error {
	if value != DefaultBackend {
		return fmt.Errorf("unknown backend")
	}
	return nil
}

func validateEnvPriority(value string) error {
	switch value {
	case PriorityRealtime, PriorityHigh, PriorityNormal:
		return nil
	}
	return fmt.Errorf("must be one of realtime, high, normal")
}
