// conf/validate.go

package conf

import (
	"fmt"
	"net"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateEngineSettings(&settings.Engine)...)
	ve.Errors = append(ve.Errors, validateTimerSettings(&settings.Timer)...)

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry dsn is required when telemetry is enabled")
	}

	if settings.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(settings.Metrics.Listen); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("metrics listen address %q is invalid: %v", settings.Metrics.Listen, err))
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateEngineSettings(settings *EngineSettings) []string {
	var errs []string

	if settings.Backend != DefaultBackend {
		errs = append(errs, fmt.Sprintf("engine backend %q is not supported", settings.Backend))
	}
	if settings.Period <= 0 {
		errs = append(errs, "engine period must be positive")
	}
	if settings.BufferDuration < settings.Period {
		errs = append(errs, "engine buffer duration must be at least one period")
	}
	if settings.SampleRate < 8000 || settings.SampleRate > 384000 {
		errs = append(errs, "engine sample rate must be between 8000 and 384000")
	}
	if settings.Channels < 1 || settings.Channels > 8 {
		errs = append(errs, "engine channels must be between 1 and 8")
	}
	switch settings.BitsPerSample {
	case 16, 32:
	default:
		errs = append(errs, "engine bits per sample must be 16 or 32")
	}

	return errs
}

func validateTimerSettings(settings *TimerSettings) []string {
	var errs []string

	if settings.ThreadName == "" {
		errs = append(errs, "timer thread name must not be empty")
	}
	if err := validateEnvPriority(settings.Priority); err != nil {
		errs = append(errs, fmt.Sprintf("timer priority %q: %v", settings.Priority, err))
	}
	if settings.RequireRealtime && settings.Priority != PriorityRealtime {
		errs = append(errs, "timer require_realtime needs priority realtime")
	}

	return errs
}
