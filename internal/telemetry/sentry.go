// Package telemetry connects enhanced error reporting to Sentry. Reporting
// is opt-in and events are stripped of host identifying data.
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// FlushTimeout bounds the wait for queued events on shutdown
const FlushTimeout = 2 * time.Second

// Init starts the Sentry SDK and installs the error reporter when telemetry
// is enabled.
func Init(settings conf.TelemetrySettings, version string) error {
	log := logger.Global().Module("telemetry")
	if !settings.Enabled {
		log.Debug("telemetry disabled")
		return nil
	}
	if settings.DSN == "" {
		return errors.Newf("telemetry enabled without a dsn").
			Category(errors.CategoryConfiguration).
			Context("operation", "telemetry_init").
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          fmt.Sprintf("audioclient@%s", version),
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "telemetry_init").
			Build()
	}

	errors.SetPrivacyScrubber(dsnScrubber(settings.DSN))
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("telemetry enabled", logger.String("release", version))
	return nil
}

// Flush waits for queued events and detaches the reporter
func Flush() bool {
	if errors.GetTelemetryReporter() == nil {
		return true
	}
	errors.SetTelemetryReporter(nil)
	errors.SetPrivacyScrubber(nil)
	return sentry.Flush(FlushTimeout)
}

// dsnScrubber redacts the configured DSN verbatim before the path and
// credential scrub runs.
func dsnScrubber(dsn string) errors.PrivacyScrubber {
	return func(message string) string {
		if dsn != "" {
			message = strings.ReplaceAll(message, dsn, "[DSN]")
		}
		return errors.BasicPathScrub(message)
	}
}

// applyPrivacyFilters drops user, host and runtime details from an event
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil
	event.Modules = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
