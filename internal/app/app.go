// Package app assembles the process-wide collaborators every command
// shares: settings, logging, telemetry, metrics, the session registry and
// the timer thread spawner.
package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-audioclient/internal/audioclient"
	"github.com/tphakala/go-audioclient/internal/buildinfo"
	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/engine/soft"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
	"github.com/tphakala/go-audioclient/internal/observability"
	"github.com/tphakala/go-audioclient/internal/rtthread"
	"github.com/tphakala/go-audioclient/internal/session"
	"github.com/tphakala/go-audioclient/internal/telemetry"
)

// Context holds what commands need to build engines and clients
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Log      logger.Logger
	Metrics  *observability.Metrics
	Sessions *session.Manager
	Spawner  rtthread.Spawner

	central *logger.CentralLogger
}

// LoggingConfig maps logging settings onto the central logger
func LoggingConfig(s *conf.Settings) *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug {
		level = "debug"
	}
	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level},
	}
	if s.Logging.File != "" {
		cfg.FileOutput = &logger.FileOutput{Enabled: true, Path: s.Logging.File, Level: level}
	}
	return cfg
}

// New sets up logging, telemetry and metrics for settings
func New(settings *conf.Settings, build *buildinfo.Context) (*Context, error) {
	if settings == nil {
		return nil, errors.Newf("settings cannot be nil").
			Category(errors.CategoryValidation).
			Build()
	}
	if build == nil {
		build = buildinfo.Current()
	}

	central, err := logger.NewCentralLogger(LoggingConfig(settings))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "logger_init").
			Build()
	}
	logger.SetGlobal(central)
	log := central.Module("app")

	if err := telemetry.Init(settings.Telemetry, build.Version); err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Settings: settings,
		Build:    build,
		Log:      log,
		Metrics:  m,
		Sessions: session.Default(),
		Spawner: rtthread.NewOSSpawner(
			rtthread.WithMetrics(m.Client),
			rtthread.WithLogger(central.Module("rtthread"))),
		central: central,
	}
	log.Debug("application context ready",
		logger.String("version", build.Version),
		logger.String("backend", settings.Engine.Backend))
	return ctx, nil
}

// NewEngine returns an empty software engine wired to the metrics
func (c *Context) NewEngine() *soft.Engine {
	return soft.New(
		soft.WithMetrics(c.Metrics.Client),
		soft.WithLogger(c.central.Module("engine").Module("soft")))
}

// DeviceID is the endpoint clients open, soft.DefaultDevice unless
// engine.device names a registered endpoint
func (c *Context) DeviceID() engine.DeviceID {
	if c.Settings.Engine.Device == "" {
		return soft.DefaultDevice
	}
	return engine.DeviceID(c.Settings.Engine.Device)
}

// ClientOptions returns the options every client of this process uses
func (c *Context) ClientOptions() []audioclient.Option {
	return []audioclient.Option{
		audioclient.WithSessions(c.Sessions),
		audioclient.WithSpawner(c.Spawner),
		audioclient.WithMetrics(c.Metrics.Client),
		audioclient.WithLogger(c.central.Module("audioclient")),
		audioclient.WithTimerOptions(audioclient.TimerOptions(c.Settings.Timer)),
	}
}

// ServeMetrics runs the metrics endpoint until ctx is done. It returns at
// once when metrics are disabled.
func (c *Context) ServeMetrics(ctx context.Context) error {
	if !c.Settings.Metrics.Enabled {
		return nil
	}
	return observability.NewEndpoint(c.Settings.Metrics.Listen, c.Metrics).Run(ctx)
}

// Close flushes telemetry and log output
func (c *Context) Close() error {
	if !telemetry.Flush() {
		c.Log.Warn("telemetry flush timed out")
	}
	return c.central.Close()
}

// RunWithMetrics runs fn next to the metrics endpoint. The endpoint stops
// when fn returns; the first error wins.
func (c *Context) RunWithMetrics(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.ServeMetrics(gctx) })
	g.Go(func() error {
		defer cancel()
		return fn(gctx)
	})
	return g.Wait()
}
