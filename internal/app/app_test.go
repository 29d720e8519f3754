package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/buildinfo"
	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/logger"
)

func TestLoggingConfig(t *testing.T) {
	s := conf.Defaults()
	cfg := LoggingConfig(s)
	assert.Equal(t, "info", cfg.DefaultLevel)
	assert.Nil(t, cfg.FileOutput)

	s.Debug = true
	s.Logging.File = filepath.Join(t.TempDir(), "client.log")
	cfg = LoggingConfig(s)
	assert.Equal(t, "debug", cfg.Console.Level)
	require.NotNil(t, cfg.FileOutput)
	assert.Equal(t, s.Logging.File, cfg.FileOutput.Path)
}

func TestNewContext(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	ctx, err := New(conf.Defaults(), &buildinfo.Context{Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ctx.Close()
		logger.SetGlobal(nil)
	})

	assert.Equal(t, "test", ctx.Build.Version)
	assert.Len(t, ctx.ClientOptions(), 5)

	eng := ctx.NewEngine()
	_, err = eng.GetMixFormat("", engine.Render)
	assert.ErrorIs(t, err, engine.ErrDeviceNotFound)

	// disabled metrics return immediately
	require.NoError(t, ctx.ServeMetrics(t.Context()))
}

func TestRunWithMetricsReturnsFnError(t *testing.T) {
	ctx, err := New(conf.Defaults(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ctx.Close()
		logger.SetGlobal(nil)
	})

	ran := false
	require.NoError(t, ctx.RunWithMetrics(t.Context(), func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	boom := errors.New("boom")
	assert.ErrorIs(t, ctx.RunWithMetrics(t.Context(), func(context.Context) error { return boom }), boom)
}

func TestDeviceID(t *testing.T) {
	s := conf.Defaults()
	ctx, err := New(s, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ctx.Close()
		logger.SetGlobal(nil)
	})

	assert.Equal(t, engine.DeviceID("default"), ctx.DeviceID())

	s.Engine.Device = "wav-out"
	assert.Equal(t, engine.DeviceID("wav-out"), ctx.DeviceID())

	s.Engine.Device = ""
	assert.Equal(t, engine.DeviceID("default"), ctx.DeviceID())
}
