package info

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/app"
	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/logger"
)

func newApp(t *testing.T, s *conf.Settings) *app.Context {
	t.Helper()
	a, err := app.New(s, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		logger.SetGlobal(nil)
	})
	return a
}

func TestCollectDefaults(t *testing.T) {
	a := newApp(t, conf.Defaults())

	r, err := Collect(a)
	require.NoError(t, err)
	require.Len(t, r.Flows, 2)

	for i, flow := range []engine.Flow{engine.Render, engine.Capture} {
		f := r.Flows[i]
		assert.Equal(t, flow, f.Flow)
		assert.Equal(t, engine.FormatFloat, f.Mix.Tag)
		assert.Equal(t, uint32(conf.DefaultSampleRate), f.Mix.SampleRate)
		assert.True(t, f.Supported, "%s accepts the default stream format", flow)
		assert.Nil(t, f.Closest)
		assert.Equal(t, 10*time.Millisecond, f.Period.Default)
	}

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf))
	assert.Contains(t, buf.String(), "render default device")
	assert.Contains(t, buf.String(), "supported")
}

func TestCollectClosestMatch(t *testing.T) {
	s := conf.Defaults()
	s.Engine.SampleRate = 44100
	s.Engine.Channels = 1
	a := newApp(t, s)

	r, err := Collect(a)
	require.NoError(t, err)

	f := r.Flows[0]
	assert.False(t, f.Supported)
	require.NotNil(t, f.Closest)
	assert.Equal(t, uint32(48000), f.Closest.SampleRate)

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf))
	assert.Contains(t, buf.String(), "not supported")
	assert.Contains(t, buf.String(), "closest:")
}
