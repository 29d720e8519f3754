package render

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/app"
	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/logger"
	"github.com/tphakala/go-audioclient/internal/testutil"
)

func TestToneIsContinuous(t *testing.T) {
	t.Parallel()

	f := engine.NewPCM16(8000, 2)
	gen := newTone(1000, f)

	buf := make([]byte, 8*f.BlockAlign())
	gen.fill(buf, 8)
	samples := device.DecodePCM(16, buf, nil)
	require.Len(t, samples, 16)

	assert.Zero(t, samples[0])
	for i := 0; i < len(samples); i += 2 {
		assert.Equal(t, samples[i], samples[i+1], "channels carry the same sample")
	}
	// 1 kHz at 8 kHz peaks on the third frame
	assert.InDelta(t, 0.5*32767, samples[4], 1)

	// the next buffer continues the phase: frame 8 is a full cycle
	gen.fill(buf, 1)
	assert.InDelta(t, 0, device.DecodePCM(16, buf[:4], nil)[0], 1)
}

func TestRunWritesWAV(t *testing.T) {
	s := conf.Defaults()
	s.Timer.Priority = conf.PriorityNormal
	s.Engine.SampleRate = 16000
	s.Engine.Channels = 1

	a, err := app.New(s, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		logger.SetGlobal(nil)
	})

	out := filepath.Join(t.TempDir(), "tone.wav")
	ctx, cancel := context.WithTimeout(t.Context(), testutil.LongTestTimeout)
	defer cancel()

	frames, err := Run(ctx, a, Options{Freq: 440, Duration: 200 * time.Millisecond, Out: out, Volume: 0.5})
	require.NoError(t, err)
	assert.Equal(t, uint64(3200), frames)

	src, err := device.OpenWAVSource("check", out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	mix := src.MixFormat()
	assert.Equal(t, uint32(16000), mix.SampleRate)
	assert.Equal(t, uint16(1), mix.Channels)
}

func TestRunRejectsBadOptions(t *testing.T) {
	t.Parallel()

	_, err := Run(t.Context(), nil, Options{})
	assert.Error(t, err)
}
