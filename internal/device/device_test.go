package device

import (
	"path/filepath"
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/engine"
)

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "tone.wav")
	format := *engine.NewPCM16(16000, 2)

	sink := NewWAVSink("file-out", path, format)
	assert.Equal(t, engine.Render, sink.Flow())
	assert.Equal(t, "tone.wav", sink.Name())

	require.Error(t, sink.WriteFrames(make([]byte, 8), 2), "write before open")

	require.NoError(t, sink.Open(format))
	samples := []int{100, -100, 200, -200, 300, -300}
	data := make([]byte, len(samples)*2)
	EncodePCM(16, samples, data)
	require.NoError(t, sink.WriteFrames(data, 3))
	assert.Equal(t, uint64(3), sink.Frames())
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	src, err := OpenWAVSource("file-in", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	mix := src.MixFormat()
	assert.True(t, mix.Equal(&format), "got %s", mix.String())
	assert.Equal(t, engine.Capture, src.Flow())

	_, err = src.ReadFrames(make([]byte, 8), 2)
	require.Error(t, err, "read before open")

	require.ErrorIs(t, src.Open(*engine.NewPCM16(48000, 2)), engine.ErrUnsupportedFormat)
	require.NoError(t, src.Open(format))

	buf := make([]byte, 8)
	n, err := src.ReadFrames(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
	assert.Equal(t, []int{100, -100, 200, -200}, DecodePCM(16, buf, nil))
	assert.False(t, src.Exhausted())

	n, err = src.ReadFrames(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)
	assert.Equal(t, []int{300, -300}, DecodePCM(16, buf[:4], nil))
	assert.True(t, src.Exhausted())

	n, err = src.ReadFrames(buf, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWAVSinkRejectsFloat(t *testing.T) {
	t.Parallel()

	sink := NewWAVSink("f", filepath.Join(t.TempDir(), "x.wav"), *engine.NewPCM16(48000, 2))
	assert.ErrorIs(t, sink.Open(*engine.NewFloat32(48000, 2)), engine.ErrUnsupportedFormat)
}

func TestOpenWAVSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := OpenWAVSource("missing", filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}

func TestNullEndpoints(t *testing.T) {
	t.Parallel()

	mix := *engine.NewPCM16(48000, 2)
	sink := NewNullSink("null-out", mix)
	require.NoError(t, sink.Open(mix))
	require.NoError(t, sink.WriteFrames(make([]byte, 40), 10))
	require.NoError(t, sink.WriteFrames(make([]byte, 20), 5))
	assert.Equal(t, uint64(15), sink.Frames())
	assert.Equal(t, DefaultPeriod, sink.Period())

	src := NewNullSource("null-in", mix)
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n, err := src.ReadFrames(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
	assert.Equal(t, make([]byte, 8), buf)
}

func TestPCMHelpers32(t *testing.T) {
	t.Parallel()

	in := []int{1 << 30, -(1 << 30), 7}
	buf := make([]byte, 12)
	assert.Equal(t, 12, EncodePCM(32, in, buf))
	assert.Equal(t, in, DecodePCM(32, buf, nil))

	// output is truncated to whole samples
	assert.Equal(t, 4, EncodePCM(16, []int{1, 2, 3}, make([]byte, 5)))
}

func TestMalgoFormatMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format engine.Format
		want   malgo.FormatType
		ok     bool
	}{
		{*engine.NewPCM16(48000, 2), malgo.FormatS16, true},
		{engine.Format{Tag: engine.FormatPCM, Channels: 2, SampleRate: 48000, BitsPerSample: 32}, malgo.FormatS32, true},
		{*engine.NewFloat32(48000, 2), malgo.FormatF32, true},
		{engine.Format{Tag: engine.FormatPCM, Channels: 2, SampleRate: 48000, BitsPerSample: 24}, malgo.FormatUnknown, false},
	}
	for _, tt := range tests {
		got, ok := malgoFormat(tt.format)
		assert.Equal(t, tt.ok, ok, tt.format.String())
		assert.Equal(t, tt.want, got, tt.format.String())
	}
}
