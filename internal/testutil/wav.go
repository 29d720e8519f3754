package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// WriteWAV writes interleaved integer samples to a PCM file in a temporary
// directory and returns its path.
func WriteWAV(t *testing.T, rate, bits, channels int, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, bits, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{SampleRate: rate, NumChannels: channels},
		SourceBitDepth: bits,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

// ConstantFrames returns frames interleaved frames where channel i holds
// levels[i].
func ConstantFrames(frames int, levels ...int) []int {
	out := make([]int, 0, frames*len(levels))
	for range frames {
		out = append(out, levels...)
	}
	return out
}
