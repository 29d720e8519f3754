package testutil

import (
	"os"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/engine"
)

func TestReceive(t *testing.T) {
	t.Parallel()

	ch := make(chan int, 1)
	ch <- 7
	assert.Equal(t, 7, Receive(t, ch, DefaultTestTimeout, "value"))
}

func TestWaitForEvent(t *testing.T) {
	t.Parallel()

	ev := engine.NewEvent()
	ev.Signal()
	WaitForEvent(t, ev, DefaultTestTimeout)
}

func TestWriteWAV(t *testing.T) {
	t.Parallel()

	path := WriteWAV(t, 8000, 16, 2, ConstantFrames(100, 1, -1))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint32(8000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
}
