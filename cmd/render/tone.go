package render

import (
	"math"

	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/engine"
)

// toneAmplitude is the sine peak relative to full scale
const toneAmplitude = 0.5

// tone generates a continuous sine wave across buffers
type tone struct {
	format  *engine.Format
	step    float64
	phase   float64
	peak    float64
	samples []int
}

func newTone(freq float64, f *engine.Format) *tone {
	return &tone{
		format: f,
		step:   2 * math.Pi * freq / float64(f.SampleRate),
		peak:   toneAmplitude * fullScale(f.BitsPerSample),
	}
}

func fullScale(bits uint16) float64 {
	if bits == 32 {
		return math.MaxInt32
	}
	return math.MaxInt16
}

// fill writes frames of the tone into buf, the same sample on every channel
func (t *tone) fill(buf []byte, frames uint32) {
	ch := int(t.format.Channels)
	t.samples = t.samples[:0]
	for range frames {
		v := int(t.peak * math.Sin(t.phase))
		for range ch {
			t.samples = append(t.samples, v)
		}
		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	device.EncodePCM(t.format.BitsPerSample, t.samples, buf)
}
