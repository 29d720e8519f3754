package capture

import (
	"math"

	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/engine"
)

// silenceFloor is reported for channels that never leave zero
const silenceFloor = -120.0

// peakMeter tracks the absolute peak of every channel
type peakMeter struct {
	format  *engine.Format
	peaks   []int
	samples []int
}

func newPeakMeter(f *engine.Format) *peakMeter {
	return &peakMeter{format: f, peaks: make([]int, f.Channels)}
}

func (m *peakMeter) add(data []byte) {
	m.samples = device.DecodePCM(m.format.BitsPerSample, data, m.samples)
	ch := len(m.peaks)
	for i, v := range m.samples {
		if v < 0 {
			v = -v
		}
		if v > m.peaks[i%ch] {
			m.peaks[i%ch] = v
		}
	}
}

// dBFS returns the per channel peak relative to full scale
func (m *peakMeter) dBFS() []float64 {
	full := float64(math.MaxInt16)
	if m.format.BitsPerSample == 32 {
		full = math.MaxInt32
	}
	out := make([]float64, len(m.peaks))
	for i, p := range m.peaks {
		if p == 0 {
			out[i] = silenceFloor
			continue
		}
		out[i] = 20 * math.Log10(float64(p)/full)
	}
	return out
}
