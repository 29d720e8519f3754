package soft

import (
	"encoding/binary"
	"math"

	"github.com/tphakala/go-audioclient/internal/engine"
)

// applyGain scales interleaved samples in place, one gain per channel.
// Integer samples saturate.
func applyGain(f *engine.Format, data []byte, gains []float32) {
	ch := int(f.Channels)
	if ch == 0 || len(gains) < ch {
		return
	}

	switch {
	case f.Tag == engine.FormatFloat && f.BitsPerSample == 32:
		for i := 0; i+4 <= len(data); i += 4 {
			g := gains[(i/4)%ch]
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
			binary.LittleEndian.PutUint32(data[i:], math.Float32bits(v*g))
		}
	case f.BitsPerSample == 16:
		for i := 0; i+2 <= len(data); i += 2 {
			g := gains[(i/2)%ch]
			v := float32(int16(binary.LittleEndian.Uint16(data[i:]))) * g
			binary.LittleEndian.PutUint16(data[i:], uint16(clamp16(v)))
		}
	case f.BitsPerSample == 32:
		for i := 0; i+4 <= len(data); i += 4 {
			g := float64(gains[(i/4)%ch])
			v := float64(int32(binary.LittleEndian.Uint32(data[i:]))) * g
			binary.LittleEndian.PutUint32(data[i:], uint32(clamp32(v)))
		}
	}
}

func clamp16(v float32) int16 {
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	default:
		return int16(math.Round(float64(v)))
	}
}

func clamp32(v float64) int32 {
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(math.Round(v))
	}
}
