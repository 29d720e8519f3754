package device

import (
	"sync/atomic"

	"github.com/tphakala/go-audioclient/internal/engine"
)

// NullSink discards rendered frames and counts them
type NullSink struct {
	base
	frames atomic.Uint64
}

// NewNullSink returns a render endpoint that drops everything
func NewNullSink(id engine.DeviceID, mix engine.Format) *NullSink {
	return &NullSink{base: base{id: id, name: "null output", flow: engine.Render, mix: mix, period: DefaultPeriod}}
}

func (n *NullSink) Open(engine.Format) error { return nil }
func (n *NullSink) Close() error             { return nil }

func (n *NullSink) WriteFrames(_ []byte, frames uint32) error {
	n.frames.Add(uint64(frames))
	return nil
}

// Frames returns the number of frames discarded
func (n *NullSink) Frames() uint64 { return n.frames.Load() }

// NullSource captures silence, always a full request
type NullSource struct {
	base
}

// NewNullSource returns a capture endpoint that produces silence
func NewNullSource(id engine.DeviceID, mix engine.Format) *NullSource {
	return &NullSource{base: base{id: id, name: "null input", flow: engine.Capture, mix: mix, period: DefaultPeriod}}
}

func (n *NullSource) Open(engine.Format) error { return nil }
func (n *NullSource) Close() error             { return nil }

func (n *NullSource) ReadFrames(data []byte, frames uint32) (uint32, error) {
	clear(data)
	return frames, nil
}
