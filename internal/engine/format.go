package engine

import (
	"fmt"
	"time"
)

// FormatTag identifies the sample encoding
type FormatTag uint16

const (
	FormatPCM   FormatTag = 0x0001
	FormatFloat FormatTag = 0x0003
)

func (t FormatTag) String() string {
	switch t {
	case FormatPCM:
		return "pcm"
	case FormatFloat:
		return "float"
	default:
		return fmt.Sprintf("tag(0x%04x)", uint16(t))
	}
}

// Limits accepted by Validate
const (
	MinSampleRate = 8000
	MaxSampleRate = 384000
	MaxChannels   = 8
)

// Format describes interleaved PCM or IEEE float samples.
type Format struct {
	Tag           FormatTag
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	ValidBits     uint16 // zero means BitsPerSample
	ChannelMask   uint32
}

// NewPCM16 returns a 16-bit integer format.
func NewPCM16(rate uint32, channels uint16) *Format {
	return NewPCM(rate, channels, 16)
}

// NewPCM returns an integer format with bits per sample.
func NewPCM(rate uint32, channels, bits uint16) *Format {
	return &Format{Tag: FormatPCM, Channels: channels, SampleRate: rate, BitsPerSample: bits, ChannelMask: DefaultChannelMask(channels)}
}

// NewFloat32 returns a 32-bit float format.
func NewFloat32(rate uint32, channels uint16) *Format {
	return &Format{Tag: FormatFloat, Channels: channels, SampleRate: rate, BitsPerSample: 32, ChannelMask: DefaultChannelMask(channels)}
}

// DefaultChannelMask maps a channel count to the conventional speaker layout.
func DefaultChannelMask(channels uint16) uint32 {
	switch channels {
	case 1:
		return 0x4 // front center
	case 2:
		return 0x3
	case 4:
		return 0x33
	case 6:
		return 0x3f
	case 8:
		return 0x63f
	default:
		return 0
	}
}

// BlockAlign is the size of one frame in bytes
func (f *Format) BlockAlign() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// AvgBytesPerSec is the byte rate of the format
func (f *Format) AvgBytesPerSec() int {
	return int(f.SampleRate) * f.BlockAlign()
}

// FramesFor converts a duration to whole frames at the format rate
func (f *Format) FramesFor(d time.Duration) uint32 {
	return uint32(int64(f.SampleRate) * int64(d) / int64(time.Second))
}

// Clone returns an independent copy
func (f *Format) Clone() *Format {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// Equal reports whether both formats describe the same sample layout
func (f *Format) Equal(o *Format) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Tag == o.Tag &&
		f.Channels == o.Channels &&
		f.SampleRate == o.SampleRate &&
		f.BitsPerSample == o.BitsPerSample &&
		f.validBits() == o.validBits()
}

func (f *Format) validBits() uint16 {
	if f.ValidBits == 0 {
		return f.BitsPerSample
	}
	return f.ValidBits
}

// Validate checks that the engine can carry the format at all
func (f *Format) Validate() error {
	if f == nil {
		return ErrUnsupportedFormat
	}
	if f.Channels == 0 || f.Channels > MaxChannels {
		return unsupported(f, "channel count out of range")
	}
	if f.SampleRate < MinSampleRate || f.SampleRate > MaxSampleRate {
		return unsupported(f, "sample rate out of range")
	}
	if f.validBits() > f.BitsPerSample {
		return unsupported(f, "valid bits exceed container")
	}

	switch f.Tag {
	case FormatPCM:
		if f.BitsPerSample != 16 && f.BitsPerSample != 32 {
			return unsupported(f, "pcm must be 16 or 32 bit")
		}
	case FormatFloat:
		if f.BitsPerSample != 32 {
			return unsupported(f, "float must be 32 bit")
		}
	default:
		return unsupported(f, "unknown format tag")
	}
	return nil
}

func (f *Format) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Tag, f.SampleRate, f.Channels, f.BitsPerSample)
}
