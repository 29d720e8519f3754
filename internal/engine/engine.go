// Package engine defines the contract between stream clients and the audio
// engine that moves samples. Every call is synchronous and addresses one
// stream or one device.
package engine

import (
	"time"

	"github.com/google/uuid"
)

// StreamID identifies an open engine stream. Zero is never a valid stream.
type StreamID uint64

// DeviceID identifies an endpoint
type DeviceID string

// Flow is the data direction of an endpoint or stream
type Flow int

const (
	Render Flow = iota
	Capture
)

func (f Flow) String() string {
	switch f {
	case Render:
		return "render"
	case Capture:
		return "capture"
	default:
		return "unknown"
	}
}

// ShareMode selects shared (mixed) or exclusive device access
type ShareMode int

const (
	Shared ShareMode = iota
	Exclusive
)

func (m ShareMode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// StreamFlags modify stream behaviour at open time
type StreamFlags uint32

const (
	// FlagEventCallback makes the engine signal the stream event each period
	FlagEventCallback StreamFlags = 1 << iota
	FlagNoPersist
	FlagLoopback
)

// BufferFlags annotate a released render buffer or a captured packet
type BufferFlags uint32

const (
	BufferFlagDataDiscontinuity BufferFlags = 1 << iota
	BufferFlagSilent
	BufferFlagTimestampError
)

// DevicePeriod holds the periodic servicing intervals of a device
type DevicePeriod struct {
	Default time.Duration
	Minimum time.Duration
}

// OpenRequest describes a stream to open
type OpenRequest struct {
	Device   DeviceID
	Flow     Flow
	Mode     ShareMode
	Flags    StreamFlags
	Duration time.Duration // requested buffer duration
	Period   time.Duration // zero selects the device default
	Format   *Format
	Session  uuid.UUID
}

// FormatQuery asks whether a device accepts a format in a share mode
type FormatQuery struct {
	Device DeviceID
	Flow   Flow
	Mode   ShareMode
	Format *Format
}

// PositionRequest selects a stream-relative or device-relative position
type PositionRequest struct {
	Stream StreamID
	Device bool
}

// Position is a stream position with the performance counter value, in
// 100ns units, at which it was sampled.
type Position struct {
	Pos uint64
	QPC uint64
}

// VolumeRequest carries the complete gain model for one stream. Master is
// already zero when the session is muted.
type VolumeRequest struct {
	Stream         StreamID
	Master         float32
	Volumes        []float32
	SessionVolumes []float32
}

// CapturePacket is one captured packet. Data is engine-owned and valid
// until the matching ReleaseCaptureBuffer.
type CapturePacket struct {
	Data           []byte
	Frames         uint32
	Flags          BufferFlags
	DevicePosition uint64
	QPCPosition    uint64
}

// Engine is the narrow call surface stream clients use to reach the audio
// engine. Implementations serialise the buffer handshake per stream.
type Engine interface {
	Open(req OpenRequest) (StreamID, error)
	// Release closes the stream and makes its TimerLoop return
	Release(stream StreamID) error

	GetBufferSize(stream StreamID) (uint32, error)
	GetLatency(stream StreamID) (time.Duration, error)
	GetCurrentPadding(stream StreamID) (uint32, error)

	// IsFormatSupported returns a closest match together with
	// ErrFormatClosestMatch when only a similar format is accepted.
	IsFormatSupported(q FormatQuery) (*Format, error)
	GetMixFormat(device DeviceID, flow Flow) (*Format, error)
	GetDevicePeriod(device DeviceID, flow Flow) (DevicePeriod, error)

	Start(stream StreamID) error
	Stop(stream StreamID) error
	Reset(stream StreamID) error
	SetEventHandle(stream StreamID, event *Event) error

	GetFrequency(stream StreamID) (uint64, error)
	GetPosition(req PositionRequest) (Position, error)

	GetRenderBuffer(stream StreamID, frames uint32) ([]byte, error)
	ReleaseRenderBuffer(stream StreamID, written uint32, flags BufferFlags) error

	GetCaptureBuffer(stream StreamID) (CapturePacket, error)
	ReleaseCaptureBuffer(stream StreamID, done uint32) error
	GetNextPacketSize(stream StreamID) (uint32, error)

	SetVolumes(req VolumeRequest) error

	// TimerLoop services the stream every period until it is released.
	TimerLoop(stream StreamID) error
}
