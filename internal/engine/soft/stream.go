package soft

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

type stream struct {
	id       engine.StreamID
	flow     engine.Flow
	mode     engine.ShareMode
	flags    engine.StreamFlags
	session  uuid.UUID
	endpoint Endpoint
	format   *engine.Format

	blockAlign   int
	period       time.Duration
	periodFrames uint32
	bufferFrames uint32

	mu          sync.Mutex
	ring        *ringbuffer.RingBuffer
	running     bool
	closed      bool
	invalidated error
	event       *engine.Event
	done        chan struct{}

	// render grant
	grantActive bool
	grantFrames uint32
	scratch     []byte

	// capture packet; held until fully consumed, out while granted
	packet       []byte
	packetFrames uint32
	packetHeld   bool
	packetOut    bool
	packetFlags  engine.BufferFlags
	packetPos    uint64
	packetQPC    uint64
	overrun      bool

	devicePos uint64 // frames moved by the timer loop
	clientPos uint64 // frames released by the client

	gains []float32
	unity bool
	work  []byte
}

func newStream(id engine.StreamID, req engine.OpenRequest, ep Endpoint, format *engine.Format,
	period time.Duration, periodFrames, bufferFrames uint32,
) *stream {
	ba := format.BlockAlign()
	s := &stream{
		id:           id,
		flow:         req.Flow,
		mode:         req.Mode,
		flags:        req.Flags,
		session:      req.Session,
		endpoint:     ep,
		format:       format,
		blockAlign:   ba,
		period:       period,
		periodFrames: periodFrames,
		bufferFrames: bufferFrames,
		ring:         ringbuffer.New(int(bufferFrames) * ba),
		done:         make(chan struct{}),
		gains:        make([]float32, format.Channels),
		unity:        true,
		work:         make([]byte, int(periodFrames)*ba),
	}
	for i := range s.gains {
		s.gains[i] = 1
	}
	if req.Flow == engine.Render {
		s.scratch = make([]byte, int(bufferFrames)*ba)
	} else {
		s.packet = make([]byte, int(periodFrames)*ba)
	}
	return s
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.running = false
	close(s.done)
}

func (s *stream) framesIn(bytes int) uint32 {
	return uint32(bytes / s.blockAlign)
}

// padding is the number of frames queued between client and device.
// Callers hold s.mu.
func (s *stream) padding() uint32 {
	queued := s.framesIn(s.ring.Length())
	if s.packetHeld {
		queued += s.packetFrames
	}
	return queued
}

func (s *stream) fill() float64 {
	if c := s.ring.Capacity(); c > 0 {
		return float64(s.ring.Length()) / float64(c)
	}
	return 0
}

// GetBufferSize returns the ring size in frames
func (e *Engine) GetBufferSize(id engine.StreamID) (uint32, error) {
	s, err := e.stream(id)
	if err != nil {
		return 0, err
	}
	return s.bufferFrames, nil
}

// GetLatency returns one device period
func (e *Engine) GetLatency(id engine.StreamID) (time.Duration, error) {
	s, err := e.stream(id)
	if err != nil {
		return 0, err
	}
	return s.period, nil
}

// GetCurrentPadding returns the queued frames
func (e *Engine) GetCurrentPadding(id engine.StreamID) (uint32, error) {
	s, err := e.stream(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated != nil {
		return 0, s.invalidated
	}
	return s.padding(), nil
}

// Start begins servicing on the next timer tick
func (e *Engine) Start(id engine.StreamID) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.invalidated != nil:
		return s.invalidated
	case s.running:
		return errors.New(engine.ErrNotStopped).Context("stream", uint64(id)).Build()
	case s.flags&engine.FlagEventCallback != 0 && s.event == nil:
		return errors.New(engine.ErrEventHandleNotSet).Context("stream", uint64(id)).Build()
	}
	s.running = true
	return nil
}

// Stop halts servicing. Stopping a stopped stream succeeds.
func (e *Engine) Stop(id engine.StreamID) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// Reset discards queued frames and rewinds the stream position
func (e *Engine) Reset(id engine.StreamID) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(engine.ErrNotStopped).Context("stream", uint64(id)).Build()
	}
	if s.grantActive || s.packetOut {
		return errors.New(engine.ErrBufferOperationPending).Context("stream", uint64(id)).Build()
	}

	s.ring = ringbuffer.New(int(s.bufferFrames) * s.blockAlign)
	s.devicePos = 0
	s.clientPos = 0
	s.packetHeld = false
	s.packetFrames = 0
	s.overrun = false
	return nil
}

// SetEventHandle installs the per-period event
func (e *Engine) SetEventHandle(id engine.StreamID, ev *engine.Event) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}
	if ev == nil {
		return errors.Newf("nil event").
			Component(engine.ComponentEngine).
			Category(errors.CategoryValidation).
			Build()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flags&engine.FlagEventCallback == 0 {
		return errors.New(engine.ErrEventHandleNotExpected).Context("stream", uint64(id)).Build()
	}
	s.event = ev
	return nil
}

// GetFrequency returns the position unit rate: bytes per second in shared
// mode, frames per second in exclusive mode.
func (e *Engine) GetFrequency(id engine.StreamID) (uint64, error) {
	s, err := e.stream(id)
	if err != nil {
		return 0, err
	}
	if s.mode == engine.Shared {
		return uint64(s.format.SampleRate) * uint64(s.blockAlign), nil
	}
	return uint64(s.format.SampleRate), nil
}

// GetPosition returns the device progress in frequency units, or in frames
// when req.Device is set.
func (e *Engine) GetPosition(req engine.PositionRequest) (engine.Position, error) {
	s, err := e.stream(req.Stream)
	if err != nil {
		return engine.Position{}, err
	}
	s.mu.Lock()
	pos := s.devicePos
	s.mu.Unlock()

	if !req.Device && s.mode == engine.Shared {
		pos *= uint64(s.blockAlign)
	}
	return engine.Position{Pos: pos, QPC: e.qpc()}, nil
}

// GetRenderBuffer grants frames of write space. The returned slice is
// owned by the engine until ReleaseRenderBuffer.
func (e *Engine) GetRenderBuffer(id engine.StreamID, frames uint32) ([]byte, error) {
	s, err := e.stream(id)
	if err != nil {
		return nil, err
	}
	if s.flow != engine.Render {
		return nil, wrongFlow(id, s.flow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalidated != nil {
		return nil, s.invalidated
	}
	if s.grantActive {
		return nil, errors.New(engine.ErrOutOfOrder).Context("stream", uint64(id)).Build()
	}
	if frames == 0 {
		return nil, nil
	}
	if free := s.framesIn(s.ring.Free()); frames > free {
		return nil, errors.New(engine.ErrBufferTooLarge).
			Context("stream", uint64(id)).
			Context("requested", frames).
			Context("free", free).
			Build()
	}

	s.grantActive = true
	s.grantFrames = frames
	return s.scratch[:int(frames)*s.blockAlign], nil
}

// ReleaseRenderBuffer queues written frames of the last grant
func (e *Engine) ReleaseRenderBuffer(id engine.StreamID, written uint32, flags engine.BufferFlags) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}
	if s.flow != engine.Render {
		return wrongFlow(id, s.flow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.grantActive {
		if written == 0 {
			return nil
		}
		return errors.New(engine.ErrOutOfOrder).Context("stream", uint64(id)).Build()
	}
	if written > s.grantFrames {
		return errors.New(engine.ErrInvalidSize).
			Context("stream", uint64(id)).
			Context("written", written).
			Context("granted", s.grantFrames).
			Build()
	}

	data := s.scratch[:int(written)*s.blockAlign]
	if flags&engine.BufferFlagSilent != 0 {
		clear(data)
	}
	if len(data) > 0 {
		if _, err := s.ring.Write(data); err != nil {
			return errors.New(err).
				Component(engine.ComponentEngine).
				Category(errors.CategoryBuffer).
				Context("stream", uint64(id)).
				Build()
		}
	}

	s.grantActive = false
	s.grantFrames = 0
	s.clientPos += uint64(written)
	e.metrics.RecordFrames(s.flow.String(), written)
	return nil
}

// GetCaptureBuffer returns the next packet of at most one period. An empty
// ring yields a zero packet and no error.
func (e *Engine) GetCaptureBuffer(id engine.StreamID) (engine.CapturePacket, error) {
	s, err := e.stream(id)
	if err != nil {
		return engine.CapturePacket{}, err
	}
	if s.flow != engine.Capture {
		return engine.CapturePacket{}, wrongFlow(id, s.flow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalidated != nil {
		return engine.CapturePacket{}, s.invalidated
	}
	if s.packetOut {
		return engine.CapturePacket{}, errors.New(engine.ErrOutOfOrder).Context("stream", uint64(id)).Build()
	}

	if !s.packetHeld {
		avail := s.framesIn(s.ring.Length())
		if avail == 0 {
			return engine.CapturePacket{}, nil
		}
		frames := min(avail, s.periodFrames)
		if _, err := s.ring.Read(s.packet[:int(frames)*s.blockAlign]); err != nil {
			return engine.CapturePacket{}, errors.New(err).
				Component(engine.ComponentEngine).
				Category(errors.CategoryBuffer).
				Context("stream", uint64(id)).
				Build()
		}

		s.packetHeld = true
		s.packetFrames = frames
		s.packetPos = s.clientPos
		s.packetQPC = e.qpc()
		s.packetFlags = 0
		if s.overrun {
			s.packetFlags |= engine.BufferFlagDataDiscontinuity
			s.overrun = false
		}
	}

	s.packetOut = true
	return engine.CapturePacket{
		Data:           s.packet[:int(s.packetFrames)*s.blockAlign],
		Frames:         s.packetFrames,
		Flags:          s.packetFlags,
		DevicePosition: s.packetPos,
		QPCPosition:    s.packetQPC,
	}, nil
}

// ReleaseCaptureBuffer consumes the outstanding packet. Zero frames keeps
// it queued for the next GetCaptureBuffer.
func (e *Engine) ReleaseCaptureBuffer(id engine.StreamID, done uint32) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}
	if s.flow != engine.Capture {
		return wrongFlow(id, s.flow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.packetOut {
		if done == 0 {
			return nil
		}
		return errors.New(engine.ErrOutOfOrder).Context("stream", uint64(id)).Build()
	}

	switch done {
	case 0:
		s.packetOut = false
	case s.packetFrames:
		s.packetOut = false
		s.packetHeld = false
		s.clientPos += uint64(done)
		e.metrics.RecordFrames(s.flow.String(), done)
	default:
		return errors.New(engine.ErrInvalidSize).
			Context("stream", uint64(id)).
			Context("done", done).
			Context("packet_frames", s.packetFrames).
			Build()
	}
	return nil
}

// GetNextPacketSize returns the frame count the next GetCaptureBuffer
// would return
func (e *Engine) GetNextPacketSize(id engine.StreamID) (uint32, error) {
	s, err := e.stream(id)
	if err != nil {
		return 0, err
	}
	if s.flow != engine.Capture {
		return 0, wrongFlow(id, s.flow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalidated != nil {
		return 0, s.invalidated
	}
	if s.packetHeld {
		return s.packetFrames, nil
	}
	return min(s.framesIn(s.ring.Length()), s.periodFrames), nil
}

// SetVolumes stores the combined gain: master times stream times session
// volume per channel. Missing session channels count as unity.
func (e *Engine) SetVolumes(req engine.VolumeRequest) error {
	s, err := e.stream(req.Stream)
	if err != nil {
		return err
	}
	if len(req.Volumes) != len(s.gains) {
		return errors.Newf("volume count %d does not match %d channels", len(req.Volumes), len(s.gains)).
			Component(engine.ComponentEngine).
			Category(errors.CategoryValidation).
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unity = true
	for i := range s.gains {
		g := req.Master * req.Volumes[i]
		if i < len(req.SessionVolumes) {
			g *= req.SessionVolumes[i]
		}
		s.gains[i] = g
		if g != 1 {
			s.unity = false
		}
	}

	e.log.Trace("stream gain updated",
		logger.Uint64("stream", uint64(req.Stream)),
		logger.Float32("master", req.Master),
		logger.Any("gains", s.gains))
	return nil
}

func wrongFlow(id engine.StreamID, flow engine.Flow) error {
	return errors.Newf("buffer call does not match %s stream", flow).
		Component(engine.ComponentEngine).
		Category(errors.CategoryEndpoint).
		Context("stream", uint64(id)).
		Build()
}
