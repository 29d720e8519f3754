package device

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// periods of slack between the engine and the device callback
const malgoRingPeriods = 4

// Info describes a hardware device
type Info struct {
	ID      engine.DeviceID
	Name    string
	Flow    engine.Flow
	Default bool

	raw malgo.DeviceID
}

// Host owns a miniaudio context
type Host struct {
	ctx *malgo.AllocatedContext
	log logger.Logger
}

func platformBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// NewHost initialises miniaudio with the platform backend
func NewHost() (*Host, error) {
	log := deviceLogger().Module("malgo")
	ctx, err := malgo.InitContext(platformBackends(), malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Build()
	}
	return &Host{ctx: ctx, log: log}, nil
}

// Close releases the context
func (h *Host) Close() error {
	if h.ctx == nil {
		return nil
	}
	err := h.ctx.Uninit()
	h.ctx.Free()
	h.ctx = nil
	if err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryAudioDevice).
			Build()
	}
	return nil
}

// Devices lists playback and capture devices
func (h *Host) Devices() ([]Info, error) {
	var out []Info
	for _, kind := range []struct {
		dt   malgo.DeviceType
		flow engine.Flow
	}{
		{malgo.Playback, engine.Render},
		{malgo.Capture, engine.Capture},
	} {
		infos, err := h.ctx.Devices(kind.dt)
		if err != nil {
			return nil, errors.New(err).
				Component(ComponentDevice).
				Category(errors.CategoryAudioDevice).
				Context("flow", kind.flow.String()).
				Build()
		}
		for i := range infos {
			out = append(out, Info{
				ID:      engine.DeviceID(infos[i].ID.String()),
				Name:    infos[i].Name(),
				Flow:    kind.flow,
				Default: infos[i].IsDefault != 0,
				raw:     infos[i].ID,
			})
		}
	}
	return out, nil
}

// Find returns the device of flow whose ID or name is key. The key
// "default" selects the system default device.
func (h *Host) Find(flow engine.Flow, key string) (Info, error) {
	infos, err := h.Devices()
	if err != nil {
		return Info{}, err
	}
	for _, info := range infos {
		if info.Flow != flow {
			continue
		}
		if (key == "default" && info.Default) || string(info.ID) == key || info.Name == key {
			return info, nil
		}
	}
	return Info{}, errors.Newf("no %s device matches %q", flow, key).
		Component(ComponentDevice).
		Category(errors.CategoryNotFound).
		Context("flow", flow.String()).
		Build()
}

// ListDevices enumerates hardware devices with a short-lived context
func ListDevices() ([]Info, error) {
	h, err := NewHost()
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()
	return h.Devices()
}

func malgoFormat(f engine.Format) (malgo.FormatType, bool) {
	switch {
	case f.Tag == engine.FormatPCM && f.BitsPerSample == 16:
		return malgo.FormatS16, true
	case f.Tag == engine.FormatPCM && f.BitsPerSample == 32:
		return malgo.FormatS32, true
	case f.Tag == engine.FormatFloat && f.BitsPerSample == 32:
		return malgo.FormatF32, true
	default:
		return malgo.FormatUnknown, false
	}
}

// malgoEndpoint runs a miniaudio device whose callback exchanges frames
// with the engine through a ring.
type malgoEndpoint struct {
	base
	host *Host
	info Info

	mu      sync.Mutex
	device  *malgo.Device
	active  atomic.Pointer[malgoRing]
	dropped atomic.Uint64
}

// malgoRing is read from the device callback without locking
type malgoRing struct {
	ring       *ringbuffer.RingBuffer
	blockAlign int
}

func (m *malgoEndpoint) open(format engine.Format, dt malgo.DeviceType, onData malgo.DataProc) error {
	mf, ok := malgoFormat(format)
	if !ok {
		return unsupportedFormat(m.id, format, "no miniaudio sample format")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return errors.Newf("device %s already open", m.id).
			Component(ComponentDevice).
			Category(errors.CategoryState).
			Build()
	}

	periodMs := uint32(m.period.Default.Milliseconds())
	state := &malgoRing{
		ring:       ringbuffer.New(int(format.FramesFor(m.period.Default)) * format.BlockAlign() * malgoRingPeriods),
		blockAlign: format.BlockAlign(),
	}

	cfg := malgo.DefaultDeviceConfig(dt)
	cfg.SampleRate = format.SampleRate
	cfg.PeriodSizeInMilliseconds = periodMs
	cfg.Alsa.NoMMap = 1
	if dt == malgo.Playback {
		cfg.Playback.Format = mf
		cfg.Playback.Channels = uint32(format.Channels)
		cfg.Playback.DeviceID = m.info.raw.Pointer()
	} else {
		cfg.Capture.Format = mf
		cfg.Capture.Channels = uint32(format.Channels)
		cfg.Capture.DeviceID = m.info.raw.Pointer()
	}

	dev, err := malgo.InitDevice(m.host.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: onData,
		Stop: func() {
			m.host.log.Warn("device stopped", logger.String("device", string(m.id)))
		},
	})
	if err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryAudioDevice).
			Context("device", string(m.id)).
			Context("format", format.String()).
			Build()
	}
	m.active.Store(state)
	if err := dev.Start(); err != nil {
		m.active.Store(nil)
		dev.Uninit()
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryAudioDevice).
			Context("device", string(m.id)).
			Build()
	}

	m.device = dev
	m.host.log.Info("device started",
		logger.String("device", string(m.id)),
		logger.String("name", m.name),
		logger.String("format", format.String()))
	return nil
}

// Close stops the device
func (m *malgoEndpoint) Close() error {
	m.mu.Lock()
	dev := m.device
	m.device = nil
	m.mu.Unlock()
	m.active.Store(nil)

	if dev == nil {
		return nil
	}
	err := dev.Stop()
	dev.Uninit()
	if dropped := m.dropped.Load(); dropped > 0 {
		m.host.log.Warn("device dropped frames",
			logger.String("device", string(m.id)),
			logger.Uint64("bytes", dropped))
	}
	if err != nil {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryAudioDevice).
			Context("device", string(m.id)).
			Build()
	}
	return nil
}

func (m *malgoEndpoint) currentRing() (*ringbuffer.RingBuffer, int) {
	if st := m.active.Load(); st != nil {
		return st.ring, st.blockAlign
	}
	return nil, 0
}

// MalgoSink plays rendered frames on a hardware device
type MalgoSink struct {
	malgoEndpoint
}

// Sink returns a render endpoint for info with the given mix format
func (h *Host) Sink(info Info, mix engine.Format) *MalgoSink {
	return &MalgoSink{malgoEndpoint{
		base: base{id: info.ID, name: info.Name, flow: engine.Render, mix: mix, period: DefaultPeriod},
		host: h,
		info: info,
	}}
}

// Open starts playback in format
func (s *MalgoSink) Open(format engine.Format) error {
	return s.open(format, malgo.Playback, func(out, _ []byte, _ uint32) {
		ring, _ := s.currentRing()
		n := 0
		if ring != nil {
			n, _ = ring.Read(out)
		}
		clear(out[n:])
	})
}

// WriteFrames queues frames for the device callback. Frames that do not
// fit are dropped.
func (s *MalgoSink) WriteFrames(data []byte, frames uint32) error {
	ring, ba := s.currentRing()
	if ring == nil {
		return notOpen(s.id)
	}
	n := min(int(frames)*ba, len(data))
	free := ring.Free()
	if n > free {
		s.dropped.Add(uint64(n - free))
		n = free
	}
	if n == 0 {
		return nil
	}
	if _, err := ring.Write(data[:n]); err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
		return errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryBuffer).
			Context("device", string(s.id)).
			Build()
	}
	return nil
}

// MalgoSource captures frames from a hardware device
type MalgoSource struct {
	malgoEndpoint
}

// Source returns a capture endpoint for info with the given mix format
func (h *Host) Source(info Info, mix engine.Format) *MalgoSource {
	return &MalgoSource{malgoEndpoint{
		base: base{id: info.ID, name: info.Name, flow: engine.Capture, mix: mix, period: DefaultPeriod},
		host: h,
		info: info,
	}}
}

// Open starts capture in format
func (s *MalgoSource) Open(format engine.Format) error {
	return s.open(format, malgo.Capture, func(_, in []byte, _ uint32) {
		ring, _ := s.currentRing()
		if ring == nil {
			return
		}
		n := len(in)
		if free := ring.Free(); n > free {
			s.dropped.Add(uint64(n - free))
			n = free
		}
		if n > 0 {
			_, _ = ring.Write(in[:n])
		}
	})
}

// ReadFrames returns the whole frames captured so far, up to frames
func (s *MalgoSource) ReadFrames(data []byte, frames uint32) (uint32, error) {
	ring, ba := s.currentRing()
	if ring == nil {
		return 0, notOpen(s.id)
	}
	n := min(ring.Length()/ba, int(frames), len(data)/ba)
	if n == 0 {
		return 0, nil
	}
	if _, err := ring.Read(data[:n*ba]); err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0, errors.New(err).
			Component(ComponentDevice).
			Category(errors.CategoryBuffer).
			Context("device", string(s.id)).
			Build()
	}
	return uint32(n), nil
}
