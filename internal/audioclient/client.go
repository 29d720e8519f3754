// Package audioclient implements the stream client: a reference counted
// object wrapping one engine stream, gating every call on the stream
// lifecycle and handing out capability views over the same stream.
package audioclient

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/go-audioclient/internal/conf"
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
	"github.com/tphakala/go-audioclient/internal/observability/metrics"
	"github.com/tphakala/go-audioclient/internal/rtthread"
	"github.com/tphakala/go-audioclient/internal/session"
)

const knownStreamFlags = engine.FlagEventCallback | engine.FlagNoPersist | engine.FlagLoopback

// streamHandle is the per-stream state that exists once Initialize succeeds.
// volumes is guarded by the session lock.
type streamHandle struct {
	id       engine.StreamID
	channels int
	volumes  []float32
	session  *session.State
}

// Option configures a Client
type Option func(*Client)

// WithSessions joins sessions of m instead of the process registry
func WithSessions(m *session.Manager) Option {
	return func(c *Client) { c.sessions = m }
}

// WithSpawner replaces the timer thread spawner
func WithSpawner(s rtthread.Spawner) Option {
	return func(c *Client) { c.spawner = s }
}

// WithMarshaler replaces the process marshal registry
func WithMarshaler(m *Marshaler) Option {
	return func(c *Client) { c.marshaler = m }
}

// WithMetrics records client operations
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger replaces the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimerOptions sets the name and priority of the timer thread
func WithTimerOptions(o rtthread.Options) Option {
	return func(c *Client) { c.timerOpts = o }
}

// TimerOptions converts timer settings to spawn options
func TimerOptions(s conf.TimerSettings) rtthread.Options {
	o := rtthread.Options{
		Name:            s.ThreadName,
		Priority:        rtthread.Priority(s.Priority),
		RequireRealtime: s.RequireRealtime,
	}
	if o.Name == "" {
		o.Name = conf.DefaultTimerThreadName
	}
	if o.Priority == "" {
		o.Priority = rtthread.Priority(conf.DefaultTimerPriority)
	}
	return o
}

// Client is the stream client for one endpoint and data flow
type Client struct {
	refs atomic.Int32

	eng    engine.Engine
	device engine.DeviceID
	flow   engine.Flow

	sessions  *session.Manager
	spawner   rtthread.Spawner
	marshaler *Marshaler
	metrics   *metrics.ClientMetrics
	log       logger.Logger
	timerOpts rtthread.Options

	// initMu serialises Initialize
	initMu sync.Mutex
	handle atomic.Pointer[streamHandle]

	// guarded by the session lock
	timer   *rtthread.Thread
	wrapper *session.Wrapper
	running atomic.Bool

	render  *RenderClient
	capture *CaptureClient
	clock   *Clock
	clock2  *Clock2
	volume  *StreamVolume
	marshal *Marshal
}

var (
	_ session.Owner  = (*Client)(nil)
	_ session.Member = (*Client)(nil)
	_ Unknown        = (*Client)(nil)
)

// New returns an uninitialized client for device and flow holding one
// reference.
func New(eng engine.Engine, device engine.DeviceID, flow engine.Flow, opts ...Option) *Client {
	c := &Client{
		eng:       eng,
		device:    device,
		flow:      flow,
		timerOpts: TimerOptions(conf.TimerSettings{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessions == nil {
		c.sessions = session.Default()
	}
	if c.spawner == nil {
		c.spawner = rtthread.NewOSSpawner(rtthread.WithMetrics(c.metrics))
	}
	if c.marshaler == nil {
		c.marshaler = DefaultMarshaler()
	}
	if c.log == nil {
		c.log = logger.Global().Module("audioclient")
	}
	c.log = c.log.With(
		logger.String("device", string(device)),
		logger.String("flow", flow.String()))

	c.render = &RenderClient{c: c}
	c.capture = &CaptureClient{c: c}
	c.clock = &Clock{c: c}
	c.clock2 = &Clock2{clock: c.clock}
	c.volume = &StreamVolume{c: c}
	c.marshal = &Marshal{c: c}

	c.refs.Store(1)
	return c
}

// Device returns the endpoint the client was created for
func (c *Client) Device() engine.DeviceID { return c.device }

// Flow returns the data direction of the client
func (c *Client) Flow() engine.Flow { return c.flow }

// AddRef takes a reference on the client and every view it serves
func (c *Client) AddRef() uint32 {
	return uint32(c.refs.Add(1))
}

// Release drops a reference. The last one closes the stream, waits for the
// timer thread and leaves the session.
func (c *Client) Release() uint32 {
	n := c.refs.Add(-1)
	switch {
	case n == 0:
		c.destroy()
	case n < 0:
		c.refs.Add(1)
		c.log.Warn("release of a destroyed client")
		return 0
	}
	return uint32(n)
}

func (c *Client) destroy() {
	h := c.handle.Swap(nil)
	if h == nil {
		c.log.Debug("client destroyed before initialize")
		return
	}

	if err := c.eng.Release(h.id); err != nil {
		c.log.Warn("engine stream release failed",
			logger.Uint64("stream", uint64(h.id)),
			logger.Error(err))
	}

	c.sessions.Lock()
	timer := c.timer
	c.sessions.Unlock()
	if timer != nil {
		timer.Wait()
	}

	c.sessions.Leave(h.session, c)
	c.log.Debug("client destroyed", logger.Uint64("stream", uint64(h.id)))
}

// QueryInterface returns the client itself or its marshal capability
func (c *Client) QueryInterface(iid IID) (any, error) {
	switch iid {
	case IIDUnknown, IIDAudioClient:
		c.AddRef()
		return c, nil
	case IIDMarshal:
		c.AddRef()
		return c.marshal, nil
	}
	return nil, noInterface(iid)
}

// record reports the outcome of op and returns err unchanged
func (c *Client) record(op string, err error) error {
	c.metrics.RecordOperation(op, err)
	return err
}

func (c *Client) stream() (*streamHandle, error) {
	h := c.handle.Load()
	if h == nil {
		return nil, ErrNotInitialized
	}
	return h, nil
}

func validMode(m engine.ShareMode) bool {
	return m == engine.Shared || m == engine.Exclusive
}

// Initialize opens the engine stream and joins the session. uuid.Nil
// selects the default session of the device.
func (c *Client) Initialize(mode engine.ShareMode, flags engine.StreamFlags, duration, period time.Duration,
	format *engine.Format, sessionGUID uuid.UUID,
) error {
	switch {
	case format == nil:
		return c.record("initialize", invalidArg("format", nil))
	case format.Channels == 0:
		return c.record("initialize", invalidArg("channels", 0))
	case !validMode(mode):
		return c.record("initialize", invalidArg("mode", int(mode)))
	case flags&^knownStreamFlags != 0:
		return c.record("initialize", invalidArg("flags", uint32(flags)))
	}

	c.log.Debug("initialize",
		logger.String("mode", mode.String()),
		logger.Uint32("flags", uint32(flags)),
		logger.Duration("duration", duration),
		logger.Duration("period", period),
		logger.String("format", format.String()),
		logger.String("session", sessionGUID.String()))

	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.handle.Load() != nil {
		return c.record("initialize", ErrAlreadyInitialized)
	}

	id, err := c.eng.Open(engine.OpenRequest{
		Device:   c.device,
		Flow:     c.flow,
		Mode:     mode,
		Flags:    flags,
		Duration: duration,
		Period:   period,
		Format:   format.Clone(),
		Session:  sessionGUID,
	})
	if err != nil {
		return c.record("initialize", err)
	}

	channels := int(format.Channels)
	volumes := make([]float32, channels)
	for i := range volumes {
		volumes[i] = 1
	}

	st, err := c.sessions.Join(sessionGUID, c.device, c.flow, channels, c)
	if err != nil {
		if relErr := c.eng.Release(id); relErr != nil {
			c.log.Warn("engine stream release failed", logger.Error(relErr))
		}
		return c.record("initialize", err)
	}

	c.handle.Store(&streamHandle{
		id:       id,
		channels: channels,
		volumes:  volumes,
		session:  st,
	})

	c.sessions.Lock()
	err = c.PushVolumes()
	c.sessions.Unlock()
	if err != nil {
		c.log.Warn("initial volume push failed", logger.Error(err))
	}

	c.log.Info("stream initialized",
		logger.Uint64("stream", uint64(id)),
		logger.String("session", st.Key().GUID.String()))
	return c.record("initialize", nil)
}

// PushVolumes sends the complete gain of the stream to the engine. The
// caller holds the session lock.
func (c *Client) PushVolumes() error {
	h := c.handle.Load()
	if h == nil {
		return nil
	}
	master, sessionVolumes := h.session.Gain()
	err := c.eng.SetVolumes(engine.VolumeRequest{
		Stream:         h.id,
		Master:         master,
		Volumes:        slices.Clone(h.volumes),
		SessionVolumes: sessionVolumes,
	})
	if err == nil {
		c.metrics.RecordVolumePush()
	}
	return err
}

// IsRunning reports whether the stream was started and not stopped since
func (c *Client) IsRunning() bool {
	return c.running.Load()
}

// GetBufferSize returns the stream buffer size in frames
func (c *Client) GetBufferSize() (uint32, error) {
	h, err := c.stream()
	if err != nil {
		return 0, err
	}
	return c.eng.GetBufferSize(h.id)
}

// GetStreamLatency returns the maximum stream latency
func (c *Client) GetStreamLatency() (time.Duration, error) {
	h, err := c.stream()
	if err != nil {
		return 0, err
	}
	return c.eng.GetLatency(h.id)
}

// GetCurrentPadding returns the frames queued in the stream buffer
func (c *Client) GetCurrentPadding() (uint32, error) {
	h, err := c.stream()
	if err != nil {
		return 0, err
	}
	return c.eng.GetCurrentPadding(h.id)
}

// IsFormatSupported asks whether the device accepts format in mode. In
// shared mode a closest match may come back with engine.ErrFormatClosestMatch,
// which is not a failure.
func (c *Client) IsFormatSupported(mode engine.ShareMode, format *engine.Format) (*engine.Format, error) {
	if format == nil {
		return nil, invalidArg("format", nil)
	}
	if !validMode(mode) {
		return nil, invalidArg("mode", int(mode))
	}

	c.log.Debug("format query",
		logger.String("mode", mode.String()),
		logger.String("format", format.String()))

	closest, err := c.eng.IsFormatSupported(engine.FormatQuery{
		Device: c.device,
		Flow:   c.flow,
		Mode:   mode,
		Format: format,
	})
	if mode == engine.Exclusive {
		closest = nil
	}
	if closest != nil {
		c.log.Debug("closest format", logger.String("format", closest.String()))
	}
	return closest, err
}

// GetMixFormat returns a fresh copy of the device mix format
func (c *Client) GetMixFormat() (*engine.Format, error) {
	f, err := c.eng.GetMixFormat(c.device, c.flow)
	if err != nil {
		return nil, err
	}
	c.log.Debug("mix format", logger.String("format", f.String()))
	return f.Clone(), nil
}

// GetDevicePeriod returns the default and minimum device periods
func (c *Client) GetDevicePeriod() (engine.DevicePeriod, error) {
	return c.eng.GetDevicePeriod(c.device, c.flow)
}

// Start starts the stream. The first successful start also spawns the
// timer thread; if it cannot be spawned the stream is stopped again.
func (c *Client) Start() error {
	c.sessions.Lock()
	defer c.sessions.Unlock()

	h, err := c.stream()
	if err != nil {
		return c.record("start", err)
	}
	if err := c.eng.Start(h.id); err != nil {
		return c.record("start", err)
	}

	if c.timer == nil {
		id := h.id
		th, err := c.spawner.Spawn(c.timerOpts, func() {
			if err := c.eng.TimerLoop(id); err != nil {
				c.log.Warn("timer loop ended with error",
					logger.Uint64("stream", uint64(id)),
					logger.Error(err))
			}
		})
		if err != nil {
			if stopErr := c.eng.Stop(h.id); stopErr != nil {
				c.log.Warn("stop after failed timer spawn", logger.Error(stopErr))
			}
			c.log.Warn("timer thread spawn failed",
				logger.String("name", c.timerOpts.Name),
				logger.Error(err))
			return c.record("start", errors.New(ErrTimerThread).
				Context("cause", err.Error()).
				Build())
		}
		c.timer = th
	}

	c.running.Store(true)
	c.log.Debug("stream started", logger.Uint64("stream", uint64(h.id)))
	return c.record("start", nil)
}

// Stop stops the stream. The timer thread keeps running.
func (c *Client) Stop() error {
	c.sessions.Lock()
	defer c.sessions.Unlock()

	h, err := c.stream()
	if err != nil {
		return c.record("stop", err)
	}
	if err := c.eng.Stop(h.id); err != nil {
		return c.record("stop", err)
	}
	c.running.Store(false)
	c.log.Debug("stream stopped", logger.Uint64("stream", uint64(h.id)))
	return c.record("stop", nil)
}

// Reset discards buffered data and resets the position of a stopped stream
func (c *Client) Reset() error {
	h, err := c.stream()
	if err != nil {
		return c.record("reset", err)
	}
	return c.record("reset", c.eng.Reset(h.id))
}

// SetEventHandle sets the event signalled every period in event mode
func (c *Client) SetEventHandle(ev *engine.Event) error {
	if ev == nil {
		return invalidArg("event", nil)
	}
	h, err := c.stream()
	if err != nil {
		return err
	}
	return c.eng.SetEventHandle(h.id, ev)
}

// GetService returns the iid capability of the stream with a reference
// taken on the client.
func (c *Client) GetService(iid IID) (any, error) {
	c.sessions.Lock()
	defer c.sessions.Unlock()

	h, err := c.stream()
	if err != nil {
		return nil, err
	}

	var svc any
	switch iid {
	case IIDRenderClient:
		if c.flow != engine.Render {
			return nil, wrongEndpoint(iid, c.flow)
		}
		svc = c.render
	case IIDCaptureClient:
		if c.flow != engine.Capture {
			return nil, wrongEndpoint(iid, c.flow)
		}
		svc = c.capture
	case IIDClock:
		svc = c.clock
	case IIDStreamVolume:
		svc = c.volume
	case IIDSessionControl, IIDChannelVolume, IIDSimpleVolume:
		if c.wrapper == nil {
			c.wrapper = session.NewWrapper(c, h.session)
		}
		switch iid {
		case IIDSessionControl:
			svc = c.wrapper.Control()
		case IIDChannelVolume:
			svc = c.wrapper.ChannelVolume()
		default:
			svc = c.wrapper.SimpleVolume()
		}
	default:
		c.log.Debug("unsupported service", logger.String("iid", iid.String()))
		return nil, noInterface(iid)
	}

	c.AddRef()
	return svc, nil
}

func wrongEndpoint(iid IID, flow engine.Flow) error {
	return errors.New(ErrWrongEndpointType).
		Context("iid", iid.String()).
		Context("flow", flow.String()).
		Build()
}
