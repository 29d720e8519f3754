// Package soft is an in-process audio engine. Each stream owns a sample ring
// between the client and one endpoint; a timer loop moves one period of
// frames per tick and applies the stream gain on the way.
package soft

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
	"github.com/tphakala/go-audioclient/internal/observability/metrics"
)

// DefaultDevice selects the first endpoint registered for a flow
const DefaultDevice engine.DeviceID = "default"

// Endpoint is a device the engine can open a stream on
type Endpoint interface {
	ID() engine.DeviceID
	Name() string
	Flow() engine.Flow
	MixFormat() engine.Format
	Period() engine.DevicePeriod
	// Open prepares the endpoint for the negotiated stream format
	Open(format engine.Format) error
	Close() error
}

// Sink consumes rendered frames
type Sink interface {
	Endpoint
	WriteFrames(data []byte, frames uint32) error
}

// Source produces captured frames. A short read means the source has
// nothing more right now.
type Source interface {
	Endpoint
	ReadFrames(data []byte, frames uint32) (uint32, error)
}

// Option configures an Engine
type Option func(*Engine)

// WithMetrics records stream activity into m
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces the engine logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine implements engine.Engine in process
type Engine struct {
	mu        sync.RWMutex
	endpoints map[engine.DeviceID]Endpoint
	defaults  map[engine.Flow]engine.DeviceID
	streams   map[engine.StreamID]*stream
	busy      map[engine.DeviceID]engine.StreamID

	nextID  atomic.Uint64
	formats *cache.Cache
	epoch   time.Time

	metrics *metrics.ClientMetrics
	log     logger.Logger
	limiter *rate.Limiter
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine without endpoints
func New(opts ...Option) *Engine {
	e := &Engine{
		endpoints: make(map[engine.DeviceID]Endpoint),
		defaults:  make(map[engine.Flow]engine.DeviceID),
		streams:   make(map[engine.StreamID]*stream),
		busy:      make(map[engine.DeviceID]engine.StreamID),
		// entries never expire, so no janitor goroutine
		formats: cache.New(cache.NoExpiration, 0),
		epoch:   time.Now(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Global().Module("engine").Module("soft")
	}
	return e
}

// AddEndpoint registers ep. The first endpoint of each flow becomes the
// default device for that flow.
func (e *Engine) AddEndpoint(ep Endpoint) error {
	if ep == nil {
		return errors.Newf("nil endpoint").
			Component(engine.ComponentEngine).
			Category(errors.CategoryValidation).
			Build()
	}

	id := ep.ID()
	if id == "" || id == DefaultDevice {
		return errors.Newf("invalid endpoint id %q", id).
			Component(engine.ComponentEngine).
			Category(errors.CategoryValidation).
			Build()
	}

	switch ep.(type) {
	case Sink:
		if ep.Flow() != engine.Render {
			return errors.Newf("endpoint %s implements Sink but reports flow %s", id, ep.Flow()).
				Component(engine.ComponentEngine).
				Category(errors.CategoryValidation).
				Build()
		}
	case Source:
		if ep.Flow() != engine.Capture {
			return errors.Newf("endpoint %s implements Source but reports flow %s", id, ep.Flow()).
				Component(engine.ComponentEngine).
				Category(errors.CategoryValidation).
				Build()
		}
	default:
		return errors.Newf("endpoint %s is neither a sink nor a source", id).
			Component(engine.ComponentEngine).
			Category(errors.CategoryValidation).
			Build()
	}

	mix := ep.MixFormat()
	if err := mix.Validate(); err != nil {
		return errors.New(err).
			Component(engine.ComponentEngine).
			Context("device", string(id)).
			Build()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.endpoints[id]; exists {
		return errors.Newf("endpoint %s already registered", id).
			Component(engine.ComponentEngine).
			Category(errors.CategoryConflict).
			Build()
	}
	e.endpoints[id] = ep
	if _, ok := e.defaults[ep.Flow()]; !ok {
		e.defaults[ep.Flow()] = id
	}
	e.formats.Set(formatKey(id, ep.Flow()), mix.Clone(), cache.NoExpiration)

	e.log.Debug("endpoint registered",
		logger.String("device", string(id)),
		logger.String("name", ep.Name()),
		logger.String("flow", ep.Flow().String()),
		logger.String("mix_format", mix.String()))
	return nil
}

// Endpoints returns the registered endpoints sorted by id
func (e *Engine) Endpoints() []Endpoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Endpoint, 0, len(e.endpoints))
	for _, ep := range e.endpoints {
		out = append(out, ep)
	}
	slices.SortFunc(out, func(a, b Endpoint) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		default:
			return 0
		}
	})
	return out
}

func formatKey(id engine.DeviceID, flow engine.Flow) string {
	return fmt.Sprintf("%s/%s", id, flow)
}

// endpoint resolves a device id for a flow. Callers hold e.mu.
func (e *Engine) endpoint(id engine.DeviceID, flow engine.Flow) (Endpoint, error) {
	if id == "" || id == DefaultDevice {
		def, ok := e.defaults[flow]
		if !ok {
			return nil, errors.New(engine.ErrDeviceNotFound).
				Context("device", string(DefaultDevice)).
				Context("flow", flow.String()).
				Build()
		}
		id = def
	}

	ep, ok := e.endpoints[id]
	if !ok || ep.Flow() != flow {
		return nil, errors.New(engine.ErrDeviceNotFound).
			Context("device", string(id)).
			Context("flow", flow.String()).
			Build()
	}
	return ep, nil
}

// GetMixFormat returns a copy of the endpoint mix format
func (e *Engine) GetMixFormat(device engine.DeviceID, flow engine.Flow) (*engine.Format, error) {
	e.mu.RLock()
	ep, err := e.endpoint(device, flow)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	key := formatKey(ep.ID(), flow)
	if cached, ok := e.formats.Get(key); ok {
		return cached.(*engine.Format).Clone(), nil
	}

	mix := ep.MixFormat()
	e.formats.Set(key, mix.Clone(), cache.NoExpiration)
	return mix.Clone(), nil
}

// GetDevicePeriod returns the endpoint periods
func (e *Engine) GetDevicePeriod(device engine.DeviceID, flow engine.Flow) (engine.DevicePeriod, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ep, err := e.endpoint(device, flow)
	if err != nil {
		return engine.DevicePeriod{}, err
	}
	return ep.Period(), nil
}

// IsFormatSupported accepts any valid format in exclusive mode. Shared mode
// needs the mix rate and channel count; otherwise the mix format is
// offered as the closest match.
func (e *Engine) IsFormatSupported(q engine.FormatQuery) (*engine.Format, error) {
	if err := q.Format.Validate(); err != nil {
		return nil, err
	}

	mix, err := e.GetMixFormat(q.Device, q.Flow)
	if err != nil {
		return nil, err
	}

	if q.Mode == engine.Exclusive || sharedCompatible(q.Format, mix) {
		return nil, nil
	}
	return mix, engine.ErrFormatClosestMatch
}

func sharedCompatible(f, mix *engine.Format) bool {
	return f.SampleRate == mix.SampleRate && f.Channels == mix.Channels
}

// Open creates a stream on the requested endpoint
func (e *Engine) Open(req engine.OpenRequest) (engine.StreamID, error) {
	if err := req.Format.Validate(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ep, err := e.endpoint(req.Device, req.Flow)
	if err != nil {
		return 0, err
	}

	if owner, inUse := e.busy[ep.ID()]; inUse {
		return 0, errors.New(engine.ErrDeviceInUse).
			Context("device", string(ep.ID())).
			Context("stream", uint64(owner)).
			Build()
	}

	mix := ep.MixFormat()
	if req.Mode == engine.Shared && !sharedCompatible(req.Format, &mix) {
		return 0, unsupportedShared(req.Format, &mix)
	}

	devPeriod := ep.Period()
	period := req.Period
	switch {
	case req.Mode == engine.Shared || period == 0:
		period = devPeriod.Default
	case period < devPeriod.Minimum:
		return 0, errors.New(engine.ErrInvalidDevicePeriod).
			Context("requested", period.String()).
			Context("minimum", devPeriod.Minimum.String()).
			Build()
	}

	format := req.Format.Clone()
	periodFrames := format.FramesFor(period)
	if periodFrames == 0 {
		return 0, errors.New(engine.ErrInvalidDevicePeriod).
			Context("requested", period.String()).
			Build()
	}
	bufferFrames := max(format.FramesFor(req.Duration), 2*periodFrames)

	if err := ep.Open(*format); err != nil {
		return 0, errors.New(err).
			Component(engine.ComponentEngine).
			Category(errors.CategoryAudioDevice).
			Context("device", string(ep.ID())).
			Build()
	}

	id := engine.StreamID(e.nextID.Add(1))
	s := newStream(id, req, ep, format, period, periodFrames, bufferFrames)
	e.streams[id] = s
	e.busy[ep.ID()] = id

	e.metrics.StreamOpened(req.Flow.String())
	e.log.Info("stream opened",
		logger.Uint64("stream", uint64(id)),
		logger.String("device", string(ep.ID())),
		logger.String("flow", req.Flow.String()),
		logger.String("mode", req.Mode.String()),
		logger.String("format", format.String()),
		logger.Duration("period", period),
		logger.Uint32("buffer_frames", bufferFrames),
		logger.String("session", req.Session.String()))
	return id, nil
}

func unsupportedShared(f, mix *engine.Format) error {
	return errors.New(engine.ErrUnsupportedFormat).
		Context("format", f.String()).
		Context("mix_format", mix.String()).
		Context("reason", "shared mode requires the mix rate and channel count").
		Build()
}

// Release closes the stream endpoint and ends its timer loop
func (e *Engine) Release(id engine.StreamID) error {
	e.mu.Lock()
	s, ok := e.streams[id]
	if ok {
		delete(e.streams, id)
		delete(e.busy, s.endpoint.ID())
	}
	e.mu.Unlock()
	if !ok {
		return unknownStream(id)
	}

	s.close()
	e.metrics.StreamClosed(s.flow.String())

	if err := s.endpoint.Close(); err != nil {
		e.log.Warn("endpoint close failed",
			logger.Uint64("stream", uint64(id)),
			logger.String("device", string(s.endpoint.ID())),
			logger.Error(err))
		return errors.New(err).
			Component(engine.ComponentEngine).
			Category(errors.CategoryAudioDevice).
			Context("device", string(s.endpoint.ID())).
			Build()
	}

	e.log.Info("stream released", logger.Uint64("stream", uint64(id)))
	return nil
}

func (e *Engine) stream(id engine.StreamID) (*stream, error) {
	e.mu.RLock()
	s, ok := e.streams[id]
	e.mu.RUnlock()
	if !ok {
		return nil, unknownStream(id)
	}
	return s, nil
}

func unknownStream(id engine.StreamID) error {
	return errors.New(engine.ErrUnknownStream).
		Context("stream", uint64(id)).
		Build()
}

// qpc returns the performance counter in 100ns units
func (e *Engine) qpc() uint64 {
	return uint64(time.Since(e.epoch) / 100)
}
