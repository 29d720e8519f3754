package soft

import (
	"time"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
	"github.com/tphakala/go-audioclient/internal/observability/metrics"
)

// TimerLoop services the stream once per period until Release. Stopped
// streams keep ticking without moving data.
func (e *Engine) TimerLoop(id engine.StreamID) error {
	s, err := e.stream(id)
	if err != nil {
		return err
	}

	e.log.Debug("timer loop started",
		logger.Uint64("stream", uint64(id)),
		logger.Duration("period", s.period))

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			e.log.Debug("timer loop finished", logger.Uint64("stream", uint64(id)))
			return nil
		case <-ticker.C:
			e.service(s)
		}
	}
}

// service moves one period of frames between the ring and the endpoint
func (e *Engine) service(s *stream) {
	start := time.Now()

	s.mu.Lock()
	if !s.running || s.closed || s.invalidated != nil {
		s.mu.Unlock()
		return
	}

	var moved uint32
	var err error
	if s.flow == engine.Render {
		moved, err = e.renderPeriod(s)
	} else {
		moved, err = e.capturePeriod(s)
	}
	if err != nil {
		s.invalidated = errors.New(engine.ErrDeviceInvalidated).
			Context("stream", uint64(s.id)).
			Context("device", string(s.endpoint.ID())).
			Context("cause", err.Error()).
			Build()
	}
	s.devicePos += uint64(moved)
	fill := s.fill()
	ev := s.event
	eventMode := s.flags&engine.FlagEventCallback != 0
	s.mu.Unlock()

	if err != nil {
		e.log.Error("endpoint i/o failed, stream invalidated",
			logger.Uint64("stream", uint64(s.id)),
			logger.String("device", string(s.endpoint.ID())),
			logger.Error(err))
	}

	if eventMode && ev != nil {
		ev.Signal()
	}
	e.metrics.ObservePeriod(s.flow.String(), time.Since(start), fill)
}

// renderPeriod pulls one period from the ring and writes it to the sink,
// padding with silence on underrun. Callers hold s.mu.
func (e *Engine) renderPeriod(s *stream) (uint32, error) {
	sink := s.endpoint.(Sink)

	want := int(s.periodFrames) * s.blockAlign
	have := min(s.ring.Length(), want)
	have -= have % s.blockAlign

	if have > 0 {
		if _, err := s.ring.Read(s.work[:have]); err != nil {
			return 0, err
		}
	}
	if have < want {
		clear(s.work[have:want])
		e.glitch(s, metrics.GlitchUnderrun, uint32((want-have)/s.blockAlign))
	}

	if !s.unity {
		applyGain(s.format, s.work[:have], s.gains)
	}
	if err := sink.WriteFrames(s.work[:want], s.periodFrames); err != nil {
		return 0, err
	}
	return s.periodFrames, nil
}

// capturePeriod reads up to one period from the source into the ring.
// Frames that do not fit are dropped and flag the next packet as
// discontinuous. Callers hold s.mu.
func (e *Engine) capturePeriod(s *stream) (uint32, error) {
	src := s.endpoint.(Source)

	n, err := src.ReadFrames(s.work, s.periodFrames)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	data := s.work[:int(n)*s.blockAlign]
	if !s.unity {
		applyGain(s.format, data, s.gains)
	}

	if len(data) > s.ring.Free() {
		s.overrun = true
		e.glitch(s, metrics.GlitchOverrun, n)
		return n, nil
	}
	if _, err := s.ring.Write(data); err != nil {
		return 0, err
	}
	return n, nil
}

func (e *Engine) glitch(s *stream, kind string, frames uint32) {
	e.metrics.RecordGlitch(s.flow.String(), kind)
	if e.limiter.Allow() {
		e.log.Warn("stream "+kind,
			logger.Uint64("stream", uint64(s.id)),
			logger.String("flow", s.flow.String()),
			logger.Uint32("frames", frames))
	}
}
