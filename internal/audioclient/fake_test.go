package audioclient

import (
	"slices"
	"sync"
	"time"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/rtthread"
)

// fakeEngine records every call and accepts everything unless told otherwise
type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	nextID  engine.StreamID
	loops   map[engine.StreamID]chan struct{}
	volumes []engine.VolumeRequest
	mix     *engine.Format
	opened  []engine.OpenRequest

	openErr    error
	startErr   error
	formatErr  error
	closest    *engine.Format
	releaseErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		loops: make(map[engine.StreamID]chan struct{}),
		mix:   engine.NewFloat32(48000, 2),
	}
}

func (f *fakeEngine) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeEngine) count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeEngine) LastVolumes() engine.VolumeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.volumes) == 0 {
		return engine.VolumeRequest{}
	}
	return f.volumes[len(f.volumes)-1]
}

func (f *fakeEngine) Open(req engine.OpenRequest) (engine.StreamID, error) {
	f.record("open")
	if f.openErr != nil {
		return 0, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.loops[f.nextID] = make(chan struct{})
	f.opened = append(f.opened, req)
	return f.nextID, nil
}

func (f *fakeEngine) Release(id engine.StreamID) error {
	f.record("release")
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.loops[id]; ok {
		close(ch)
		delete(f.loops, id)
	}
	return f.releaseErr
}

func (f *fakeEngine) GetBufferSize(engine.StreamID) (uint32, error) {
	f.record("get_buffer_size")
	return 4800, nil
}

func (f *fakeEngine) GetLatency(engine.StreamID) (time.Duration, error) {
	f.record("get_latency")
	return 10 * time.Millisecond, nil
}

func (f *fakeEngine) GetCurrentPadding(engine.StreamID) (uint32, error) {
	f.record("get_current_padding")
	return 0, nil
}

func (f *fakeEngine) IsFormatSupported(engine.FormatQuery) (*engine.Format, error) {
	f.record("is_format_supported")
	return f.closest, f.formatErr
}

func (f *fakeEngine) GetMixFormat(engine.DeviceID, engine.Flow) (*engine.Format, error) {
	f.record("get_mix_format")
	return f.mix, nil
}

func (f *fakeEngine) GetDevicePeriod(engine.DeviceID, engine.Flow) (engine.DevicePeriod, error) {
	f.record("get_device_period")
	return engine.DevicePeriod{Default: 10 * time.Millisecond, Minimum: 3 * time.Millisecond}, nil
}

func (f *fakeEngine) Start(engine.StreamID) error {
	f.record("start")
	return f.startErr
}

func (f *fakeEngine) Stop(engine.StreamID) error {
	f.record("stop")
	return nil
}

func (f *fakeEngine) Reset(engine.StreamID) error {
	f.record("reset")
	return nil
}

func (f *fakeEngine) SetEventHandle(engine.StreamID, *engine.Event) error {
	f.record("set_event_handle")
	return nil
}

func (f *fakeEngine) GetFrequency(engine.StreamID) (uint64, error) {
	f.record("get_frequency")
	return 48000 * 8, nil
}

func (f *fakeEngine) GetPosition(req engine.PositionRequest) (engine.Position, error) {
	if req.Device {
		f.record("get_device_position")
		return engine.Position{Pos: 480, QPC: 1}, nil
	}
	f.record("get_position")
	return engine.Position{Pos: 3840, QPC: 1}, nil
}

func (f *fakeEngine) GetRenderBuffer(_ engine.StreamID, frames uint32) ([]byte, error) {
	f.record("get_render_buffer")
	return make([]byte, frames*8), nil
}

func (f *fakeEngine) ReleaseRenderBuffer(engine.StreamID, uint32, engine.BufferFlags) error {
	f.record("release_render_buffer")
	return nil
}

func (f *fakeEngine) GetCaptureBuffer(engine.StreamID) (engine.CapturePacket, error) {
	f.record("get_capture_buffer")
	return engine.CapturePacket{Data: make([]byte, 80), Frames: 10}, nil
}

func (f *fakeEngine) ReleaseCaptureBuffer(engine.StreamID, uint32) error {
	f.record("release_capture_buffer")
	return nil
}

func (f *fakeEngine) GetNextPacketSize(engine.StreamID) (uint32, error) {
	f.record("get_next_packet_size")
	return 10, nil
}

func (f *fakeEngine) SetVolumes(req engine.VolumeRequest) error {
	f.record("set_volumes")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, req)
	return nil
}

func (f *fakeEngine) TimerLoop(id engine.StreamID) error {
	f.record("timer_loop")
	f.mu.Lock()
	ch, ok := f.loops[id]
	f.mu.Unlock()
	if ok {
		<-ch
	}
	return nil
}

var _ engine.Engine = (*fakeEngine)(nil)

// countingSpawner counts spawn attempts and fails while fail is set
type countingSpawner struct {
	inner rtthread.Spawner

	mu    sync.Mutex
	n     int
	fail  error
	names []string
}

func (s *countingSpawner) Spawn(opts rtthread.Options, body func()) (*rtthread.Thread, error) {
	s.mu.Lock()
	s.n++
	s.names = append(s.names, opts.Name)
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.inner.Spawn(opts, body)
}

func (s *countingSpawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
