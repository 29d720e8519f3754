// Package rtthread spawns servicing threads: goroutines locked to their own
// OS thread, named for diagnostics and elevated to real-time priority where
// the platform allows it.
package rtthread

import (
	"runtime"
	"sync/atomic"

	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
	"github.com/tphakala/go-audioclient/internal/observability/metrics"
)

// ComponentRTThread identifies thread errors
const ComponentRTThread = "rtthread"

// MaxNameLen is the longest thread name the kernel keeps
const MaxNameLen = 15

// Priority is a scheduling class request
type Priority string

const (
	PriorityRealtime Priority = "realtime"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
)

// realtime FIFO priority and the nice value used when it is unavailable
const (
	fifoPriority = 50
	highNice     = -10
)

// ErrElevation reports that the requested priority could not be applied
var ErrElevation = errors.Sentinel(ComponentRTThread, errors.CategoryThread, "priority_elevation_failed", "thread priority elevation failed")

// Options describe a thread to spawn
type Options struct {
	Name     string
	Priority Priority
	// RequireRealtime fails the spawn instead of running at a lower priority
	RequireRealtime bool
}

// Spawner starts servicing threads
type Spawner interface {
	Spawn(opts Options, body func()) (*Thread, error)
}

// Thread is a running servicing thread
type Thread struct {
	name    string
	tid     int
	applied Priority
	done    chan struct{}
}

// Name returns the name the thread was given, after truncation
func (t *Thread) Name() string { return t.name }

// TID returns the kernel thread id, zero where unknown
func (t *Thread) TID() int { return t.tid }

// Priority returns the priority that was actually applied
func (t *Thread) Priority() Priority { return t.applied }

// Done is closed when the body returns
func (t *Thread) Done() <-chan struct{} { return t.done }

// Wait blocks until the body returns
func (t *Thread) Wait() { <-t.done }

// Option configures an OSSpawner
type Option func(*OSSpawner)

// WithMetrics records spawn outcomes
func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(s *OSSpawner) { s.metrics = m }
}

// WithLogger replaces the spawner logger
func WithLogger(l logger.Logger) Option {
	return func(s *OSSpawner) { s.log = l }
}

// OSSpawner spawns OS-thread-locked goroutines
type OSSpawner struct {
	log     logger.Logger
	metrics *metrics.ClientMetrics
	spawned atomic.Uint64
}

var _ Spawner = (*OSSpawner)(nil)

// NewOSSpawner returns a spawner for the current platform
func NewOSSpawner(opts ...Option) *OSSpawner {
	s := &OSSpawner{}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("rtthread")
	}
	return s
}

// Spawned returns how many threads have started their body
func (s *OSSpawner) Spawned() uint64 { return s.spawned.Load() }

// TruncateName shortens name to what the kernel stores
func TruncateName(name string) string {
	if len(name) > MaxNameLen {
		return name[:MaxNameLen]
	}
	return name
}

// Spawn starts body on a dedicated OS thread and returns once the thread is
// named and its priority settled. The thread exits with body.
func (s *OSSpawner) Spawn(opts Options, body func()) (*Thread, error) {
	if body == nil {
		return nil, errors.Newf("nil thread body").
			Component(ComponentRTThread).
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.Priority == "" {
		opts.Priority = PriorityRealtime
	}

	t := &Thread{
		name: TruncateName(opts.Name),
		done: make(chan struct{}),
	}
	ready := make(chan error, 1)

	go func() {
		defer close(t.done)
		// never unlocked: the runtime retires the thread when the goroutine
		// exits, so the raised priority dies with it
		runtime.LockOSThread()

		t.tid = currentTID()
		if err := setThreadName(t.name); err != nil {
			s.log.Debug("thread name not set",
				logger.String("name", t.name),
				logger.Error(err))
		}

		applied, err := elevate(t.tid, opts.Priority)
		t.applied = applied
		if err != nil {
			if opts.RequireRealtime {
				ready <- errors.New(ErrElevation).
					Context("requested", string(opts.Priority)).
					Context("cause", err.Error()).
					Build()
				return
			}
			s.log.Warn("thread priority not elevated",
				logger.String("name", t.name),
				logger.String("requested", string(opts.Priority)),
				logger.String("applied", string(applied)),
				logger.Error(err))
		}

		ready <- nil
		s.spawned.Add(1)
		body()
	}()

	err := <-ready
	s.metrics.RecordTimerSpawn(string(opts.Priority), err)
	if err != nil {
		<-t.done
		return nil, err
	}

	s.log.Debug("thread started",
		logger.String("name", t.name),
		logger.Int("tid", t.tid),
		logger.String("priority", string(t.applied)))
	return t, nil
}
