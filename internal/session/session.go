// Package session groups stream clients into audio sessions. A session
// holds the master volume, mute flag and per-channel volumes shared by
// every client that joined it. One process-wide lock serialises session
// mutation, the gain push to the engine and client-side decisions that
// must not interleave with it.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// ComponentSession identifies session errors
const ComponentSession = "session"

// ErrInvalidArgument reports an out-of-range level, index or count
var ErrInvalidArgument = errors.Sentinel(ComponentSession, errors.CategoryValidation, "invalid_argument", "invalid argument")

// ErrNoInterface shares its code with the client sentinel of the same name
var ErrNoInterface = errors.Sentinel(ComponentSession, errors.CategoryInterface, "no_interface", "interface not supported")

// Member is a client that joined a session. PushVolumes is called with the
// session lock held and must not take it again.
type Member interface {
	PushVolumes() error
	IsRunning() bool
}

// Key identifies a session within a manager
type Key struct {
	GUID   uuid.UUID
	Device engine.DeviceID
	Flow   engine.Flow
}

// Manager is a session registry with its lock
type Manager struct {
	mu          sync.Mutex
	sessions    map[Key]*State
	defaultGUID uuid.UUID
	log         logger.Logger
}

var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Default returns the process-wide manager
func Default() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// NewManager returns an empty registry with its own default session GUID
func NewManager() *Manager {
	return &Manager{
		sessions:    make(map[Key]*State),
		defaultGUID: uuid.New(),
		log:         logger.Global().Module("session"),
	}
}

// Lock takes the session lock
func (m *Manager) Lock() { m.mu.Lock() }

// Unlock releases the session lock
func (m *Manager) Unlock() { m.mu.Unlock() }

// DefaultGUID is the session joined by clients that pass uuid.Nil
func (m *Manager) DefaultGUID() uuid.UUID { return m.defaultGUID }

// Join adds member to the session for guid on device, creating it with
// channels unity channel volumes on first use. The caller must not hold the
// session lock.
func (m *Manager) Join(guid uuid.UUID, device engine.DeviceID, flow engine.Flow, channels int, member Member) (*State, error) {
	if channels <= 0 || member == nil {
		return nil, errors.New(ErrInvalidArgument).
			Context("channels", channels).
			Build()
	}
	if guid == uuid.Nil {
		guid = m.defaultGUID
	}
	key := Key{GUID: guid, Device: device, Flow: flow}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		s = newState(m, key, channels)
		m.sessions[key] = s
		m.log.Debug("session created",
			logger.String("guid", guid.String()),
			logger.String("device", string(device)),
			logger.String("flow", flow.String()),
			logger.Int("channels", channels))
	}
	s.members = append(s.members, member)
	return s, nil
}

// Leave removes member from s. The session is dropped from the registry
// with its last member.
func (m *Manager) Leave(s *State, member Member) {
	if s == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, mem := range s.members {
		if mem == member {
			s.members = append(s.members[:i], s.members[i+1:]...)
			break
		}
	}
	if len(s.members) == 0 {
		if cur, ok := m.sessions[s.key]; ok && cur == s {
			delete(m.sessions, s.key)
			m.log.Debug("session removed", logger.String("guid", s.key.GUID.String()))
		}
	}
}

// Lookup returns the live session for key
func (m *Manager) Lookup(key Key) (*State, bool) {
	if key.GUID == uuid.Nil {
		key.GUID = m.defaultGUID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	return s, ok
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
