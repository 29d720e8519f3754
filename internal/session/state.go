package session

import (
	"slices"

	"github.com/google/uuid"

	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// ActivityState of a session
type ActivityState int

const (
	StateInactive ActivityState = iota
	StateActive
	StateExpired
)

func (a ActivityState) String() string {
	switch a {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "inactive"
	}
}

// State is the volume model shared by every member of a session. All
// fields are guarded by the manager lock.
type State struct {
	mgr *Manager
	key Key

	masterVolume   float32
	muted          bool
	channelVolumes []float32

	displayName string
	iconPath    string
	grouping    uuid.UUID

	members []Member
}

func newState(m *Manager, key Key, channels int) *State {
	vols := make([]float32, channels)
	for i := range vols {
		vols[i] = 1
	}
	return &State{
		mgr:            m,
		key:            key,
		masterVolume:   1,
		channelVolumes: vols,
	}
}

// ValidLevel reports whether v is a volume level in [0, 1]
func ValidLevel(v float32) bool {
	return v >= 0 && v <= 1
}

// Key returns the registry key of the session
func (s *State) Key() Key { return s.key }

// Gain returns the scalar master term, zero while muted, and a copy of the
// session channel volumes. Callers hold the session lock.
func (s *State) Gain() (float32, []float32) {
	master := s.masterVolume
	if s.muted {
		master = 0
	}
	return master, slices.Clone(s.channelVolumes)
}

// pushLocked sends the current gain of every member to the engine
func (s *State) pushLocked() {
	for _, m := range s.members {
		if err := m.PushVolumes(); err != nil {
			s.mgr.log.Warn("volume push failed",
				logger.String("guid", s.key.GUID.String()),
				logger.Error(err))
		}
	}
}

func invalidLevel(v float32) error {
	return errors.New(ErrInvalidArgument).Context("level", v).Build()
}

func invalidIndex(i uint32, channels int) error {
	return errors.New(ErrInvalidArgument).
		Context("index", i).
		Context("channels", channels).
		Build()
}

// SetMasterVolume sets the session master volume
func (s *State) SetMasterVolume(v float32) error {
	if !ValidLevel(v) {
		return invalidLevel(v)
	}
	s.mgr.Lock()
	defer s.mgr.Unlock()
	s.masterVolume = v
	s.pushLocked()
	return nil
}

// MasterVolume returns the session master volume, ignoring mute
func (s *State) MasterVolume() float32 {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return s.masterVolume
}

// SetMute sets the mute flag
func (s *State) SetMute(mute bool) {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	s.muted = mute
	s.pushLocked()
}

// Mute returns the mute flag
func (s *State) Mute() bool {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return s.muted
}

// ChannelCount returns the number of session channels
func (s *State) ChannelCount() uint32 {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return uint32(len(s.channelVolumes))
}

// SetChannelVolume sets one session channel volume
func (s *State) SetChannelVolume(index uint32, v float32) error {
	if !ValidLevel(v) {
		return invalidLevel(v)
	}
	s.mgr.Lock()
	defer s.mgr.Unlock()
	if int(index) >= len(s.channelVolumes) {
		return invalidIndex(index, len(s.channelVolumes))
	}
	s.channelVolumes[index] = v
	s.pushLocked()
	return nil
}

// ChannelVolume returns one session channel volume
func (s *State) ChannelVolume(index uint32) (float32, error) {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	if int(index) >= len(s.channelVolumes) {
		return 0, invalidIndex(index, len(s.channelVolumes))
	}
	return s.channelVolumes[index], nil
}

// SetAllVolumes replaces every session channel volume. Nothing changes
// unless the count matches and every level is valid.
func (s *State) SetAllVolumes(levels []float32) error {
	for _, v := range levels {
		if !ValidLevel(v) {
			return invalidLevel(v)
		}
	}
	s.mgr.Lock()
	defer s.mgr.Unlock()
	if len(levels) != len(s.channelVolumes) {
		return errors.New(ErrInvalidArgument).
			Context("count", len(levels)).
			Context("channels", len(s.channelVolumes)).
			Build()
	}
	copy(s.channelVolumes, levels)
	s.pushLocked()
	return nil
}

// AllVolumes fills levels with the session channel volumes. levels must
// have one entry per channel.
func (s *State) AllVolumes(levels []float32) error {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	if len(levels) != len(s.channelVolumes) {
		return errors.New(ErrInvalidArgument).
			Context("count", len(levels)).
			Context("channels", len(s.channelVolumes)).
			Build()
	}
	copy(levels, s.channelVolumes)
	return nil
}

// Activity is active while any member is running
func (s *State) Activity() ActivityState {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	for _, m := range s.members {
		if m.IsRunning() {
			return StateActive
		}
	}
	return StateInactive
}

// SetDisplayName sets the session display name
func (s *State) SetDisplayName(name string) {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	s.displayName = name
}

// DisplayName returns the session display name
func (s *State) DisplayName() string {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return s.displayName
}

// SetIconPath sets the session icon path
func (s *State) SetIconPath(path string) {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	s.iconPath = path
}

// IconPath returns the session icon path
func (s *State) IconPath() string {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return s.iconPath
}

// SetGroupingParam sets the grouping GUID
func (s *State) SetGroupingParam(g uuid.UUID) {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	s.grouping = g
}

// GroupingParam returns the grouping GUID
func (s *State) GroupingParam() uuid.UUID {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return s.grouping
}

// Members returns the number of clients in the session
func (s *State) Members() int {
	s.mgr.Lock()
	defer s.mgr.Unlock()
	return len(s.members)
}
