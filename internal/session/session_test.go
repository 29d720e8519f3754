package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/iid"
)

// recordingMember captures the gain it sees on every push
type recordingMember struct {
	state   *State
	running atomic.Bool
	pushes  int
	master  float32
	session []float32
}

func (r *recordingMember) PushVolumes() error {
	r.pushes++
	r.master, r.session = r.state.Gain()
	return nil
}

func (r *recordingMember) IsRunning() bool { return r.running.Load() }

func join(t *testing.T, m *Manager, guid uuid.UUID, channels int) (*State, *recordingMember) {
	t.Helper()
	mem := &recordingMember{}
	s, err := m.Join(guid, "spk", engine.Render, channels, mem)
	require.NoError(t, err)
	mem.state = s
	return s, mem
}

// countingOwner answers only the marshal tag, with a marker value
type countingOwner struct{ refs atomic.Int32 }

type marshalMarker struct{}

func (c *countingOwner) QueryInterface(tag iid.IID) (any, error) {
	if tag != iid.Marshal {
		return nil, ErrNoInterface
	}
	c.AddRef()
	return marshalMarker{}, nil
}

func (c *countingOwner) AddRef() uint32  { return uint32(c.refs.Add(1)) }
func (c *countingOwner) Release() uint32 { return uint32(c.refs.Add(-1)) }

func TestJoinSharesStateByKey(t *testing.T) {
	t.Parallel()

	m := NewManager()
	guid := uuid.New()

	a, memA := join(t, m, guid, 2)
	b, _ := join(t, m, guid, 2)
	assert.Same(t, a, b)
	assert.Equal(t, 2, a.Members())

	other, _ := join(t, m, uuid.New(), 2)
	assert.NotSame(t, a, other)

	def, _ := join(t, m, uuid.Nil, 2)
	assert.Equal(t, m.DefaultGUID(), def.Key().GUID)
	found, ok := m.Lookup(Key{Device: "spk", Flow: engine.Render})
	require.True(t, ok)
	assert.Same(t, def, found)

	assert.Equal(t, 3, m.Len())

	m.Leave(a, memA)
	assert.Equal(t, 1, a.Members())
	assert.Equal(t, 3, m.Len())
}

func TestLeaveDropsEmptySession(t *testing.T) {
	t.Parallel()

	m := NewManager()
	s, mem := join(t, m, uuid.New(), 1)
	m.Leave(s, mem)
	assert.Zero(t, m.Len())

	_, ok := m.Lookup(s.Key())
	assert.False(t, ok)

	m.Leave(nil, mem)
}

func TestJoinRejectsBadArguments(t *testing.T) {
	t.Parallel()

	m := NewManager()
	_, err := m.Join(uuid.New(), "spk", engine.Render, 0, &recordingMember{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = m.Join(uuid.New(), "spk", engine.Render, 2, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMutationsPushToEveryMember(t *testing.T) {
	t.Parallel()

	m := NewManager()
	guid := uuid.New()
	s, a := join(t, m, guid, 2)
	_, b := join(t, m, guid, 2)

	require.NoError(t, s.SetMasterVolume(0.25))
	assert.Equal(t, 1, a.pushes)
	assert.Equal(t, 1, b.pushes)
	assert.Equal(t, float32(0.25), b.master)

	s.SetMute(true)
	assert.Equal(t, float32(0), a.master, "muted sessions push a zero master")
	assert.Equal(t, float32(0.25), s.MasterVolume())
	assert.True(t, s.Mute())

	require.NoError(t, s.SetChannelVolume(1, 0.5))
	assert.Equal(t, []float32{1, 0.5}, b.session)
	assert.Equal(t, 3, b.pushes)
}

func TestVolumeValidation(t *testing.T) {
	t.Parallel()

	m := NewManager()
	s, mem := join(t, m, uuid.New(), 2)

	for _, bad := range []float32{-0.01, 1.01} {
		assert.ErrorIs(t, s.SetMasterVolume(bad), ErrInvalidArgument)
		assert.ErrorIs(t, s.SetChannelVolume(0, bad), ErrInvalidArgument)
		assert.ErrorIs(t, s.SetAllVolumes([]float32{0, bad}), ErrInvalidArgument)
	}
	assert.ErrorIs(t, s.SetChannelVolume(2, 0.5), ErrInvalidArgument)
	_, err := s.ChannelVolume(2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.ErrorIs(t, s.SetAllVolumes([]float32{0.5}), ErrInvalidArgument)
	assert.Zero(t, mem.pushes)

	got := make([]float32, 2)
	require.NoError(t, s.AllVolumes(got))
	assert.Equal(t, []float32{1, 1}, got)
	assert.ErrorIs(t, s.AllVolumes(make([]float32, 3)), ErrInvalidArgument)
}

func TestAllVolumesRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewManager()
	s, _ := join(t, m, uuid.New(), 3)

	want := []float32{0.1, 0.2, 0.3}
	require.NoError(t, s.SetAllVolumes(want))

	got := make([]float32, 3)
	require.NoError(t, s.AllVolumes(got))
	assert.Equal(t, want, got)

	v, err := s.ChannelVolume(2)
	require.NoError(t, err)
	assert.Equal(t, float32(0.3), v)
	assert.Equal(t, uint32(3), s.ChannelCount())
}

func TestActivityFollowsMembers(t *testing.T) {
	t.Parallel()

	m := NewManager()
	guid := uuid.New()
	s, a := join(t, m, guid, 2)
	_, b := join(t, m, guid, 2)

	assert.Equal(t, StateInactive, s.Activity())
	b.running.Store(true)
	assert.Equal(t, StateActive, s.Activity())
	a.running.Store(true)
	b.running.Store(false)
	assert.Equal(t, StateActive, s.Activity())
	assert.Equal(t, "active", StateActive.String())
}

func TestWrapperViewsShareOwnerCount(t *testing.T) {
	t.Parallel()

	m := NewManager()
	s, _ := join(t, m, uuid.New(), 2)
	owner := &countingOwner{}
	w := NewWrapper(owner, s)

	assert.Same(t, s, w.State())
	assert.Same(t, w.SimpleVolume(), w.SimpleVolume())

	assert.Equal(t, uint32(1), w.SimpleVolume().AddRef())
	assert.Equal(t, uint32(2), w.ChannelVolume().AddRef())
	assert.Equal(t, uint32(3), w.Control().AddRef())
	assert.Equal(t, uint32(2), w.SimpleVolume().Release())

	require.NoError(t, w.SimpleVolume().SetMasterVolume(0.75))
	assert.Equal(t, float32(0.75), w.SimpleVolume().GetMasterVolume())
	w.SimpleVolume().SetMute(true)
	assert.True(t, w.SimpleVolume().GetMute())

	cv := w.ChannelVolume()
	assert.Equal(t, uint32(2), cv.GetChannelCount())
	require.NoError(t, cv.SetChannelVolume(0, 0.4))
	v, err := cv.GetChannelVolume(0)
	require.NoError(t, err)
	assert.Equal(t, float32(0.4), v)
	require.NoError(t, cv.SetAllVolumes([]float32{0.3, 0.6}))
	levels := make([]float32, 2)
	require.NoError(t, cv.GetAllVolumes(levels))
	assert.Equal(t, []float32{0.3, 0.6}, levels)

	ctl := w.Control()
	ctl.SetDisplayName("Music")
	ctl.SetIconPath("/usr/share/icons/music.png")
	g := uuid.New()
	ctl.SetGroupingParam(g)
	assert.Equal(t, "Music", ctl.GetDisplayName())
	assert.Equal(t, "/usr/share/icons/music.png", ctl.GetIconPath())
	assert.Equal(t, g, ctl.GetGroupingParam())
	assert.Equal(t, s.Key().GUID, ctl.GetSessionIdentifier())
	assert.Equal(t, StateInactive, ctl.GetState())
}

func TestWrapperViewsQueryInterface(t *testing.T) {
	t.Parallel()

	m := NewManager()
	s, _ := join(t, m, uuid.New(), 2)
	owner := &countingOwner{}
	w := NewWrapper(owner, s)

	views := map[string]iid.Object{
		"simple":  w.SimpleVolume(),
		"channel": w.ChannelVolume(),
		"control": w.Control(),
	}
	for name, view := range views {
		t.Run(name, func(t *testing.T) {
			before := owner.refs.Load()

			got, err := view.QueryInterface(iid.SimpleVolume)
			require.NoError(t, err)
			assert.Same(t, w.SimpleVolume(), got)

			got, err = view.QueryInterface(iid.ChannelVolume)
			require.NoError(t, err)
			assert.Same(t, w.ChannelVolume(), got)

			got, err = view.QueryInterface(iid.SessionControl)
			require.NoError(t, err)
			assert.Same(t, w.Control(), got)

			got, err = view.QueryInterface(iid.Unknown)
			require.NoError(t, err)
			assert.Same(t, w.Control(), got)

			got, err = view.QueryInterface(iid.Marshal)
			require.NoError(t, err)
			assert.Equal(t, marshalMarker{}, got)

			_, err = view.QueryInterface(iid.RenderClient)
			assert.ErrorIs(t, err, ErrNoInterface)

			assert.Equal(t, before+5, owner.refs.Load())
			for range 5 {
				view.Release()
			}
		})
	}
}

func TestConcurrentSettersPushWholeGain(t *testing.T) {
	t.Parallel()

	m := NewManager()
	s, mem := join(t, m, uuid.New(), 2)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			level := float32(i) / 16
			_ = s.SetAllVolumes([]float32{level, level})
		}()
	}
	wg.Wait()

	// each push observed a consistent pair
	require.Len(t, mem.session, 2)
	assert.Equal(t, mem.session[0], mem.session[1])
	assert.Equal(t, 16, mem.pushes)
}

func TestDefaultManagerIsSingleton(t *testing.T) {
	t.Parallel()
	assert.Same(t, Default(), Default())
}
