package session

import (
	"github.com/google/uuid"

	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/iid"
)

// Owner is the reference-counted client a wrapper belongs to. Tags the
// wrapper does not serve itself, such as the marshal capability, are
// resolved through the owner.
type Owner interface {
	QueryInterface(tag iid.IID) (any, error)
	AddRef() uint32
	Release() uint32
}

// Wrapper exposes a session through three views. It has no count of its
// own: every reference taken on a view is a reference on the owner.
type Wrapper struct {
	owner Owner
	state *State

	simple  *SimpleVolume
	channel *ChannelVolume
	control *Control
}

// NewWrapper returns the views of state for owner
func NewWrapper(owner Owner, state *State) *Wrapper {
	w := &Wrapper{owner: owner, state: state}
	w.simple = &SimpleVolume{w: w}
	w.channel = &ChannelVolume{w: w}
	w.control = &Control{w: w}
	return w
}

// State returns the wrapped session
func (w *Wrapper) State() *State { return w.state }

func (w *Wrapper) SimpleVolume() *SimpleVolume   { return w.simple }
func (w *Wrapper) ChannelVolume() *ChannelVolume { return w.channel }
func (w *Wrapper) Control() *Control             { return w.control }

// query resolves tag among the three views. IUnknown maps to the control
// view so every view answers it with the same object.
func (w *Wrapper) query(tag iid.IID) (any, error) {
	var v any
	switch tag {
	case iid.SimpleVolume:
		v = w.simple
	case iid.ChannelVolume:
		v = w.channel
	case iid.SessionControl, iid.Unknown:
		v = w.control
	case iid.Marshal:
		return w.owner.QueryInterface(tag)
	default:
		return nil, errors.New(ErrNoInterface).Context("iid", tag.String()).Build()
	}
	w.owner.AddRef()
	return v, nil
}

// SimpleVolume controls the session master volume and mute
type SimpleVolume struct{ w *Wrapper }

func (v *SimpleVolume) QueryInterface(tag iid.IID) (any, error) { return v.w.query(tag) }
func (v *SimpleVolume) AddRef() uint32                          { return v.w.owner.AddRef() }
func (v *SimpleVolume) Release() uint32                         { return v.w.owner.Release() }

func (v *SimpleVolume) SetMasterVolume(level float32) error {
	return v.w.state.SetMasterVolume(level)
}

func (v *SimpleVolume) GetMasterVolume() float32 { return v.w.state.MasterVolume() }
func (v *SimpleVolume) SetMute(mute bool)        { v.w.state.SetMute(mute) }
func (v *SimpleVolume) GetMute() bool            { return v.w.state.Mute() }

// ChannelVolume controls the session channel volumes
type ChannelVolume struct{ w *Wrapper }

func (v *ChannelVolume) QueryInterface(tag iid.IID) (any, error) { return v.w.query(tag) }
func (v *ChannelVolume) AddRef() uint32                          { return v.w.owner.AddRef() }
func (v *ChannelVolume) Release() uint32                         { return v.w.owner.Release() }

func (v *ChannelVolume) GetChannelCount() uint32 { return v.w.state.ChannelCount() }

func (v *ChannelVolume) SetChannelVolume(index uint32, level float32) error {
	return v.w.state.SetChannelVolume(index, level)
}

func (v *ChannelVolume) GetChannelVolume(index uint32) (float32, error) {
	return v.w.state.ChannelVolume(index)
}

func (v *ChannelVolume) SetAllVolumes(levels []float32) error {
	return v.w.state.SetAllVolumes(levels)
}

func (v *ChannelVolume) GetAllVolumes(levels []float32) error {
	return v.w.state.AllVolumes(levels)
}

// Control reports session activity and carries its presentation data
type Control struct{ w *Wrapper }

func (c *Control) QueryInterface(tag iid.IID) (any, error) { return c.w.query(tag) }
func (c *Control) AddRef() uint32                          { return c.w.owner.AddRef() }
func (c *Control) Release() uint32                         { return c.w.owner.Release() }

func (c *Control) GetState() ActivityState         { return c.w.state.Activity() }
func (c *Control) GetDisplayName() string          { return c.w.state.DisplayName() }
func (c *Control) SetDisplayName(name string)      { c.w.state.SetDisplayName(name) }
func (c *Control) GetIconPath() string             { return c.w.state.IconPath() }
func (c *Control) SetIconPath(path string)         { c.w.state.SetIconPath(path) }
func (c *Control) GetGroupingParam() uuid.UUID     { return c.w.state.GroupingParam() }
func (c *Control) SetGroupingParam(g uuid.UUID)    { c.w.state.SetGroupingParam(g) }
func (c *Control) GetSessionIdentifier() uuid.UUID { return c.w.state.Key().GUID }
