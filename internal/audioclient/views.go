package audioclient

import (
	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/session"
)

// viewQuery answers QueryInterface for a view that serves self under own
func viewQuery(c *Client, self any, own, iid IID) (any, error) {
	switch iid {
	case own, IIDUnknown:
		c.AddRef()
		return self, nil
	case IIDMarshal:
		c.AddRef()
		return c.marshal, nil
	}
	return nil, noInterface(iid)
}

// RenderClient writes frames into a render stream
type RenderClient struct{ c *Client }

func (r *RenderClient) QueryInterface(iid IID) (any, error) {
	return viewQuery(r.c, r, IIDRenderClient, iid)
}
func (r *RenderClient) AddRef() uint32  { return r.c.AddRef() }
func (r *RenderClient) Release() uint32 { return r.c.Release() }

// GetBuffer grants space for frames. The slice is engine-owned until
// ReleaseBuffer.
func (r *RenderClient) GetBuffer(frames uint32) ([]byte, error) {
	h, err := r.c.stream()
	if err != nil {
		return nil, err
	}
	return r.c.eng.GetRenderBuffer(h.id, frames)
}

// ReleaseBuffer hands written frames of the grant to the engine
func (r *RenderClient) ReleaseBuffer(written uint32, flags engine.BufferFlags) error {
	h, err := r.c.stream()
	if err != nil {
		return err
	}
	return r.c.eng.ReleaseRenderBuffer(h.id, written, flags)
}

// CaptureClient reads packets from a capture stream
type CaptureClient struct{ c *Client }

func (cc *CaptureClient) QueryInterface(iid IID) (any, error) {
	return viewQuery(cc.c, cc, IIDCaptureClient, iid)
}
func (cc *CaptureClient) AddRef() uint32  { return cc.c.AddRef() }
func (cc *CaptureClient) Release() uint32 { return cc.c.Release() }

// GetBuffer returns the next packet. A zero Frames packet means nothing is
// queued.
func (cc *CaptureClient) GetBuffer() (engine.CapturePacket, error) {
	h, err := cc.c.stream()
	if err != nil {
		return engine.CapturePacket{}, err
	}
	p, err := cc.c.eng.GetCaptureBuffer(h.id)
	if err != nil {
		return engine.CapturePacket{}, err
	}
	return p, nil
}

// ReleaseBuffer releases done frames of the packet, which must be all of
// them or none.
func (cc *CaptureClient) ReleaseBuffer(done uint32) error {
	h, err := cc.c.stream()
	if err != nil {
		return err
	}
	return cc.c.eng.ReleaseCaptureBuffer(h.id, done)
}

// GetNextPacketSize returns the frames in the next packet
func (cc *CaptureClient) GetNextPacketSize() (uint32, error) {
	h, err := cc.c.stream()
	if err != nil {
		return 0, err
	}
	return cc.c.eng.GetNextPacketSize(h.id)
}

// Clock reads the stream position
type Clock struct{ c *Client }

func (k *Clock) QueryInterface(iid IID) (any, error) {
	if iid == IIDClock2 {
		k.c.AddRef()
		return k.c.clock2, nil
	}
	return viewQuery(k.c, k, IIDClock, iid)
}
func (k *Clock) AddRef() uint32  { return k.c.AddRef() }
func (k *Clock) Release() uint32 { return k.c.Release() }

// GetFrequency returns the position units per second
func (k *Clock) GetFrequency() (uint64, error) {
	h, err := k.c.stream()
	if err != nil {
		return 0, err
	}
	return k.c.eng.GetFrequency(h.id)
}

// GetPosition returns the stream-relative position
func (k *Clock) GetPosition() (engine.Position, error) {
	h, err := k.c.stream()
	if err != nil {
		return engine.Position{}, err
	}
	return k.c.eng.GetPosition(engine.PositionRequest{Stream: h.id})
}

// GetCharacteristics always reports a fixed frequency
func (k *Clock) GetCharacteristics() uint32 {
	return ClockCharacteristicFixedFreq
}

// Clock2 reads the device-relative position
type Clock2 struct{ clock *Clock }

func (k *Clock2) QueryInterface(iid IID) (any, error) { return k.clock.QueryInterface(iid) }
func (k *Clock2) AddRef() uint32                      { return k.clock.AddRef() }
func (k *Clock2) Release() uint32                     { return k.clock.Release() }

// GetDevicePosition returns the position in device frames
func (k *Clock2) GetDevicePosition() (engine.Position, error) {
	c := k.clock.c
	h, err := c.stream()
	if err != nil {
		return engine.Position{}, err
	}
	return c.eng.GetPosition(engine.PositionRequest{Stream: h.id, Device: true})
}

// StreamVolume controls the per-stream channel volumes
type StreamVolume struct{ c *Client }

func (v *StreamVolume) QueryInterface(iid IID) (any, error) {
	return viewQuery(v.c, v, IIDStreamVolume, iid)
}
func (v *StreamVolume) AddRef() uint32  { return v.c.AddRef() }
func (v *StreamVolume) Release() uint32 { return v.c.Release() }

// GetChannelCount returns the stream channel count
func (v *StreamVolume) GetChannelCount() (uint32, error) {
	h, err := v.c.stream()
	if err != nil {
		return 0, err
	}
	return uint32(h.channels), nil
}

// SetChannelVolume sets one stream channel volume and pushes the new gain
func (v *StreamVolume) SetChannelVolume(index uint32, level float32) error {
	if !session.ValidLevel(level) {
		return invalidArg("level", level)
	}
	h, err := v.c.stream()
	if err != nil {
		return err
	}
	if int(index) >= h.channels {
		return invalidArg("index", index)
	}

	v.c.sessions.Lock()
	defer v.c.sessions.Unlock()
	h.volumes[index] = level
	return v.c.PushVolumes()
}

// GetChannelVolume returns one stream channel volume
func (v *StreamVolume) GetChannelVolume(index uint32) (float32, error) {
	h, err := v.c.stream()
	if err != nil {
		return 0, err
	}
	if int(index) >= h.channels {
		return 0, invalidArg("index", index)
	}

	v.c.sessions.Lock()
	defer v.c.sessions.Unlock()
	return h.volumes[index], nil
}

// SetAllVolumes replaces every stream channel volume. Nothing changes
// unless the count matches and every level is valid.
func (v *StreamVolume) SetAllVolumes(levels []float32) error {
	h, err := v.c.stream()
	if err != nil {
		return err
	}
	if len(levels) != h.channels {
		return invalidArg("count", len(levels))
	}
	for _, l := range levels {
		if !session.ValidLevel(l) {
			return invalidArg("level", l)
		}
	}

	v.c.sessions.Lock()
	defer v.c.sessions.Unlock()
	copy(h.volumes, levels)
	return v.c.PushVolumes()
}

// GetAllVolumes fills levels, which must have one entry per channel
func (v *StreamVolume) GetAllVolumes(levels []float32) error {
	h, err := v.c.stream()
	if err != nil {
		return err
	}
	if len(levels) != h.channels {
		return invalidArg("count", len(levels))
	}

	v.c.sessions.Lock()
	defer v.c.sessions.Unlock()
	copy(levels, h.volumes)
	return nil
}
