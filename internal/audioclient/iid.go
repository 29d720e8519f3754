package audioclient

import (
	"github.com/tphakala/go-audioclient/internal/iid"
)

// IID tags a capability interface
type IID = iid.IID

// Unknown is implemented by every capability view
type Unknown = iid.Object

// Capability tags
var (
	IIDUnknown        = iid.Unknown
	IIDMarshal        = iid.Marshal
	IIDAudioClient    = iid.AudioClient
	IIDRenderClient   = iid.RenderClient
	IIDCaptureClient  = iid.CaptureClient
	IIDClock          = iid.Clock
	IIDClock2         = iid.Clock2
	IIDStreamVolume   = iid.StreamVolume
	IIDSessionControl = iid.SessionControl
	IIDChannelVolume  = iid.ChannelVolume
	IIDSimpleVolume   = iid.SimpleVolume
)
