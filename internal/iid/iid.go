// Package iid holds the capability tags shared by the stream client and
// the session views, and the reference-counted interface every view
// implements.
package iid

import (
	"github.com/google/uuid"
)

// IID tags a capability interface
type IID uuid.UUID

// Capability tags, using the identifiers of the matching Windows interfaces
var (
	Unknown        = mustIID("00000000-0000-0000-c000-000000000046")
	Marshal        = mustIID("00000003-0000-0000-c000-000000000046")
	AudioClient    = mustIID("1cb9ad4c-dbfa-4c32-b178-c2f568a703b2")
	RenderClient   = mustIID("f294acfc-3146-4483-a7bf-addca7c260e2")
	CaptureClient  = mustIID("c8adbd64-e71e-48a0-a4de-185c395cd317")
	Clock          = mustIID("cd63314f-3fba-4a1b-812c-ef96358728e7")
	Clock2         = mustIID("6f49ff73-6727-49ac-a008-d98cf5e70048")
	StreamVolume   = mustIID("93014887-242d-4068-8a15-cf5e93b90fe3")
	SessionControl = mustIID("f4b1a599-7266-4319-a8ca-e70acb11e8cd")
	ChannelVolume  = mustIID("1c158861-b533-4b30-b1cf-e853e51c59b8")
	SimpleVolume   = mustIID("87ce5498-68d6-44e5-9215-6da47ef883d8")
)

var names = map[IID]string{
	Unknown:        "IUnknown",
	Marshal:        "IMarshal",
	AudioClient:    "IAudioClient",
	RenderClient:   "IAudioRenderClient",
	CaptureClient:  "IAudioCaptureClient",
	Clock:          "IAudioClock",
	Clock2:         "IAudioClock2",
	StreamVolume:   "IAudioStreamVolume",
	SessionControl: "IAudioSessionControl",
	ChannelVolume:  "IChannelAudioVolume",
	SimpleVolume:   "ISimpleAudioVolume",
}

func mustIID(s string) IID {
	return IID(uuid.MustParse(s))
}

// String returns the interface name, or the GUID for unknown tags
func (i IID) String() string {
	if name, ok := names[i]; ok {
		return name
	}
	return uuid.UUID(i).String()
}

// Object is implemented by every capability view
type Object interface {
	QueryInterface(tag IID) (any, error)
	AddRef() uint32
	Release() uint32
}
