package audioclient

import (
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// Sizes of the two client property layouts. V2 appends the stream options.
const (
	ClientPropertiesSizeV1 = 12
	ClientPropertiesSizeV2 = 16
)

// StreamCategory classifies the content of a stream
type StreamCategory uint32

const (
	CategoryOther StreamCategory = iota
	CategoryForegroundOnlyMedia
	CategoryBackgroundCapableMedia
	CategoryCommunications
	CategoryAlerts
	CategorySoundEffects
	CategoryGameEffects
	CategoryGameMedia
	CategoryGameChat
	CategorySpeech
	CategoryMovie
	CategoryMedia
)

// StreamOptions are the V2 stream option bits
type StreamOptions uint32

const (
	StreamOptionNone StreamOptions = 0
	StreamOptionRaw  StreamOptions = 1 << (iota - 1)
	StreamOptionMatchFormat
	StreamOptionAmbisonics
)

// ClientProperties is a size-tagged property block
type ClientProperties struct {
	Size      uint32
	IsOffload bool
	Category  StreamCategory
	Options   StreamOptions // V2 only
}

// ClockCharacteristicFixedFreq is the only clock characteristic reported
const ClockCharacteristicFixedFreq uint32 = 1

// SetClientProperties accepts either property layout. Offload is refused;
// nothing is stored.
func (c *Client) SetClientProperties(props *ClientProperties) error {
	if props == nil {
		return invalidArg("properties", nil)
	}
	switch props.Size {
	case ClientPropertiesSizeV2:
		c.log.Debug("client properties",
			logger.Bool("offload", props.IsOffload),
			logger.Uint32("category", uint32(props.Category)),
			logger.Uint32("options", uint32(props.Options)))
	case ClientPropertiesSizeV1:
		c.log.Debug("client properties",
			logger.Bool("offload", props.IsOffload),
			logger.Uint32("category", uint32(props.Category)))
	default:
		return invalidArg("size", props.Size)
	}
	if props.IsOffload {
		return ErrOffloadNotCapable
	}
	return nil
}

// IsOffloadCapable reports offload support for category, which is never
// available.
func (c *Client) IsOffloadCapable(category StreamCategory) (bool, error) {
	c.log.Debug("offload query", logger.Uint32("category", uint32(category)))
	return false, nil
}

// GetBufferSizeLimits is not supported
func (c *Client) GetBufferSizeLimits(*engine.Format, bool) (minDuration, maxDuration time.Duration, err error) {
	return 0, 0, notImplemented("get_buffer_size_limits")
}

// SharedModeEnginePeriod holds the engine period choices, in frames
type SharedModeEnginePeriod struct {
	Default     uint32
	Fundamental uint32
	Min         uint32
	Max         uint32
}

// GetSharedModeEnginePeriod is not supported
func (c *Client) GetSharedModeEnginePeriod(*engine.Format) (SharedModeEnginePeriod, error) {
	return SharedModeEnginePeriod{}, notImplemented("get_shared_mode_engine_period")
}

// GetCurrentSharedModeEnginePeriod is not supported
func (c *Client) GetCurrentSharedModeEnginePeriod() (*engine.Format, uint32, error) {
	return nil, 0, notImplemented("get_current_shared_mode_engine_period")
}

// InitializeSharedAudioStream is not supported
func (c *Client) InitializeSharedAudioStream(engine.StreamFlags, uint32, *engine.Format, uuid.UUID) error {
	return notImplemented("initialize_shared_audio_stream")
}
