package engine

import (
	"github.com/tphakala/go-audioclient/internal/errors"
)

// ComponentEngine identifies engine errors
const ComponentEngine = "engine"

// Engine-reported conditions. Clients pass these through unchanged.
var (
	ErrUnsupportedFormat      = errors.Sentinel(ComponentEngine, errors.CategoryFormat, "unsupported_format", "format not supported")
	ErrBufferTooLarge         = errors.Sentinel(ComponentEngine, errors.CategoryBuffer, "buffer_too_large", "requested buffer larger than free space")
	ErrOutOfOrder             = errors.Sentinel(ComponentEngine, errors.CategoryBuffer, "out_of_order", "buffer call out of order")
	ErrInvalidSize            = errors.Sentinel(ComponentEngine, errors.CategoryBuffer, "invalid_size", "released frame count does not match grant")
	ErrBufferOperationPending = errors.Sentinel(ComponentEngine, errors.CategoryBuffer, "buffer_operation_pending", "buffer still held by client")
	ErrNotStopped             = errors.Sentinel(ComponentEngine, errors.CategoryState, "not_stopped", "stream not stopped")
	ErrEventHandleNotExpected = errors.Sentinel(ComponentEngine, errors.CategoryState, "event_handle_not_expected", "stream was not opened for event callbacks")
	ErrEventHandleNotSet      = errors.Sentinel(ComponentEngine, errors.CategoryState, "event_handle_not_set", "event callback stream started without an event")
	ErrDeviceInvalidated      = errors.Sentinel(ComponentEngine, errors.CategoryAudioDevice, "device_invalidated", "device invalidated")
	ErrDeviceInUse            = errors.Sentinel(ComponentEngine, errors.CategoryAudioDevice, "device_in_use", "device already has an open stream")
	ErrDeviceNotFound         = errors.Sentinel(ComponentEngine, errors.CategoryNotFound, "device_not_found", "device not found")
	ErrInvalidDevicePeriod    = errors.Sentinel(ComponentEngine, errors.CategoryValidation, "invalid_device_period", "device period out of range")
	ErrUnknownStream          = errors.Sentinel(ComponentEngine, errors.CategoryNotFound, "unknown_stream", "unknown stream")

	// ErrFormatClosestMatch is a success status: the returned closest
	// format would be accepted instead of the requested one.
	ErrFormatClosestMatch = errors.Sentinel(ComponentEngine, errors.CategoryFormat, "format_closest_match", "closest format match returned")
)

func unsupported(f *Format, reason string) error {
	return errors.New(ErrUnsupportedFormat).
		Component(ComponentEngine).
		Context("format", f.String()).
		Context("reason", reason).
		Build()
}
