package audioclient

import (
	"github.com/tphakala/go-audioclient/internal/errors"
)

// ComponentAudioClient identifies client errors
const ComponentAudioClient = "audioclient"

var (
	ErrNotInitialized     = errors.Sentinel(ComponentAudioClient, errors.CategoryState, "not_initialized", "audio client not initialized")
	ErrAlreadyInitialized = errors.Sentinel(ComponentAudioClient, errors.CategoryState, "already_initialized", "audio client already initialized")
	// ErrInvalidArgument shares its code with the session package so either
	// sentinel matches a validation failure from a session view.
	ErrInvalidArgument   = errors.Sentinel(ComponentAudioClient, errors.CategoryValidation, "invalid_argument", "invalid argument")
	ErrWrongEndpointType = errors.Sentinel(ComponentAudioClient, errors.CategoryEndpoint, "wrong_endpoint_type", "capability does not match endpoint data flow")
	ErrNoInterface       = errors.Sentinel(ComponentAudioClient, errors.CategoryInterface, "no_interface", "interface not supported")
	ErrNotImplemented    = errors.Sentinel(ComponentAudioClient, errors.CategoryNotImplemented, "not_implemented", "not implemented")
	ErrOffloadNotCapable = errors.Sentinel(ComponentAudioClient, errors.CategoryEndpoint, "offload_not_capable", "endpoint is not offload capable")
	ErrOutOfMemory       = errors.Sentinel(ComponentAudioClient, errors.CategoryResource, "out_of_memory", "out of memory")
	ErrTimerThread       = errors.Sentinel(ComponentAudioClient, errors.CategoryThread, "timer_thread", "failed to start timer thread")
)

func invalidArg(key string, value any) error {
	return errors.New(ErrInvalidArgument).Context(key, value).Build()
}

func notImplemented(op string) error {
	return errors.New(ErrNotImplemented).Context("operation", op).Build()
}

func noInterface(iid IID) error {
	return errors.New(ErrNoInterface).Context("iid", iid.String()).Build()
}
