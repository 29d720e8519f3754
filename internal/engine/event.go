package engine

import "context"

// Event is an auto-reset signal. Signals coalesce while nobody waits.
type Event struct {
	ch chan struct{}
}

// NewEvent returns an unsignalled event
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Signal sets the event without blocking
func (e *Event) Signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives one value per observed signal
func (e *Event) C() <-chan struct{} {
	return e.ch
}

// Wait blocks until the event is signalled or ctx is done
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
