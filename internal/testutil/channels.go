// Package testutil provides shared test helpers for waiting on stream
// events and building fixture audio files.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/engine"
)

// Common test timeouts
const (
	// DefaultTestTimeout covers a handful of engine periods on a loaded CI host.
	DefaultTestTimeout = 2 * time.Second

	// LongTestTimeout is for whole render or capture runs.
	LongTestTimeout = 10 * time.Second
)

// WaitForChannel waits for a signal on ch or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// Receive returns the next value from ch or fails after timeout.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
	var zero T
	return zero
}

// WaitForEvent waits until the stream event is signalled.
func WaitForEvent(t *testing.T, ev *engine.Event, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), timeout)
	defer cancel()
	require.NoError(t, ev.Wait(ctx), "stream event not signalled within %s", timeout)
}
