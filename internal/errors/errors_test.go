package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestSentinelMatchingByCode(t *testing.T) {
	t.Parallel()

	notInit := Sentinel("audioclient", CategoryState, "not_initialized", "stream not initialized")
	notStopped := Sentinel("engine", CategoryState, "not_stopped", "stream not stopped")

	assert.ErrorIs(t, notInit, notInit)
	assert.NotErrorIs(t, notInit, notStopped, "same category must not collide when codes differ")

	wrapped := New(notInit).Context("operation", "get_buffer").Build()
	assert.ErrorIs(t, wrapped, notInit)
	assert.Equal(t, CategoryState, wrapped.Category)
	assert.Equal(t, "stream not initialized", wrapped.Error())

	stdWrapped := fmt.Errorf("outer: %w", wrapped)
	assert.ErrorIs(t, stdWrapped, notInit)
}

func TestCategoryMatchingWithoutCode(t *testing.T) {
	t.Parallel()

	a := New(fmt.Errorf("a")).Category(CategoryValidation).Build()
	b := New(fmt.Errorf("b")).Category(CategoryValidation).Build()
	c := New(fmt.Errorf("c")).Category(CategoryState).Build()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
	assert.True(t, IsCategory(a, CategoryValidation))
}

func TestContextIsCopied(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("x")).Context("index", 3).Build()
	ctx := ee.GetContext()
	ctx["index"] = 4

	assert.Equal(t, 3, ee.GetContext()["index"])
}

func TestHooksReceiveBuiltErrors(t *testing.T) {
	var seen []*EnhancedError
	AddErrorHook(func(ee *EnhancedError) { seen = append(seen, ee) })
	t.Cleanup(ClearErrorHooks)

	ee := New(fmt.Errorf("invalid channel index")).Build()

	require.Len(t, seen, 1)
	assert.Same(t, ee, seen[0])
	assert.Equal(t, CategoryValidation, ee.Category)
}

func TestBasicPathScrub(t *testing.T) {
	t.Parallel()

	got := BasicPathScrub("open /home/alice/out.wav: https://key@o1.ingest.sentry.io/2")
	assert.NotContains(t, got, "alice")
	assert.NotContains(t, got, "key@")
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "engine.soft", lookupComponent("github.com/tphakala/go-audioclient/internal/engine/soft.(*Engine).Open"))
	assert.Equal(t, "engine", lookupComponent("github.com/tphakala/go-audioclient/internal/engine.NewEvent"))
	assert.Equal(t, ComponentUnknown, lookupComponent("main.main"))
}

func TestWrappingInheritsSentinelIdentity(t *testing.T) {
	sentinel := Sentinel("engine", CategoryBuffer, "out_of_order", "buffer call out of order")

	wrapped := New(sentinel).Context("stream", 7).Build()

	assert.Equal(t, "engine", wrapped.GetComponent())
	assert.Equal(t, CategoryBuffer, wrapped.Category)
	assert.Equal(t, "out_of_order", wrapped.Code)
	assert.Equal(t, 7, wrapped.GetContext()["stream"])

	rewrapped := New(wrapped).Component("audioclient").Build()
	assert.Equal(t, "audioclient", rewrapped.GetComponent())
	assert.ErrorIs(t, rewrapped, sentinel)
}
