//go:build ruleguard

// Package gorules defines custom linter rules for the audio client.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// LockOSThreadOutsideRTThread flags thread pinning outside the rtthread
// package. Timer threads are created through rtthread.Spawner so that the
// name and scheduling priority are applied to the pinned thread.
//
//	runtime.LockOSThread()
//
// Use:
//
//	spawner.Spawn(rtthread.Options{Name: ..., Priority: ...}, body)
func LockOSThreadOutsideRTThread(m dsl.Matcher) {
	m.Match(`runtime.LockOSThread()`).
		Where(!m.File().PkgPath.Matches(`/internal/rtthread$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("spawn pinned threads through rtthread.Spawner instead of calling runtime.LockOSThread")
}

// StdlibErrors flags the standard errors package in internal code. Errors
// built there carry no component or category and are invisible to the
// telemetry reporter.
//
//	errors.New("stream not initialized")
//
// Use:
//
//	errors.Newf("stream not initialized").Component(...).Category(errors.CategoryState).Build()
func StdlibErrors(m dsl.Matcher) {
	m.Import("errors")
	m.Match(`errors.New($msg)`).
		Where(m["msg"].Type.Is("string") &&
			m.File().PkgPath.Matches(`/internal/`) &&
			!m.File().PkgPath.Matches(`/internal/(errors|logger)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use internal/errors.Newf with a component and category instead of errors.New")
}

// GlobalLoggerInHotPath flags logger.Global() inside the soft engine timer
// and ring code. Engines receive their logger at construction.
func GlobalLoggerInHotPath(m dsl.Matcher) {
	m.Match(`logger.Global()`).
		Where(m.File().PkgPath.Matches(`/internal/engine/soft$`) && m.File().Name.Matches(`^(timer|stream|gain)\.go$`)).
		Report("use the engine logger instead of logger.Global() in the period path")
}
