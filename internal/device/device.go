// Package device provides endpoints for the soft engine: WAV files, null
// devices and hardware devices reached through miniaudio.
package device

import (
	"time"

	"github.com/tphakala/go-audioclient/internal/engine"
	"github.com/tphakala/go-audioclient/internal/engine/soft"
	"github.com/tphakala/go-audioclient/internal/errors"
	"github.com/tphakala/go-audioclient/internal/logger"
)

// ComponentDevice identifies device errors
const ComponentDevice = "device"

// DefaultPeriod is used by file and null endpoints
var DefaultPeriod = engine.DevicePeriod{
	Default: 10 * time.Millisecond,
	Minimum: 3 * time.Millisecond,
}

var (
	_ soft.Sink   = (*WAVSink)(nil)
	_ soft.Source = (*WAVSource)(nil)
	_ soft.Sink   = (*NullSink)(nil)
	_ soft.Source = (*NullSource)(nil)
	_ soft.Sink   = (*MalgoSink)(nil)
	_ soft.Source = (*MalgoSource)(nil)
)

// base carries the static endpoint description
type base struct {
	id     engine.DeviceID
	name   string
	flow   engine.Flow
	mix    engine.Format
	period engine.DevicePeriod
}

func (b *base) ID() engine.DeviceID         { return b.id }
func (b *base) Name() string                { return b.name }
func (b *base) Flow() engine.Flow           { return b.flow }
func (b *base) MixFormat() engine.Format    { return b.mix }
func (b *base) Period() engine.DevicePeriod { return b.period }

func deviceLogger() logger.Logger {
	return logger.Global().Module("device")
}

func unsupportedFormat(id engine.DeviceID, f engine.Format, reason string) error {
	return errors.New(engine.ErrUnsupportedFormat).
		Component(ComponentDevice).
		Context("device", string(id)).
		Context("format", f.String()).
		Context("reason", reason).
		Build()
}

func notOpen(id engine.DeviceID) error {
	return errors.Newf("endpoint %s is not open", id).
		Component(ComponentDevice).
		Category(errors.CategoryState).
		Build()
}
