package devices

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audioclient/internal/device"
	"github.com/tphakala/go-audioclient/internal/engine"
)

func TestPrint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, []device.Info{
		{ID: "hw:0,0", Name: "Speakers", Flow: engine.Render, Default: true},
		{ID: "hw:1,0", Name: "USB Mic", Flow: engine.Capture},
	}))

	out := buf.String()
	assert.Contains(t, out, "FLOW")
	assert.Regexp(t, `render\s+\*\s+Speakers\s+hw:0,0`, out)
	assert.Regexp(t, `capture\s+USB Mic\s+hw:1,0`, out)
}

func TestPrintEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, nil))
	assert.Equal(t, "no audio devices found\n", buf.String())
}
