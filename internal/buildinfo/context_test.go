package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentDefaults(t *testing.T) {
	t.Parallel()

	c := Current()
	assert.Equal(t, "dev", c.Version)
	assert.Equal(t, "audioclient dev (built unknown)", c.String())
}
