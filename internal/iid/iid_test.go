package iid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ISimpleAudioVolume", SimpleVolume.String())
	assert.Equal(t, "IMarshal", Marshal.String())

	g := uuid.MustParse("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")
	assert.Equal(t, g.String(), IID(g).String())
}

func TestTagsAreDistinct(t *testing.T) {
	t.Parallel()

	assert.Len(t, names, 11)
}
