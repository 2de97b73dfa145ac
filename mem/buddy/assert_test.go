//go:build assert

package buddy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFree_DoubleFreePanics(t *testing.T) {
	a := newTestAllocator(t, 1024, 32)
	x, _, err := a.Alloc(256)
	require.NoError(t, err)
	_, _, err = a.Alloc(256)
	require.NoError(t, err)

	require.NoError(t, a.Free(x))
	assert.Panics(t, func() { _ = a.Free(x) })
}

func TestFree_MetadataBlockPanics(t *testing.T) {
	a, err := New(make([]byte, 1024), 32, &Options{EmbedMetadata: true, Diagnostics: quiet.Diagnostics})
	require.NoError(t, err)
	assert.Panics(t, func() { _ = a.Free(a.MetadataRef()) })
}
