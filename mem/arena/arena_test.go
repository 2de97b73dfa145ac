package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/qimem/internal/debug"
	"github.com/joshuapare/qimem/mem/region"
)

func TestAlloc_AlignedBump(t *testing.T) {
	a := New(make([]byte, 128))

	b := a.Alloc(5)
	require.Len(t, b, 5)
	assert.Equal(t, 16, cap(b))
	assert.Equal(t, 16, a.Used())

	c := a.Alloc(16)
	require.Len(t, c, 16)
	assert.Equal(t, 32, a.Used())
	assert.Same(t, &a.Bytes()[16], &c[0])

	a.Alloc(0)
	assert.Equal(t, 32, a.Used(), "zero-byte allocations do not move the cursor")
	assert.Equal(t, 96, a.Remaining())
	assert.Equal(t, 128, a.Size())
}

func TestAlloc_OverflowPanics(t *testing.T) {
	a := New(make([]byte, 64))
	a.Alloc(48)

	assert.Panics(t, func() { a.Alloc(17) }, "17 rounds to 32")
	assert.Equal(t, 48, a.Used())
	assert.NotPanics(t, func() { a.Alloc(16) })
	assert.Panics(t, func() { a.Alloc(1) })
	assert.Panics(t, func() { a.Alloc(-1) })
}

func TestReset_Idempotent(t *testing.T) {
	a := New(make([]byte, 256))
	for _, n := range []int{1, 40, 100} {
		b := a.Alloc(n)
		for i := range b {
			b[i] = 0xEE
		}
	}

	a.Reset()
	once := a.Used()
	a.Reset()
	assert.Equal(t, once, a.Used())
	assert.Equal(t, 0, a.Used())

	for _, k := range []int{1, 16, 200, 256} {
		a.Reset()
		b := a.Alloc(k)
		assert.Same(t, &a.Bytes()[0], &b[0], "after Reset, Alloc(%d) returns the base", k)
	}
}

func TestReset_ZeroesUnderAssert(t *testing.T) {
	if !debug.Enabled {
		t.Skip("requires -tags assert")
	}
	a := New(make([]byte, 64))
	b := a.Alloc(32)
	for i := range b {
		b[i] = 0xFF
	}
	a.Reset()
	assert.Equal(t, make([]byte, 64), a.Bytes())
}

func TestNewFromRegion(t *testing.T) {
	r := region.NewRegion("permanent", make([]byte, 1024))
	r.Alloc(3)

	a, err := NewFromRegion(r, 512)
	require.NoError(t, err)
	assert.Equal(t, 512, a.Size())
	assert.Equal(t, 16+512, r.Used())

	_, err = NewFromRegion(r, 1024)
	require.ErrorIs(t, err, region.ErrExhausted)
}
