package arena

import (
	"fmt"

	"github.com/joshuapare/qimem/internal/bitidx"
	"github.com/joshuapare/qimem/internal/debug"
	"github.com/joshuapare/qimem/internal/logger"
	"github.com/joshuapare/qimem/mem/region"
)

// Alignment is the granularity of the arena cursor.
const Alignment = 16

// Arena is a bump allocator over a fixed buffer.
type Arena struct {
	buf []byte
	cur int
}

// New returns an arena over buf.
func New(buf []byte) *Arena {
	return &Arena{buf: buf}
}

// NewFromRegion carves size bytes from r and returns an arena over them.
func NewFromRegion(r *region.Region, size int) (*Arena, error) {
	buf, err := r.TryAlloc(size)
	if err != nil {
		return nil, fmt.Errorf("arena: carve %d bytes from %s region: %w", size, r.Name(), err)
	}
	logger.Debug("arena: created", "region", r.Name(), "size", size)
	return New(buf), nil
}

// Alloc returns n bytes and advances the cursor by n rounded up to Alignment.
// The slice has length n and capacity equal to the rounded size.
// It panics when the arena cannot hold the rounded size.
func (a *Arena) Alloc(n int) []byte {
	if n < 0 {
		panic(fmt.Sprintf("arena: negative allocation %d", n))
	}
	step := bitidx.AlignUp(n, Alignment)
	if step > len(a.buf)-a.cur {
		panic(fmt.Sprintf("arena: overflow allocating %d bytes (used %d of %d)", n, a.cur, len(a.buf)))
	}
	old := a.cur
	a.cur += step
	return a.buf[old : old+n : old+step]
}

// Reset discards every allocation. Under -tags assert the buffer is zeroed.
func (a *Arena) Reset() {
	a.cur = 0
	if debug.Enabled {
		clear(a.buf)
	}
}

// Used returns the cursor offset.
func (a *Arena) Used() int { return a.cur }

// Size returns the capacity of the arena.
func (a *Arena) Size() int { return len(a.buf) }

// Remaining returns the bytes left before the arena overflows.
func (a *Arena) Remaining() int { return len(a.buf) - a.cur }

// Bytes returns the whole backing buffer.
func (a *Arena) Bytes() []byte { return a.buf }
