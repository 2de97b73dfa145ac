// Package buddy implements a power-of-two buddy allocator over a caller
// supplied byte buffer.
//
// # Overview
//
// The buffer is managed as a binary tree of blocks. Level 0 is the whole span
// (the buffer length rounded up to a power of two), level MaxLevel holds the
// smallest blocks. Allocation rounds the request up to a block size, pops a
// block from that level's free list and splits larger blocks on demand. Free
// merges a block with its buddy for as long as the buddy is free.
//
// # Bookkeeping
//
// Nothing is allocated per block. Free lists are intrusive: each free block
// stores {next, prev} span offsets in its first 16 bytes, which is why the
// minimum block size is 16. Two packed bitmaps, addressed by the heap block
// index (see internal/bitidx), record which blocks are split and which are
// free:
//
//	free bit set  <=> block is linked in its level's free list
//	split bit set <=> block has two children and is never handed out itself
//
// # Non power-of-two buffers
//
// When the buffer is shorter than the span, the allocator pads on the left:
// span offsets below the buffer start are phantom space that is never free.
// Blocks straddling the buffer start are pre-split at construction.
//
//	span:   |<---- pad ---->|<------------- buffer ------------->|
//	        0               pad                                  size
//
// # Refs
//
// A Ref is a byte offset into the caller's buffer. Alloc also returns the
// block as a slice whose length is the full block size.
//
// # Failure
//
// Running out of space at the root is the only failure. Alloc logs a warning,
// writes a state dump (free-list lengths and both bitmaps) to the diagnostics
// writer and returns ErrNoSpace. Double free and foreign refs are caller bugs
// and are only detected when built with -tags assert.
//
// # Thread Safety
//
// Allocator instances are not thread-safe.
package buddy
