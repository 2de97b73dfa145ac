package buddy

import "io"

// Ref is a block handle: a byte offset into the allocator's buffer.
type Ref int

// NilRef is the ref of no block.
const NilRef Ref = -1

const (
	// LinkSize is the size of the {next, prev} pair stored in every free block,
	// and therefore the smallest allowed block.
	LinkSize = 16

	// headSize is the size of one free-list head in the metadata.
	headSize = 8

	// nilLink terminates free lists.
	nilLink = ^uint64(0)
)

// Options tunes an allocator. A nil *Options selects the defaults.
type Options struct {
	// EmbedMetadata stores the free-list heads and bitmaps inside the managed
	// buffer, in a block allocated from the allocator itself. When false the
	// metadata lives in a separate slice.
	EmbedMetadata bool

	// Diagnostics receives the state dump written when an allocation fails.
	// Nil means os.Stderr; use io.Discard to silence it.
	Diagnostics io.Writer
}

// Stats holds allocator counters.
type Stats struct {
	AllocCalls     int   // Alloc/Calloc/Realloc-driven allocations
	FreeCalls      int   // Free/FreeSized calls and frees driven by Realloc
	ReallocCalls   int   // Realloc calls
	Failures       int   // allocations that returned ErrNoSpace
	Splits         int   // blocks split into two children
	Merges         int   // buddy pairs merged into their parent
	BytesAllocated int64 // block bytes handed out
	BytesFreed     int64 // block bytes returned
}
