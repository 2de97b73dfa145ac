package buddy

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/qimem/internal/bitidx"
	"github.com/joshuapare/qimem/internal/debug"
	"github.com/joshuapare/qimem/internal/logger"
	"github.com/joshuapare/qimem/mem/region"
)

// Runtime debug flag for allocation logging - controlled by QI_LOG_ALLOC env var.
var logAlloc = os.Getenv("QI_LOG_ALLOC") != ""

// Allocator is a buddy allocator over a fixed buffer.
type Allocator struct {
	mem []byte // caller buffer, len == actualSize

	size       int // span size, power of two >= actualSize
	actualSize int
	pad        int // span offset of mem[0]
	memStart   int // first span offset that may be handed out
	freeSize   int

	minSizeShift int
	maxLevel     int

	// meta holds [heads][splitBits][freeBits]; the three fields below alias it.
	meta      []byte
	heads     []byte
	splitBits []byte
	freeBits  []byte
	metaRef   Ref // block holding meta when embedded, else NilRef

	diag  io.Writer
	stats Stats
}

// New creates an allocator managing buf with blocks no smaller than minBlock.
//
// minBlock is rounded up to a power of two and must be at least LinkSize.
// buf need not be a power of two long; see the package documentation.
func New(buf []byte, minBlock int, opts *Options) (*Allocator, error) {
	return newAllocator(buf, minBlock, opts, func(n int) ([]byte, error) {
		return make([]byte, n), nil
	})
}

// NewFromRegion carves size bytes from the permanent (or transient) region of
// m and manages them. Unless metadata is embedded, it is carved from the same
// region.
func NewFromRegion(m *region.Memory, size, minBlock int, transient bool, opts *Options) (*Allocator, error) {
	r := m.Region(transient)
	buf, err := r.TryAlloc(size)
	if err != nil {
		return nil, fmt.Errorf("buddy: carve %d bytes from %s region: %w", size, r.Name(), err)
	}
	return newAllocator(buf, minBlock, opts, r.TryAlloc)
}

func newAllocator(buf []byte, minBlock int, opts *Options, metaAlloc func(int) ([]byte, error)) (*Allocator, error) {
	if opts == nil {
		opts = &Options{}
	}
	if minBlock <= 0 {
		return nil, fmt.Errorf("minimum block %d: %w", minBlock, ErrBlockTooSmall)
	}
	minBlock = int(bitidx.NextHigherPow2(uint(minBlock)))
	if minBlock < LinkSize {
		return nil, fmt.Errorf("minimum block %d < %d: %w", minBlock, LinkSize, ErrBlockTooSmall)
	}
	actual := len(buf)
	if actual < minBlock {
		return nil, fmt.Errorf("buffer %d < minimum block %d: %w", actual, minBlock, ErrBufferTooSmall)
	}
	size := int(bitidx.NextHigherPow2(uint(actual)))
	if size%minBlock != 0 {
		return nil, fmt.Errorf("size %d, minimum block %d: %w", size, minBlock, ErrSizeNotMultiple)
	}

	a := &Allocator{
		mem:          buf,
		size:         size,
		actualSize:   actual,
		pad:          size - actual,
		minSizeShift: bitidx.Log2(uint(minBlock)),
		maxLevel:     bitidx.Log2(uint(size / minBlock)),
		metaRef:      NilRef,
		diag:         opts.Diagnostics,
	}
	a.memStart = bitidx.AlignUp(a.pad, minBlock)
	if a.diag == nil {
		a.diag = os.Stderr
	}

	// Metadata is always built outside the span first. When embedding, the
	// block that will hold it is allocated through the finished free lists and
	// the metadata is then relocated into it.
	a.bindMeta(make([]byte, a.metaSize()))
	for level := 0; level <= a.maxLevel; level++ {
		a.setHead(level, nilLink)
	}
	a.initFreeLists(0, 0)

	if opts.EmbedMetadata {
		ref, block, err := a.Alloc(len(a.meta))
		if err != nil {
			return nil, fmt.Errorf("buddy: embed %d bytes of metadata: %w", len(a.meta), err)
		}
		n := copy(block, a.meta)
		a.bindMeta(block[:n:n])
		a.metaRef = ref
	} else {
		meta, err := metaAlloc(len(a.meta))
		if err != nil {
			return nil, fmt.Errorf("buddy: allocate %d bytes of metadata: %w", len(a.meta), err)
		}
		copy(meta, a.meta)
		a.bindMeta(meta)
	}
	a.stats = Stats{}

	logger.Debug("buddy: initialized",
		"size", a.size, "actual", a.actualSize, "minBlock", minBlock,
		"maxLevel", a.maxLevel, "overhead", len(a.meta), "embedded", opts.EmbedMetadata)
	return a, nil
}

// metaSize returns the bytes needed for the heads and both bitmaps.
func (a *Allocator) metaSize() int {
	return (a.maxLevel+1)*headSize +
		bitidx.BitmapBytes(1<<a.maxLevel) +
		bitidx.BitmapBytes(1<<(a.maxLevel+1))
}

// bindMeta points heads and bitmaps at meta.
func (a *Allocator) bindMeta(meta []byte) {
	headsEnd := (a.maxLevel + 1) * headSize
	splitEnd := headsEnd + bitidx.BitmapBytes(1<<a.maxLevel)
	a.meta = meta
	a.heads = meta[:headsEnd:headsEnd]
	a.splitBits = meta[headsEnd:splitEnd:splitEnd]
	a.freeBits = meta[splitEnd:]
}

// initFreeLists walks the tree from the block idx of level. Blocks entirely
// below memStart are phantom padding, blocks straddling it are split, and
// everything else becomes free.
func (a *Allocator) initFreeLists(level, idx int) {
	bs := a.blockSize(level)
	start := idx * bs
	end := start + bs
	switch {
	case end <= a.memStart:
		return
	case start >= a.memStart:
		a.pushFree(level, start)
	default:
		bitidx.SetBit(a.splitBits, bitidx.BlockIndex(idx, level))
		a.initFreeLists(level+1, 2*idx)
		a.initFreeLists(level+1, 2*idx+1)
	}
}

// Alloc returns a block of NextHigherPow2(max(n, MinBlockSize())) bytes.
// On exhaustion it dumps the allocator state and returns ErrNoSpace.
func (a *Allocator) Alloc(n int) (Ref, []byte, error) {
	a.stats.AllocCalls++
	if n < 0 {
		return NilRef, nil, fmt.Errorf("alloc %d: %w", n, ErrBadSize)
	}
	if n > a.size {
		return NilRef, nil, fmt.Errorf("alloc %d > %d: %w", n, a.size, ErrTooLarge)
	}

	level := a.levelForSize(n)
	s, ok := a.allocBlockOfLevel(level)
	if !ok {
		a.stats.Failures++
		logger.Warn("buddy: allocation failed",
			"request", n, "block", a.blockSize(level), "level", level, "free", a.freeSize)
		if err := a.Dump(a.diag); err != nil {
			logger.Error("buddy: write diagnostics", "err", err)
		}
		return NilRef, nil, fmt.Errorf("alloc %d: %w", n, ErrNoSpace)
	}

	bs := a.blockSize(level)
	a.stats.BytesAllocated += int64(bs)
	ref := Ref(s - a.pad)
	if logAlloc && logger.Enabled(slog.LevelDebug) {
		logger.Debug("buddy: alloc", "request", n, "block", bs, "ref", int(ref), "level", level)
	}
	return ref, a.slice(s, bs), nil
}

// Calloc is Alloc followed by zeroing the whole block.
func (a *Allocator) Calloc(n int) (Ref, []byte, error) {
	ref, block, err := a.Alloc(n)
	if err != nil {
		return NilRef, nil, err
	}
	clear(block)
	return ref, block, nil
}

// Realloc resizes the block at ref to hold n bytes.
//
// A NilRef behaves like Alloc and n == 0 frees the block and returns NilRef.
// If n still fits the current block the same ref is returned. Otherwise a new
// block is allocated before the old one is released, its contents copied, and
// the old block freed. On failure the old block is left untouched.
func (a *Allocator) Realloc(ref Ref, n int) (Ref, []byte, error) {
	a.stats.ReallocCalls++
	if ref == NilRef {
		return a.Alloc(n)
	}
	if n == 0 {
		return NilRef, nil, a.Free(ref)
	}
	if n < 0 {
		return NilRef, nil, fmt.Errorf("realloc %d: %w", n, ErrBadSize)
	}

	s, err := a.spanOffset(ref)
	if err != nil {
		return NilRef, nil, err
	}
	level := a.findLevelForBlock(s)
	bs := a.blockSize(level)
	old := a.slice(s, bs)
	if n <= bs {
		return ref, old, nil
	}

	newRef, block, err := a.Alloc(n)
	if err != nil {
		return NilRef, nil, err
	}
	copy(block, old)
	a.release(s, level)
	return newRef, block, nil
}

// Free returns the block at ref. The block's level is recovered from the
// split bitmap.
func (a *Allocator) Free(ref Ref) error {
	s, err := a.spanOffset(ref)
	if err != nil {
		return err
	}
	a.release(s, a.findLevelForBlock(s))
	return nil
}

// FreeSized returns the block at ref whose requested (or block) size is n,
// skipping the level search.
func (a *Allocator) FreeSized(ref Ref, n int) error {
	s, err := a.spanOffset(ref)
	if err != nil {
		return err
	}
	if n < 0 || n > a.size {
		return fmt.Errorf("free %d bytes at %d: %w", n, ref, ErrBadSize)
	}
	level := a.levelForSize(n)
	if s%a.blockSize(level) != 0 {
		return fmt.Errorf("free %d bytes at %d: %w", n, ref, ErrBadRef)
	}
	a.release(s, level)
	return nil
}

// Block returns the full block at ref.
func (a *Allocator) Block(ref Ref) ([]byte, error) {
	s, err := a.spanOffset(ref)
	if err != nil {
		return nil, err
	}
	return a.slice(s, a.blockSize(a.findLevelForBlock(s))), nil
}

// BlockSize returns the size of the block at ref.
func (a *Allocator) BlockSize(ref Ref) (int, error) {
	s, err := a.spanOffset(ref)
	if err != nil {
		return 0, err
	}
	return a.blockSize(a.findLevelForBlock(s)), nil
}

func (a *Allocator) release(s, level int) {
	a.stats.FreeCalls++
	idx := bitidx.IndexInLevel(s, a.size, level)
	debug.Assertf(!bitidx.TestBit(a.freeBits, bitidx.BlockIndex(idx, level)),
		"buddy: double free of span offset %d at level %d", s, level)
	debug.Assert(a.metaRef == NilRef || s != a.metaRef.spanOffset(a.pad),
		"buddy: freeing the embedded metadata block")

	bs := a.blockSize(level)
	a.stats.BytesFreed += int64(bs)
	if logAlloc && logger.Enabled(slog.LevelDebug) {
		logger.Debug("buddy: free", "ref", s-a.pad, "block", bs, "level", level)
	}
	a.freeBlockOfLevel(s, level)
}

// allocBlockOfLevel pops a free block of level, splitting ancestors as needed.
func (a *Allocator) allocBlockOfLevel(level int) (int, bool) {
	if s, ok := a.popFree(level); ok {
		return s, true
	}
	if level == 0 {
		return 0, false
	}
	parent, ok := a.allocBlockOfLevel(level - 1)
	if !ok {
		return 0, false
	}
	a.splitBlock(parent, level-1)
	return a.popFree(level)
}

// splitBlock marks the allocated block at s as split and frees both halves.
// The left half is pushed last so it is handed out first.
func (a *Allocator) splitBlock(s, level int) {
	a.stats.Splits++
	idx := bitidx.IndexInLevel(s, a.size, level)
	bitidx.SetBit(a.splitBits, bitidx.BlockIndex(idx, level))
	half := a.blockSize(level + 1)
	a.pushFree(level+1, s+half)
	a.pushFree(level+1, s)
}

// freeBlockOfLevel merges the block at s with its buddy while the buddy is
// free, then links the result into its level's free list.
func (a *Allocator) freeBlockOfLevel(s, level int) {
	for level > 0 {
		idx := bitidx.IndexInLevel(s, a.size, level)
		buddyIdx := idx ^ 1
		if !bitidx.TestBit(a.freeBits, bitidx.BlockIndex(buddyIdx, level)) {
			break
		}
		buddy := bitidx.OffsetInLevel(buddyIdx, a.size, level)
		a.removeFree(level, buddy)
		bitidx.ClearBit(a.splitBits, bitidx.BlockIndex(idx>>1, level-1))
		s = min(s, buddy)
		level--
		a.stats.Merges++
	}
	a.pushFree(level, s)
}

// findLevelForBlock returns the level a live block at s was allocated at: the
// deepest level whose parent block is split.
func (a *Allocator) findLevelForBlock(s int) int {
	for level := a.maxLevel; level > 0; level-- {
		parent := bitidx.IndexInLevel(s, a.size, level-1)
		if bitidx.TestBit(a.splitBits, bitidx.BlockIndex(parent, level-1)) {
			return level
		}
	}
	return 0
}

// levelForSize returns the level whose blocks hold n bytes.
func (a *Allocator) levelForSize(n int) int {
	bs := max(int(bitidx.NextHigherPow2(uint(n))), a.MinBlockSize())
	return a.maxLevel - bitidx.Log2(uint(bs>>a.minSizeShift))
}

// spanOffset validates ref and converts it to a span offset.
func (a *Allocator) spanOffset(ref Ref) (int, error) {
	if ref < 0 || int(ref) >= a.actualSize {
		return 0, fmt.Errorf("ref %d outside [0, %d): %w", ref, a.actualSize, ErrBadRef)
	}
	s := ref.spanOffset(a.pad)
	if s < a.memStart || s&(a.MinBlockSize()-1) != 0 {
		return 0, fmt.Errorf("ref %d not on a block boundary: %w", ref, ErrBadRef)
	}
	return s, nil
}

func (r Ref) spanOffset(pad int) int { return int(r) + pad }

func (a *Allocator) blockSize(level int) int {
	return bitidx.BlockSizeOfLevel(a.size, level)
}

// slice returns the n bytes at span offset s with capacity clipped to n.
func (a *Allocator) slice(s, n int) []byte {
	off := s - a.pad
	return a.mem[off : off+n : off+n]
}

// Size returns the power-of-two span size.
func (a *Allocator) Size() int { return a.size }

// ActualSize returns the length of the managed buffer.
func (a *Allocator) ActualSize() int { return a.actualSize }

// FreeSize returns the bytes currently linked in free lists.
func (a *Allocator) FreeSize() int { return a.freeSize }

// MinBlockSize returns the smallest block size.
func (a *Allocator) MinBlockSize() int { return 1 << a.minSizeShift }

// MaxLevel returns the level of the smallest blocks.
func (a *Allocator) MaxLevel() int { return a.maxLevel }

// Overhead returns the metadata size in bytes.
func (a *Allocator) Overhead() int { return len(a.meta) }

// MetadataRef returns the block holding embedded metadata, or NilRef.
func (a *Allocator) MetadataRef() Ref { return a.metaRef }

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats { return a.stats }
