package buddy

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/qimem/internal/bitidx"
)

// maxDumpBits caps the bitmap bits printed per level.
const maxDumpBits = 128

// Dump writes a human-readable snapshot of the allocator to w: geometry,
// free-list lengths per level and both bitmaps in binary.
func (a *Allocator) Dump(w io.Writer) error {
	var b bytes.Buffer
	p := message.NewPrinter(language.English)

	p.Fprintf(&b, "\n=== BUDDY ALLOCATOR STATE ===\n")
	p.Fprintf(&b, "span: %d bytes (actual %d, pad %d, memStart %d)\n",
		a.size, a.actualSize, a.pad, a.memStart)
	p.Fprintf(&b, "levels: %d, min block: %d, overhead: %d bytes", a.maxLevel+1, a.MinBlockSize(), len(a.meta))
	if a.metaRef != NilRef {
		p.Fprintf(&b, " (embedded at ref %d)", int(a.metaRef))
	}
	p.Fprintf(&b, "\nfree: %d bytes\n", a.freeSize)
	p.Fprintf(&b, "stats: allocs=%d frees=%d reallocs=%d failures=%d splits=%d merges=%d\n",
		a.stats.AllocCalls, a.stats.FreeCalls, a.stats.ReallocCalls,
		a.stats.Failures, a.stats.Splits, a.stats.Merges)

	for level := 0; level <= a.maxLevel; level++ {
		n := 1 << level
		shown := min(n, maxDumpBits)
		list := a.freeList(level, 0)

		p.Fprintf(&b, "  L%-2d block=%-8d free=%d", level, a.blockSize(level), len(list))
		if len(list) > 0 {
			p.Fprintf(&b, " head=%d", list[0]-a.pad)
		}
		b.WriteByte('\n')

		b.WriteString("      free  ")
		b.WriteString(bitidx.FormatBits(a.freeBits, bitidx.BlockIndex(0, level), shown))
		if shown < n {
			b.WriteString(" ...")
		}
		b.WriteByte('\n')
		if level < a.maxLevel {
			b.WriteString("      split ")
			b.WriteString(bitidx.FormatBits(a.splitBits, bitidx.BlockIndex(0, level), shown))
			if shown < n {
				b.WriteString(" ...")
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString("=== END ===\n")

	_, err := w.Write(b.Bytes())
	return err
}

// CheckInvariants walks the block tree and every free list and reports the
// first inconsistency between them, or nil.
func (a *Allocator) CheckInvariants() error {
	if err := a.checkTree(0, 0); err != nil {
		return err
	}

	total := 0
	for level := 0; level <= a.maxLevel; level++ {
		n, err := a.checkList(level)
		if err != nil {
			return err
		}
		bits := bitidx.CountBits(a.freeBits, bitidx.BlockIndex(0, level), 1<<level)
		if bits != n {
			return fmt.Errorf("level %d: %d free bits but %d listed blocks", level, bits, n)
		}
		total += n * a.blockSize(level)
	}
	if total != a.freeSize {
		return fmt.Errorf("free lists hold %d bytes, freeSize is %d", total, a.freeSize)
	}
	return nil
}

func (a *Allocator) checkTree(level, idx int) error {
	bi := bitidx.BlockIndex(idx, level)
	free := bitidx.TestBit(a.freeBits, bi)
	split := level < a.maxLevel && bitidx.TestBit(a.splitBits, bi)

	switch {
	case free && split:
		return fmt.Errorf("block %d (level %d) is both free and split", idx, level)
	case split:
		l, r := bitidx.BlockIndex(2*idx, level+1), bitidx.BlockIndex(2*idx+1, level+1)
		if bitidx.TestBit(a.freeBits, l) && bitidx.TestBit(a.freeBits, r) {
			return fmt.Errorf("block %d (level %d) is split with both children free", idx, level)
		}
		if err := a.checkTree(level+1, 2*idx); err != nil {
			return err
		}
		return a.checkTree(level+1, 2*idx+1)
	default:
		// Free, allocated and phantom blocks own their whole subtree.
		return a.checkSubtreeClear(level+1, 2*idx, level)
	}
}

func (a *Allocator) checkSubtreeClear(level, idx, owner int) error {
	if level > a.maxLevel {
		return nil
	}
	bi := bitidx.BlockIndex(idx, level)
	if bitidx.TestBit(a.freeBits, bi) {
		return fmt.Errorf("block %d (level %d) is free inside an unsplit level-%d block", idx, level, owner)
	}
	if level < a.maxLevel && bitidx.TestBit(a.splitBits, bi) {
		return fmt.Errorf("block %d (level %d) is split inside an unsplit level-%d block", idx, level, owner)
	}
	if err := a.checkSubtreeClear(level+1, 2*idx, owner); err != nil {
		return err
	}
	return a.checkSubtreeClear(level+1, 2*idx+1, owner)
}

var errCycle = errors.New("free list cycle")

// checkList validates the links of level's free list and returns its length.
func (a *Allocator) checkList(level int) (int, error) {
	bs := a.blockSize(level)
	limit := 1 << level
	prev := nilLink
	n := 0
	for s := a.head(level); s != nilLink; s = a.next(int(s)) {
		if n++; n > limit {
			return 0, fmt.Errorf("level %d: %w", level, errCycle)
		}
		off := int(s)
		if off < a.memStart || off+bs > a.size || off%bs != 0 {
			return 0, fmt.Errorf("level %d: bad free block offset %d", level, off)
		}
		if a.prev(off) != prev {
			return 0, fmt.Errorf("level %d: block %d has prev %d, want %d", level, off, a.prev(off), prev)
		}
		if !bitidx.TestBit(a.freeBits, bitidx.BlockIndex(bitidx.IndexInLevel(off, a.size, level), level)) {
			return 0, fmt.Errorf("level %d: listed block %d has no free bit", level, off)
		}
		prev = s
	}
	return n, nil
}
