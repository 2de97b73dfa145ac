package buddy

import (
	"github.com/joshuapare/qimem/internal/bitidx"
	"github.com/joshuapare/qimem/internal/buf"
)

// Free lists are doubly linked through the first LinkSize bytes of each free
// block: next at +0, prev at +8, both span offsets, nilLink terminated.

func (a *Allocator) head(level int) uint64 {
	return buf.ReadU64LE(a.heads, level*headSize)
}

func (a *Allocator) setHead(level int, s uint64) {
	buf.PutU64LE(a.heads, level*headSize, s)
}

func (a *Allocator) next(s int) uint64 { return buf.ReadU64LE(a.mem, s-a.pad) }
func (a *Allocator) prev(s int) uint64 { return buf.ReadU64LE(a.mem, s-a.pad+8) }

func (a *Allocator) setNext(s int, v uint64) { buf.PutU64LE(a.mem, s-a.pad, v) }
func (a *Allocator) setPrev(s int, v uint64) { buf.PutU64LE(a.mem, s-a.pad+8, v) }

// pushFree links the block at s into the front of level's list and marks it free.
func (a *Allocator) pushFree(level, s int) {
	h := a.head(level)
	a.setNext(s, h)
	a.setPrev(s, nilLink)
	if h != nilLink {
		a.setPrev(int(h), uint64(s))
	}
	a.setHead(level, uint64(s))

	bitidx.SetBit(a.freeBits, bitidx.BlockIndex(bitidx.IndexInLevel(s, a.size, level), level))
	a.freeSize += a.blockSize(level)
}

// popFree unlinks the front block of level's list.
func (a *Allocator) popFree(level int) (int, bool) {
	h := a.head(level)
	if h == nilLink {
		return 0, false
	}
	s := int(h)
	a.removeFree(level, s)
	return s, true
}

// removeFree unlinks the block at s from level's list and clears its free bit.
func (a *Allocator) removeFree(level, s int) {
	n, p := a.next(s), a.prev(s)
	if p == nilLink {
		a.setHead(level, n)
	} else {
		a.setNext(int(p), n)
	}
	if n != nilLink {
		a.setPrev(int(n), p)
	}

	bitidx.ClearBit(a.freeBits, bitidx.BlockIndex(bitidx.IndexInLevel(s, a.size, level), level))
	a.freeSize -= a.blockSize(level)
}

// freeList returns the span offsets linked at level, head first.
// It stops after limit entries when limit > 0.
func (a *Allocator) freeList(level, limit int) []int {
	var out []int
	for s := a.head(level); s != nilLink; s = a.next(int(s)) {
		out = append(out, int(s))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
