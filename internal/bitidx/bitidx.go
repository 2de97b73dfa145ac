// Package bitidx contains the index arithmetic shared by the buddy allocator
// and other packed-bitmap users.
//
// Blocks are numbered as a 0-indexed complete binary heap: the root (level 0)
// is block 0, its children are 1 and 2, and block i at level L has children
// 2i+1 and 2i+2 at level L+1. All functions are pure.
package bitidx

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// BlockSizeOfLevel returns the size of every block at level for a tree whose
// root spans total bytes.
func BlockSizeOfLevel(total, level int) int {
	return total >> level
}

// BlockIndex returns the heap index of the idx-th block of level.
func BlockIndex(idx, level int) int {
	return (1 << level) + idx - 1
}

// IndexInLevel returns the position within level of the block starting at off.
// off is a span offset and must be aligned to the level's block size.
func IndexInLevel(off, total, level int) int {
	return off / BlockSizeOfLevel(total, level)
}

// OffsetInLevel is the inverse of IndexInLevel.
func OffsetInLevel(idx, total, level int) int {
	return idx * BlockSizeOfLevel(total, level)
}

// BuddyOffset returns the offset of the right sibling of the left child at off.
// Only meaningful when off is a left child; the general buddy of block idx is idx^1.
func BuddyOffset(off, total, level int) int {
	return off + BlockSizeOfLevel(total, level)
}

// NextHigherPow2 returns the smallest power of two >= v.
// Zero maps to zero; callers clamp to their own minimum.
func NextHigherPow2[T constraints.Unsigned](v T) T {
	if v == 0 {
		return 0
	}
	v--
	for shift := uint(1); shift < width[T](); shift <<= 1 {
		v |= v >> shift
	}
	return v + 1
}

// BitScanRight returns the 1-based position of the lowest set bit of v,
// or 0 when v is zero.
func BitScanRight[T constraints.Unsigned](v T) int {
	if v == 0 {
		return 0
	}
	return bits.TrailingZeros64(uint64(v)) + 1
}

// Log2 returns log2(v) for a power of two v.
func Log2[T constraints.Unsigned](v T) int {
	return BitScanRight(v) - 1
}

// IsPow2 reports whether v is a non-zero power of two.
func IsPow2[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// AlignUp rounds n up to the next multiple of align, which must be a power of two.
//
// Example:
//
//	AlignUp(1, 16)  = 16
//	AlignUp(16, 16) = 16
//	AlignUp(17, 16) = 32
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// width returns the bit width of T.
func width[T constraints.Unsigned]() uint {
	var zero T
	return uint(bits.Len64(uint64(^zero)))
}
