package bitidx

import (
	"strings"
)

// Bitmaps are packed LSB first: bit i lives in byte i>>3 under mask 1<<(i&7).

// BitmapBytes returns the number of bytes needed to hold nbits bits.
func BitmapBytes(nbits int) int {
	return (nbits + 7) >> 3
}

// TestBit reports whether bit i of bitmap is set.
func TestBit(bitmap []byte, i int) bool {
	return bitmap[i>>3]&(1<<(uint(i)&7)) != 0
}

// SetBit sets bit i of bitmap.
func SetBit(bitmap []byte, i int) {
	bitmap[i>>3] |= 1 << (uint(i) & 7)
}

// ClearBit clears bit i of bitmap.
func ClearBit(bitmap []byte, i int) {
	bitmap[i>>3] &^= 1 << (uint(i) & 7)
}

// SetBitTo sets bit i of bitmap to v.
func SetBitTo(bitmap []byte, i int, v bool) {
	if v {
		SetBit(bitmap, i)
	} else {
		ClearBit(bitmap, i)
	}
}

// CountBits returns the number of set bits in [from, from+n).
func CountBits(bitmap []byte, from, n int) int {
	count := 0
	for i := from; i < from+n; i++ {
		if TestBit(bitmap, i) {
			count++
		}
	}
	return count
}

// FormatBits renders bits [from, from+n) as a string of '0' and '1',
// grouped in runs of eight separated by a space.
func FormatBits(bitmap []byte, from, n int) string {
	var sb strings.Builder
	sb.Grow(n + n/8)
	for i := range n {
		if i > 0 && i%8 == 0 {
			sb.WriteByte(' ')
		}
		if TestBit(bitmap, from+i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
