// Package buf contains bounds-checked slicing and the little-endian word
// helpers used to store intrusive links inside managed memory.
package buf

import "encoding/binary"

// PutU64LE writes v as a little-endian uint64 at b[off:off+8].
func PutU64LE(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64LE reads a little-endian uint64 at b[off:off+8].
func ReadU64LE(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
