// Package arena provides a linear (bump pointer) allocator for phase-scoped
// data.
//
// An Arena hands out consecutive 16-byte aligned slices of one fixed buffer
// and never frees them individually; Reset discards everything at once.
// Overflowing an arena is a sizing bug and panics.
//
// Builds with -tags assert zero the whole buffer on Reset so stale data from
// a previous phase cannot be read back by accident.
//
// Arenas are not safe for concurrent use.
package arena
