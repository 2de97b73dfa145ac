// Package vmem reserves the single block of memory the raw memory region is
// carved from. On unix the block is an anonymous private mapping so it never
// moves and is never scanned by the garbage collector.
package vmem
