// Package region provides the raw memory region every other allocator is
// carved from.
//
// A Memory reserves one block at start-up and splits it into a permanent and
// a transient Region. Each Region is a bump allocator: its cursor only moves
// forward and every allocation starts on a 16-byte boundary. Running out of
// space is a configuration bug, so Alloc panics; TryAlloc reports ErrExhausted
// for callers that size things dynamically.
//
// Regions are not safe for concurrent use.
package region

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/qimem/internal/bitidx"
	"github.com/joshuapare/qimem/internal/buf"
	"github.com/joshuapare/qimem/internal/logger"
	"github.com/joshuapare/qimem/internal/vmem"
)

// Alignment is the byte alignment of every region allocation.
const Alignment = 16

// maxRegionSize keeps cursor arithmetic well clear of int overflow.
const maxRegionSize = math.MaxInt >> 1

// Region is a bump allocator over a fixed byte span.
type Region struct {
	name   string
	base   []byte
	cursor int
}

// NewRegion wraps base as a region. The usable capacity is len(base).
func NewRegion(name string, base []byte) *Region {
	return &Region{name: name, base: base}
}

// Alloc returns n bytes from the region. It panics when the region is exhausted.
func (r *Region) Alloc(n int) []byte {
	b, err := r.TryAlloc(n)
	if err != nil {
		panic(fmt.Sprintf("%s region: %v", r.name, err))
	}
	return b
}

// TryAlloc returns n bytes from the region, or ErrExhausted without moving the cursor.
func (r *Region) TryAlloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("alloc %d: %w", n, ErrBadSize)
	}
	off := bitidx.AlignUp(r.cursor, Alignment)
	if _, err := buf.CheckSpan(len(r.base), off, n); err != nil {
		return nil, fmt.Errorf("alloc %d (used %d of %d): %w", n, r.cursor, len(r.base), ErrExhausted)
	}
	r.cursor = off + n
	b, _ := buf.Slice(r.base, off, n)
	return b, nil
}

// Name returns the region's label.
func (r *Region) Name() string { return r.name }

// Capacity returns the total number of bytes the region manages.
func (r *Region) Capacity() int { return len(r.base) }

// Used returns the cursor position.
func (r *Region) Used() int { return r.cursor }

// Remaining returns the bytes still available before alignment padding.
func (r *Region) Remaining() int { return len(r.base) - r.cursor }

// Memory owns the process reservation and its two regions.
type Memory struct {
	Permanent *Region
	Transient *Region

	config  Config
	release func() error
}

// New reserves cfg.Total() bytes and splits them into the two regions.
func New(cfg Config) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	perm := alignUp(cfg.PermanentSize)
	total := cfg.Total()
	if total > maxRegionSize {
		return nil, fmt.Errorf("region: reservation of %s too large: %w", humanize.IBytes(uint64(total)), ErrBadSize)
	}

	data, release, err := vmem.Reserve(total)
	if err != nil {
		return nil, fmt.Errorf("region: reserve: %w", err)
	}

	m := &Memory{
		Permanent: NewRegion("permanent", data[:cfg.PermanentSize:cfg.PermanentSize]),
		Transient: NewRegion("transient", data[perm:perm+cfg.TransientSize:perm+cfg.TransientSize]),
		config:    cfg,
		release:   release,
	}
	logger.Info("region: reserved memory", "config", cfg.String(), "total", total)
	return m, nil
}

// Region returns the transient region when transient is set, else the permanent one.
func (m *Memory) Region(transient bool) *Region {
	if transient {
		return m.Transient
	}
	return m.Permanent
}

// AllocatePermanent bump-allocates n bytes from permanent storage. Panics on overflow.
func (m *Memory) AllocatePermanent(n int) []byte {
	return m.Permanent.Alloc(n)
}

// AllocateTransient bump-allocates n bytes from transient storage. Panics on overflow.
func (m *Memory) AllocateTransient(n int) []byte {
	return m.Transient.Alloc(n)
}

// Config returns the configuration the memory was reserved with.
func (m *Memory) Config() Config { return m.config }

// Close releases the reservation. Every slice handed out becomes invalid.
func (m *Memory) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.release = nil
	m.Permanent.base, m.Permanent.cursor = nil, 0
	m.Transient.base, m.Transient.cursor = nil, 0
	return err
}

func alignUp(n int) int {
	return bitidx.AlignUp(max(n, 0), Alignment)
}
