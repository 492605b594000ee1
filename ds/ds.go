// Package ds implements the DS primitive: a handle allocator that, in
// addition to h32's generation-stamped handles, keeps every live record
// packed contiguously in [0, size) by swapping the back-most record into
// any hole a release opens up. It is built by composition on top of h32,
// exactly as spec'd: a DS record is h32's slot word followed by a
// dense_index/sparse_index pair and the caller's own payload, all accessed
// through h32's existing stride machinery (h32 just sees a wider payload).
// Grounded on the teacher package's layered construction, where a storage
// variant (dense.go) is itself built from lower-level register primitives
// rather than reimplementing byte layout from scratch.
package ds

import (
	"encoding/binary"

	"github.com/incrediblejr/handlealloc/h32"
)

// InvalidIndex mirrors h32.InvalidIndex for DS-level results (dense index
// queries, release reports) so callers never need to import h32 merely to
// compare against the sentinel.
const InvalidIndex uint32 = h32.InvalidIndex

const bookkeepingSize = 8 // dense_index(4) + sparse_index(4)

// Config composes h32's configuration with the DS bookkeeping fields; the
// caller's own payload (if any) is appended after dense_index/sparse_index.
type Config struct {
	Capacity       uint32
	UserflagBits   uint32
	GenerationBits uint32
	Policy         h32.Policy
	Layout         h32.Layout
	PayloadSize    uint32
}

// Allocator is a dense/sparse handle allocator over caller-supplied memory.
// The zero value is not usable; construct with Init.
type Allocator struct {
	h           *h32.Allocator
	payloadSize uint32
}

// MemorySizeNeeded returns the number of bytes the caller must allocate and
// pass to Init for the given DS configuration.
func MemorySizeNeeded(capacity, payloadSize uint32) uint32 {
	return h32.MemorySizeNeeded(capacity, bookkeepingSize+payloadSize, false)
}

// Init carves mem into capacityRounded DS records and resets the allocator
// to its post-init empty state.
func Init(cfg Config, mem []byte) (*Allocator, error) {
	hcfg := h32.Config{
		Capacity:       cfg.Capacity,
		UserflagBits:   cfg.UserflagBits,
		GenerationBits: cfg.GenerationBits,
		Policy:         cfg.Policy,
		Layout:         cfg.Layout,
		PayloadSize:    bookkeepingSize + cfg.PayloadSize,
	}

	h, errs := h32.Init(hcfg, mem)
	if errs != 0 {
		return nil, errs
	}

	d := &Allocator{h: h, payloadSize: cfg.PayloadSize}
	d.ResetIdentity()
	return d, nil
}

// ResetIdentity returns the allocator to its post-init empty state, as
// Init leaves it. Bookkeeping words need no explicit clearing: they are
// only ever read for sparse indices h32 currently reports live, and h32's
// own Reset already clears its notion of liveness.
func (d *Allocator) ResetIdentity() {
	d.h.Reset()
}

// Capacity returns the usable handle count.
func (d *Allocator) Capacity() uint32 { return d.h.Capacity() }

// Size returns the number of live handles, equivalently the exclusive end
// of the packed dense region [0, Size()).
func (d *Allocator) Size() uint32 { return d.h.Size() }

// Acquire hands out a new handle and returns its dense index (its position
// in the packed [0, size) region) and the handle itself.
func (d *Allocator) Acquire(userflags uint32) (uint32, h32.Handle) {
	s, h := d.h.Acquire(userflags)
	if s == h32.InvalidIndex {
		return InvalidIndex, 0
	}

	dIdx := d.h.Size() - 1
	d.setDenseIndex(s, dIdx)
	d.setSparseIndex(dIdx, s)
	return dIdx, h
}

// Release frees h, swapping the back-most live record into the hole it
// leaves (unless h was already the back-most record). moveFrom/moveTo name
// the dense indices the caller must mirror the move at in any external
// parallel array it keeps alongside DS; isBack reports whether no swap was
// needed (moveFrom == moveTo == the released slot's own former dense index).
func (d *Allocator) Release(h h32.Handle) (moveFrom, moveTo uint32, isBack bool) {
	s := d.h.Release(h)
	if s == h32.InvalidIndex {
		return InvalidIndex, InvalidIndex, false
	}

	sizeAfter := d.h.Size()
	dRemoved := d.getDenseIndex(s)

	if dRemoved != sizeAfter {
		backS := d.getSparseIndex(sizeAfter)
		d.setDenseIndex(backS, dRemoved)
		d.setSparseIndex(dRemoved, backS)
	}
	d.setDenseIndex(s, InvalidIndex)

	return sizeAfter, dRemoved, dRemoved == sizeAfter
}

// DenseIndex returns h's current position in the packed [0, size) region,
// or InvalidIndex if h is stale. Unlike the sparse index baked into h
// itself, the dense index changes over time as other handles are released.
func (d *Allocator) DenseIndex(h h32.Handle) uint32 {
	if !d.h.Valid(h) {
		return InvalidIndex
	}
	return d.getDenseIndex(d.h.Index(h))
}

// Payload returns the caller payload bytes for the handle at sparse index
// i (as reported by h32.Index or walked via Walk). Returns nil if this
// allocator was configured with no payload.
func (d *Allocator) Payload(sparseIndex uint32) []byte {
	if d.payloadSize == 0 {
		return nil
	}
	return d.h.Userdata(sparseIndex)[bookkeepingSize:]
}

// Walk visits every live handle in dense order, from index 0 to Size()-1.
// fn is called with each handle's current dense index and handle word; it
// must not call Acquire or Release on d.
func (d *Allocator) Walk(fn func(denseIndex uint32, h h32.Handle)) {
	n := d.h.Size()
	for dIdx := uint32(0); dIdx < n; dIdx++ {
		s := d.getSparseIndex(dIdx)
		h, ok := d.h.HandleAt(s)
		if !ok {
			continue
		}
		fn(dIdx, h)
	}
}

func (d *Allocator) getDenseIndex(sparseIndex uint32) uint32 {
	buf := d.h.Userdata(sparseIndex)
	return binary.LittleEndian.Uint32(buf[0:4])
}

func (d *Allocator) setDenseIndex(sparseIndex, v uint32) {
	buf := d.h.Userdata(sparseIndex)
	binary.LittleEndian.PutUint32(buf[0:4], v)
}

func (d *Allocator) getSparseIndex(denseIndex uint32) uint32 {
	// Every physical record, live or not, has a sparse_index slot; the
	// dense-position reverse lookup repurposes record[d] (d < size <=
	// capacity, always a valid physical record) to answer "which sparse
	// index currently occupies packed position d".
	buf := d.h.Userdata(denseIndex)
	return binary.LittleEndian.Uint32(buf[4:8])
}

func (d *Allocator) setSparseIndex(denseIndex, v uint32) {
	buf := d.h.Userdata(denseIndex)
	binary.LittleEndian.PutUint32(buf[4:8], v)
}
