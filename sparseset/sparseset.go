// Package sparseset implements the SS primitive: a fixed-capacity pair of
// parallel index arrays (dense, sparse) supporting O(1) add/remove/has with
// the classic swap-to-back trick, plus a reset_identity mode that turns the
// same structure into a standalone LIFO handle allocator. Grounded on the
// teacher package's width-dispatched storage variants (dense.go/sparse.go)
// generalized from run-length-encoded registers to plain fixed-width index
// slots; accessor dispatch follows storage.go's interface-per-variant idea
// via function pointers instead of an interface, matching h32's policy
// dispatch style.
package sparseset

import "errors"

// InvalidIndex is returned wherever an operation cannot report a dense
// index: Remove on an index that is not present, or DenseAt/SparseAt out
// of range.
const InvalidIndex uint32 = 0xFFFFFFFF

// ErrCapacityExceedsWidth is returned by Init when capacity does not fit in
// the requested element width.
var ErrCapacityExceedsWidth = errors.New("sparseset: capacity does not fit in the requested element width")

// Config describes the fixed capacity and element width of a set.
type Config struct {
	// Capacity bounds the sparse index domain: valid s satisfies s < Capacity.
	Capacity uint32

	// Width selects the per-element byte width. Zero means "narrowest width
	// that fits Capacity" (see WidthFor).
	Width ElementWidth
}

// Set is a fixed-capacity sparse set over caller-supplied dense and sparse
// backing arrays. The zero value is not usable; construct with Init.
type Set struct {
	dense  []byte
	sparse []byte

	width ElementWidth
	get   getFn
	set   setFn

	capacity uint32
	size     uint32
}

// MemorySizeNeeded returns the number of bytes each of the dense and sparse
// arrays must hold for the given capacity and width (the two arrays are the
// same size; Init takes them as two separate slices so callers are free to
// place them anywhere in their own memory).
func MemorySizeNeeded(capacity uint32, width ElementWidth) uint32 {
	if width == 0 {
		width = WidthFor(capacity)
	}
	return capacity * uint32(width)
}

// Init constructs a Set of the given capacity over dense and sparse, each of
// which must be at least MemorySizeNeeded(cfg.Capacity, cfg.Width) bytes.
func Init(cfg Config, dense, sparse []byte) (*Set, error) {
	width := cfg.Width
	if width == 0 {
		width = WidthFor(cfg.Capacity)
	}
	switch width {
	case Width1:
		if cfg.Capacity > 1<<8 {
			return nil, ErrCapacityExceedsWidth
		}
	case Width2:
		if cfg.Capacity > 1<<16 {
			return nil, ErrCapacityExceedsWidth
		}
	case Width4:
		// no upper bound tighter than uint32 itself
	default:
		return nil, errors.New("sparseset: invalid element width")
	}

	need := MemorySizeNeeded(cfg.Capacity, width)
	if uint32(len(dense)) < need || uint32(len(sparse)) < need {
		return nil, errors.New("sparseset: dense/sparse buffers too small for capacity and width")
	}

	get, set := accessorsFor(width)
	s := &Set{
		dense:    dense,
		sparse:   sparse,
		width:    width,
		get:      get,
		set:      set,
		capacity: cfg.Capacity,
	}
	s.ResetIdentity()
	return s, nil
}

// Capacity returns the fixed sparse index domain size.
func (s *Set) Capacity() uint32 { return s.capacity }

// Size returns the number of elements currently present.
func (s *Set) Size() uint32 { return s.size }

// Has reports whether sparse index idx is currently present. The
// dense[sparse[idx]]==idx check rejects an idx whose sparse slot happens to
// hold a dense offset that is merely in range but points at someone else's
// entry.
func (s *Set) Has(idx uint32) bool {
	if idx >= s.capacity {
		return false
	}
	d := s.get(s.sparse, idx)
	return d < s.size && s.get(s.dense, d) == idx
}

// Add inserts sparse index idx (which must not already be present) and
// returns its dense slot.
func (s *Set) Add(idx uint32) uint32 {
	d := s.size
	s.set(s.dense, d, idx)
	s.set(s.sparse, idx, d)
	s.size++
	return d
}

// Remove evicts sparse index idx if present, swapping the back-most dense
// entry into its place. Returns (moveFrom, moveTo, swapped): swapped is
// false when idx was already the back-most live entry, in which case no
// external parallel array needs to move anything. Returns
// (InvalidIndex, InvalidIndex, false) if idx is not present.
//
// The evicted slot's own dense entry is left pointing at idx even though it
// is no longer live (dense[size-1] = idx after the swap): this is
// functionally redundant for plain membership, but it is exactly what lets
// ResetIdentity-based allocation hand idx back out LIFO — see ResetIdentity.
func (s *Set) Remove(idx uint32) (moveFrom, moveTo uint32, swapped bool) {
	if !s.Has(idx) {
		return InvalidIndex, InvalidIndex, false
	}

	d := s.get(s.sparse, idx)
	sizeBefore := s.size
	backIdx := s.get(s.dense, sizeBefore-1)

	s.set(s.dense, sizeBefore-1, idx)
	s.set(s.dense, d, backIdx)
	s.set(s.sparse, backIdx, d)
	s.size--

	return sizeBefore - 1, d, d != sizeBefore-1
}

// ResetIdentity clears the set to empty and sets dense[i] = i for every i,
// restoring the dense array to the identity permutation. Combined with the
// fact that Remove always writes dense[size-1] = idx, this turns the set
// into a LIFO handle allocator: callers acquire by reading dense[Size()]
// via NextFree (which equals Size() itself until anything has ever been
// removed) and calling Add on it; freed sparse indices re-enter at the front because the
// dense permutation left behind by Remove places them there.
func (s *Set) ResetIdentity() {
	s.size = 0
	for i := uint32(0); i < s.capacity; i++ {
		s.set(s.dense, i, i)
	}
}

// NextFree returns the sparse index that the next Add call will consume
// when the set is being driven as a ResetIdentity-style allocator: it is
// simply dense[Size()], the identity-or-swapped entry sitting just past the
// live region.
func (s *Set) NextFree() uint32 {
	return s.get(s.dense, s.size)
}

// DenseAt returns the sparse index stored at dense slot d, or InvalidIndex
// if d is out of range.
func (s *Set) DenseAt(d uint32) uint32 {
	if d >= s.capacity {
		return InvalidIndex
	}
	return s.get(s.dense, d)
}

// SparseAt returns the raw dense slot stored for sparse index idx, without
// validating Has(idx). Out-of-range idx returns InvalidIndex.
func (s *Set) SparseAt(idx uint32) uint32 {
	if idx >= s.capacity {
		return InvalidIndex
	}
	return s.get(s.sparse, idx)
}
