package h32

// Handle is a 32-bit word that names a slot and, while the slot is in use,
// doubles as the generation-stamped identity returned to callers. The same
// word, with the in-use bit clear, is the slot's free-list link.
type Handle uint32

// InvalidIndex is returned in place of a sparse index whenever an operation
// cannot report a valid one: pool exhaustion on Acquire, or an invalid/stale
// handle on Release or a query.
const InvalidIndex uint32 = 0xFFFFFFFF

// Layout selects where the in-use bit sits relative to the userflags and
// generation fields. Both variants pack userflags, generation, in-use and
// index as contiguous, non-overlapping bit-runs with the index always at
// the low end of the word (so capacity_mask extraction never depends on
// the variant).
type Layout int

const (
	// LayoutInUseMSB stacks the fields, high to low, as:
	// in_use(1) | userflags(K) | generation(G) | index(S). The in-use bit
	// is the highest bit actually used by the packed word (not necessarily
	// bit 31 unless S+K+G+1 == 32).
	LayoutInUseMSB Layout = iota

	// LayoutInUseBelowGeneration stacks the fields, high to low, as:
	// userflags(K) | generation(G) | in_use(1) | index(S). Selected at
	// Init via Config.Layout; corresponds to the spec's
	// DONT_USE_MSB_AS_IN_USE_BIT flag.
	LayoutInUseBelowGeneration
)

// bitLayout holds the derived, immutable bit positions and masks for one
// allocator instance. Computed once in Init from Config.
type bitLayout struct {
	variant Layout

	indexBits      uint32 // S
	generationBits uint32 // G
	userflagBits   uint32 // K

	capacityMask   uint32 // low S bits
	generationMask uint32 // G bits, shifted into place
	userflagsMask  uint32 // K bits, shifted into place
	inUseBit       uint32 // single bit

	genShift uint32
	ufShift  uint32

	genAdd uint32 // amount added to bump the generation field by one
}

func deriveBitLayout(variant Layout, capacityRounded uint32, indexBits, userflagBits, generationBits uint32) bitLayout {
	bl := bitLayout{
		variant:        variant,
		indexBits:      indexBits,
		generationBits: generationBits,
		userflagBits:   userflagBits,
		capacityMask:   capacityRounded - 1,
	}

	switch variant {
	case LayoutInUseBelowGeneration:
		// index(S) | in_use(1) | generation(G) | userflags(K), LSB to MSB.
		bl.genShift = indexBits + 1
		bl.ufShift = bl.genShift + generationBits
		bl.inUseBit = 1 << indexBits
	default: // LayoutInUseMSB
		// index(S) | generation(G) | userflags(K) | in_use(1), LSB to MSB.
		bl.genShift = indexBits
		bl.ufShift = bl.genShift + generationBits
		bl.inUseBit = 1 << (bl.ufShift + userflagBits)
	}

	if generationBits > 0 {
		bl.generationMask = ((uint32(1) << generationBits) - 1) << bl.genShift
	}
	if userflagBits > 0 {
		bl.userflagsMask = ((uint32(1) << userflagBits) - 1) << bl.ufShift
	}
	bl.genAdd = uint32(1) << bl.genShift

	return bl
}

// genFieldMask is the unshifted (1<<G)-1 mask for the generation field.
func (bl bitLayout) genFieldMask() uint32 {
	if bl.generationBits == 0 {
		return 0
	}
	return (uint32(1) << bl.generationBits) - 1
}

// index extracts the sparse index from a word (handle or free-link).
func (bl bitLayout) index(w uint32) uint32 { return w & bl.capacityMask }

// inUse reports whether the in-use bit is set in w.
func (bl bitLayout) inUse(w uint32) bool { return w&bl.inUseBit != 0 }

// userflags extracts the userflags field from w.
func (bl bitLayout) userflags(w uint32) uint32 { return w & bl.userflagsMask }

// withUserflags returns w with its userflags field replaced by uf (uf is
// masked to the field width first).
func (bl bitLayout) withUserflags(w, uf uint32) uint32 {
	return (w &^ bl.userflagsMask) | ((uf << bl.ufShift) & bl.userflagsMask)
}

// bumpGeneration returns the next generation field (shifted into place, all
// other bits zero) given the slot's current (free-link) word w, skipping the
// reserved generation field
// values 0 and full-mask once the slot has left its pristine, post-reset
// state. See DESIGN.md for why the very first bump out of reset is allowed
// to land on field value 0 while every later bump is not.
func (bl bitLayout) bumpGeneration(w uint32) uint32 {
	sum := w + bl.genAdd
	newGenField := sum & bl.generationMask

	if bl.generationBits >= 2 {
		oldRaw := (w & bl.generationMask) >> bl.genShift
		fullMask := bl.genFieldMask()
		pristine := oldRaw == fullMask

		if !pristine {
			for {
				newRaw := newGenField >> bl.genShift
				if newRaw != 0 && newRaw != fullMask {
					break
				}
				sum += bl.genAdd
				newGenField = sum & bl.generationMask
			}
		}
	}

	return newGenField
}
