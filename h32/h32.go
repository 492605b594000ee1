// Package h32 implements the single-allocator core of the handle allocator
// family: a fixed-capacity pool of 32-bit slots, each holding one word that
// doubles as the current handle (in use) or a free-list link (free). Reuse
// policy (LIFO, FIFO, lock-free LIFO) is selected at Init and routed through
// function-pointer dispatch, mirroring how the teacher package dispatches on
// storage type (see storage.go's storage interface in the retrieval pack).
package h32

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/incrediblejr/handlealloc/internal/bitpack"
)

// Policy selects how freed slots are handed back out.
type Policy int

const (
	// PolicyLIFO reuses the most-recently-freed slot first. Best cache
	// locality and the cheapest generation-reuse budget.
	PolicyLIFO Policy = iota

	// PolicyFIFO reuses slots in the order they were freed. Costs one slot
	// of usable capacity (the freelist must never be empty to distinguish
	// "full" from "exactly one free").
	PolicyFIFO

	// PolicyLIFOThreadsafe is a lock-free variant of PolicyLIFO safe for
	// concurrent Acquire/Release from any number of goroutines. Slot 0 is
	// reserved as an end-of-list sentinel, also costing one slot.
	PolicyLIFOThreadsafe
)

// Config describes how to carve up caller-supplied memory into handle
// records and how to interpret each slot's word.
type Config struct {
	// Capacity is the number of usable handles, N. Must be >= 1.
	Capacity uint32

	// UserflagBits is the width, K, of the caller-opaque flag field copied
	// verbatim into and out of each handle.
	UserflagBits uint32

	// GenerationBits optionally caps the width, G, of the generation
	// counter. Zero means "use every bit left over after index and
	// userflags are placed" (the maximum possible reuse budget, and the
	// behavior implied by spec.md's bit-layout table). A nonzero value is
	// honored as long as it still fits: S + G + K + 1 <= 32. Tests that
	// need to force fast generation-wraparound (spec.md §8 scenario 3) set
	// this explicitly; this knob is this module's resolution of an
	// ambiguity the distilled spec leaves implicit — see DESIGN.md.
	GenerationBits uint32

	// Policy selects the reuse discipline.
	Policy Policy

	// Layout selects where the in-use bit sits.
	Layout Layout

	// PayloadSize is the size, in bytes, of the caller payload stored
	// alongside each handle. Zero means "no payload" (4-byte records).
	PayloadSize uint32

	// InlineHandle, when true, means the payload struct itself contains
	// the handle word at HandleByteOffset; records are exactly
	// PayloadSize bytes. When false, each record is
	// [handle(4) | payload(PayloadSize)] and HandleByteOffset is ignored.
	InlineHandle bool

	// HandleByteOffset is the byte offset of the handle word within the
	// record, used only when InlineHandle is true.
	HandleByteOffset uint32
}

// Allocator is a fixed-capacity pool of 32-bit handle slots over
// caller-supplied memory. The zero value is not usable; construct with Init.
type Allocator struct {
	mem []byte

	descStride     uint32
	descHandleOff  uint32
	descUserdataOf uint32

	bl bitLayout

	capacity        uint32 // N, the advertised usable handle count
	capacityRounded uint32 // next_pow2(N), the number of backing slots
	size            uint32 // live count; only meaningful for serial policies

	policy Policy

	freelistDequeue uint32
	freelistEnqueue uint32

	// freelistSerial and sizeAtomic back PolicyLIFOThreadsafe's lock-free
	// path; unused by the serial LIFO/FIFO policies. freelistSerial packs
	// (serial << indexBits) | head, see policy_atomic.go.
	freelistSerial atomic.Uint32
	sizeAtomic     atomic.Uint32

	acquireFn func(a *Allocator, userflags uint32) (uint32, Handle)
	releaseFn func(a *Allocator, h Handle) uint32
}

// MemorySizeNeeded returns the number of bytes the caller must allocate and
// pass to Init for the given capacity and payload configuration. Sizing is
// based on capacityRounded (next_pow2(capacity)), not capacity itself,
// because Init requires and Reset initializes that many backing records;
// only records below capacity are ever linked into the free-list.
func MemorySizeNeeded(capacity, payloadSize uint32, inline bool) uint32 {
	rounded := bitpack.NextPow2(capacity)
	stride := uint32(4) // handle word
	if !inline {
		stride += payloadSize
	} else if payloadSize > stride {
		stride = payloadSize
	}
	return rounded * stride
}

// Init carves mem into capacityRounded fixed-stride records and resets the
// allocator to its post-init empty state. It returns a nonzero InitError
// (and leaves the returned *Allocator nil) on any configuration problem.
func Init(cfg Config, mem []byte) (*Allocator, InitError) {
	if cfg.Capacity == 0 {
		return nil, ErrConfigurationUnsupported
	}

	capacityRounded := bitpack.NextPow2(cfg.Capacity)
	indexBits := bitpack.Log2(capacityRounded)

	generationBits := cfg.GenerationBits
	maxGenerationBits := int32(32) - int32(indexBits) - int32(cfg.UserflagBits) - 1
	if maxGenerationBits < 0 {
		return nil, ErrConfigurationUnsupported
	}
	if generationBits == 0 {
		generationBits = uint32(maxGenerationBits)
	}
	if int32(generationBits) > maxGenerationBits {
		return nil, ErrConfigurationUnsupported
	}

	var stride, handleOffset, userdataOffset uint32
	if cfg.InlineHandle {
		stride = cfg.PayloadSize
		handleOffset = cfg.HandleByteOffset
		userdataOffset = 0
		if handleOffset > 0xFF {
			return nil, ErrHandleOffsetTooBig
		}
		if handleOffset+4 > stride {
			return nil, ErrConfigurationUnsupported
		}
	} else {
		handleOffset = 0
		stride = 4 + cfg.PayloadSize
		if cfg.PayloadSize > 0 {
			userdataOffset = 4
		}
	}
	if stride > 0xFFFF {
		return nil, ErrUserdataTooBig
	}
	if uint32(len(mem)) < capacityRounded*stride {
		return nil, ErrConfigurationUnsupported
	}

	policy := cfg.Policy
	if policy == PolicyLIFOThreadsafe && capacityRounded < 2 {
		return nil, ErrThreadsafeUnsupported
	}

	bl := deriveBitLayout(cfg.Layout, capacityRounded, indexBits, cfg.UserflagBits, generationBits)

	a := &Allocator{
		mem:             mem,
		descStride:      stride,
		descHandleOff:   handleOffset,
		descUserdataOf:  userdataOffset,
		bl:              bl,
		capacity:        cfg.Capacity,
		capacityRounded: capacityRounded,
		policy:          policy,
	}

	switch policy {
	case PolicyFIFO:
		a.acquireFn = acquireFIFO
		a.releaseFn = releaseFIFO
	case PolicyLIFOThreadsafe:
		a.acquireFn = acquireAtomicLIFO
		a.releaseFn = releaseAtomicLIFO
	default:
		a.acquireFn = acquireLIFO
		a.releaseFn = releaseLIFO
	}

	a.Reset()

	return a, 0
}

// Reset returns every slot to FREE with generation = full-mask, matching
// spec.md §3.6 so that each slot's first-ever acquire deterministically
// wraps its generation field to 0.
func (a *Allocator) Reset() {
	a.size = 0
	a.sizeAtomic.Store(0)
	genMaskField := a.bl.generationMask

	n := a.capacityRounded
	for i := uint32(0); i < n; i++ {
		next := i + 1
		if next >= a.capacity {
			next = 0
		}
		a.setSlotWord(i, next|genMaskField)
	}

	switch a.policy {
	case PolicyLIFOThreadsafe:
		// slot 0 is the permanent end-of-list sentinel; usable chain
		// starts at slot 1.
		a.freelistSerial.Store(1)
	default:
		a.freelistDequeue = 0
		a.freelistEnqueue = a.capacity - 1
	}
}

// Capacity returns the usable handle count, N, as given to Init. For
// PolicyFIFO and PolicyLIFOThreadsafe the practically allocatable count is
// Capacity()-1 (see spec.md §4.1).
func (a *Allocator) Capacity() uint32 { return a.capacity }

// Size returns the current number of live (acquired) handles.
func (a *Allocator) Size() uint32 {
	if a.policy == PolicyLIFOThreadsafe {
		return a.sizeAtomic.Load()
	}
	return a.size
}

// Acquire hands out the next free slot with the given userflags, returning
// its stable sparse index and handle. Returns (InvalidIndex, 0) when the
// pool is exhausted.
func (a *Allocator) Acquire(userflags uint32) (uint32, Handle) {
	return a.acquireFn(a, userflags)
}

// Release frees the slot named by h, returning its sparse index, or
// InvalidIndex if h is stale, already released, or not recognized by a.
func (a *Allocator) Release(h Handle) uint32 {
	return a.releaseFn(a, h)
}

// Valid reports whether h currently names a live slot in a: its index must
// be in range, its in-use bit must be set, and the word stored at that slot
// must equal h bit-for-bit.
func (a *Allocator) Valid(h Handle) bool {
	i := a.bl.index(uint32(h))
	if i >= a.capacity {
		return false
	}
	if !a.bl.inUse(uint32(h)) {
		return false
	}
	return a.slotWord(i) == uint32(h)
}

// InUse reports whether h's in-use bit is set, without consulting storage.
// Unlike Valid, this is a pure bit test on h itself.
func (a *Allocator) InUse(h Handle) bool { return a.bl.inUse(uint32(h)) }

// Index returns the sparse index encoded in h. Stable for h's lifetime.
func (a *Allocator) Index(h Handle) uint32 { return a.bl.index(uint32(h)) }

// Userflags returns the userflags currently stored for h's slot (which may
// differ from the flags baked into h if UserflagsSet has been called).
// Behavior is undefined if h is stale.
func (a *Allocator) Userflags(h Handle) uint32 {
	i := a.bl.index(uint32(h))
	return a.bl.userflags(a.slotWord(i)) >> a.bl.ufShift
}

// UserflagsSet rewrites the userflags field of h's slot in place and
// returns the previous value. Behavior is undefined if h is stale.
func (a *Allocator) UserflagsSet(h Handle, uf uint32) uint32 {
	i := a.bl.index(uint32(h))
	old := a.slotWord(i)
	a.setSlotWord(i, a.bl.withUserflags(old, uf))
	return a.bl.userflags(old) >> a.bl.ufShift
}

// HandleAt returns the handle word currently stored at sparse index i and
// whether that slot is in use. Unlike Valid, this does not require already
// holding a candidate handle; it exists for callers that iterate the live
// set by index, such as ds.Walk.
func (a *Allocator) HandleAt(i uint32) (Handle, bool) {
	if i >= a.capacity {
		return 0, false
	}
	w := a.slotWord(i)
	return Handle(w), a.bl.inUse(w)
}

// Userdata returns the payload byte slice for the record at sparse index i.
// Returns nil if this allocator was configured with no payload.
func (a *Allocator) Userdata(i uint32) []byte {
	base := i * a.descStride
	if a.descUserdataOf != 0 {
		return a.mem[base+a.descUserdataOf : base+a.descStride]
	}
	if a.descStride <= 4 {
		return nil // no-payload configuration
	}
	return a.mem[base : base+a.descStride] // inline: handle lives inside payload
}

// Stats is a read-only, assertion-style snapshot over already-tracked
// counters, modeled on lldb.AllocStats in the retrieval pack: it exists for
// diagnostics and tests, never consulted by Acquire/Release.
type Stats struct {
	Capacity uint32
	Size     uint32
	Free     uint32
}

// Stats returns a snapshot of the allocator's occupancy.
func (a *Allocator) Stats() Stats {
	size := a.Size()
	return Stats{Capacity: a.capacity, Size: size, Free: a.capacity - size}
}

// DebugString renders a compact, human-readable summary for tests and
// ad-hoc debugging. Never called from the hot Acquire/Release path.
func (a *Allocator) DebugString() string {
	st := a.Stats()
	return fmt.Sprintf("h32.Allocator{capacity=%d, size=%d, free=%d}", st.Capacity, st.Size, st.Free)
}

// slotWord and setSlotWord load/store a slot's handle word. Both always go
// through sync/atomic rather than a plain dereference: spec.md §9 already
// assumes 4-byte alignment for handle words, and doing every slot access
// atomically is what lets the lock-free LIFO policy (policy_atomic.go)
// share the exact same record layout and accessors as the serial policies
// instead of keeping a second, differently-encoded copy of every word. The
// CAS on freelistSerial remains the single cross-goroutine synchronization
// edge (§5); this just makes the word access itself race-detector-clean
// under that CAS.
func (a *Allocator) slotWord(i uint32) uint32 {
	base := i * a.descStride
	off := a.descHandleOff
	p := (*uint32)(unsafe.Pointer(&a.mem[base+off]))
	return atomic.LoadUint32(p)
}

func (a *Allocator) setSlotWord(i, w uint32) {
	base := i * a.descStride
	off := a.descHandleOff
	p := (*uint32)(unsafe.Pointer(&a.mem[base+off]))
	atomic.StoreUint32(p, w)
}
