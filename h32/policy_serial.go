package h32

// Serial (non-thread-safe) LIFO and FIFO acquire/release. Both are plain
// functions assigned to Allocator.acquireFn/releaseFn at Init time so the
// hot path never branches on policy — the same function-pointer dispatch
// DESIGN.md's policy_serial.go/policy_atomic.go entry calls out, mirroring how the teacher
// package dispatches to dense/sparse/explicit storage through an interface
// rather than a type switch (storage.go).

func acquireLIFO(a *Allocator, userflags uint32) (uint32, Handle) {
	if a.size == a.capacity {
		return InvalidIndex, 0
	}

	i := a.freelistDequeue
	w := a.slotWord(i)
	newHead := a.bl.index(w)

	newGen := a.bl.bumpGeneration(w)
	uf := (userflags << a.bl.ufShift) & a.bl.userflagsMask
	h := uf | newGen | a.bl.inUseBit | i
	a.setSlotWord(i, h)

	a.freelistDequeue = newHead
	a.size++

	return i, Handle(h)
}

func releaseLIFO(a *Allocator, h Handle) uint32 {
	i := a.bl.index(uint32(h))
	if i >= a.capacity || !a.Valid(h) {
		return InvalidIndex
	}

	w := uint32(h) &^ a.bl.inUseBit
	w = (w &^ a.bl.capacityMask) | a.freelistDequeue
	a.setSlotWord(i, w)
	a.freelistDequeue = i

	a.size--
	return i
}

func acquireFIFO(a *Allocator, userflags uint32) (uint32, Handle) {
	if a.size == a.capacity-1 {
		return InvalidIndex, 0
	}

	i := a.freelistDequeue
	w := a.slotWord(i)
	newHead := a.bl.index(w)

	newGen := a.bl.bumpGeneration(w)
	uf := (userflags << a.bl.ufShift) & a.bl.userflagsMask
	h := uf | newGen | a.bl.inUseBit | i
	a.setSlotWord(i, h)

	a.freelistDequeue = newHead
	a.size++

	return i, Handle(h)
}

func releaseFIFO(a *Allocator, h Handle) uint32 {
	i := a.bl.index(uint32(h))
	if i >= a.capacity || !a.Valid(h) {
		return InvalidIndex
	}

	// Splice i onto the tail: the current tail's free-link field is
	// rewritten to point at i (preserving the tail slot's own generation),
	// then the tail pointer advances to i.
	tail := a.freelistEnqueue
	tailWord := a.slotWord(tail)
	a.setSlotWord(tail, (tailWord&^a.bl.capacityMask)|i)

	// i's index bits occupy the same position whether the word is a
	// handle or a free-link, so clearing in_use leaves i's free-link
	// self-referential until some later release splices a successor onto
	// it. That's harmless: i is only ever read as a free-link once it is
	// dequeued, and dequeue is gated on size, which is always checked first.
	w := uint32(h) &^ a.bl.inUseBit
	a.setSlotWord(i, w)

	a.freelistEnqueue = i
	a.size--
	return i
}
