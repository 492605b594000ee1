package ds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incrediblejr/handlealloc/h32"
)

func makeDS(t *testing.T, capacity, payloadSize uint32) *Allocator {
	t.Helper()
	mem := make([]byte, MemorySizeNeeded(capacity, payloadSize))
	d, err := Init(Config{Capacity: capacity, PayloadSize: payloadSize, Policy: h32.PolicyLIFO}, mem)
	require.NoError(t, err)
	return d
}

func Test_Acquire_AssignsSequentialDenseIndices(t *testing.T) {
	d := makeDS(t, 4, 0)

	d0, ha := d.Acquire(0)
	d1, hb := d.Acquire(0)
	d2, hc := d.Acquire(0)
	d3, hd := d.Acquire(0)

	assert.Equal(t, []uint32{0, 1, 2, 3}, []uint32{d0, d1, d2, d3})
	assert.Equal(t, uint32(4), d.Size())

	for _, h := range []h32.Handle{ha, hb, hc, hd} {
		assert.NotZero(t, h)
	}
}

// Test_Release_SwapToBack reproduces spec.md §8 scenario 4: init DS with
// N=4, no payload, acquire Ha,Hb,Hc,Hd (dense 0..3). Releasing Hb must
// report move_from=3, move_to=1, is_back=false; after the swap, Hd's dense
// index is 1 and Hc's dense index is 2.
func Test_Release_SwapToBack(t *testing.T) {
	d := makeDS(t, 4, 0)

	_, ha := d.Acquire(0)
	_, hb := d.Acquire(0)
	_, hc := d.Acquire(0)
	_, hd := d.Acquire(0)

	moveFrom, moveTo, isBack := d.Release(hb)
	assert.Equal(t, uint32(3), moveFrom)
	assert.Equal(t, uint32(1), moveTo)
	assert.False(t, isBack)

	assert.Equal(t, uint32(1), d.DenseIndex(hd))
	assert.Equal(t, uint32(2), d.DenseIndex(hc))
	assert.Equal(t, uint32(0), d.DenseIndex(ha))
	assert.Equal(t, InvalidIndex, d.DenseIndex(hb))
	assert.Equal(t, uint32(3), d.Size())
}

func Test_Release_OfBackMostEntryNeedsNoSwap(t *testing.T) {
	d := makeDS(t, 4, 0)

	_, ha := d.Acquire(0)
	_, hb := d.Acquire(0)

	moveFrom, moveTo, isBack := d.Release(hb) // hb is the back-most (dense index 1)
	assert.Equal(t, uint32(1), moveFrom)
	assert.Equal(t, uint32(1), moveTo)
	assert.True(t, isBack)

	assert.Equal(t, uint32(0), d.DenseIndex(ha))
}

func Test_Release_StaleOrInvalidHandleReportsInvalid(t *testing.T) {
	d := makeDS(t, 4, 0)
	_, h := d.Acquire(0)
	require.NotEqual(t, InvalidIndex, d.DenseIndex(h))

	d.Release(h)
	moveFrom, moveTo, isBack := d.Release(h)
	assert.Equal(t, InvalidIndex, moveFrom)
	assert.Equal(t, InvalidIndex, moveTo)
	assert.False(t, isBack)
}

func Test_Payload_PerHandleIsolatedByRecord(t *testing.T) {
	d := makeDS(t, 4, 8)

	_, ha := d.Acquire(0)
	_, hb := d.Acquire(0)

	copy(d.Payload(d.h.Index(ha)), []byte("aaaaaaaa"))
	copy(d.Payload(d.h.Index(hb)), []byte("bbbbbbbb"))

	assert.Equal(t, "aaaaaaaa", string(d.Payload(d.h.Index(ha))))
	assert.Equal(t, "bbbbbbbb", string(d.Payload(d.h.Index(hb))))
}

func Test_Walk_VisitsLiveHandlesInDenseOrder(t *testing.T) {
	d := makeDS(t, 4, 0)

	_, ha := d.Acquire(0)
	_, hb := d.Acquire(0)
	_, hc := d.Acquire(0)

	d.Release(hb) // hc swaps into hb's dense slot

	var order []h32.Handle
	d.Walk(func(denseIndex uint32, h h32.Handle) {
		order = append(order, h)
		assert.Equal(t, denseIndex, d.DenseIndex(h))
	})

	require.Len(t, order, 2)
	assert.Equal(t, ha, order[0])
	assert.Equal(t, hc, order[1])
}

func Test_ResetIdentity_ReturnsAllocatorToEmptyState(t *testing.T) {
	d := makeDS(t, 4, 0)
	d.Acquire(0)
	d.Acquire(0)
	require.Equal(t, uint32(2), d.Size())

	d.ResetIdentity()
	assert.Equal(t, uint32(0), d.Size())

	dIdx, h := d.Acquire(0)
	assert.Equal(t, uint32(0), dIdx)
	assert.NotZero(t, h)
}
