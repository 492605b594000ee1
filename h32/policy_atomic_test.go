package h32

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AtomicLIFO_SlotZeroIsNeverHandedOut(t *testing.T) {
	a := makeAllocator(t, Config{Capacity: 4, Policy: PolicyLIFOThreadsafe})

	seen := map[uint32]bool{}
	for {
		i, h := a.Acquire(0)
		if !a.Valid(h) {
			break
		}
		seen[i] = true
	}
	assert.False(t, seen[0], "index 0 is the end-of-list sentinel and must never be acquired")
	assert.Len(t, seen, 3, "a 4-slot threadsafe pool advertises capacity-1 usable handles")
}

func Test_AtomicLIFO_ExhaustionReturnsInvalid(t *testing.T) {
	a := makeAllocator(t, Config{Capacity: 2, Policy: PolicyLIFOThreadsafe})

	_, h0 := a.Acquire(0)
	require.True(t, a.Valid(h0))

	i, h := a.Acquire(0)
	assert.Equal(t, InvalidIndex, i)
	assert.Equal(t, Handle(0), h)
}

func Test_AtomicLIFO_ConcurrentAcquireReleaseNeverDoubleAssignsASlot(t *testing.T) {
	const capacity = 64
	const workers = 16
	const rounds = 2000

	a := makeAllocator(t, Config{Capacity: capacity, Policy: PolicyLIFOThreadsafe})

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				i, h := a.Acquire(0)
				if i == InvalidIndex {
					continue
				}
				if !a.Valid(h) {
					errCh <- errors.New("acquired handle is not Valid")
					return
				}
				released := a.Release(h)
				if released != i {
					errCh <- errors.New("Release returned an index other than the one Acquire reported")
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(0), a.Size(), "every acquired handle in this test was released")
}
