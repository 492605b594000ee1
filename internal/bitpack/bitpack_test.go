package bitpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NextPow2(t *testing.T) {
	cases := []struct{ in, want uint32 }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {8, 8}, {9, 16}, {1023, 1024}, {1024, 1024},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NextPow2(c.in), "NextPow2(%d)", c.in)
	}
}

func Test_Log2(t *testing.T) {
	cases := []struct{ in, want uint32 }{
		{1, 0}, {2, 1}, {4, 2}, {8, 3}, {1024, 10},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Log2(c.in), "Log2(%d)", c.in)
	}
}

func Test_Descriptor_RoundTrip(t *testing.T) {
	d := PackDescriptor(24, 4, 8)
	assert.Equal(t, uint32(24), d.Stride())
	assert.Equal(t, uint32(4), d.HandleOffset())
	assert.Equal(t, uint32(8), d.UserdataOffset())
}

func Test_Descriptor_MasksOverflow(t *testing.T) {
	// values beyond the field widths are silently masked; callers validate
	// beforehand (see h32.Init's USERDATA_TOO_BIG / HANDLE_OFFSET_TOO_BIG checks).
	d := PackDescriptor(0x10000, 0x100, 0x100)
	assert.Equal(t, uint32(0), d.Stride())
	assert.Equal(t, uint32(0), d.HandleOffset())
	assert.Equal(t, uint32(0), d.UserdataOffset())
}
