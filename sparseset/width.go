package sparseset

import "encoding/binary"

// ElementWidth is the byte width of one dense/sparse index slot. Chosen at
// Init based on capacity so that small pools don't pay for 4-byte slots they
// never need (mirrors the teacher package's storage variants, each sized for
// the cardinality range it actually covers).
type ElementWidth uint32

const (
	Width1 ElementWidth = 1
	Width2 ElementWidth = 2
	Width4 ElementWidth = 4
)

// WidthFor returns the narrowest width that can address every index in
// [0, capacity).
func WidthFor(capacity uint32) ElementWidth {
	switch {
	case capacity <= 1<<8:
		return Width1
	case capacity <= 1<<16:
		return Width2
	default:
		return Width4
	}
}

// getFn/setFn are assigned once at Init and dispatch every element access
// for the lifetime of the set, the same function-pointer strategy h32 uses
// to pick acquire/release without branching on policy in the hot path.
type getFn func(buf []byte, i uint32) uint32
type setFn func(buf []byte, i uint32, v uint32)

func get1(buf []byte, i uint32) uint32    { return uint32(buf[i]) }
func set1(buf []byte, i uint32, v uint32) { buf[i] = byte(v) }

func get2(buf []byte, i uint32) uint32 {
	return uint32(binary.LittleEndian.Uint16(buf[i*2:]))
}
func set2(buf []byte, i uint32, v uint32) {
	binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
}

func get4(buf []byte, i uint32) uint32 {
	return binary.LittleEndian.Uint32(buf[i*4:])
}
func set4(buf []byte, i uint32, v uint32) {
	binary.LittleEndian.PutUint32(buf[i*4:], v)
}

func accessorsFor(w ElementWidth) (getFn, setFn) {
	switch w {
	case Width1:
		return get1, set1
	case Width2:
		return get2, set2
	default:
		return get4, set4
	}
}
