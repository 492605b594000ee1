package h32

import (
	"fmt"

	"github.com/pkg/errors"
)

// InitError is a bitmask of configuration problems detected by Init. A
// nonzero InitError means the allocator must not be used.
type InitError uint32

const (
	// ErrConfigurationUnsupported is set when the requested combination of
	// capacity, userflag bits, and layout cannot fit in a 32-bit word.
	ErrConfigurationUnsupported InitError = 1 << iota

	// ErrThreadsafeUnsupported is set when PolicyLIFOThreadsafe is requested
	// with a capacity that rounds to a single slot, leaving nothing besides
	// the slot-0 sentinel.
	ErrThreadsafeUnsupported

	// ErrUserdataTooBig is set when the record stride (4-byte handle plus
	// payload, or the inline payload size) exceeds the 16-bit stride field
	// of the packed descriptor (65535 bytes; spec.md §3.2, §6).
	ErrUserdataTooBig

	// ErrHandleOffsetTooBig is set when an inline handle's byte offset
	// exceeds the 8-bit descriptor field (255; spec.md §6).
	ErrHandleOffsetTooBig

	// ErrHandleNonInlineSizeTooBig mirrors spec.md §6's
	// HANDLE_NON_INLINE_SIZE_TOO_BIG (>255): the non-inline handle size is
	// the descriptor's userdata-offset field, bits [24:32]. This module
	// fixes that size at 4 bytes (one h32.Handle word) rather than taking
	// it as caller input, so the field can never exceed 255 and this bit
	// is never currently set. Kept, like ErrInvalidInputFlags below, so
	// InitError stays a complete mirror of spec.md §6's six documented
	// init-error conditions.
	ErrHandleNonInlineSizeTooBig

	// ErrInvalidInputFlags mirrors spec.md §6's INVALID_INPUT_FLAGS.
	// Config has no raw flag word — Policy and Layout are typed enums
	// instead — so there is no bit pattern Init can observe as "reserved";
	// this bit is never currently set, for the same structural reason as
	// ErrHandleNonInlineSizeTooBig above.
	ErrInvalidInputFlags
)

func (e InitError) String() string {
	if e == 0 {
		return "ok"
	}
	names := []struct {
		bit  InitError
		name string
	}{
		{ErrConfigurationUnsupported, "CONFIGURATION_UNSUPPORTED"},
		{ErrThreadsafeUnsupported, "THREADSAFE_UNSUPPORTED"},
		{ErrUserdataTooBig, "USERDATA_TOO_BIG"},
		{ErrHandleOffsetTooBig, "HANDLE_OFFSET_TOO_BIG"},
		{ErrHandleNonInlineSizeTooBig, "HANDLE_NON_INLINE_SIZE_TOO_BIG"},
		{ErrInvalidInputFlags, "INVALID_INPUT_FLAGS"},
	}

	out := ""
	for _, n := range names {
		if e&n.bit != 0 {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	return out
}

// Error satisfies the error interface so a nonzero InitError can be
// returned/wrapped like any other Go error.
func (e InitError) Error() string { return "h32: init failed: " + e.String() }

// ErrDoubleFreeOrStale is the causal sentinel behind ReleaseErr's wrapped
// error: a release targeting a handle that is no longer valid (already
// freed, from a stale generation, or never issued by this allocator).
// Release itself reports this in-band as InvalidIndex per spec.md §4.8;
// ErrDoubleFreeOrStale and ReleaseErr exist for callers that want an
// error-returning API instead: errors.Wrap adds the released handle value
// to the message, and errors.Cause recovers ErrDoubleFreeOrStale itself.
var ErrDoubleFreeOrStale = errors.New("h32: handle is stale, already released, or from another allocator")

// ReleaseErr wraps Release for callers that prefer an error return over
// the in-band InvalidIndex sentinel. The in-band signal stays authoritative
// (Release itself is unchanged and remains the fast, allocation-free path);
// ReleaseErr just layers errors.Wrap over ErrDoubleFreeOrStale on failure so
// the caller can log a handle-specific message and still errors.Cause back
// to the sentinel to compare against it programmatically.
func (a *Allocator) ReleaseErr(h Handle) (uint32, error) {
	i := a.Release(h)
	if i == InvalidIndex {
		return InvalidIndex, errors.Wrap(ErrDoubleFreeOrStale, fmt.Sprintf("h32: release(handle=%#x)", uint32(h)))
	}
	return i, nil
}
