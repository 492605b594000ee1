package h32

import (
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ReleaseErr_SuccessReturnsNilError(t *testing.T) {
	a := makeAllocator(t, Config{Capacity: 4, Policy: PolicyLIFO})

	_, h := a.Acquire(0)
	i, err := a.ReleaseErr(h)
	require.NoError(t, err)
	assert.NotEqual(t, InvalidIndex, i)
}

func Test_ReleaseErr_DoubleFreeWrapsSentinel(t *testing.T) {
	a := makeAllocator(t, Config{Capacity: 4, Policy: PolicyLIFO})

	_, h := a.Acquire(0)
	_, err := a.ReleaseErr(h)
	require.NoError(t, err)

	i, err := a.ReleaseErr(h)
	require.Error(t, err)
	assert.Equal(t, InvalidIndex, i)
	assert.Equal(t, ErrDoubleFreeOrStale, pkgerrors.Cause(err))
	assert.Contains(t, err.Error(), "release(handle=")
}

func Test_InitError_StringListsEveryFlag(t *testing.T) {
	all := ErrConfigurationUnsupported | ErrThreadsafeUnsupported | ErrUserdataTooBig |
		ErrHandleOffsetTooBig | ErrHandleNonInlineSizeTooBig | ErrInvalidInputFlags

	s := all.String()
	for _, name := range []string{
		"CONFIGURATION_UNSUPPORTED",
		"THREADSAFE_UNSUPPORTED",
		"USERDATA_TOO_BIG",
		"HANDLE_OFFSET_TOO_BIG",
		"HANDLE_NON_INLINE_SIZE_TOO_BIG",
		"INVALID_INPUT_FLAGS",
	} {
		assert.Contains(t, s, name)
	}
}
