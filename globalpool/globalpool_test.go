package globalpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceReturnsSameSingleton(t *testing.T) {
	defer Shutdown()

	a := Instance()
	b := Instance()
	assert.Same(t, a, b)
}

func TestShutdownAllowsReinitialization(t *testing.T) {
	first := Instance()
	_, err := first.Allocate(64)
	require.NoError(t, err)

	require.NoError(t, Shutdown())

	second := Instance()
	defer Shutdown()
	assert.NotSame(t, first, second)
	assert.Equal(t, uintptr(0), second.AllocatedSize())
}

func TestShutdownWithoutInstanceIsNoop(t *testing.T) {
	require.NoError(t, Shutdown())
	require.NoError(t, Shutdown())
}

type payload struct {
	a, b, c int64
}

func TestTypedAllocatorRoundTrip(t *testing.T) {
	defer Shutdown()

	alloc := NewTypedAllocator[payload]()
	p, err := alloc.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, p)

	p.a, p.b, p.c = 1, 2, 3
	assert.Equal(t, int64(1), p.a)

	require.NoError(t, alloc.Deallocate(p))
}

func TestTypedAllocatorRejectsNonPositiveCount(t *testing.T) {
	defer Shutdown()

	alloc := NewTypedAllocator[payload]()
	_, err := alloc.Allocate(0)
	assert.Error(t, err)
}
