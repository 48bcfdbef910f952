package pool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	A uint64
	B uint64
}

func TestSlabPoolAllocateReturnsDistinctSlots(t *testing.T) {
	p := NewSlabPool[testStruct](NewHeapBacking(), 1)

	seen := make(map[*testStruct]bool)
	for i := 0; i < 64; i++ {
		ptr, err := p.Allocate()
		require.NoError(t, err)
		require.False(t, seen[ptr], "slot returned twice")
		seen[ptr] = true
		ptr.A = uint64(i)
	}
	assert.Equal(t, 1, p.NumSlabs())
}

func TestSlabPoolGrowsOnFullSlab(t *testing.T) {
	p := NewSlabPool[testStruct](NewHeapBacking(), 1) // capacity 64

	for i := 0; i < 64; i++ {
		_, err := p.Allocate()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, p.NumSlabs())

	_, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 2, p.NumSlabs(), "65th allocation should grow the chain")
}

// TestSlabPoolRoundTrip checks that deallocating a
// pointer restores the bitmap word that held its bit.
func TestSlabPoolRoundTrip(t *testing.T) {
	p := NewSlabPool[testStruct](NewHeapBacking(), 1)

	before := p.AllocatedSize()
	availBefore := p.head.avail.Clone()
	ptr, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, before+unsafe.Sizeof(testStruct{}), p.AllocatedSize())

	require.NoError(t, p.Deallocate(ptr))
	assert.Equal(t, before, p.AllocatedSize())
	assert.True(t, availBefore.Equal(p.head.avail), "bitmap not restored")
}

func TestSlabPoolDeallocateUnknownPointer(t *testing.T) {
	p := NewSlabPool[testStruct](NewHeapBacking(), 1)
	bogus := &testStruct{}
	err := p.Deallocate(bogus)
	assert.ErrorIs(t, err, ErrUnknownPointer)
}

func TestSlabPoolDoubleFreeIsUnknownPointer(t *testing.T) {
	p := NewSlabPool[testStruct](NewHeapBacking(), 1)
	ptr, err := p.Allocate()
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr))

	err = p.Deallocate(ptr)
	assert.ErrorIs(t, err, ErrUnknownPointer)
}

func TestSlabPoolAllocatedAndTotalSize(t *testing.T) {
	p := NewSlabPool[testStruct](NewHeapBacking(), 1)
	elemSize := p.elemSize

	for i := 0; i < 10; i++ {
		_, err := p.Allocate()
		require.NoError(t, err)
	}
	assert.Equal(t, uintptr(10)*elemSize, p.AllocatedSize())
	assert.Equal(t, p.SlabSize(), p.TotalSize())
}

func TestSlabPoolCloseReturnsToBacking(t *testing.T) {
	backing := NewHeapBacking()
	p := NewSlabPool[testStruct](backing, 1)
	_, err := p.Allocate()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.NumSlabs())
}
