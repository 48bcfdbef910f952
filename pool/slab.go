package pool

import (
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/willf/bitset"
)

// DefaultSlabWords is the default number of 64-bit words backing each
// slab's occupancy bitmap, giving a default capacity of 64*64 = 4096
// slots per slab.
const DefaultSlabWords = 64

const bitsPerWord = 64

// slab is one contiguous backing allocation formatted as CAPACITY slots
// of T; its occupancy bitmap is a separate bitset on the Go heap, not
// part of the backing allocation. A set bit in avail means the
// corresponding slot is free — the inverse of "in use".
type slab[T any] struct {
	data      unsafe.Pointer
	avail     *bitset.BitSet
	freeCount uint
	next      *slab[T]
}

// SlabPool is a fixed-size object pool for values of type T. It hands
// out slots in O(1) amortized time from a chain of slabs, each holding
// CAPACITY = words*64 slots, using a bitmap to track occupancy.
//
// SlabPool is not safe for concurrent use.
type SlabPool[T any] struct {
	backing  Backing
	capacity uint
	elemSize uintptr
	head     *slab[T]
	tail     *slab[T]
	slabs    int
	inUse    uint
}

// NewSlabPool creates a pool with one pre-allocated slab, matching the
// one pre-allocated slab, matching a fixed-size pool's usual
// constructor contract.
func NewSlabPool[T any](backing Backing, words int) *SlabPool[T] {
	if words <= 0 {
		words = DefaultSlabWords
	}
	var zero T
	p := &SlabPool[T]{
		backing:  backing,
		capacity: uint(words) * bitsPerWord,
		elemSize: unsafe.Sizeof(zero),
	}
	if err := p.addSlab(); err != nil {
		fatalf("slab", "failed to allocate initial slab: %v", err)
	}
	return p
}

func (p *SlabPool[T]) slabBytes() uintptr {
	return uintptr(p.capacity) * p.elemSize
}

func (p *SlabPool[T]) addSlab() error {
	addr, err := p.backing.Allocate(p.slabBytes())
	if err != nil {
		return ErrBackingExhausted
	}

	s := &slab[T]{
		data:      unsafe.Pointer(addr),
		avail:     bitset.New(p.capacity),
		freeCount: p.capacity,
	}
	// every bit starts free
	for i := uint(0); i < p.capacity; i++ {
		s.avail.Set(i)
	}

	if p.head == nil {
		p.head = s
		p.tail = s
	} else {
		p.tail.next = s
		p.tail = s
	}
	p.slabs++
	debugf("slab", "grew pool by one slab, capacity=%d total_slabs=%d", p.capacity, p.slabs)
	return nil
}

// Allocate returns a pointer to a free slot, growing the slab chain at
// the tail if none currently has room. It only fails by backing-source
// exhaustion, which callers should treat as fatal.
func (p *SlabPool[T]) Allocate() (*T, error) {
	for s := p.head; s != nil; s = s.next {
		if s.freeCount == 0 {
			continue
		}
		idx, ok := s.avail.NextSet(0)
		if !ok {
			// freeCount says there should be a free bit; treat as
			// corruption rather than silently skipping.
			fatalf("slab", "slab free_count=%d but no free bit found", s.freeCount)
		}
		s.avail.Clear(idx)
		s.freeCount--
		p.inUse++

		slot := unsafe.Pointer(uintptr(s.data) + uintptr(idx)*p.elemSize)
		return (*T)(slot), nil
	}

	if err := p.addSlab(); err != nil {
		return nil, err
	}
	return p.Allocate()
}

// Deallocate returns ptr's slot to its slab. If ptr does not belong to
// any slab, or its slot is already free (a double free), it returns
// ErrUnknownPointer and logs a diagnostic rather than failing fatally.
func (p *SlabPool[T]) Deallocate(ptr *T) error {
	addr := uintptr(unsafe.Pointer(ptr))

	for s := p.head; s != nil; s = s.next {
		start := uintptr(s.data)
		end := start + uintptr(p.capacity)*p.elemSize
		if addr < start || addr >= end {
			continue
		}

		idx := uint((addr - start) / p.elemSize)
		if s.avail.Test(idx) {
			errorf("slab", "double free or unallocated slot at index %d", idx)
			return ErrUnknownPointer
		}

		s.avail.Set(idx)
		s.freeCount++
		p.inUse--
		return nil
	}

	errorf("slab", "pointer %#x not found in any slab", addr)
	return ErrUnknownPointer
}

// AllocatedSize returns slots-in-use * sizeof(T).
func (p *SlabPool[T]) AllocatedSize() uintptr {
	return uintptr(p.inUse) * p.elemSize
}

// TotalSize returns the number of slabs times the byte size of one slab.
func (p *SlabPool[T]) TotalSize() uintptr {
	return uintptr(p.slabs) * p.slabBytes()
}

// NumSlabs returns the number of slabs currently held by the pool.
func (p *SlabPool[T]) NumSlabs() int {
	return p.slabs
}

// SlabSize returns the byte size of a single slab, mirroring the
// original FixedSizePool::poolSize().
func (p *SlabPool[T]) SlabSize() uintptr {
	return p.slabBytes()
}

// Close returns every slab to the backing source. The pool must not be
// used afterward.
func (p *SlabPool[T]) Close() error {
	var errs *multierror.Error
	for s := p.head; s != nil; {
		next := s.next
		if err := p.backing.Deallocate(uintptr(s.data)); err != nil {
			errs = multierror.Append(errs, err)
		}
		s = next
	}
	p.head, p.tail, p.slabs, p.inUse = nil, nil, 0, 0
	return errs.ErrorOrNil()
}
