package pool

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// block is one contiguous byte region carved out of a backing span. It
// lives in exactly one of {free list, used list}: free via
// RegionPool.free (sorted ascending by addr), used via RegionPool.used
// (unordered). isHead is true iff addr/len exactly match an original
// backing allocation — the only block whose addr may be handed back to
// the backing source.
type block struct {
	addr   uintptr
	len    uintptr
	isHead bool
	next   *block

	// requested is the size the caller asked for when this block was
	// published to the used list. It can differ from len when len was
	// left at its alignment-padded size rather than split down exactly.
	// AllocatedSize tracks requested, not len, so that Allocate/Deallocate
	// stay symmetric regardless of padding slack.
	requested uintptr
}

// RegionPool manages variable-length byte regions cut from larger spans
// obtained from a Backing. It finds the best (tightest) fitting free
// block for each request, splitting it when the fit isn't exact, and
// coalesces adjacent free blocks on free as long as doing so would not
// merge across an original backing-allocation boundary. Block metadata
// nodes are themselves allocated out of an internal SlabPool[block].
//
// RegionPool is not safe for concurrent use.
type RegionPool struct {
	backing   Backing
	blockPool *SlabPool[block]

	free *block
	used *block

	minBytes   uintptr
	alignment  uintptr
	allocBytes uintptr
	totalBytes uintptr
}

// NewRegionPool creates an empty RegionPool — unlike SlabPool, it holds
// no backing spans until the first Allocate call.
func NewRegionPool(backing Backing, opts ...Option) *RegionPool {
	o := defaultRegionOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !isPowerOfTwo(o.alignment) {
		errorf("region", "alignment %d is not a power of two, falling back to %d", o.alignment, DefaultAlignment)
		o.alignment = DefaultAlignment
	}

	metaBacking := backing
	if o.useGivenMeta {
		metaBacking = o.metaBacking
	}

	return &RegionPool{
		backing:   backing,
		blockPool: NewSlabPool[block](metaBacking, o.slabWords),
		minBytes:  o.minBytes,
		alignment: o.alignment,
	}
}

func alignUp(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}

// findUsableBlock scans the free list for the smallest block whose len
// is >= n (best fit), breaking ties by list order — the first such
// block encountered wins. Returns the chosen block and its predecessor
// in the free list (nil if it's the head).
func (r *RegionPool) findUsableBlock(n uintptr) (best, prev *block) {
	var iterPrev *block
	for iter := r.free; iter != nil; iter = iter.next {
		if iter.len >= n && (best == nil || iter.len < best.len) {
			best = iter
			prev = iterPrev
		}
		iterPrev = iter
	}
	return best, prev
}

// allocateBlock requests a new span from the backing source sized to
// max(align_up(n, A), MinBytes), wraps it in a head block, and inserts
// that block into the free list at its address-sorted position.
func (r *RegionPool) allocateBlock(n uintptr) (curr, prev *block, err error) {
	sizeToAlloc := alignUp(n, r.alignment)
	if sizeToAlloc < r.minBytes {
		sizeToAlloc = r.minBytes
	}

	addr, allocErr := r.backing.Allocate(sizeToAlloc)
	if allocErr != nil {
		return nil, nil, ErrBackingExhausted
	}
	r.totalBytes += sizeToAlloc

	var next *block
	for next = r.free; next != nil && next.addr < addr; next = next.next {
		prev = next
	}

	curr, metaErr := r.blockPool.Allocate()
	if metaErr != nil {
		return nil, nil, ErrMetadataExhausted
	}
	curr.addr = addr
	curr.len = sizeToAlloc
	curr.isHead = true
	curr.next = next

	if prev != nil {
		prev.next = curr
	} else {
		r.free = curr
	}
	return curr, prev, nil
}

// splitBlock trims curr down to exactly n bytes, pushing the remainder
// back into the free list as a new non-head block when the fit wasn't
// already exact (or exact up to alignment). curr is removed from the
// free list either way; the caller publishes it to the used list.
func (r *RegionPool) splitBlock(curr, prev *block, n uintptr) error {
	aligned := alignUp(n, r.alignment)
	var next *block

	if curr.len == n || curr.len == aligned {
		next = curr.next
	} else {
		remaining := curr.len - n
		newBlock, err := r.blockPool.Allocate()
		if err != nil {
			return ErrMetadataExhausted
		}
		newBlock.addr = curr.addr + n
		newBlock.len = remaining
		newBlock.isHead = false
		newBlock.next = curr.next
		next = newBlock
		curr.len = n
	}

	if prev != nil {
		prev.next = next
	} else {
		r.free = next
	}
	return nil
}

// Allocate returns a pointer to a region of at least n bytes.
func (r *RegionPool) Allocate(n uintptr) (uintptr, error) {
	if n == 0 {
		return 0, ErrSizeTooLarge
	}

	best, prev := r.findUsableBlock(n)
	if best == nil {
		var err error
		best, prev, err = r.allocateBlock(n)
		if err != nil {
			errorf("region", "allocate %d bytes failed: %v", n, err)
			return 0, err
		}
	}

	if err := r.splitBlock(best, prev, n); err != nil {
		return 0, err
	}

	best.requested = n
	best.next = r.used
	r.used = best
	r.allocBytes += n

	debugf("region", "allocated %d bytes at %#x", n, best.addr)
	return best.addr, nil
}

// releaseBlock unlinks curr from the used list (curr must currently be
// at position prev.next, or be r.used if prev is nil), reinserts it at
// its sorted position in the free list, and coalesces with neighbors.
//
// The merge rule: a merge is allowed only when the right-hand block of
// the pair is not a head. Merging curr into its left neighbor therefore
// requires !curr.isHead, and absorbing the right neighbor into curr
// requires !next.isHead; no merge ever crosses the start of an original
// backing allocation.
func (r *RegionPool) releaseBlock(curr, prev *block) {
	if prev != nil {
		prev.next = curr.next
	} else {
		r.used = curr.next
	}

	prev = nil
	for temp := r.free; temp != nil && temp.addr < curr.addr; temp = temp.next {
		prev = temp
	}
	var next *block
	if prev != nil {
		next = prev.next
	} else {
		next = r.free
	}

	if prev != nil && prev.addr+prev.len == curr.addr && !curr.isHead {
		prev.len += curr.len
		_ = r.blockPool.Deallocate(curr)
		curr = prev
	} else if prev != nil {
		prev.next = curr
	} else {
		r.free = curr
	}

	if next != nil && curr.addr+curr.len == next.addr && !next.isHead {
		curr.len += next.len
		curr.next = next.next
		_ = r.blockPool.Deallocate(next)
	} else {
		curr.next = next
	}
}

// Deallocate releases the region starting at ptr back to the free list.
// If ptr is not a currently-used block's address — including the second
// of a double free — the pool is left unchanged, a diagnostic is logged
// at Error level, and ErrUnknownPointer is returned.
func (r *RegionPool) Deallocate(ptr uintptr) error {
	var prev *block
	curr := r.used
	for curr != nil && curr.addr != ptr {
		prev = curr
		curr = curr.next
	}
	if curr == nil {
		errorf("region", "deallocate: address %#x not in used list (double free or invalid)", ptr)
		return ErrUnknownPointer
	}

	r.allocBytes -= curr.requested
	r.releaseBlock(curr, prev)
	debugf("region", "freed region at %#x", ptr)
	return nil
}

// AllocatedSize returns the sum of the caller-requested sizes of the
// blocks on the used list (block.requested, which can be smaller than
// block.len when an aligned-exact fit was handed out unsplit).
func (r *RegionPool) AllocatedSize() uintptr { return r.allocBytes }

// TotalSize returns bytes held from the backing source plus the
// metadata SlabPool's own accounting.
func (r *RegionPool) TotalSize() uintptr {
	return r.totalBytes + r.blockPool.TotalSize()
}

// NumFreeBlocks returns the length of the free list.
func (r *RegionPool) NumFreeBlocks() int {
	n := 0
	for b := r.free; b != nil; b = b.next {
		n++
	}
	return n
}

// NumUsedBlocks returns the length of the used list.
func (r *RegionPool) NumUsedBlocks() int {
	n := 0
	for b := r.used; b != nil; b = b.next {
		n++
	}
	return n
}

// Close drains the used list (releasing every block back into free via
// the same coalescing path Deallocate uses), then returns every
// surviving head block to the backing source and every block's metadata
// to the block pool. Every failure encountered is aggregated rather
// than aborting the drain early.
func (r *RegionPool) Close() error {
	var errs *multierror.Error

	for r.used != nil {
		r.allocBytes -= r.used.requested
		r.releaseBlock(r.used, nil)
	}

	for r.free != nil {
		curr := r.free
		if !curr.isHead {
			errs = multierror.Append(errs, fmt.Errorf("pool: non-head free block at %#x survived draining", curr.addr))
		} else if err := r.backing.Deallocate(curr.addr); err != nil {
			errs = multierror.Append(errs, err)
		}
		r.totalBytes -= curr.len
		r.free = curr.next
		_ = r.blockPool.Deallocate(curr)
	}

	if err := r.blockPool.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}
