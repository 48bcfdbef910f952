// Package globalpool supplies two adapter surfaces on top of pool: a
// lazily initialized, process-wide RegionPool singleton (the "global
// allocator override" use case) and a generic container-allocator
// adapter on top of it. Neither hook actually intercepts Go's own
// new/make — Go gives no way for a library to do that — they are the
// closest supportable equivalent: a shared pool any part of a program
// can reach for, and a typed wrapper that computes n*sizeof(T) the way a
// container allocator would.
package globalpool

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/shenjiangwei/poolkit/pool"
)

var (
	once     sync.Once
	instance *pool.RegionPool
	mu       sync.Mutex
)

// Instance returns the process-wide RegionPool, creating it on first
// call. The pool is backed by the heap and uses an independent
// MmapBacking for its own block metadata, so that metadata growth for
// the global pool never recurses back into the global pool itself.
func Instance() *pool.RegionPool {
	once.Do(func() {
		instance = pool.NewRegionPool(
			pool.NewHeapBacking(),
			pool.WithMetadataBacking(pool.NewMmapBacking()),
		)
		logrus.WithField("subsystem", "globalpool").Info("initialized process-wide region pool")
	})
	return instance
}

// Shutdown tears down the process-wide pool, if one was ever created.
// Safe to call even if Instance was never invoked. Not safe to call
// concurrently with other users of Instance() — it exists for orderly
// shutdown at process exit.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		return nil
	}
	used := instance.AllocatedSize()
	err := instance.Close()
	instance = nil
	once = sync.Once{}

	logrus.WithField("subsystem", "globalpool").Infof("shut down global pool, %s was still allocated", humanize.Bytes(uint64(used)))
	return err
}

// TypedAllocator presents the process-wide pool as a per-element typed
// allocator, computing n*sizeof(T) and forwarding to Allocate/Deallocate.
type TypedAllocator[T any] struct {
	pool *pool.RegionPool
}

// NewTypedAllocator builds a TypedAllocator bound to the process-wide
// singleton.
func NewTypedAllocator[T any]() *TypedAllocator[T] {
	return &TypedAllocator[T]{pool: Instance()}
}

// Allocate reserves room for n contiguous values of T and returns a
// typed pointer to the first one.
func (a *TypedAllocator[T]) Allocate(n int) (*T, error) {
	if n <= 0 {
		return nil, fmt.Errorf("globalpool: n must be positive, got %d", n)
	}
	var zero T
	size := uintptr(n) * unsafe.Sizeof(zero)

	addr, err := a.pool.Allocate(size)
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(addr)), nil
}

// Deallocate releases memory previously returned by Allocate.
func (a *TypedAllocator[T]) Deallocate(ptr *T) error {
	return a.pool.Deallocate(uintptr(unsafe.Pointer(ptr)))
}
