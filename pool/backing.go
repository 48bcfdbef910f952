package pool

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Backing is the only dependency the pools have on the outside world: an
// abstract byte source that can grow (Allocate) and shrink
// (Deallocate). Concrete backings are plug-ins; HeapBacking and
// MmapBacking below are the ones this repository wires up end to end.
//
// Allocate must not return a zero address on success; Deallocate is
// always called with an address that was previously returned by
// Allocate on the same Backing and never twice for the same address.
type Backing interface {
	Allocate(n uintptr) (uintptr, error)
	Deallocate(addr uintptr) error
}

// HeapBacking is a pass-through to the Go heap. Spans are ordinary
// []byte slices; because Allocate hands back only their address as a
// uintptr (which carries no pointer provenance and does not keep the
// backing array alive on its own), HeapBacking retains every live span
// in a registry until Deallocate releases it.
type HeapBacking struct {
	mu    sync.Mutex
	spans map[uintptr][]byte
}

// NewHeapBacking creates a Backing that serves spans out of the Go heap.
func NewHeapBacking() *HeapBacking {
	return &HeapBacking{spans: make(map[uintptr][]byte)}
}

func (h *HeapBacking) Allocate(n uintptr) (uintptr, error) {
	if n == 0 {
		return 0, ErrSizeTooLarge
	}
	span := make([]byte, n)
	addr := uintptr(unsafe.Pointer(&span[0]))

	h.mu.Lock()
	h.spans[addr] = span
	h.mu.Unlock()

	return addr, nil
}

func (h *HeapBacking) Deallocate(addr uintptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.spans[addr]; !ok {
		return ErrUnknownPointer
	}
	delete(h.spans, addr)
	return nil
}

// MmapBacking serves anonymous, private mmap spans via
// golang.org/x/sys/unix, bypassing the Go heap entirely. Metadata slab
// pools whose data backing is itself pool-routed should use MmapBacking
// so that growing metadata never calls back into the pool it is
// metadata for.
type MmapBacking struct {
	mu      sync.Mutex
	lengths map[uintptr]int
}

// NewMmapBacking creates a Backing that serves spans via mmap(2).
func NewMmapBacking() *MmapBacking {
	return &MmapBacking{lengths: make(map[uintptr]int)}
}

func (m *MmapBacking) Allocate(n uintptr) (uintptr, error) {
	if n == 0 {
		return 0, ErrSizeTooLarge
	}
	data, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, ErrBackingExhausted
	}
	addr := uintptr(unsafe.Pointer(&data[0]))

	m.mu.Lock()
	m.lengths[addr] = len(data)
	m.mu.Unlock()

	return addr, nil
}

func (m *MmapBacking) Deallocate(addr uintptr) error {
	m.mu.Lock()
	length, ok := m.lengths[addr]
	if ok {
		delete(m.lengths, addr)
	}
	m.mu.Unlock()

	if !ok {
		return ErrUnknownPointer
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
	return unix.Munmap(data)
}
