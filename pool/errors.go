package pool

import "errors"

// Error definitions. Backing exhaustion and metadata exhaustion are
// returned to the caller as errors (the package itself only aborts, via
// fatalf, when a SlabPool cannot allocate its initial slab or finds its
// bitmap corrupt); an unknown pointer passed to Deallocate leaves the
// pool unchanged and is logged as a diagnostic.
var (
	// ErrBackingExhausted is returned when the backing source cannot
	// satisfy a span request.
	ErrBackingExhausted = errors.New("pool: backing source exhausted")
	// ErrMetadataExhausted is returned when the internal block-metadata
	// slab pool cannot grow.
	ErrMetadataExhausted = errors.New("pool: block metadata pool exhausted")
	// ErrUnknownPointer is returned when Deallocate is called with a
	// pointer that is not currently allocated from this pool.
	ErrUnknownPointer = errors.New("pool: pointer not found in used list")
	// ErrInvalidAlignment describes a configured alignment that is not a
	// power of two. NewRegionPool does not return it: it logs the problem
	// and falls back to DefaultAlignment.
	ErrInvalidAlignment = errors.New("pool: alignment must be a power of two")
	// ErrSizeTooLarge is returned when a requested size cannot possibly
	// be satisfied (zero, or larger than the backing can ever provide).
	ErrSizeTooLarge = errors.New("pool: requested size too large")
)
