package pool

// DefaultMinBytes is the minimum size requested from the backing source
// per grown span. 4 KiB is a reasonable default: large enough
// that splitting pays off, small enough that tiny workloads don't
// balloon the pool's footprint.
const DefaultMinBytes = 4096

// DefaultAlignment is the boundary every backing request is rounded up
// to. Splits are not aligned: a split cuts at exactly the requested
// size, and a free block whose length equals the request rounded up to
// the alignment is handed out whole instead of being split.
const DefaultAlignment = 16

type regionOptions struct {
	minBytes     uintptr
	alignment    uintptr
	slabWords    int
	metaBacking  Backing
	useGivenMeta bool
}

// Option configures a RegionPool at construction time.
type Option func(*regionOptions)

// WithMinBytes overrides the minimum per-grow backing request.
func WithMinBytes(n uintptr) Option {
	return func(o *regionOptions) { o.minBytes = n }
}

// WithAlignment overrides the alignment boundary. Must be a power of
// two; NewRegionPool will log and fall back to DefaultAlignment
// otherwise.
func WithAlignment(a uintptr) Option {
	return func(o *regionOptions) { o.alignment = a }
}

// WithSlabWords sizes the internal block-metadata SlabPool.
func WithSlabWords(words int) Option {
	return func(o *regionOptions) { o.slabWords = words }
}

// WithMetadataBacking gives the internal block-metadata SlabPool a
// Backing distinct from the one used for data spans. Use this to break
// the reentrancy cycle that would otherwise arise when a RegionPool's
// data Backing is itself routed through this same pool (e.g. via
// globalpool): metadata growth must never recurse back into the pool it
// describes.
func WithMetadataBacking(b Backing) Option {
	return func(o *regionOptions) { o.metaBacking = b; o.useGivenMeta = true }
}

func isPowerOfTwo(n uintptr) bool {
	return n > 0 && n&(n-1) == 0
}

func defaultRegionOptions() regionOptions {
	return regionOptions{
		minBytes:  DefaultMinBytes,
		alignment: DefaultAlignment,
		slabWords: DefaultSlabWords,
	}
}
