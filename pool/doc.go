// Package pool provides two-tier pooled memory allocators: a generic
// fixed-size slab pool and a variable-size region pool layered on top of
// it. Both sit between application code and a pluggable backing byte
// source (the heap, mmap, or anything else implementing Backing) and
// amortize the cost of backing allocations by holding onto freed memory
// in free-lists instead of round-tripping to the backing source.
//
// Neither pool is safe for concurrent use from multiple goroutines; see
// rpcpool for the one place in this repository that serializes access.
package pool
