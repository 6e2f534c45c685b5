// Package spanpool is a thread-caching memory pool for small-to-medium
// objects (1 byte to 256 KiB), built on size-classed spans of OS pages.
//
// # Overview
//
// Three tiers cooperate, each shielding the one below from contention:
//
//   - Local: a per-owner cache of 208 size-class free lists. Allocation and
//     free are lock-free pointer pops and pushes as long as the local list
//     can serve them.
//   - central: one mutex-guarded span list per size class. Owner caches
//     exchange whole batches of objects here; batch sizes start at 1 and
//     slow-start up to a per-class ceiling.
//   - pagecache: grants spans carved from anonymous OS memory, takes fully
//     drained spans back, and coalesces adjacent page runs.
//
// # Usage
//
// Hot paths should hold one Local per goroutine or worker:
//
//	pool := spanpool.New()
//	local := pool.NewLocal() // not safe for concurrent use
//
//	buf, err := local.Alloc(192)
//	if err != nil {
//	    return err
//	}
//	// ... use buf ...
//	if err := local.Free(buf); err != nil {
//	    return err
//	}
//
//	local.Flush() // before abandoning the Local
//
// Pool.Alloc and Pool.Free are concurrency-safe conveniences that borrow a
// Local from an internal pool per call.
//
// # Size classes
//
// Requests round up inside five alignment bands (8-byte steps up to 128
// bytes, through 8 KiB steps up to 256 KiB), bounding internal fragmentation
// to roughly 10%. Requests above 256 KiB return an error; the pool has no
// large-object path.
//
// # Failure discipline
//
// Size errors are returned before any lock is taken. Structural corruption
// (freeing a foreign pointer through internal paths, erasing unlinked spans,
// popping empty free lists) panics at the point of detection rather than
// letting a corrupted chain propagate to every owner of the bucket.
//
// # Related packages
//
//   - github.com/joshuapare/spanpool/sizeclass: request→class mapping
//   - github.com/joshuapare/spanpool/freelist: intrusive block chains
//   - github.com/joshuapare/spanpool/span: page-run tracking and bucket lists
package spanpool
