package spanpool

import (
	"unsafe"

	"github.com/joshuapare/spanpool/freelist"
	"github.com/joshuapare/spanpool/internal/block"
	"github.com/joshuapare/spanpool/sizeclass"
)

// Local is the per-owner cache tier: one free list per size class, touched
// by exactly one owner at a time, so the fast path takes no locks at all.
//
// When a list runs dry it refills from the central tier in slow-starting
// batches; when a list accumulates a full batch of idle blocks the batch is
// returned. A Local must be Flushed before being abandoned, otherwise the
// blocks it caches keep their spans pinned.
type Local struct {
	pool  *Pool
	lists [sizeclass.NumBuckets]freelist.List
}

// Alloc returns a slice of exactly n bytes; its capacity is the aligned
// class size. Returns sizeclass.ErrZeroSize or sizeclass.ErrSizeTooLarge
// for requests the pool does not serve.
func (l *Local) Alloc(n int) ([]byte, error) {
	size, err := sizeclass.RoundUp(n)
	if err != nil {
		return nil, err
	}
	idx, err := sizeclass.Index(n)
	if err != nil {
		return nil, err
	}

	fl := &l.lists[idx]
	var p unsafe.Pointer
	if !fl.Empty() {
		p = fl.Pop()
	} else {
		p, err = l.refill(idx, size)
		if err != nil {
			return nil, err
		}
	}

	l.pool.allocated.Add(int64(size))
	return unsafe.Slice((*byte)(p), size)[:n:size], nil
}

// refill fetches a slow-starting batch from the central tier, keeps the
// surplus on the local list, and returns the first block.
func (l *Local) refill(idx, size int) (unsafe.Pointer, error) {
	fl := &l.lists[idx]
	limit := sizeclass.BatchLimit(size)
	want := min(fl.Cap(), limit)

	start, end, got, err := l.pool.central.FetchRange(idx, want, size)
	if err != nil {
		return nil, err
	}
	fl.GrowCap(limit)

	if got > 1 {
		fl.PushRange(block.Next(start), end, got-1)
	}
	return start, nil
}

// Free returns a slice obtained from Alloc (of this pool; any Local will
// do). Freeing foreign memory returns ErrNotPooled. The block's class is
// recovered from its owning span, so b need not keep its original length.
func (l *Local) Free(b []byte) error {
	if b == nil {
		return nil
	}
	if cap(b) == 0 {
		return ErrNotPooled
	}
	p := unsafe.Pointer(unsafe.SliceData(b))

	base, size, ok := l.pool.pages.Locate(p)
	if !ok {
		return ErrNotPooled
	}
	if size == 0 {
		// The page is tracked but its span sits idle: stale pointer.
		return ErrNotPooled
	}
	if (uintptr(p)-uintptr(base))%uintptr(size) != 0 {
		// Tracked page, but not a block boundary: a subslice, not the
		// slice Alloc returned.
		return ErrNotPooled
	}
	idx, err := sizeclass.Index(size)
	if err != nil {
		return err
	}

	fl := &l.lists[idx]
	fl.Push(p)
	l.pool.freed.Add(int64(size))

	// A full batch of idle blocks goes back to the central tier.
	if fl.Len() >= fl.Cap() {
		l.drain(idx, fl.Cap())
	}
	return nil
}

// drain returns up to n cached blocks of bucket idx to the central tier.
func (l *Local) drain(idx, n int) {
	start, _, got := l.lists[idx].PopRange(n)
	if got == 0 {
		return
	}
	l.pool.central.ReleaseRange(idx, start)
}

// Flush returns every cached block to the central tier so drained spans can
// be reclaimed. Call before abandoning the Local.
func (l *Local) Flush() {
	for idx := range l.lists {
		if n := l.lists[idx].Len(); n > 0 {
			l.drain(idx, n)
		}
	}
}
