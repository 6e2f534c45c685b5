// Package central is the shared arbiter tier: it owns one span list per size
// class and exchanges whole batches of objects with the per-owner caches.
//
// All structural work happens under the target bucket's own lock, never more
// than one bucket lock at a time. Critical sections are O(batch) pointer
// patching; the bucket lock is dropped around every page-cache call.
package central

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/spanpool/internal/block"
	"github.com/joshuapare/spanpool/pagecache"
	"github.com/joshuapare/spanpool/sizeclass"
	"github.com/joshuapare/spanpool/span"
)

// Runtime flag for refill/reclaim logging - controlled by SPANPOOL_LOG_ALLOC.
var logAlloc = os.Getenv("SPANPOOL_LOG_ALLOC") != ""

// Cache is the central tier: one span list per bucket, backed by a page cache.
type Cache struct {
	buckets [sizeclass.NumBuckets]span.List
	pages   *pagecache.Cache

	fetches        atomic.Int64
	releases       atomic.Int64
	spansCarved    atomic.Int64
	spansReclaimed atomic.Int64
}

// New returns a central cache backed by pages.
func New(pages *pagecache.Cache) *Cache {
	return &Cache{pages: pages}
}

// FetchRange moves up to want blocks of objectSize out of bucket idx. It
// returns the detached chain (end's forward link is nil) and the actual
// count, which is at least 1 on success: when every span in the bucket is
// exhausted a fresh one is carved from the page cache.
func (c *Cache) FetchRange(idx, want, objectSize int) (start, end unsafe.Pointer, got int, err error) {
	if idx < 0 || idx >= sizeclass.NumBuckets {
		panic("central: bucket index out of range")
	}
	if want < 1 {
		panic("central: non-positive batch size")
	}

	list := &c.buckets[idx]
	list.Lock()
	s, err := c.spanWithFree(list, objectSize)
	if err != nil {
		list.Unlock()
		return nil, nil, 0, err
	}
	start, end, got = s.Free.PopRange(want)
	s.Live += got
	list.Unlock()

	c.fetches.Add(1)
	return start, end, got, nil
}

// spanWithFree returns a span in list whose chain is non-empty, carving a
// fresh one when the whole bucket is exhausted. Called and returns with the
// bucket lock held; the lock is dropped around the page-cache call.
func (c *Cache) spanWithFree(list *span.List, objectSize int) (*span.Span, error) {
	for s := list.Begin(); s != list.End(); s = s.Next() {
		if !s.Free.Empty() {
			return s, nil
		}
	}

	list.Unlock()
	s, err := c.pages.NewSpan(sizeclass.SpanPages(objectSize), objectSize)
	list.Lock()
	if err != nil {
		return nil, err
	}

	c.spansCarved.Add(1)
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[CENTRAL] carved span: pages=%d objectSize=%d capacity=%d\n",
			s.Pages, s.ObjectSize, s.Capacity())
	}
	list.PushFront(s)
	return s, nil
}

// ReleaseRange splices a chain of blocks back into their owning spans in
// bucket idx, walking the chain until its nil terminator. A span whose live
// count returns to zero is unlinked and handed back to the page cache.
func (c *Cache) ReleaseRange(idx int, start unsafe.Pointer) {
	if idx < 0 || idx >= sizeclass.NumBuckets {
		panic("central: bucket index out of range")
	}

	list := &c.buckets[idx]
	list.Lock()
	for p := start; p != nil; {
		next := block.Next(p)
		s := c.pages.SpanOf(p)
		s.Live--
		if s.Live < 0 {
			panic("central: free of block into idle span")
		}
		s.Free.Push(p)

		if s.Live == 0 {
			// Fully drained: reclaim. Ownership leaves this bucket before
			// the page cache touches the span.
			list.Erase(s)
			list.Unlock()
			if logAlloc {
				fmt.Fprintf(os.Stderr, "[CENTRAL] reclaiming span: pages=%d bucket=%d\n",
					s.Pages, idx)
			}
			c.pages.ReleaseSpan(s)
			c.spansReclaimed.Add(1)
			list.Lock()
		}
		p = next
	}
	list.Unlock()

	c.releases.Add(1)
}

// Stats holds cumulative exchange counters.
type Stats struct {
	Fetches        int64 // batches handed to owner caches
	Releases       int64 // batches taken back from owner caches
	SpansCarved    int64 // spans pulled from the page cache
	SpansReclaimed int64 // fully drained spans returned to the page cache
}

// Stats snapshots the exchange counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Fetches:        c.fetches.Load(),
		Releases:       c.releases.Load(),
		SpansCarved:    c.spansCarved.Load(),
		SpansReclaimed: c.spansReclaimed.Load(),
	}
}
