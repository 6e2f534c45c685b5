// Package pagecache is the page supplier tier: it grants spans carved from
// OS memory, takes fully idle spans back, and coalesces adjacent page runs
// so large spans can be re-formed.
//
// One tier-wide lock guards all state. Critical sections are bounded pointer
// and map work; the tiers above only enter here after their own bucket free
// lists and span lists are exhausted, so contention is rare by construction.
package pagecache

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/joshuapare/spanpool/freelist"
	"github.com/joshuapare/spanpool/internal/sysmem"
	"github.com/joshuapare/spanpool/sizeclass"
	"github.com/joshuapare/spanpool/span"
)

// MaxSpanPages bounds the page count of any span the cache manages. A fresh
// OS grant covers exactly this many pages, which is also the worst-case span
// a single batch needs (MaxBytes objects at the minimum batch of 2).
const MaxSpanPages = 128

// Cache is the page-supplier tier.
type Cache struct {
	mu sync.RWMutex

	// idle[k] holds idle spans covering exactly k pages; idle[0] is unused.
	// The embedded span.List mutexes are not used here; everything is
	// guarded by mu.
	idle [MaxSpanPages + 1]span.List

	// byPage maps every tracked page to its owning span, for object→span
	// lookup and page-run coalescing.
	byPage map[span.PageID]*span.Span

	// grants retains every raw OS grant for Close.
	grants [][]byte
}

// New returns an empty page cache. Memory is granted lazily on first NewSpan.
func New() *Cache {
	return &Cache{byPage: make(map[span.PageID]*span.Span)}
}

// NewSpan hands out a span covering pages pages, carved for objectSize and
// marked as held by the central tier. The hand-off is atomic from the span's
// perspective: the span is fully carved and mapped before it is visible to
// the caller.
func (c *Cache) NewSpan(pages, objectSize int) (*span.Span, error) {
	if pages <= 0 || pages > MaxSpanPages {
		panic("pagecache: span page count out of range")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.take(pages)
	if err != nil {
		return nil, err
	}
	s.InCentral = true
	s.Carve(objectSize)
	c.mapSpan(s)
	return s, nil
}

// take detaches an idle span of exactly pages pages, splitting a larger one
// or pulling a fresh OS grant when needed. Caller holds mu.
func (c *Cache) take(pages int) (*span.Span, error) {
	for k := pages; k <= MaxSpanPages; k++ {
		if c.idle[k].Empty() {
			continue
		}
		s := c.idle[k].PopFront()
		if k == pages {
			return s, nil
		}
		// Hand out the head of the run; the tail stays idle.
		head := s.Split(pages)
		c.idle[s.Pages].PushFront(s)
		c.mapSpan(s)
		return head, nil
	}

	if err := c.grow(); err != nil {
		return nil, err
	}
	return c.take(pages)
}

// grow pulls one MaxSpanPages grant from the OS and parks it idle.
// Caller holds mu.
func (c *Cache) grow() error {
	grant, err := sysmem.Alloc(MaxSpanPages * sizeclass.PageSize)
	if err != nil {
		return fmt.Errorf("pagecache: OS grant failed: %w", err)
	}
	c.grants = append(c.grants, grant)

	s := span.New(unsafe.Pointer(unsafe.SliceData(grant)), MaxSpanPages)
	c.idle[s.Pages].PushFront(s)
	c.mapSpan(s)
	return nil
}

// ReleaseSpan takes back a fully idle span from the central tier, coalesces
// it with adjacent idle page runs, and parks the result. Releasing a span
// with live objects is a fatal caller bug.
func (c *Cache) ReleaseSpan(s *span.Span) {
	if s.Live != 0 {
		panic("pagecache: release of live span")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s.InCentral = false
	s.ObjectSize = 0
	s.Free = freelist.List{}

	// Merge backward while the run stays within MaxSpanPages.
	for s.Pages < MaxSpanPages {
		prev, ok := c.byPage[s.ID-1]
		if !ok || prev.InCentral || prev.Pages+s.Pages > MaxSpanPages {
			break
		}
		c.idle[prev.Pages].Erase(prev)
		prev.Absorb(s)
		s = prev
	}

	// Merge forward.
	for s.Pages < MaxSpanPages {
		next, ok := c.byPage[s.ID+span.PageID(s.Pages)]
		if !ok || next.InCentral || next.Pages+s.Pages > MaxSpanPages {
			break
		}
		c.idle[next.Pages].Erase(next)
		s.Absorb(next)
	}

	c.mapSpan(s)
	c.idle[s.Pages].PushFront(s)
}

// SpanOf returns the span owning the page p points into. A pointer outside
// every tracked page is structural corruption and panics; use Lookup for the
// recoverable form.
func (c *Cache) SpanOf(p unsafe.Pointer) *span.Span {
	s, ok := c.Lookup(p)
	if !ok {
		panic("pagecache: no span for pointer")
	}
	return s
}

// Lookup returns the span owning the page p points into, if any. The span's
// fields may only be read under a lock that excludes release (the owning
// bucket's lock while InCentral, or this tier's lock); callers without one
// should use Locate instead.
func (c *Cache) Lookup(p unsafe.Pointer) (*span.Span, bool) {
	id := span.PageID(uintptr(p) >> sizeclass.PageShift)
	c.mu.RLock()
	s, ok := c.byPage[id]
	c.mu.RUnlock()
	return s, ok
}

// Locate returns the base address and object size of the span owning the
// page p points into. Both are read under the tier lock, so a concurrent
// release cannot tear them; an idle span reads as objectSize 0.
func (c *Cache) Locate(p unsafe.Pointer) (base unsafe.Pointer, objectSize int, ok bool) {
	id := span.PageID(uintptr(p) >> sizeclass.PageShift)
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byPage[id]
	if !ok {
		return nil, 0, false
	}
	return s.Base(), s.ObjectSize, true
}

// Close returns every OS grant. Valid only once no object carved from this
// cache is live anywhere; the cache must not be used afterwards.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, grant := range c.grants {
		if err := sysmem.Free(grant); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.grants = nil
	c.byPage = make(map[span.PageID]*span.Span)
	c.idle = [MaxSpanPages + 1]span.List{}
	return firstErr
}

// mapSpan points every page of s at s. Caller holds mu.
func (c *Cache) mapSpan(s *span.Span) {
	for i := 0; i < s.Pages; i++ {
		c.byPage[s.ID+span.PageID(i)] = s
	}
}

// Stats reports the cache's current idle inventory.
type Stats struct {
	Grants    int // OS grants taken since creation
	IdleSpans int // spans parked in the page buckets
	IdlePages int // total pages those spans cover
}

// Stats snapshots the idle inventory.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{Grants: len(c.grants)}
	for k := 1; k <= MaxSpanPages; k++ {
		for s := c.idle[k].Begin(); s != c.idle[k].End(); s = s.Next() {
			st.IdleSpans++
			st.IdlePages += s.Pages
		}
	}
	return st
}
