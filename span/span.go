// Package span tracks page-granular memory blocks and the intrusive,
// mutex-guarded lists the central tier stores them in.
//
// A Span describes one contiguous run of pages carved into objects of exactly
// one aligned size. A List is a sentinel-closed circular doubly-linked list
// of spans, one per size-class bucket, mutated only under its own lock.
package span

import (
	"unsafe"

	"github.com/joshuapare/spanpool/freelist"
	"github.com/joshuapare/spanpool/internal/block"
	"github.com/joshuapare/spanpool/sizeclass"
)

// PageID identifies one PageSize-sized page: a page's address is
// ID × sizeclass.PageSize.
type PageID uintptr

// Span is one contiguous run of pages carved for a single object size.
//
// A span belongs to at most one List at a time. Once erased from its list
// the erasing caller owns it exclusively until it is re-inserted or handed
// back to the page supplier.
type Span struct {
	// ID is the first page of the run, assigned by the page supplier and
	// immutable while the span is handed out.
	ID PageID

	// Pages is the number of pages covered.
	Pages int

	// ObjectSize is the single aligned size this span is carved into.
	// Zero while the span sits idle in the page cache.
	ObjectSize int

	// Live counts objects currently allocated out of this span. Zero means
	// every block ever carved is back on the free chain and the span is
	// reclaimable.
	Live int

	// InCentral marks a span handed to the central tier. The page cache
	// never coalesces a span while this is set.
	InCentral bool

	// Free owns the chain of carved, not-yet-allocated blocks. Empty exactly
	// when every slot has been handed out.
	Free freelist.List

	base unsafe.Pointer // first byte of the page run
	prev *Span          // intrusive links, owned by the containing List
	next *Span
}

// New wraps a freshly granted page run. base must be the first byte of a
// PageSize-aligned region covering pages pages.
func New(base unsafe.Pointer, pages int) *Span {
	if base == nil || pages <= 0 {
		panic("span: bad page run")
	}
	return &Span{
		ID:    PageID(uintptr(base) >> sizeclass.PageShift),
		Pages: pages,
		base:  base,
	}
}

// Next returns the following span in the containing list. Iteration runs
// from List.Begin() until List.End() and needs the list's lock or exclusive
// access to the list.
func (s *Span) Next() *Span {
	return s.next
}

// Base returns the address of the span's first byte.
func (s *Span) Base() unsafe.Pointer {
	return s.base
}

// Bytes returns the byte length of the page run.
func (s *Span) Bytes() int {
	return s.Pages * sizeclass.PageSize
}

// Capacity returns how many ObjectSize objects the span carves into.
func (s *Span) Capacity() int {
	return s.Bytes() / s.ObjectSize
}

// Split detaches the first pages pages into a new span and advances s past
// them. s must be uncarved, cover more than pages pages, and be detached
// from any list.
func (s *Span) Split(pages int) *Span {
	if pages <= 0 || pages >= s.Pages {
		panic("span: split page count out of range")
	}
	if s.Live != 0 || !s.Free.Empty() {
		panic("span: split of carved span")
	}
	head := &Span{ID: s.ID, Pages: pages, base: s.base}
	s.ID += PageID(pages)
	s.Pages -= pages
	s.base = unsafe.Add(s.base, pages*sizeclass.PageSize)
	return head
}

// Absorb extends s over the pages of other, which must start exactly where
// s ends. other's struct is dead afterwards.
func (s *Span) Absorb(other *Span) {
	if other.ID != s.ID+PageID(s.Pages) {
		panic("span: absorb of non-adjacent span")
	}
	s.Pages += other.Pages
}

// Carve slices the page run into ObjectSize blocks and rebuilds the free
// chain in address order. Any previous chain is discarded; the span must
// have no live objects.
func (s *Span) Carve(objectSize int) {
	if objectSize < int(unsafe.Sizeof(uintptr(0))) {
		panic("span: object size below one machine word")
	}
	if s.Live != 0 {
		panic("span: carve of live span")
	}
	s.ObjectSize = objectSize

	n := s.Bytes() / objectSize
	first := s.base
	p := first
	for i := 1; i < n; i++ {
		next := unsafe.Add(p, objectSize)
		block.SetNext(p, next)
		p = next
	}
	block.SetNext(p, nil)

	s.Free = freelist.List{}
	s.Free.PushRange(first, p, n)
}
