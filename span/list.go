package span

import "sync"

// List is a sentinel-closed, circular, doubly-linked list of spans with its
// own bucket mutex. The sentinel never holds data; the list is empty exactly
// when the sentinel links to itself.
//
// Structural mutation requires holding the list's lock (or exclusive access
// to the whole list, as the page cache has under its tier lock). Erase only
// unlinks: ownership of the span transfers to the caller, which must re-insert
// it elsewhere or return it to the page supplier.
//
// The zero value is an empty, usable list.
type List struct {
	mu   sync.Mutex
	root Span // sentinel
}

// lazyInit closes the zero-value list into a circle on first use.
func (l *List) lazyInit() {
	if l.root.next == nil {
		l.root.next = &l.root
		l.root.prev = &l.root
	}
}

// Lock acquires the bucket mutex.
func (l *List) Lock() { l.mu.Lock() }

// Unlock releases the bucket mutex.
func (l *List) Unlock() { l.mu.Unlock() }

// Begin returns the first span, or End() when the list is empty.
func (l *List) Begin() *Span {
	l.lazyInit()
	return l.root.next
}

// End returns the sentinel. It is never a real span; iteration runs
// from Begin() until End().
func (l *List) End() *Span {
	l.lazyInit()
	return &l.root
}

// Empty reports whether no real span is linked.
func (l *List) Empty() bool {
	l.lazyInit()
	return l.root.next == &l.root
}

// InsertBefore splices s immediately before cur in O(1). cur must be a
// member of this list (the sentinel included, to append at the tail) and
// s must not be linked anywhere.
func (l *List) InsertBefore(cur, s *Span) {
	l.lazyInit()
	if cur == nil || cur.prev == nil {
		panic("span: insert before unlinked span")
	}
	if s == nil {
		panic("span: insert of nil span")
	}
	if s.next != nil || s.prev != nil {
		panic("span: insert of already linked span")
	}
	prev := cur.prev
	prev.next = s
	s.prev = prev
	s.next = cur
	cur.prev = s
}

// Erase unlinks s in O(1) and clears its links. Erasing the sentinel or a
// span that is not currently linked is a fatal caller bug. The span itself
// is never destroyed here.
func (l *List) Erase(s *Span) {
	l.lazyInit()
	if s == &l.root {
		panic("span: erase of sentinel")
	}
	if s == nil || s.next == nil || s.prev == nil {
		panic("span: erase of unlinked span")
	}
	s.prev.next = s.next
	s.next.prev = s.prev
	s.next = nil
	s.prev = nil
}

// PushFront inserts s at the head of the list.
func (l *List) PushFront(s *Span) {
	l.InsertBefore(l.Begin(), s)
}

// PopFront unlinks and returns the first span. Panics when the list is empty.
func (l *List) PopFront() *Span {
	if l.Empty() {
		panic("span: pop of empty list")
	}
	s := l.Begin()
	l.Erase(s)
	return s
}
