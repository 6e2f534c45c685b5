// Package freelist provides the intrusive singly-linked chain of free blocks
// used to move objects between pool tiers.
//
// Blocks are linked through their own first machine word (see internal/block),
// so a List owns no memory of its own: pushing and popping is pure pointer
// patching, and an entire already-linked chain splices on or off in O(1).
//
// A List is single-owner. The thread-cache tier keeps one per bucket with no
// locking; the span tier embeds one per span and mutates it under the
// bucket's span-list lock.
package freelist

import (
	"unsafe"

	"github.com/joshuapare/spanpool/internal/block"
)

// List is an intrusive chain of free blocks plus the slow-start capacity
// counter controlling the owner's next refill batch. The zero value is an
// empty list with a capacity hint of 1.
type List struct {
	head unsafe.Pointer
	size int
	cap  int // slow-start hint; reads clamp to a floor of 1
}

// Push links p in front of the current head. p becomes the new head.
func (l *List) Push(p unsafe.Pointer) {
	if p == nil {
		panic("freelist: push of nil block")
	}
	block.SetNext(p, l.head)
	l.head = p
	l.size++
}

// PushRange splices an already-linked chain of n blocks onto the front.
// start must reach end in exactly n-1 forward links; the chain's interior
// links are taken as-is, only end's link is patched.
func (l *List) PushRange(start, end unsafe.Pointer, n int) {
	if start == nil || end == nil || n <= 0 {
		panic("freelist: push of empty range")
	}
	block.SetNext(end, l.head)
	l.head = start
	l.size += n
}

// Pop removes and returns the head block. Callers must check Empty first;
// popping an empty list is a caller bug and panics.
func (l *List) Pop() unsafe.Pointer {
	if l.head == nil {
		panic("freelist: pop of empty list")
	}
	p := l.head
	l.head = block.Next(p)
	l.size--
	return p
}

// PopRange detaches up to n blocks from the front, preserving chain order.
// The returned chain is terminated (end's forward link is nil) and got
// reports how many blocks were actually detached.
func (l *List) PopRange(n int) (start, end unsafe.Pointer, got int) {
	if n <= 0 || l.head == nil {
		return nil, nil, 0
	}
	got = n
	if got > l.size {
		got = l.size
	}
	start = l.head
	end = start
	for i := 1; i < got; i++ {
		end = block.Next(end)
	}
	l.head = block.Next(end)
	l.size -= got
	block.SetNext(end, nil)
	return start, end, got
}

// Empty reports whether the list holds no blocks.
func (l *List) Empty() bool {
	return l.head == nil
}

// Len returns the number of linked blocks.
func (l *List) Len() int {
	return l.size
}

// Cap returns the slow-start capacity hint: how many objects the owner should
// request on its next refill. Never below 1.
func (l *List) Cap() int {
	if l.cap < 1 {
		return 1
	}
	return l.cap
}

// GrowCap advances the capacity hint by one, clamped to ceiling. The hint
// never decreases, so once usage is proven the owner keeps its batch size.
func (l *List) GrowCap(ceiling int) {
	c := l.Cap()
	if c < ceiling {
		c++
	}
	l.cap = c
}
