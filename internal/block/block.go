// Package block holds the raw-pointer splicing for intrusive free chains.
//
// A free block stores the address of the next free block in its own first
// machine word; the rest of the block is opaque to the pool. Every unsafe
// read or write of that word lives in this package so the rest of the
// allocator never touches block memory directly.
//
// Blocks are at least one machine word long (the smallest size class is
// 8 bytes) and live in memory the Go collector does not scan, so storing
// bare pointers inside them is safe.
package block

import "unsafe"

// Next returns the forward link stored in the first word of p.
func Next(p unsafe.Pointer) unsafe.Pointer {
	return *(*unsafe.Pointer)(p)
}

// SetNext stores next into the first word of p.
func SetNext(p, next unsafe.Pointer) {
	*(*unsafe.Pointer)(p) = next
}
