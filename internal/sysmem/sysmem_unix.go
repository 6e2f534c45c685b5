//go:build unix

// Package sysmem grants and releases page-aligned memory directly from the
// operating system, outside the Go heap. Free chains store bare pointers in
// block memory, so grants must never be managed by the garbage collector.
package sysmem

import (
	"golang.org/x/sys/unix"
)

// Alloc reserves length bytes of page-aligned anonymous memory.
func Alloc(length int) ([]byte, error) {
	return unix.Mmap(
		-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
}

// Free returns a grant obtained from Alloc to the operating system. The
// caller must guarantee no live object or free chain still points into it.
func Free(grant []byte) error {
	if len(grant) == 0 {
		return nil
	}
	return unix.Munmap(grant)
}
