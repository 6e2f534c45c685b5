//go:build !unix

// Fallback for platforms without the unix mmap surface: carve a page-aligned
// region out of an ordinary allocation. Grants are retained forever so the
// collector never reclaims memory that free chains still link through, and
// Free is a no-op.
package sysmem

import (
	"sync"
	"unsafe"

	"github.com/joshuapare/spanpool/sizeclass"
)

var (
	mu       sync.Mutex
	retained [][]byte
)

// Alloc reserves length bytes of page-aligned memory.
func Alloc(length int) ([]byte, error) {
	buf := make([]byte, length+sizeclass.PageSize)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	off := 0
	if rem := int(addr % sizeclass.PageSize); rem != 0 {
		off = sizeclass.PageSize - rem
	}

	mu.Lock()
	retained = append(retained, buf)
	mu.Unlock()

	return buf[off : off+length], nil
}

// Free is a no-op on this platform; grants stay retained.
func Free(grant []byte) error {
	return nil
}
