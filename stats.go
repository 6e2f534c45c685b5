package spanpool

import "github.com/joshuapare/spanpool/central"

// Stats contains pool statistics. Byte counts are aligned class sizes, not
// requested sizes.
type Stats struct {
	Allocated int64 // total bytes handed out
	Freed     int64 // total bytes returned

	Central central.Stats
}

// InUse returns the bytes currently held by callers.
func (s Stats) InUse() int64 {
	return s.Allocated - s.Freed
}
