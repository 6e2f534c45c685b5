package sizeclass

// Compile-time configuration shared by every tier of the pool.
const (
	// MaxBytes is the largest request the pool serves.
	MaxBytes = 256 << 10

	// NumBuckets is the total bucket count across all alignment bands.
	NumBuckets = 208

	// PageShift is log2 of the page size the span tiers operate on.
	// 4 KiB matches the mmap granularity on every supported platform.
	PageShift = 12

	// PageSize is the page granularity of span allocation.
	PageSize = 1 << PageShift

	// MinBatch and MaxBatch bound the per-exchange object count between tiers.
	MinBatch = 2
	MaxBatch = 512
)

// band describes one contiguous run of request sizes sharing an alignment.
type band struct {
	limit   int // largest request size in the band, inclusive
	shift   int // log2 of the band's alignment
	buckets int // bucket count the band contributes
}

// The five alignment bands. Bucket counts are limit-range / alignment and
// sum to NumBuckets.
var bands = [5]band{
	{limit: 128, shift: 3, buckets: 16},
	{limit: 1 << 10, shift: 4, buckets: 56},
	{limit: 8 << 10, shift: 7, buckets: 56},
	{limit: 64 << 10, shift: 10, buckets: 56},
	{limit: 256 << 10, shift: 13, buckets: 24},
}

// RoundUp rounds size up to its band's alignment and returns the aligned
// object size. Idempotent: RoundUp(RoundUp(n)) == RoundUp(n).
//
// Example:
//
//	RoundUp(7)    = 8
//	RoundUp(129)  = 144
//	RoundUp(1025) = 1152
func RoundUp(size int) (int, error) {
	if size <= 0 {
		return 0, ErrZeroSize
	}
	if size > MaxBytes {
		return 0, ErrSizeTooLarge
	}
	for _, b := range bands {
		if size <= b.limit {
			return roundUpTo(size, 1<<b.shift), nil
		}
	}
	panic("sizeclass: band table does not cover MaxBytes")
}

// Index maps a request size onto its bucket in [0, NumBuckets). Every size
// that rounds up to the same aligned value maps to the same bucket, and
// buckets are contiguous and non-overlapping across bands.
func Index(size int) (int, error) {
	if size <= 0 {
		return 0, ErrZeroSize
	}
	if size > MaxBytes {
		return 0, ErrSizeTooLarge
	}
	base := 0  // buckets contributed by preceding bands
	floor := 0 // largest size handled by preceding bands
	for _, b := range bands {
		if size <= b.limit {
			return base + bandIndex(size-floor, b.shift), nil
		}
		base += b.buckets
		floor = b.limit
	}
	panic("sizeclass: band table does not cover MaxBytes")
}

// BatchLimit returns the ceiling on how many objects of the given aligned
// size may move between tiers in one exchange: MaxBytes/objectSize clamped
// to [MinBatch, MaxBatch]. Non-increasing as objectSize grows.
func BatchLimit(objectSize int) int {
	if objectSize <= 0 {
		panic("sizeclass: non-positive object size")
	}
	n := MaxBytes / objectSize
	if n < MinBatch {
		n = MinBatch
	}
	if n > MaxBatch {
		n = MaxBatch
	}
	return n
}

// SpanPages returns the page count a fresh span should cover so that one
// span satisfies one full batch of the given aligned size. Never zero; never
// exceeds 128 pages (the worst case, MaxBytes objects at MinBatch).
func SpanPages(objectSize int) int {
	n := (BatchLimit(objectSize) * objectSize) >> PageShift
	if n == 0 {
		n = 1
	}
	return n
}

// roundUpTo rounds n up to the next multiple of align (a power of two).
func roundUpTo(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// bandIndex maps a band-relative byte count onto its bucket within the band:
// ceil(bytes / 2^shift) - 1.
func bandIndex(bytes, shift int) int {
	return ((bytes + (1 << shift) - 1) >> shift) - 1
}
