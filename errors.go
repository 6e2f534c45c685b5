package spanpool

import "errors"

// ErrNotPooled indicates a Free of memory this pool never handed out (or of
// a block already returned and reclaimed).
var ErrNotPooled = errors.New("spanpool: block not allocated from this pool")
