package spanpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/spanpool/central"
	"github.com/joshuapare/spanpool/pagecache"
)

// Pool owns one central cache and one page cache and vends Locals bound to
// them. All Pool methods are safe for concurrent use.
type Pool struct {
	pages   *pagecache.Cache
	central *central.Cache
	locals  sync.Pool

	// closeMu orders finalizer flushes of evicted internal Locals against
	// Close, so a late flush never touches unmapped pages.
	closeMu sync.Mutex
	closed  bool

	allocated atomic.Int64
	freed     atomic.Int64
}

// New creates an empty pool. OS memory is granted lazily on first use.
func New() *Pool {
	p := &Pool{pages: pagecache.New()}
	p.central = central.New(p.pages)
	p.locals.New = func() any {
		l := p.NewLocal()
		// sync.Pool drops its contents on GC. An evicted Local would strand
		// its cached blocks and pin their spans forever, so flush it on
		// collection instead.
		runtime.SetFinalizer(l, func(l *Local) { l.pool.reclaimLocal(l) })
		return l
	}
	return p
}

// reclaimLocal flushes an internal Local the collector is about to drop.
func (p *Pool) reclaimLocal(l *Local) {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if !p.closed {
		l.Flush()
	}
}

// NewLocal returns a fresh owner cache bound to this pool. A Local is not
// safe for concurrent use; give each goroutine or worker its own and Flush
// it before abandoning it.
func (p *Pool) NewLocal() *Local {
	return &Local{pool: p}
}

// Alloc returns a slice of exactly n bytes (capacity is the aligned class
// size), borrowing an internal Local for the call.
func (p *Pool) Alloc(n int) ([]byte, error) {
	l := p.locals.Get().(*Local)
	b, err := l.Alloc(n)
	p.locals.Put(l)
	return b, err
}

// Free returns a slice obtained from Alloc, borrowing an internal Local for
// the call.
func (p *Pool) Free(b []byte) error {
	l := p.locals.Get().(*Local)
	err := l.Free(b)
	p.locals.Put(l)
	return err
}

// Stats snapshots the pool-wide byte counters and the central tier's
// exchange counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Allocated: p.allocated.Load(),
		Freed:     p.freed.Load(),
		Central:   p.central.Stats(),
	}
}

// Close returns every OS grant. Valid only once all allocations have been
// freed; the pool and every Local bound to it must not be used afterwards.
func (p *Pool) Close() error {
	p.closeMu.Lock()
	p.closed = true
	p.closeMu.Unlock()
	return p.pages.Close()
}
