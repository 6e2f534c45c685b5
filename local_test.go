package spanpool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/spanpool/sizeclass"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := New()
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p
}

func TestLocal_Alloc_Sizes(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Flush()

	cases := []struct{ n, wantCap int }{
		{1, 8},
		{8, 8},
		{100, 104},
		{129, 144},
		{4096, 4096},
		{100_000, 106_496},
		{sizeclass.MaxBytes, sizeclass.MaxBytes},
	}
	for _, tc := range cases {
		b, err := l.Alloc(tc.n)
		require.NoError(t, err, "Alloc(%d)", tc.n)
		require.Len(t, b, tc.n)
		require.Equal(t, tc.wantCap, cap(b), "Alloc(%d)", tc.n)
		require.NoError(t, l.Free(b))
	}

	require.Zero(t, p.Stats().InUse())
}

func TestLocal_Alloc_Errors(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()

	_, err := l.Alloc(0)
	require.ErrorIs(t, err, sizeclass.ErrZeroSize)
	_, err = l.Alloc(-5)
	require.ErrorIs(t, err, sizeclass.ErrZeroSize)
	_, err = l.Alloc(sizeclass.MaxBytes + 1)
	require.ErrorIs(t, err, sizeclass.ErrSizeTooLarge)
}

func TestLocal_Alloc_Writable(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Flush()

	b, err := l.Alloc(1024)
	require.NoError(t, err)
	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		require.Equal(t, byte(i), b[i])
	}
	require.NoError(t, l.Free(b))
}

func TestLocal_Alloc_DistinctBlocks(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Flush()

	seen := make(map[uintptr][]byte)
	for i := 0; i < 100; i++ {
		b, err := l.Alloc(64)
		require.NoError(t, err)
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
		_, dup := seen[addr]
		require.False(t, dup, "block %d aliases a live block", i)
		seen[addr] = b
	}
	for _, b := range seen {
		require.NoError(t, l.Free(b))
	}
}

func TestLocal_Free_NotPooled(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Flush()

	require.NoError(t, l.Free(nil))

	foreign := make([]byte, 64)
	require.ErrorIs(t, l.Free(foreign), ErrNotPooled)
	require.ErrorIs(t, l.Free([]byte{}), ErrNotPooled)

	// A subslice does not start on a block boundary.
	b, err := l.Alloc(256)
	require.NoError(t, err)
	require.ErrorIs(t, l.Free(b[8:]), ErrNotPooled)
	require.NoError(t, l.Free(b))
}

func TestLocal_Free_RecoversClassFromSpan(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Flush()

	b, err := l.Alloc(300) // class size 304
	require.NoError(t, err)

	// Free through a reslice that kept the base but lost the length.
	require.NoError(t, l.Free(b[:0]))
	require.Zero(t, p.Stats().InUse())
}

// Test_Local_SlowStart drives one bucket hard and checks the refill batch
// ramps one step per refill and never passes the class batch limit.
func Test_Local_SlowStart(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	defer l.Flush()

	const size = 8
	idx, err := sizeclass.Index(size)
	require.NoError(t, err)
	limit := sizeclass.BatchLimit(size)

	prevCap := l.lists[idx].Cap()
	require.Equal(t, 1, prevCap)

	live := make([][]byte, 0, 5000)
	for i := 0; i < 5000; i++ {
		b, err := l.Alloc(size)
		require.NoError(t, err)
		live = append(live, b)

		c := l.lists[idx].Cap()
		require.GreaterOrEqual(t, c, prevCap)
		require.LessOrEqual(t, c, limit)
		prevCap = c
	}
	require.Greater(t, prevCap, 1, "refills must ramp the batch hint")

	for _, b := range live {
		require.NoError(t, l.Free(b))
	}
	l.Flush()
	require.Zero(t, p.Stats().InUse())
}

// Test_Local_FlushReclaims allocates and frees through one Local and checks
// the drained spans make it all the way back to the page tier.
func Test_Local_FlushReclaims(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()

	for i := 0; i < 600; i++ {
		b, err := l.Alloc(128)
		require.NoError(t, err)
		if err := l.Free(b); err != nil {
			t.Fatalf("Free #%d: %v", i, err)
		}
	}
	l.Flush()

	st := p.Stats()
	require.Equal(t, st.Allocated, st.Freed)
	require.Zero(t, st.InUse())
	require.GreaterOrEqual(t, st.Central.SpansReclaimed, int64(1))
}

func TestLocal_Flush_EmptyIsNoop(t *testing.T) {
	p := newTestPool(t)
	l := p.NewLocal()
	l.Flush()
	require.Zero(t, p.Stats().Central.Releases)
}
