package pagecache

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/spanpool/sizeclass"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New()
	t.Cleanup(func() { require.NoError(t, c.Close()) })
	return c
}

func TestCache_NewSpan(t *testing.T) {
	c := newTestCache(t)

	s, err := c.NewSpan(2, 256)
	require.NoError(t, err)
	require.Equal(t, 2, s.Pages)
	require.Equal(t, 256, s.ObjectSize)
	require.True(t, s.InCentral)
	require.Equal(t, s.Capacity(), s.Free.Len())

	// Every page of the span resolves back to it, first and last byte alike.
	require.Equal(t, s, c.SpanOf(s.Base()))
	last := unsafe.Add(s.Base(), s.Bytes()-1)
	require.Equal(t, s, c.SpanOf(last))

	st := c.Stats()
	require.Equal(t, 1, st.Grants)
	require.Equal(t, 1, st.IdleSpans)
	require.Equal(t, MaxSpanPages-2, st.IdlePages)
}

func TestCache_NewSpan_PageCountPanics(t *testing.T) {
	c := newTestCache(t)
	require.Panics(t, func() { c.NewSpan(0, 8) })
	require.Panics(t, func() { c.NewSpan(MaxSpanPages+1, 8) })
}

// TestCache_ReleaseCoalesce hands out two adjacent spans, releases them, and
// checks the idle inventory re-forms a single full-grant run.
func TestCache_ReleaseCoalesce(t *testing.T) {
	c := newTestCache(t)

	// Both come off the head of the same grant, so they are adjacent.
	a, err := c.NewSpan(2, 64)
	require.NoError(t, err)
	b, err := c.NewSpan(3, 64)
	require.NoError(t, err)
	require.Equal(t, a.ID+2, b.ID, "spans carved off one grant are adjacent")
	require.Equal(t, 1, c.Stats().Grants)

	c.ReleaseSpan(b)
	c.ReleaseSpan(a)

	st := c.Stats()
	require.Equal(t, 1, st.IdleSpans, "released runs must coalesce")
	require.Equal(t, MaxSpanPages, st.IdlePages)

	// The re-formed run is reusable at full size.
	full, err := c.NewSpan(MaxSpanPages, 4096)
	require.NoError(t, err)
	require.Equal(t, 1, c.Stats().Grants, "no second grant needed")
	c.ReleaseSpan(full)
}

func TestCache_ReleaseSpan_ClearsCarve(t *testing.T) {
	c := newTestCache(t)
	s, err := c.NewSpan(1, 128)
	require.NoError(t, err)

	c.ReleaseSpan(s)

	idle := c.SpanOf(s.Base())
	require.False(t, idle.InCentral)
	require.Zero(t, idle.ObjectSize)
	require.True(t, idle.Free.Empty())
}

func TestCache_ReleaseSpan_LivePanics(t *testing.T) {
	c := newTestCache(t)
	s, err := c.NewSpan(1, 64)
	require.NoError(t, err)
	s.Live = 1
	require.Panics(t, func() { c.ReleaseSpan(s) })
	s.Live = 0
	c.ReleaseSpan(s)
}

func TestCache_Lookup(t *testing.T) {
	c := newTestCache(t)

	var local int
	_, ok := c.Lookup(unsafe.Pointer(&local))
	require.False(t, ok, "stack address is not pool memory")
	require.Panics(t, func() { c.SpanOf(unsafe.Pointer(&local)) })

	s, err := c.NewSpan(1, 64)
	require.NoError(t, err)
	got, ok := c.Lookup(s.Base())
	require.True(t, ok)
	require.Equal(t, s, got)
	c.ReleaseSpan(s)
}

func TestCache_Locate(t *testing.T) {
	c := newTestCache(t)

	var local int
	_, _, ok := c.Locate(unsafe.Pointer(&local))
	require.False(t, ok, "untracked page")

	s, err := c.NewSpan(1, 64)
	require.NoError(t, err)
	base, size, ok := c.Locate(unsafe.Add(s.Base(), 64))
	require.True(t, ok)
	require.Equal(t, s.Base(), base)
	require.Equal(t, 64, size)

	// Once released the pages stay tracked but read as uncarved.
	p := s.Base()
	c.ReleaseSpan(s)
	_, size, ok = c.Locate(p)
	require.True(t, ok)
	require.Zero(t, size)
}

func TestCache_SecondGrant(t *testing.T) {
	c := newTestCache(t)

	// Exhaust the first grant, then force a second.
	a, err := c.NewSpan(MaxSpanPages, 4096)
	require.NoError(t, err)
	b, err := c.NewSpan(1, 64)
	require.NoError(t, err)

	st := c.Stats()
	require.Equal(t, 2, st.Grants)
	require.Equal(t, MaxSpanPages-1, st.IdlePages)

	c.ReleaseSpan(a)
	c.ReleaseSpan(b)
	st = c.Stats()
	require.Equal(t, 2*MaxSpanPages, st.IdlePages)
}

func TestCache_Close(t *testing.T) {
	c := New()
	s, err := c.NewSpan(1, 64)
	require.NoError(t, err)
	c.ReleaseSpan(s)

	require.NoError(t, c.Close())
	st := c.Stats()
	require.Zero(t, st.Grants)
	require.Zero(t, st.IdleSpans)
}

func TestCache_PagesPerGrant(t *testing.T) {
	// A full grant covers exactly the worst-case span.
	require.Equal(t, MaxSpanPages, sizeclass.SpanPages(sizeclass.MaxBytes))
}
