// Package sizeclass maps requested byte counts onto the pool's fixed size
// classes.
//
// # Overview
//
// Every allocation request is rounded up to an aligned object size and the
// aligned size is mapped to one of 208 buckets. Each bucket owns its own
// free lists and span list in the tiers above, so the mapping here decides
// both internal fragmentation and lock granularity for the whole pool.
//
// # Alignment bands
//
// Requests fall into five contiguous bands, each rounding up to its own
// alignment. The layout bounds internal fragmentation to roughly 10%:
//
//	[1, 128]            8-byte aligned      buckets [0, 16)
//	[129, 1024]         16-byte aligned     buckets [16, 72)
//	[1025, 8 KiB]       128-byte aligned    buckets [72, 128)
//	[8 KiB+1, 64 KiB]   1 KiB aligned       buckets [128, 184)
//	[64 KiB+1, 256 KiB] 8 KiB aligned       buckets [184, 208)
//
// Requests above MaxBytes are rejected; callers needing more must use a
// direct large-object path outside this pool.
//
// # Batch sizing
//
// BatchLimit bounds how many objects of one size may move between tiers in
// a single exchange: small objects get a high ceiling to amortize the bucket
// lock, large objects a low one to bound per-batch memory. SpanPages sizes
// fresh spans so a single span covers one full batch.
package sizeclass
