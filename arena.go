// arena.go: the contiguous byte region backing the ring, and its
// wrap-aware read/write primitives.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

import "encoding/binary"

// hostPutUint32/hostUint32/hostPutUint64/hostUint64 pack and unpack
// fixed-width values using the host's native byte order, matching
// spec.md §6: "the size u32 is host-endian; the timestamp is host-endian
// and host-layout. No portability across architectures is implied."
func hostPutUint32(b []byte, v uint32) { binary.NativeEndian.PutUint32(b, v) }
func hostUint32(b []byte) uint32       { return binary.NativeEndian.Uint32(b) }
func hostPutUint64(b []byte, v uint64) { binary.NativeEndian.PutUint64(b, v) }
func hostUint64(b []byte) uint64       { return binary.NativeEndian.Uint64(b) }

// arena owns or borrows a contiguous byte region whose length is a power
// of two. It performs no bounds or availability checks of its own; those
// are the Buffer's responsibility via the occupancy accounting in §4.2.
type arena struct {
	region []byte
	mask   uint64 // capacity - 1, for index_of(i) = i & mask
}

// set installs region as the arena's backing storage. capacity must equal
// len(region) and must be a power of two; the caller (Buffer) is
// responsible for having verified this.
func (a *arena) set(region []byte, capacity uint32) {
	a.region = region
	a.mask = uint64(capacity) - 1
}

func (a *arena) capacity() uint32 {
	return uint32(len(a.region))
}

func (a *arena) indexOf(i uint64) uint64 {
	return i & a.mask
}

// llwrite copies n bytes from src into the arena starting at idx,
// wrapping at capacity. Mirrors the two-segment copy idiom used by
// lock-free SPSC circular buffers in this corpus (see
// other_examples/iamcalledrob-circular: Buffer.Write): a single copy when
// the write doesn't cross the end of the region, two when it does.
func (a *arena) llwrite(idx uint64, src []byte) {
	n := uint64(len(src))
	if n == 0 {
		return
	}
	regionLen := uint64(len(a.region))
	off := a.indexOf(idx)

	first := regionLen - off
	if first >= n {
		copy(a.region[off:off+n], src)
		return
	}
	copy(a.region[off:], src[:first])
	copy(a.region[:n-first], src[first:])
}

// llread is the symmetric read: copies n bytes from the arena starting at
// idx into dst, wrapping at capacity.
func (a *arena) llread(idx uint64, dst []byte) {
	n := uint64(len(dst))
	if n == 0 {
		return
	}
	regionLen := uint64(len(a.region))
	off := a.indexOf(idx)

	first := regionLen - off
	if first >= n {
		copy(dst, a.region[off:off+n])
		return
	}
	copy(dst[:first], a.region[off:])
	copy(dst[first:], a.region[:n-first])
}

// llcopy invokes cb with a view (or two views, wrap-split) of n bytes
// starting at idx, without an intermediate copy. cb must not retain the
// slice past return — the arena may be mutated by the next committed
// write as soon as cb returns. This backs ReadTx.PopFront(n, cb).
func (a *arena) llcopy(idx uint64, n uint64, cb func(p []byte)) {
	if n == 0 {
		return
	}
	regionLen := uint64(len(a.region))
	off := a.indexOf(idx)

	first := regionLen - off
	if first >= n {
		cb(a.region[off : off+n])
		return
	}
	cb(a.region[off:])
	cb(a.region[:n-first])
}
