// buffer.go: Ring State — the SPSC transactional ring buffer core.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

import (
	"math/bits"
	"sync/atomic"
)

// bufferMode tracks the buffer's ownership state machine (spec.md §4.5):
// Uninitialised -> Owned (first Reserve, self-loop on further Reserve), or
// Uninitialised -> Borrowed (first Borrow, terminal until Close). No
// Owned<->Borrowed transition is permitted. A plain bool can't represent
// "never configured" distinctly from "owned", so this is a three-state
// enum rather than the source's single own_memory_ flag.
type bufferMode int

const (
	modeNone bufferMode = iota
	modeOwned
	modeBorrowed
)

// Buffer is the transactional SPSC ring buffer. One producer goroutine and
// one consumer goroutine (plus, optionally, a distinct owner goroutine
// that calls Reserve/Borrow before either role starts) share a Buffer;
// see spec.md §5 for the full role-discipline contract. A Buffer must not
// be copied after first use — pass it by pointer.
//
// T is the timestamp type stamped into every record's header.
type Buffer[T Timestamp] struct {
	ring arena

	mode         bufferMode
	capacityBytes uint32
	headerSize    uint32 // sizeof(u32) + sizeof(T), constant for this instantiation

	// start is written only by the consumer, end only by the producer;
	// per spec.md §5 neither cursor is ever read by the other role, so
	// plain uint64 fields (not atomics) are correct here. Both are
	// monotonically increasing logical offsets; the arena masks them down
	// to a physical index via arena.indexOf.
	start uint64
	end   uint64

	// size is the sole piece of cross-role shared state: incremented by
	// the producer on write-commit (release), decremented by the
	// consumer on read-commit (release), and read by the opposite role
	// with acquire semantics. Go's sync/atomic operations are
	// sequentially consistent, a strictly stronger guarantee than the
	// acquire/release pairing spec.md §5 requires, so a plain
	// atomic.Uint64 satisfies it.
	size atomic.Uint64

	// writing/reading enforce "at most one active transaction per role"
	// (invariant 3). Each is mutated only by the role that owns it, via
	// CompareAndSwap so a caller that violates the single-role-thread
	// contract gets a deterministic ErrTransactionBusy instead of silent
	// corruption.
	writing atomic.Bool
	reading atomic.Bool

	counters counters
}

// NewBuffer constructs a Buffer with no arena installed. Call Reserve or
// Borrow before either role begins; see spec.md §3.3.
func NewBuffer[T Timestamp]() *Buffer[T] {
	return &Buffer[T]{headerSize: tsSize[T]() + 4}
}

// MinCapacity is the smallest legal arena size for this Buffer's
// timestamp type: exactly sizeof(u32)+sizeof(T), the serialized record
// header size.
func (b *Buffer[T]) MinCapacity() uint32 {
	return b.headerSize
}

// Capacity returns the arena's current logical capacity in bytes, or 0 if
// no arena has been installed yet.
func (b *Buffer[T]) Capacity() uint32 {
	return b.capacityBytes
}

// Size returns the number of occupied bytes. Intended for debugging and
// telemetry; safe to call from any goroutine.
func (b *Buffer[T]) Size() uint64 {
	return b.size.Load()
}

// HasData reports whether there is at least one byte available to read.
// Consumer-only: per spec.md §5 only the consumer should rely on this for
// scheduling decisions, since a producer observing it racily learns
// nothing about free space.
func (b *Buffer[T]) HasData() bool {
	return b.size.Load() > 0
}

// Valid reports whether the buffer currently has an installed arena
// (owned or borrowed).
func (b *Buffer[T]) Valid() bool {
	return b.mode != modeNone
}

// Stats returns a snapshot of the buffer's telemetry counters.
func (b *Buffer[T]) Stats() Stats {
	return b.counters.snapshot()
}

func roundUpPow2(x uint32) uint32 {
	if x <= 1 {
		return 1
	}
	return 1 << (32 - bits.LeadingZeros32(x-1))
}

// Reserve installs an owned arena of at least n bytes, rounded up to the
// next power of two (and up to MinCapacity if n is smaller). Re-calling
// Reserve with a rounded capacity <= the current capacity reuses the
// existing allocation with a truncated logical capacity; otherwise the
// old allocation is replaced. Reserve fails if the buffer is currently
// borrowed, or if either role has a live transaction (spec.md §9,
// resolving the open question about reconfiguration safety: shrinking or
// growing while a role is active is forbidden outright rather than left
// undefined).
func (b *Buffer[T]) Reserve(n uint32) error {
	if b.mode == modeBorrowed {
		return ErrAlreadyBorrowed
	}
	if b.writing.Load() || b.reading.Load() {
		return ErrRoleActive
	}

	want := n
	if want < b.headerSize {
		want = b.headerSize
	}
	rounded := roundUpPow2(want)

	if b.mode == modeOwned && rounded <= b.capacityBytes {
		b.ring.set(b.ring.region[:rounded], rounded)
	} else {
		b.ring.set(make([]byte, rounded), rounded)
		b.mode = modeOwned
	}

	b.capacityBytes = rounded
	b.start = 0
	b.end = 0
	b.size.Store(0)
	return nil
}

// Borrow installs a caller-supplied region as the arena. The caller
// retains ownership of region's lifetime; Borrow never allocates or
// frees it. It fails if region is nil, len(region) is not a power of two
// or is smaller than MinCapacity, if the buffer has already allocated an
// owned arena via Reserve, or if either role has a live transaction.
// On success the buffer enters borrowed mode irreversibly until Close.
//
// A failed Borrow leaves the buffer exactly as it was (spec.md §9: the
// ordering of own-memory tracking is explicit here, not implicit in a
// single boolean) — a later Reserve on a buffer whose only Borrow attempt
// failed behaves as a fresh allocation.
func (b *Buffer[T]) Borrow(region []byte) error {
	if region == nil {
		return ErrNilRegion
	}
	n := uint32(len(region))
	if n < b.headerSize || n&(n-1) != 0 {
		return ErrInvalidCapacity
	}
	if b.mode == modeOwned {
		return ErrAlreadyOwned
	}
	if b.writing.Load() || b.reading.Load() {
		return ErrRoleActive
	}

	b.ring.set(region, n)
	b.capacityBytes = n
	b.mode = modeBorrowed
	b.start = 0
	b.end = 0
	b.size.Store(0)
	return nil
}

// Close releases an owned arena (allowing it to be garbage collected) and
// resets the buffer to its neutral, unconfigured state. Borrowed arenas
// are never freed — the caller owns that lifetime. Close must not be
// called while a transaction is active.
func (b *Buffer[T]) Close() error {
	if b.writing.Load() || b.reading.Load() {
		return ErrRoleActive
	}
	b.ring = arena{}
	b.mode = modeNone
	b.capacityBytes = 0
	b.start = 0
	b.end = 0
	b.size.Store(0)
	return nil
}

// TryWrite attempts to begin a write transaction stamped with ts. It
// fails — returning a nil handle and a sentinel error — if the buffer has
// no arena, if a write transaction is already active, or if fewer than
// MinCapacity bytes are free (spec.md §4.3 construction steps 1-2).
//
// On success, ts is written into the arena immediately (the size prefix
// is deferred to commit, per invariant 7 — it must be written last so it
// can double as the publication fence).
func (b *Buffer[T]) TryWrite(ts T) (*WriteTx[T], error) {
	if b.mode == modeNone {
		return nil, ErrNotConfigured
	}
	if !b.writing.CompareAndSwap(false, true) {
		b.counters.busyCount.Add(1)
		return nil, ErrTransactionBusy
	}

	free := b.capacityBytes - uint32(b.size.Load()) // acquire
	if free < b.headerSize {
		b.writing.Store(false)
		b.counters.noRoomCount.Add(1)
		return nil, ErrNoRoom
	}

	recordStart := b.end
	tsLen := tsSize[T]()
	var tsBuf [8]byte
	encodeTimestamp(ts, tsBuf[:tsLen])
	b.ring.llwrite(recordStart+4, tsBuf[:tsLen])

	return &WriteTx[T]{
		buf:         b,
		recordStart: recordStart,
		index:       recordStart + uint64(b.headerSize),
		recordSize:  b.headerSize,
		timestamp:   ts,
		valid:       true,
	}, nil
}

// TryRead attempts to begin a read transaction over the oldest unread
// record. It fails if the buffer has no arena, if a read transaction is
// already active, or if the buffer is empty (spec.md §4.4 construction
// steps 1-4). On success the record's header (size and timestamp) has
// already been copied out of the arena.
func (b *Buffer[T]) TryRead() (*ReadTx[T], error) {
	if b.mode == modeNone {
		return nil, ErrNotConfigured
	}
	if !b.reading.CompareAndSwap(false, true) {
		b.counters.busyCount.Add(1)
		return nil, ErrTransactionBusy
	}

	if b.size.Load() == 0 { // acquire
		b.reading.Store(false)
		b.counters.noDataCount.Add(1)
		return nil, ErrNoData
	}

	recordStart := b.start
	var szBuf [4]byte
	b.ring.llread(recordStart, szBuf[:])
	recordSize := hostUint32(szBuf[:])

	tsLen := tsSize[T]()
	var tsBuf [8]byte
	b.ring.llread(recordStart+4, tsBuf[:tsLen])
	ts := decodeTimestamp[T](tsBuf[:tsLen])

	return &ReadTx[T]{
		buf:         b,
		recordStart: recordStart,
		index:       recordStart + uint64(b.headerSize),
		recordSize:  recordSize,
		available:   recordSize - b.headerSize,
		timestamp:   ts,
		valid:       true,
	}, nil
}

// sizeSub atomically subtracts v from size using Uint64's Add with the
// two's-complement of v, since sync/atomic has no fetch-and-subtract for
// unsigned counters.
func (b *Buffer[T]) sizeSub(v uint32) {
	b.size.Add(^(uint64(v) - 1))
}
