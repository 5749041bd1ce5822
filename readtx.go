// readtx.go: Read Transaction — a scoped consumer-side handle.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

// ReadTx is a scoped handle for draining one record from a Buffer. It is
// created by Buffer.TryRead and must be finished by exactly one of
// Commit or Invalidate — typically via a deferred Close:
//
//	tx, err := buf.TryRead()
//	if err != nil { ... }
//	defer tx.Close()
//	ts := tx.Timestamp()
//	tx.PopFront(n, handlePayload)
//
// A transaction need not be fully drained: on commit, the *entire*
// declared record length advances the consumer cursor, regardless of how
// much payload the caller actually popped (spec.md §4.4).
//
// Resolves spec.md §9's open question about the source's Invalidate/
// commit asymmetry: here Invalidate fully suppresses Commit, identical to
// WriteTx, via the same done guard — the "safe interpretation" the spec
// names explicitly.
type ReadTx[T Timestamp] struct {
	buf         *Buffer[T]
	recordStart uint64 // start cursor value at construction
	index       uint64 // next arena read position
	recordSize  uint32 // header.size, as read from the arena
	available   uint32 // payload bytes not yet popped
	timestamp   T
	valid       bool
	done        bool
}

// Valid reports whether this handle is still usable.
func (r *ReadTx[T]) Valid() bool {
	return r != nil && r.valid && !r.done
}

// Size returns the payload bytes not yet consumed.
func (r *ReadTx[T]) Size() uint32 {
	if !r.Valid() {
		return 0
	}
	return r.available
}

// Timestamp returns the record's timestamp.
func (r *ReadTx[T]) Timestamp() T {
	return r.timestamp
}

// PopFront invokes cb with exactly n bytes of payload, directly backed by
// arena memory — once contiguously, or twice if the read spans the wrap
// boundary. cb must not retain the slices past return: the arena may be
// overwritten by the producer as soon as this transaction commits. It
// returns false, without invoking cb, if the transaction is invalid or
// fewer than n bytes remain.
func (r *ReadTx[T]) PopFront(n uint32, cb func(p []byte)) bool {
	if !r.Valid() || r.available < n {
		return false
	}
	if n == 0 {
		return true
	}
	r.buf.ring.llcopy(r.index, uint64(n), cb)
	r.index += uint64(n)
	r.available -= n
	return true
}

// PopFrontBytes pops n bytes into a freshly allocated slice — the
// allocating convenience form of PopFront for callers that don't need a
// zero-copy callback.
func (r *ReadTx[T]) PopFrontBytes(n uint32) ([]byte, bool) {
	if !r.Valid() || r.available < n {
		return nil, false
	}
	out := make([]byte, n)
	r.buf.ring.llread(r.index, out)
	r.index += uint64(n)
	r.available -= n
	return out, true
}

// Invalidate abandons the transaction: no cursor or occupancy change
// happens on scope exit. Safe to call multiple times or after Commit;
// only the first call has effect.
func (r *ReadTx[T]) Invalidate() {
	if r.done {
		return
	}
	r.done = true
	r.valid = false
	r.buf.counters.readsAborted.Add(1)
	r.buf.reading.Store(false)
}

// Commit reclaims the record: the consumer cursor advances past the
// entire declared record length and the occupancy counter is decremented
// with release semantics so the producer can safely reuse the bytes
// (invariant 5). Safe to call multiple times; only the first call has
// effect.
func (r *ReadTx[T]) Commit() {
	if r.done {
		return
	}
	r.done = true

	r.buf.start = r.recordStart + uint64(r.recordSize)
	r.buf.sizeSub(r.recordSize) // release
	r.buf.counters.readsCommitted.Add(1)
	r.buf.counters.bytesRead.Add(uint64(r.recordSize))

	r.valid = false
	r.buf.reading.Store(false)
}

// Close commits the transaction if it has not already been committed or
// invalidated. Meant to be used with defer.
func (r *ReadTx[T]) Close() error {
	r.Commit()
	return nil
}

// PopValue pops a fixed-width value from an in-flight read transaction.
// As with PushValue, this is a package-level generic function because Go
// methods cannot add type parameters beyond the receiver's.
func PopValue[W Timestamp, V Timestamp](r *ReadTx[W]) (V, bool) {
	var zero V
	n := tsSize[V]()
	if !r.Valid() || r.available < n {
		return zero, false
	}
	var buf [8]byte
	r.buf.ring.llread(r.index, buf[:n])
	r.index += uint64(n)
	r.available -= n
	return decodeTimestamp[V](buf[:n]), true
}
