// writetx.go: Write Transaction — a scoped producer-side handle.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

// WriteTx is a scoped handle for appending one record to a Buffer. It is
// created by Buffer.TryWrite and must be finished by exactly one of
// Commit or Invalidate — typically via a deferred Close, mirroring the
// teacher's sync.Once-guarded Close() idiom so that "commit on scope
// exit unless invalidated" (spec.md §3.3) is safe to express with defer:
//
//	tx, err := buf.TryWrite(ts)
//	if err != nil { ... }
//	defer tx.Close()
//	tx.PushBack(payload)
//
// A WriteTx must not be copied — it holds an exclusive claim on the
// buffer's single producer slot. It is safe to pass by pointer (its
// natural Go form); there is no separate "move" operation because Go's
// assignment of a pointer already transfers access without duplicating
// the claim.
type WriteTx[T Timestamp] struct {
	buf         *Buffer[T]
	recordStart uint64 // end cursor value at construction; where the header lives
	index       uint64 // next arena write position
	recordSize  uint32 // header.size: header + payload appended so far
	timestamp   T
	valid       bool
	done        bool
}

// Valid reports whether this handle is still usable. A handle returned by
// a failed TryWrite, or one that has already committed/invalidated, is
// never valid.
func (w *WriteTx[T]) Valid() bool {
	return w != nil && w.valid && !w.done
}

// Size returns the payload bytes appended so far (recordSize minus the
// header).
func (w *WriteTx[T]) Size() uint32 {
	if !w.Valid() {
		return 0
	}
	return w.recordSize - w.buf.headerSize
}

// Timestamp returns the timestamp this transaction was opened with.
func (w *WriteTx[T]) Timestamp() T {
	return w.timestamp
}

// available recomputes, from the authoritative size counter, how many
// more bytes this transaction may append. This is the "re-sync" spec.md
// §4.3 describes: size_atomic may have shrunk since construction as the
// consumer commits reads concurrently, which only ever *grows* the room
// available to the producer, so re-deriving it from the live counter
// (rather than trusting a value cached at construction) lets a
// long-running write transaction benefit from concurrent consumer
// progress instead of failing on stale occupancy data.
func (w *WriteTx[T]) available() uint32 {
	free := w.buf.capacityBytes - uint32(w.buf.size.Load())
	if w.recordSize > free {
		return 0
	}
	return free - w.recordSize
}

// PushBack appends raw bytes to the record. It returns false — without
// writing anything — if the transaction is invalid or there is not
// enough room for all of p; a failed PushBack does not invalidate the
// transaction, which may still receive further, possibly smaller,
// appends (spec.md §4.3).
func (w *WriteTx[T]) PushBack(p []byte) bool {
	if !w.Valid() {
		return false
	}
	n := uint32(len(p))
	if n == 0 {
		return true
	}
	if w.available() < n {
		return false
	}

	w.buf.ring.llwrite(w.index, p)
	w.index += uint64(n)
	w.recordSize += n
	return true
}

// PushBackAll appends each payload in p in order, stopping at the first
// one that doesn't fit. It returns the count of payloads successfully
// appended — the Go expression of spec.md's variadic push_back, which
// Go's lack of C++-style parameter packs makes more natural as a slice
// than as true variadic arguments of heterogeneous types.
func (w *WriteTx[T]) PushBackAll(payloads ...[]byte) int {
	n := 0
	for _, p := range payloads {
		if !w.PushBack(p) {
			break
		}
		n++
	}
	return n
}

// Invalidate abandons the transaction: the bytes already written into the
// arena become unreachable garbage (overwritten by a future write), and
// size/end are left untouched. Safe to call multiple times or after
// Commit; only the first call has effect.
func (w *WriteTx[T]) Invalidate() {
	if w.done {
		return
	}
	w.done = true
	w.valid = false
	w.buf.counters.writesAborted.Add(1)
	w.buf.writing.Store(false)
}

// Commit publishes the record: the final size prefix is written, the
// producer cursor advances past the record, and the occupancy counter is
// incremented with release semantics so the consumer can safely observe
// the new bytes (invariant 4). Safe to call multiple times; only the
// first call has effect.
func (w *WriteTx[T]) Commit() {
	if w.done {
		return
	}
	w.done = true

	var szBuf [4]byte
	hostPutUint32(szBuf[:], w.recordSize)
	w.buf.ring.llwrite(w.recordStart, szBuf[:])

	w.buf.end = w.recordStart + uint64(w.recordSize)
	w.buf.size.Add(uint64(w.recordSize)) // release
	w.buf.counters.writesCommitted.Add(1)
	w.buf.counters.bytesWritten.Add(uint64(w.recordSize))

	w.valid = false
	w.buf.writing.Store(false)
}

// Close commits the transaction if it has not already been committed or
// invalidated. It is meant to be used with defer, giving WriteTx the same
// "finalize on every exit path" guarantee the source gets from RAII
// (spec.md §9: scoped acquisition of a transaction slot with guaranteed
// release on all exit paths).
func (w *WriteTx[T]) Close() error {
	w.Commit()
	return nil
}

// PushValue appends a fixed-width value to an in-flight write
// transaction. It is a package-level generic function rather than a
// generic method — Go methods cannot introduce additional type
// parameters beyond their receiver's — matching the option spec.md §9
// calls out for languages without monomorphization: "generic functions
// over a trait/constraint expressing fixed-size, trivially-copyable".
func PushValue[W Timestamp, V Timestamp](w *WriteTx[W], v V) bool {
	n := tsSize[V]()
	var buf [8]byte
	encodeTimestamp(v, buf[:n])
	return w.PushBack(buf[:n])
}
