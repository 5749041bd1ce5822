// stats.go: atomic telemetry counters, read lock-free by either role.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

import "sync/atomic"

// Stats is a point-in-time snapshot of a Buffer's telemetry, in the same
// spirit as the teacher's Logger.Stats(): plain counters assembled from
// atomics, safe to read from any goroutine, never itself blocking a
// producer or consumer.
type Stats struct {
	// WritesCommitted is the number of write transactions that committed.
	WritesCommitted uint64
	// WritesAborted is the number of write transactions invalidated.
	WritesAborted uint64
	// ReadsCommitted is the number of read transactions that committed.
	ReadsCommitted uint64
	// ReadsAborted is the number of read transactions invalidated.
	ReadsAborted uint64
	// BytesWritten is the total record bytes (header+payload) committed
	// by the producer.
	BytesWritten uint64
	// BytesRead is the total record bytes (header+payload) reclaimed by
	// the consumer.
	BytesRead uint64
	// NoRoomCount is the number of try_write calls that failed because
	// free space was below the header size.
	NoRoomCount uint64
	// NoDataCount is the number of try_read calls that failed because the
	// buffer was empty.
	NoDataCount uint64
	// BusyCount is the number of try_write/try_read calls that failed
	// because a transaction of that role was already active.
	BusyCount uint64
}

// counters holds the atomics backing Stats; embedded in Buffer.
type counters struct {
	writesCommitted atomic.Uint64
	writesAborted   atomic.Uint64
	readsCommitted  atomic.Uint64
	readsAborted    atomic.Uint64
	bytesWritten    atomic.Uint64
	bytesRead       atomic.Uint64
	noRoomCount     atomic.Uint64
	noDataCount     atomic.Uint64
	busyCount       atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		WritesCommitted: c.writesCommitted.Load(),
		WritesAborted:   c.writesAborted.Load(),
		ReadsCommitted:  c.readsCommitted.Load(),
		ReadsAborted:    c.readsAborted.Load(),
		BytesWritten:    c.bytesWritten.Load(),
		BytesRead:       c.bytesRead.Load(),
		NoRoomCount:     c.noRoomCount.Load(),
		NoDataCount:     c.noDataCount.Load(),
		BusyCount:       c.busyCount.Load(),
	}
}
