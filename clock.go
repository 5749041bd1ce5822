// clock.go: cached wall-clock timestamp source for producers that want
// real time without paying a time.Now() syscall per record.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

import (
	"time"

	timecache "github.com/agilira/go-timecache"
)

// Clock wraps the teacher's own time-caching strategy
// (lethe.go: timeCache.CachedTime()) for producers in this domain: a
// real-time sampler emitting int64-nanosecond timestamped records
// benefits from the same amortized-syscall trick a log writer does.
// Clock is optional — TryWrite takes any Timestamp value directly, a
// Clock is just a convenient source of one.
type Clock struct {
	tc *timecache.TimeCache
}

// NewClock starts a cached clock refreshed at most once per resolution.
func NewClock(resolution time.Duration) *Clock {
	return &Clock{tc: timecache.NewWithResolution(resolution)}
}

// UnixNano returns the cached time as Unix nanoseconds, suitable for a
// Buffer[int64].
func (c *Clock) UnixNano() int64 {
	return c.tc.CachedTime().UnixNano()
}

// Stop releases the clock's background refresh goroutine. Call it when
// the producer shuts down.
func (c *Clock) Stop() {
	c.tc.Stop()
}

// TryWriteNow is a convenience wrapper equivalent to
// buf.TryWrite(clock.UnixNano()), for the common case of a Buffer[int64]
// stamped with wall-clock time.
func (b *Buffer[T]) TryWriteNow(clock *Clock) (*WriteTx[T], error) {
	var z T
	switch any(z).(type) {
	case int64:
		return b.TryWrite(any(clock.UnixNano()).(T))
	default:
		return nil, ErrClockTypeMismatch
	}
}
