// timestamp.go: the T_ts constraint and typed fast paths
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringtx

import "math"

// Timestamp is the constraint satisfied by every fixed-size,
// trivially-copyable timestamp type the buffer can carry in a record
// header. This is the Go-generics expression of spec.md's T_ts: "a
// trivially-copyable fixed-size value (arithmetic or POD-equivalent)".
//
// Deliberately exact, not approximate (no ~): tsSize/encodeTimestamp/
// decodeTimestamp type-switch on these concrete types, and a named type
// with one of these underlying kinds (e.g. "type Seq int64") would match
// none of those cases, silently corrupting headers. Any of these widths
// is legal; the header size (MinCapacity) is derived from whichever one
// a given Buffer is instantiated with.
type Timestamp interface {
	int32 | int64 | uint32 | uint64 | float32 | float64
}

// tsSize returns sizeof(T_ts) for a zero value of T, matching the widths
// the Timestamp constraint allows.
func tsSize[T Timestamp]() uint32 {
	var z T
	switch any(z).(type) {
	case int32, uint32, float32:
		return 4
	case int64, uint64, float64:
		return 8
	default:
		// Unreachable for any T satisfying Timestamp.
		return 8
	}
}

// encodeTimestamp packs a T_ts value into its host-endian, host-layout
// byte representation. Payload bytes beyond sizeof(T) are never written.
func encodeTimestamp[T Timestamp](v T, dst []byte) {
	switch x := any(v).(type) {
	case int32:
		hostPutUint32(dst, uint32(x))
	case uint32:
		hostPutUint32(dst, x)
	case float32:
		hostPutUint32(dst, math.Float32bits(x))
	case int64:
		hostPutUint64(dst, uint64(x))
	case uint64:
		hostPutUint64(dst, x)
	case float64:
		hostPutUint64(dst, math.Float64bits(x))
	}
}

// decodeTimestamp is the inverse of encodeTimestamp.
func decodeTimestamp[T Timestamp](src []byte) T {
	var z T
	switch any(z).(type) {
	case int32:
		return any(int32(hostUint32(src))).(T)
	case uint32:
		return any(hostUint32(src)).(T)
	case float32:
		return any(math.Float32frombits(hostUint32(src))).(T)
	case int64:
		return any(int64(hostUint64(src))).(T)
	case uint64:
		return any(hostUint64(src)).(T)
	case float64:
		return any(math.Float64frombits(hostUint64(src))).(T)
	}
	return z
}
