// Package wire implements the primitive codec described in spec §4.1: a
// fixed little-endian raw encoding for the rollback log (popped tail-first,
// so size dominates and CPU is cheap — it never leaves the process) and a
// varint/zigzag-compressed encoding for the tx log (which crosses the
// wire, so CPU spent compressing is paid back in bandwidth).
package wire

import (
	"encoding/binary"
	"math"
)

// AppendBool/PopBool, AppendU*/PopU*, AppendI*/PopI*, AppendF*/PopF* are the
// rollback-side primitives: raw little-endian, no compression. Pop removes
// from the *tail* of buf, matching the tail-to-head rollback reader.

func AppendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func PopBool(buf []byte) (bool, []byte, error) {
	b, rest, err := PopBytes(buf, 1)
	if err != nil {
		return false, nil, err
	}
	switch b[0] {
	case 0:
		return false, rest, nil
	case 1:
		return true, rest, nil
	default:
		return false, nil, ErrCorruptBool
	}
}

func AppendU16(buf []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(buf, v) }
func AppendI16(buf []byte, v int16) []byte  { return AppendU16(buf, uint16(v)) }
func AppendU32(buf []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(buf, v) }
func AppendI32(buf []byte, v int32) []byte  { return AppendU32(buf, uint32(v)) }
func AppendU64(buf []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(buf, v) }
func AppendI64(buf []byte, v int64) []byte  { return AppendU64(buf, uint64(v)) }

func AppendF32(buf []byte, v float32) []byte { return AppendU32(buf, math.Float32bits(v)) }
func AppendF64(buf []byte, v float64) []byte { return AppendU64(buf, math.Float64bits(v)) }

func AppendChar(buf []byte, v rune) []byte { return AppendU32(buf, uint32(v)) }

func PopU16(buf []byte) (uint16, []byte, error) {
	b, rest, err := PopBytes(buf, 2)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint16(b), rest, nil
}

func PopI16(buf []byte) (int16, []byte, error) {
	v, rest, err := PopU16(buf)
	return int16(v), rest, err
}

func PopU32(buf []byte) (uint32, []byte, error) {
	b, rest, err := PopBytes(buf, 4)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint32(b), rest, nil
}

func PopI32(buf []byte) (int32, []byte, error) {
	v, rest, err := PopU32(buf)
	return int32(v), rest, err
}

func PopU64(buf []byte) (uint64, []byte, error) {
	b, rest, err := PopBytes(buf, 8)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint64(b), rest, nil
}

func PopI64(buf []byte) (int64, []byte, error) {
	v, rest, err := PopU64(buf)
	return int64(v), rest, err
}

func PopF32(buf []byte) (float32, []byte, error) {
	v, rest, err := PopU32(buf)
	if err != nil {
		return 0, nil, err
	}
	return math.Float32frombits(v), rest, nil
}

func PopF64(buf []byte) (float64, []byte, error) {
	v, rest, err := PopU64(buf)
	if err != nil {
		return 0, nil, err
	}
	return math.Float64frombits(v), rest, nil
}

func PopChar(buf []byte) (rune, []byte, error) {
	v, rest, err := PopU32(buf)
	if err != nil {
		return 0, nil, err
	}
	r := rune(v)
	if !validScalar(r) {
		return 0, nil, ErrCorruptChar
	}
	return r, rest, nil
}

// PopBytes removes the trailing n bytes of buf, returning (poppedValue,
// remainingBuf). The popped slice is in storage order (not reversed); it is
// the caller's job to interpret multi-byte values little-endian.
func PopBytes(buf []byte, n int) ([]byte, []byte, error) {
	if len(buf) < n {
		return nil, nil, ErrBufferUnderflow
	}
	split := len(buf) - n
	return buf[split:], buf[:split], nil
}

func validScalar(r rune) bool {
	return r >= 0 && r <= 0x10FFFF && !(r >= 0xD800 && r <= 0xDFFF)
}
