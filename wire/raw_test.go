package wire

import (
	"math"
	"testing"
)

func TestRollbackStackRoundTrip(t *testing.T) {
	// Rollback buffers are a LIFO: values pushed u16, i32, bool, f64 must pop
	// back out in reverse order, mirroring the tail-to-head rollback reader.
	var buf []byte
	buf = AppendU16(buf, 4242)
	buf = AppendI32(buf, -17)
	buf = AppendBool(buf, true)
	buf = AppendF64(buf, 3.5)

	f, buf, err := PopF64(buf)
	if err != nil || f != 3.5 {
		t.Fatalf("pop f64: %v %v", f, err)
	}
	bl, buf, err := PopBool(buf)
	if err != nil || !bl {
		t.Fatalf("pop bool: %v %v", bl, err)
	}
	i, buf, err := PopI32(buf)
	if err != nil || i != -17 {
		t.Fatalf("pop i32: %v %v", i, err)
	}
	u, buf, err := PopU16(buf)
	if err != nil || u != 4242 {
		t.Fatalf("pop u16: %v %v", u, err)
	}
	if len(buf) != 0 {
		t.Fatalf("leftover bytes: %v", buf)
	}
}

func TestPopBoolCorrupt(t *testing.T) {
	buf := []byte{7}
	if _, _, err := PopBool(buf); err != ErrCorruptBool {
		t.Fatalf("expected ErrCorruptBool, got %v", err)
	}
}

func TestPopUnderflow(t *testing.T) {
	if _, _, err := PopU32([]byte{1, 2}); err != ErrBufferUnderflow {
		t.Fatalf("expected ErrBufferUnderflow, got %v", err)
	}
}

func TestCharRoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendChar(buf, 'Z')
	buf = AppendChar(buf, 'é')
	r2, buf, err := PopChar(buf)
	if err != nil || r2 != 'é' {
		t.Fatalf("pop char: %v %v", r2, err)
	}
	r1, buf, err := PopChar(buf)
	if err != nil || r1 != 'Z' {
		t.Fatalf("pop char: %v %v", r1, err)
	}
	if len(buf) != 0 {
		t.Fatalf("leftover: %v", buf)
	}
}

func TestPopCharCorrupt(t *testing.T) {
	// 0xD800 is a surrogate half, not a valid Unicode scalar value.
	buf := AppendU32(nil, 0xD800)
	if _, _, err := PopChar(buf); err != ErrCorruptChar {
		t.Fatalf("expected ErrCorruptChar, got %v", err)
	}
}

func TestFloatRawEncoding(t *testing.T) {
	buf := AppendF32(nil, float32(math.Pi))
	if len(buf) != 4 {
		t.Fatalf("f32 should encode as exactly 4 raw bytes, got %d", len(buf))
	}
	v, rest, err := PopF32(buf)
	if err != nil || len(rest) != 0 {
		t.Fatalf("pop f32: %v %v", rest, err)
	}
	if v != float32(math.Pi) {
		t.Fatalf("round trip: got %v", v)
	}
}

func TestTxIntCompression(t *testing.T) {
	buf := SerTxU64(nil, 3)
	if len(buf) != 1 {
		t.Fatalf("small tx varint should fit in one byte, got %d bytes", len(buf))
	}
	v, rest, err := DesRxU64(buf)
	if err != nil || len(rest) != 0 || v != 3 {
		t.Fatalf("round trip failed: v=%d rest=%v err=%v", v, rest, err)
	}
}

func TestTxCharRoundTrip(t *testing.T) {
	buf := SerTxChar(nil, '本')
	r, rest, err := DesRxChar(buf)
	if err != nil || len(rest) != 0 || r != '本' {
		t.Fatalf("round trip failed: r=%q rest=%v err=%v", r, rest, err)
	}
}
