package wire

import (
	"math"
	"testing"
)

func TestUvarintRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 300, 16384, math.MaxUint32, math.MaxUint64}
	for _, v := range vals {
		buf := AppendUvarint(nil, v)
		got, rest, err := ReadUvarint(buf)
		if err != nil {
			t.Fatalf("ReadUvarint(%d): %v", v, err)
		}
		if len(rest) != 0 {
			t.Fatalf("ReadUvarint(%d): leftover bytes %v", v, rest)
		}
		if got != v {
			t.Fatalf("round trip %d -> %d", v, got)
		}
	}
}

func TestVarintRoundTrip(t *testing.T) {
	vals := []int64{0, 1, -1, 127, -127, 128, -128, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64}
	for _, v := range vals {
		buf := AppendVarint(nil, v)
		got, rest, err := ReadVarint(buf)
		if err != nil {
			t.Fatalf("ReadVarint(%d): %v", v, err)
		}
		if len(rest) != 0 {
			t.Fatalf("ReadVarint(%d): leftover bytes %v", v, rest)
		}
		if got != v {
			t.Fatalf("round trip %d -> %d", v, got)
		}
	}
}

func TestReadUvarintBufferUnderflow(t *testing.T) {
	// continuation bit set on every byte, stream simply stops short.
	buf := []byte{0x80, 0x80}
	if _, _, err := ReadUvarint(buf); err != ErrBufferUnderflow {
		t.Fatalf("expected ErrBufferUnderflow, got %v", err)
	}
}

func TestReadUvarintCorrupt(t *testing.T) {
	buf := make([]byte, maxVarintBytes)
	for i := range buf {
		buf[i] = 0x80
	}
	if _, _, err := ReadUvarint(buf); err != ErrCorruptVarInt {
		t.Fatalf("expected ErrCorruptVarInt, got %v", err)
	}
}

func TestReadUvarintNObese(t *testing.T) {
	buf := AppendUvarint(nil, 1<<16)
	if _, _, err := ReadUvarintN(buf, 16); err != ErrObeseVarInt {
		t.Fatalf("expected ErrObeseVarInt, got %v", err)
	}
	buf2 := AppendUvarint(nil, (1<<16)-1)
	if _, _, err := ReadUvarintN(buf2, 16); err != nil {
		t.Fatalf("max-width value should fit: %v", err)
	}
}

func TestReadVarintNObese(t *testing.T) {
	buf := AppendVarint(nil, math.MaxInt16+1)
	if _, _, err := ReadVarintN(buf, 16); err != ErrObeseVarInt {
		t.Fatalf("expected ErrObeseVarInt, got %v", err)
	}
	buf2 := AppendVarint(nil, math.MinInt16)
	if _, _, err := ReadVarintN(buf2, 16); err != nil {
		t.Fatalf("min int16 should fit: %v", err)
	}
}
