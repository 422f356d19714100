package wire

import "testing"

func TestAppendBoolSliceKnownVector(t *testing.T) {
	vals := []bool{true, false, true, true, false, false, false, true, true}
	got := AppendBoolSlice(nil, vals)
	want := []byte{0b10110001, 0b10000000}
	if len(got) != len(want) {
		t.Fatalf("length: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %08b want %08b", i, got[i], want[i])
		}
	}
}

func TestBoolSliceRoundTrip(t *testing.T) {
	for n := 0; n < 20; n++ {
		vals := make([]bool, n)
		for i := range vals {
			vals[i] = i%3 == 0
		}
		buf := AppendBoolSlice(nil, vals)
		got, rest, err := ReadBoolSlice(buf, n)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(rest) != 0 {
			t.Fatalf("n=%d: leftover %v", n, rest)
		}
		for i := range vals {
			if got[i] != vals[i] {
				t.Fatalf("n=%d idx=%d: got %v want %v", n, i, got[i], vals[i])
			}
		}
	}
}

func TestReadBoolSliceUnderflow(t *testing.T) {
	if _, _, err := ReadBoolSlice([]byte{0xFF}, 9); err != ErrBufferUnderflow {
		t.Fatalf("expected ErrBufferUnderflow, got %v", err)
	}
}
