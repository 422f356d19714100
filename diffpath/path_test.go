package diffpath

import "testing"

func opsEqual(a, b []Op) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].N != b[i].N {
			return false
		}
		if len(a[i].Elems) != len(b[i].Elems) {
			return false
		}
		for j := range a[i].Elems {
			if a[i].Elems[j] != b[i].Elems[j] {
				return false
			}
		}
	}
	return true
}

func TestFreshTickEmitsOnlyDescent(t *testing.T) {
	c := NewCursor()
	ops := c.Navigate(Path{{Field: 1, Key: 0}})
	want := []Op{{Kind: OpNavigateDown, Elems: Path{{Field: 1, Key: 0}}}}
	if !opsEqual(ops, want) {
		t.Fatalf("got %+v want %+v", ops, want)
	}
}

func TestFreshTickRootMutationEmitsNothing(t *testing.T) {
	c := NewCursor()
	ops := c.Navigate(nil)
	if len(ops) != 0 {
		t.Fatalf("expected no ops, got %+v", ops)
	}
}

func TestSiblingNavigatesUpThenDown(t *testing.T) {
	c := NewCursor()
	c.Navigate(Path{{Field: 1, Key: 5}, {Field: 2, Key: 9}})
	ops := c.Navigate(Path{{Field: 1, Key: 5}, {Field: 2, Key: 11}})
	want := []Op{
		{Kind: OpNavigateUp, N: 1},
		{Kind: OpNavigateDown, Elems: Path{{Field: 2, Key: 11}}},
	}
	if !opsEqual(ops, want) {
		t.Fatalf("got %+v want %+v", ops, want)
	}
}

func TestUnrelatedPathEmitsReset(t *testing.T) {
	c := NewCursor()
	c.Navigate(Path{{Field: 1, Key: 5}})
	ops := c.Navigate(Path{{Field: 2, Key: 1}})
	want := []Op{
		{Kind: OpNavigateReset},
		{Kind: OpNavigateDown, Elems: Path{{Field: 2, Key: 1}}},
	}
	if !opsEqual(ops, want) {
		t.Fatalf("got %+v want %+v", ops, want)
	}
}

func TestSamePathEmitsNothing(t *testing.T) {
	c := NewCursor()
	c.Navigate(Path{{Field: 1, Key: 5}})
	ops := c.Navigate(Path{{Field: 1, Key: 5}})
	if len(ops) != 0 {
		t.Fatalf("expected no ops for repeated path, got %+v", ops)
	}
}

func TestDeeperDescentOnlyEmitsDown(t *testing.T) {
	c := NewCursor()
	c.Navigate(Path{{Field: 1, Key: 5}})
	ops := c.Navigate(Path{{Field: 1, Key: 5}, {Field: 3, Key: 0}})
	want := []Op{
		{Kind: OpNavigateDown, Elems: Path{{Field: 3, Key: 0}}},
	}
	if !opsEqual(ops, want) {
		t.Fatalf("got %+v want %+v", ops, want)
	}
}

func TestReturnToRootEmitsReset(t *testing.T) {
	c := NewCursor()
	c.Navigate(Path{{Field: 1, Key: 5}, {Field: 2, Key: 1}})
	ops := c.Navigate(nil)
	want := []Op{{Kind: OpNavigateReset}}
	if !opsEqual(ops, want) {
		t.Fatalf("got %+v want %+v", ops, want)
	}
}
