package slotmap

import "testing"

type testElem struct{ tag int }

func (e testElem) SnapshotRollback(buf []byte) []byte { return append(buf, byte(e.tag)) }

type recorder struct {
	adds    int
	removes []Key
	clears  int
}

func (r *recorder) TrackSlotMapAdd(fieldID uint32) { r.adds++ }
func (r *recorder) TrackSlotMapRemove(fieldID uint32, key Key, index int, removed testElem) {
	r.removes = append(r.removes, key)
}
func (r *recorder) TrackSlotMapClear(fieldID uint32, removed []testElem) { r.clears++ }

func TestAddAssignsSequentialKeys(t *testing.T) {
	s := New[testElem](1)
	diff := &recorder{}
	k0, _ := s.Add(diff, func(k Key) testElem { return testElem{tag: int(k)} })
	k1, _ := s.Add(diff, func(k Key) testElem { return testElem{tag: int(k)} })
	if k0 != 0 || k1 != 1 {
		t.Fatalf("got keys %d, %d", k0, k1)
	}
	if diff.adds != 2 {
		t.Fatalf("expected 2 adds, got %d", diff.adds)
	}
}

func TestRemoveRecyclesKeyLIFO(t *testing.T) {
	s := New[testElem](1)
	diff := &recorder{}
	k0, _ := s.Add(diff, func(k Key) testElem { return testElem{} })
	k1, _ := s.Add(diff, func(k Key) testElem { return testElem{} })
	k2, _ := s.Add(diff, func(k Key) testElem { return testElem{} })

	s.Remove(diff, k1)
	s.Remove(diff, k0)

	// k0 and k1 are both mid-sequence removals (neither equals next_id-1 =
	// 2 at time of removal), so both land in reclaimed_ids; k0 was freed
	// last and pops first.
	_ = k2
	next, _ := s.Add(diff, func(k Key) testElem { return testElem{} })
	if next != k0 {
		t.Fatalf("expected LIFO reclaim of %d, got %d", k0, next)
	}
}

func TestRemoveOfHighestKeyDecrementsNextID(t *testing.T) {
	s := New[testElem](1)
	diff := &recorder{}
	_, _ = s.Add(diff, func(k Key) testElem { return testElem{} })
	k1, _ := s.Add(diff, func(k Key) testElem { return testElem{} })
	s.Remove(diff, k1)
	next, _ := s.Add(diff, func(k Key) testElem { return testElem{} })
	if next != k1 {
		t.Fatalf("expected next_id reuse of %d, got %d", k1, next)
	}
}

func TestSwapRemoveKeepsIndexConsistent(t *testing.T) {
	s := New[testElem](1)
	diff := &recorder{}
	k0, _ := s.Add(diff, func(k Key) testElem { return testElem{tag: 0} })
	k1, _ := s.Add(diff, func(k Key) testElem { return testElem{tag: 1} })
	_ = k1
	s.Remove(diff, k0)
	if got, ok := s.Get(k1); !ok || got.tag != 1 {
		t.Fatalf("displaced element not found after swap-remove: %v %v", got, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
}

func TestClearRecordsAllRemoved(t *testing.T) {
	s := New[testElem](1)
	diff := &recorder{}
	s.Add(diff, func(k Key) testElem { return testElem{} })
	s.Add(diff, func(k Key) testElem { return testElem{} })
	s.Clear(diff)
	if diff.clears != 1 {
		t.Fatalf("expected exactly one clear op, got %d", diff.clears)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store after clear, got len %d", s.Len())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New[testElem](1)
	diff := &recorder{}
	s.Add(diff, func(k Key) testElem { return testElem{tag: 10} })
	s.Add(diff, func(k Key) testElem { return testElem{tag: 20} })

	buf := s.SnapshotTx(nil, func(buf []byte, v testElem) []byte { return append(buf, byte(v.tag)) })

	loaded, rest, err := LoadSnapshotTx[testElem](buf, 1, func(_ Key, buf []byte) (testElem, []byte, error) {
		return testElem{tag: int(buf[0])}, buf[1:], nil
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("leftover bytes: %v", rest)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", loaded.Len())
	}
}
