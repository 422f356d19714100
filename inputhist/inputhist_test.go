package inputhist

import "testing"

func TestServerHistoryNeverEmpty(t *testing.T) {
	s := NewServer()
	if s.Len() != 1 {
		t.Fatalf("expected seeded entry, got len %d", s.Len())
	}
	s.DropConsumed(10)
	if s.Len() != 1 {
		t.Fatalf("DropConsumed must preserve the non-empty invariant, got len %d", s.Len())
	}
}

func TestServerReceiveDiscardedDuringTimeout(t *testing.T) {
	s := NewServer()
	s.MarkTimedOut()
	_, applied := s.Receive(5, 5, []byte("x"))
	if applied {
		t.Fatalf("input should be discarded while timed_out_ticks > 0")
	}
	if s.TimedOutTicks() != 0 {
		t.Fatalf("expected timeout counter decremented to 0, got %d", s.TimedOutTicks())
	}
}

func TestServerReceiveAppendsWhenNotTimedOut(t *testing.T) {
	s := NewServer()
	before := s.Len()
	rollbackTo, applied := s.Receive(7, 10, []byte("x"))
	if !applied {
		t.Fatalf("expected input applied")
	}
	if rollbackTo != 7 {
		t.Fatalf("expected rollback target 7, got %d", rollbackTo)
	}
	if s.Len() != before+1 {
		t.Fatalf("expected entry appended, len went %d -> %d", before, s.Len())
	}
}

func TestClientGenerateBogusInputs(t *testing.T) {
	c := NewClient()
	c.GenerateBogusInputs(3)
	if c.Len() != 4 {
		t.Fatalf("GenerateBogusInputs(3) should append 4 entries, got %d", c.Len())
	}
}

func TestClientDropPreservesOneEntry(t *testing.T) {
	c := NewClient()
	c.Append([]byte("a"))
	c.Append([]byte("b"))
	c.Drop(10)
	if c.Len() != 1 {
		t.Fatalf("Drop must preserve at least one entry, got len %d", c.Len())
	}
}

func TestClientAckClearsOldestUnacked(t *testing.T) {
	c := NewClient()
	c.Append([]byte("a"))
	c.Append([]byte("b"))
	c.Ack(1)
	if c.Entry(0).Ping {
		t.Fatalf("oldest entry should be acked")
	}
	if !c.Entry(1).Ping {
		t.Fatalf("second entry should still be unacked")
	}
}
