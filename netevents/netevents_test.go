package netevents

import "testing"

func TestDrainAllReturnsInArrivalOrder(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Kind: ServerStart})
	q.Push(Event{Kind: ClientConnect, ClientID: 3})
	q.Push(Event{Kind: ClientDisconnect, ClientID: 3})

	drained := q.DrainAll()
	if len(drained) != 3 {
		t.Fatalf("got %d events, want 3", len(drained))
	}
	if drained[0].Kind != ServerStart || drained[1].ClientID != 3 || drained[2].Kind != ClientDisconnect {
		t.Fatalf("unexpected order: %+v", drained)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue empty after drain, got %d", q.Len())
	}
}

func TestDrainAllEmptyReturnsNil(t *testing.T) {
	q := NewQueue()
	if got := q.DrainAll(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
