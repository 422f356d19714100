package wireproto

import (
	"bytes"
	"testing"

	"github.com/borgerland/netcode/tick"
)

func TestFrameRoundTripPredicted(t *testing.T) {
	f := Frame{Type: tick.Predicted, TickID: 42, Ops: []byte{1, 2, 3}}
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Type != f.Type || got.TickID != f.TickID || !bytes.Equal(got.Ops, f.Ops) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, f)
	}
}

func TestFrameRoundTripConsensusWithFirstAck(t *testing.T) {
	f := Frame{Type: tick.Consensus, InputAcked: true, FirstAck: true, ServerOffset: -7, Ops: []byte{9}}
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.InputAcked || !got.FirstAck || got.ServerOffset != -7 {
		t.Fatalf("got %+v", got)
	}
}

func TestFrameNetEventsNoExtraFields(t *testing.T) {
	f := Frame{Type: tick.NetEvents, Ops: []byte{5, 6}}
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got.Ops, []byte{5, 6}) {
		t.Fatalf("got ops %v", got.Ops)
	}
}
