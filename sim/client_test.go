package sim

import (
	"testing"

	"github.com/borgerland/netcode/config"
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wireproto"
)

func newTestClient(selfID uint32, startTick tick.ID) *Client {
	rec := diff.NewSerializer()
	root := state.NewRoot(rec)
	return NewClient(NopGameCode{}, selfID, config.Defaults(), nil, root, rec, startTick)
}

// E2-style: a client bootstrapped at tick 100 predicts forward on an empty
// RunTick (no server frame yet) and ends at id_cur=101, sending exactly one
// outbound input frame.
func TestClientPredictsForwardWithoutServerFrame(t *testing.T) {
	c := newTestClient(0, 100)

	var sent []wireproto.Frame
	c.SendInput = func(f wireproto.Frame) { sent = append(sent, f) }

	c.RunTick(101)

	if c.Clock.IDCur() != 101 {
		t.Fatalf("id_cur = %d, want 101", c.Clock.IDCur())
	}
	if len(sent) != 1 {
		t.Fatalf("expected exactly one outbound input frame, got %d", len(sent))
	}
	if sent[0].TickID != 101 {
		t.Fatalf("outbound frame tick = %d, want 101", sent[0].TickID)
	}
}

// A Consensus frame for the current consensus tick advances both id_cur and
// id_consensus by one and acks the oldest history entry.
func TestApplyConsensusFrameAdvancesBothClocks(t *testing.T) {
	c := newTestClient(0, 100)
	c.RunTick(101) // predicted ahead to 101, history has one entry pending ack

	c.applyFrame(wireproto.Frame{Type: tick.Consensus, TickID: 100})

	if c.Clock.IDConsensus() != 101 {
		t.Fatalf("id_consensus = %d, want 101", c.Clock.IDConsensus())
	}
	if c.Clock.IDCur() != 101 {
		t.Fatalf("id_cur = %d, want 101 (rewind to consensus, then advance by one)", c.Clock.IDCur())
	}
}

// A stale Predicted frame (older than lastSafeTickID) is dropped by
// reconcile's first pass rather than applied.
func TestReconcileDropsStalePredictedFrames(t *testing.T) {
	c := newTestClient(0, 100)
	c.lastSafeTickID = 105

	c.ReceiveFrame(wireproto.Frame{Type: tick.Predicted, TickID: 101})
	c.reconcile()

	if c.Clock.IDCur() != 100 {
		t.Fatalf("stale predicted frame should have been dropped, id_cur = %d", c.Clock.IDCur())
	}
}

// RunTick recalibrates instead of simulating when the local clock is
// already at or past target (server got ahead of local prediction).
func TestRunTickRecalibratesWhenAlreadyAtTarget(t *testing.T) {
	c := newTestClient(0, 100)
	c.Clock.SetIDCur(105)

	c.RunTick(101)

	if c.Clock.IDCur() != 105 {
		t.Fatalf("id_cur should be untouched by recalibration path, got %d", c.Clock.IDCur())
	}
}

// publish hands the render thread a snapshot carrying the client's own id
// and current tick.
func TestPublishSnapshot(t *testing.T) {
	c := newTestClient(3, 100)

	var got Snapshot
	c.PublishSnapshot = func(s Snapshot) { got = s }

	c.RunTick(101)

	if got.LocalClientID != 3 {
		t.Fatalf("LocalClientID = %d, want 3", got.LocalClientID)
	}
	if got.Time != 101 {
		t.Fatalf("Time = %d, want 101", got.Time)
	}
}
