package state

import (
	"testing"

	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/slotmap"
	"github.com/borgerland/netcode/tick"
)

func TestAddPlayerRollbackUndoesInsertion(t *testing.T) {
	rec := diff.NewSerializer()
	root := NewRoot(rec)

	rec.RollbackBeginTick(tick.Predicted)
	key, p := AddPlayer(root)
	p.Score = 7
	rec.RollbackEndTick()

	if root.Players.Len() != 1 {
		t.Fatalf("expected 1 player after add, got %d", root.Players.Len())
	}

	buf := rec.TakeRollbackBuf()
	rest, err := diff.DesRollback(root, buf)
	if err != nil {
		t.Fatalf("DesRollback: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected buffer fully consumed, got %v", rest)
	}
	if root.Players.Len() != 0 {
		t.Fatalf("expected add to be undone, got %d players", root.Players.Len())
	}
	if _, ok := root.Players.Get(key); ok {
		t.Fatalf("expected key %d to no longer resolve", key)
	}
}

func TestRemovePlayerRollbackReinsertsAtSameSlot(t *testing.T) {
	rec := diff.NewSerializer()
	root := NewRoot(rec)

	// Two players added outside any tracked tick, so only the remove
	// itself is subject to rollback.
	_, p0 := AddPlayer(root)
	p0.Score = 10
	key1, p1 := AddPlayer(root)
	p1.Score = 20

	rec.RollbackBeginTick(tick.Predicted)
	RemovePlayer(root, key1)
	rec.RollbackEndTick()

	if root.Players.Len() != 1 {
		t.Fatalf("expected 1 player after remove, got %d", root.Players.Len())
	}

	buf := rec.TakeRollbackBuf()
	if _, err := diff.DesRollback(root, buf); err != nil {
		t.Fatalf("DesRollback: %v", err)
	}

	if root.Players.Len() != 2 {
		t.Fatalf("expected remove to be undone, got %d players", root.Players.Len())
	}
	restored, ok := root.Players.Get(key1)
	if !ok {
		t.Fatalf("expected key %d reinstated", key1)
	}
	if restored.Score != 20 {
		t.Fatalf("expected restored score 20, got %d", restored.Score)
	}
}

func TestClearRollbackRestoresAllPlayers(t *testing.T) {
	rec := diff.NewSerializer()
	root := NewRoot(rec)

	_, p0 := AddPlayer(root)
	p0.Score = 1
	_, p1 := AddPlayer(root)
	p1.Score = 2
	_, p2 := AddPlayer(root)
	p2.Score = 3

	rec.RollbackBeginTick(tick.Predicted)
	root.Players.Clear(root.bridge)
	rec.RollbackEndTick()

	if root.Players.Len() != 0 {
		t.Fatalf("expected 0 players after clear, got %d", root.Players.Len())
	}

	buf := rec.TakeRollbackBuf()
	if _, err := diff.DesRollback(root, buf); err != nil {
		t.Fatalf("DesRollback: %v", err)
	}

	if root.Players.Len() != 3 {
		t.Fatalf("expected clear to be undone, got %d players", root.Players.Len())
	}
	var total uint32
	root.Players.Range(func(_ slotmap.Key, v *Player) bool { total += v.Score; return true })
	if total != 6 {
		t.Fatalf("expected restored scores to sum to 6, got %d", total)
	}
}

func TestRxReplayAppliesRemoteAddAndField(t *testing.T) {
	senderRec := diff.NewSerializer()
	sender := NewRoot(senderRec)
	const client = diff.ClientID(1)
	senderRec.AddClient(client)

	senderRec.TxBeginTick(client, tick.Consensus, true)
	_, p := AddPlayer(sender)
	p.SetPosX(senderRec, 100)
	p.SetScore(senderRec, 42)
	buf := senderRec.TxEndTick(client)

	receiverRec := diff.NewSerializer()
	receiver := NewRoot(receiverRec)

	// Skip the leading tick-type marker, as a real client does after
	// classifying the buffer.
	payload := buf[1:]
	if err := diff.DesRxState(receiver, receiverRec, payload); err != nil {
		t.Fatalf("DesRxState: %v", err)
	}

	if receiver.Players.Len() != 1 {
		t.Fatalf("expected 1 player replicated, got %d", receiver.Players.Len())
	}
	var got *Player
	receiver.Players.Range(func(_ slotmap.Key, v *Player) bool { got = v; return false })
	if got.PosX != 100 || got.Score != 42 {
		t.Fatalf("unexpected replicated state: %+v", got)
	}
}

func TestPlayerTxRoundTrip(t *testing.T) {
	p := NewPlayer(3)
	p.PosX, p.PosY = 10, -20
	p.VelX, p.VelY = 1, 2
	p.Char = 'X'
	p.Score = 500
	p.Input = Input{MoveX: -1, MoveY: 1, Fire: true}

	buf := EncodePlayerTx(nil, p)
	got, rest, err := DecodePlayerTx(3, buf)
	if err != nil {
		t.Fatalf("DecodePlayerTx: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected buffer fully consumed, got %v", rest)
	}
	if got.PosX != p.PosX || got.PosY != p.PosY || got.VelX != p.VelX || got.VelY != p.VelY ||
		got.Char != p.Char || got.Score != p.Score || got.Input != p.Input {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestResetUntrackedTreeClearsHitFlash(t *testing.T) {
	rec := diff.NewSerializer()
	root := NewRoot(rec)
	_, p := AddPlayer(root)
	p.HitFlash = true

	ResetUntrackedTree(root)

	if p.HitFlash {
		t.Fatalf("expected HitFlash cleared")
	}
}
