package demo

import (
	"testing"

	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/state"
)

func TestOnClientConnectAllocatesKeyMatchingFirstClientID(t *testing.T) {
	rec := diff.NewSerializer()
	root := state.NewRoot(rec)
	gc := GameCode{}

	gc.OnClientConnect(root, 0)

	if _, ok := root.Players.Get(playerKey(0)); !ok {
		t.Fatalf("expected a player at slot key 0 for the first-ever client id 0")
	}
}

func TestSimulationTickMovesPlayerAtImmediateTier(t *testing.T) {
	rec := diff.NewSerializer()
	root := state.NewRoot(rec)
	gc := GameCode{}
	gc.OnClientConnect(root, 0)

	player, ok := root.Players.Get(playerKey(0))
	if !ok {
		t.Fatalf("player not found after connect")
	}
	player.SetInput(rec, state.Input{MoveX: 1, MoveY: 0})

	gc.SimulationTick(root, 0, true, false)

	if player.PosX != moveScale {
		t.Fatalf("PosX = %d, want %d after one tick of MoveX=1", player.PosX, moveScale)
	}
}

func TestSimulationTickOnlyScoresUnderConsensus(t *testing.T) {
	rec := diff.NewSerializer()
	root := state.NewRoot(rec)
	gc := GameCode{}
	gc.OnClientConnect(root, 0)

	player, _ := root.Players.Get(playerKey(0))
	player.SetInput(rec, state.Input{Fire: true})

	gc.SimulationTick(root, 0, true, false) // predicted: no score yet
	if player.Score != 0 {
		t.Fatalf("score should not advance under prediction, got %d", player.Score)
	}

	gc.SimulationTick(root, 0, true, true) // consensus: score advances
	if player.Score != 1 {
		t.Fatalf("score = %d, want 1 once consensus confirms Fire", player.Score)
	}
}

func TestMergeInputKeepsNewestMoveAndOrsFire(t *testing.T) {
	gc := GameCode{}
	combined := state.Input{MoveX: 1, MoveY: 1, Fire: true}
	gc.MergeInput(&combined, state.Input{MoveX: -1, MoveY: 0, Fire: false})

	if combined.MoveX != -1 || combined.MoveY != 0 {
		t.Fatalf("expected newest movement to win, got %+v", combined)
	}
	if !combined.Fire {
		t.Fatalf("expected Fire to stay true (OR-combined)")
	}
}

func TestPredictLateInputZeroesFire(t *testing.T) {
	gc := GameCode{}
	prev := state.Input{MoveX: 1, Fire: true}
	got := gc.PredictLateInput(prev, nil, 0)
	if got.Fire {
		t.Fatalf("predicted late input must not carry Fire forward")
	}
	if got.MoveX != 1 {
		t.Fatalf("predicted late input should repeat movement, got %+v", got)
	}
}
