// Package demo is a minimal sim.GameCode over state's example Player tree:
// movement driven by Input, a score tick while Fire is held, and a
// HitFlash pulse — just enough behavior to exercise every tradeoff tier
// and give the cmd/ binaries something to simulate. The code-generation
// pipeline and real game logic are out of scope (spec §1); this fills
// that collaborator's seam for the demo deployment.
package demo

import (
	"github.com/borgerland/netcode/slotmap"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/tradeoff"
)

// moveScale is how many position units (plain int32, not fixed-point) one
// Input.MoveX/Y unit advances a player per tick.
const moveScale = 1 << 12

func playerKey(clientID uint32) slotmap.Key { return slotmap.Key(clientID) }

// GameCode implements sim.GameCode for the example Player tree.
type GameCode struct{}

func (GameCode) SimulationTick(root *state.Root, selfID uint32, isServer, hasConsensus bool) {
	player, ok := root.Players.Get(playerKey(selfID))
	if !ok {
		return
	}
	rec := root.Rec()

	tradeoff.Immediate(func() {
		// Movement runs identically on server and client: the cheap,
		// potentially-mispredicted tier.
		player.SetPosX(rec, player.PosX+int32(player.Input.MoveX)*moveScale)
		player.SetPosY(rec, player.PosY+int32(player.Input.MoveY)*moveScale)
		player.SetVelX(rec, int32(player.Input.MoveX)*moveScale)
		player.SetVelY(rec, int32(player.Input.MoveY)*moveScale)
	})

	tradeoff.WaitForConsensus(isServer, hasConsensus, func() {
		// Scoring is only ever final once every client's input for the
		// tick is known — awarding points off a mispredicted Fire would
		// let a client inflate its own score by guessing.
		if player.Input.Fire {
			player.SetScore(rec, player.Score+1)
			player.SetHitFlash(true)
		}
	})
}

func (GameCode) ValidateInput(in *state.Input) {
	if in.MoveX < -1 {
		in.MoveX = -1
	}
	if in.MoveX > 1 {
		in.MoveX = 1
	}
	if in.MoveY < -1 {
		in.MoveY = -1
	}
	if in.MoveY > 1 {
		in.MoveY = 1
	}
}

// PredictLateInput repeats the last known input, zeroing Fire so a missed
// or late input never retroactively manufactures score.
func (GameCode) PredictLateInput(prev state.Input, _ *state.Root, _ uint32) state.Input {
	prev.Fire = false
	return prev
}

// MergeInput keeps the newest movement sample and OR-combines Fire, the
// same policy spec §4.9 step 1 names as an example merge rule.
func (GameCode) MergeInput(combined *state.Input, next state.Input) {
	combined.MoveX = next.MoveX
	combined.MoveY = next.MoveY
	combined.Fire = combined.Fire || next.Fire
}

func (GameCode) OnServerStart(root *state.Root) {}

func (GameCode) OnClientConnect(root *state.Root, clientID uint32) {
	_, player := state.AddPlayer(root)
	rec := root.Rec()
	player.SetPosX(rec, 0)
	player.SetPosY(rec, 0)
}

func (GameCode) OnClientDisconnect(root *state.Root, clientID uint32) {
	state.RemovePlayer(root, playerKey(clientID))
}
