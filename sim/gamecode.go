// Package sim implements the simulation controller from spec §4.7/§4.8/§4.9:
// the scheduler loop shared by server and client, and each side's
// extension of it. It is the one package that actually drives a tick
// end-to-end, wiring diff, diffpath, inputhist, netevents, tick, state,
// tradeoff, transport and wireproto together.
package sim

import "github.com/borgerland/netcode/state"

// GameCode is everything the controller needs from the game-specific
// collaborator (spec §6 "game-code interface"). The code-generation
// pipeline and the physics step itself are out of scope (spec §1); this
// is the seam a real deployment plugs its own implementation into. The
// demo cmd/ binaries use a trivial implementation over state.Root/Player.
type GameCode interface {
	// SimulationTick mutates root under the current tick's tradeoff
	// context. isServer/hasConsensus let game code gate its own blocks
	// via the tradeoff package without the controller needing to know
	// what game logic actually runs.
	SimulationTick(root *state.Root, selfID uint32, isServer bool, hasConsensus bool)

	// ValidateInput clamps/sanitizes a freshly received or locally
	// captured input before it is diffed or applied.
	ValidateInput(in *state.Input)

	// PredictLateInput synthesizes a missing input when none arrived this
	// tick (client: presentation thread sent nothing; server: the owning
	// client's input hasn't arrived yet and the tick is being forced to
	// consensus by timeout).
	PredictLateInput(prev state.Input, root *state.Root, clientID uint32) state.Input

	// MergeInput folds a newly captured raw input into the
	// already-combined one for this tick (client only; spec §4.9 step 1:
	// "camera takes newest, movement takes newest-nonzero, press buttons
	// OR together" is a game-specific policy the demo keeps simple).
	MergeInput(combined *state.Input, next state.Input)

	// OnServerStart/OnClientConnect/OnClientDisconnect are the net-event
	// hooks (spec §6), run during the NetEvents half-tick.
	OnServerStart(root *state.Root)
	OnClientConnect(root *state.Root, clientID uint32)
	OnClientDisconnect(root *state.Root, clientID uint32)
}

// NopGameCode is a minimal GameCode that runs no game logic at all — used
// by E1-style "solo server tick" tests that only exercise the scheduler.
type NopGameCode struct{}

func (NopGameCode) SimulationTick(*state.Root, uint32, bool, bool) {}
func (NopGameCode) ValidateInput(*state.Input)                    {}
func (NopGameCode) PredictLateInput(prev state.Input, _ *state.Root, _ uint32) state.Input {
	return prev
}
func (NopGameCode) MergeInput(combined *state.Input, next state.Input) { *combined = next }
func (NopGameCode) OnServerStart(*state.Root)                         {}
func (NopGameCode) OnClientConnect(*state.Root, uint32)                {}
func (NopGameCode) OnClientDisconnect(*state.Root, uint32)             {}
