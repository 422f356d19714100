package state

import (
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/wire"
)

// The setters below are the local-mutation counterpart to SetFieldRx:
// where SetFieldRx applies a remote write arriving off the wire (and only
// needs to record the rollback side, since the controller that received it
// has nothing further to forward), these are called by game code running
// directly against a live Root — the server's simulation tick, or a
// client writing its own captured input — and so must record both the
// rollback undo *and* the outbound tx mutation for every visible peer.
// In a code-generated deployment these would be the generated per-field
// setters spec §1 treats as an external collaborator; here they are
// hand-written for the one example tree this repo carries.

func (p *Player) SetPosX(rec *diff.Serializer, v int32) {
	if p.PosX == v {
		return
	}
	prev := p.PosX
	p.PosX = v
	rec.TrackPrimitive(p.Path, FieldPosX, diff.Public,
		func(b []byte) []byte { return wire.AppendI32(b, prev) },
		func(b []byte) []byte { return wire.SerTxI32(b, v) })
}

func (p *Player) SetPosY(rec *diff.Serializer, v int32) {
	if p.PosY == v {
		return
	}
	prev := p.PosY
	p.PosY = v
	rec.TrackPrimitive(p.Path, FieldPosY, diff.Public,
		func(b []byte) []byte { return wire.AppendI32(b, prev) },
		func(b []byte) []byte { return wire.SerTxI32(b, v) })
}

func (p *Player) SetVelX(rec *diff.Serializer, v int32) {
	if p.VelX == v {
		return
	}
	prev := p.VelX
	p.VelX = v
	rec.TrackPrimitive(p.Path, FieldVelX, diff.Public,
		func(b []byte) []byte { return wire.AppendI32(b, prev) },
		func(b []byte) []byte { return wire.SerTxI32(b, v) })
}

func (p *Player) SetVelY(rec *diff.Serializer, v int32) {
	if p.VelY == v {
		return
	}
	prev := p.VelY
	p.VelY = v
	rec.TrackPrimitive(p.Path, FieldVelY, diff.Public,
		func(b []byte) []byte { return wire.AppendI32(b, prev) },
		func(b []byte) []byte { return wire.SerTxI32(b, v) })
}

func (p *Player) SetScore(rec *diff.Serializer, v uint32) {
	if p.Score == v {
		return
	}
	prev := p.Score
	p.Score = v
	rec.TrackPrimitive(p.Path, FieldScore, diff.Public,
		func(b []byte) []byte { return wire.AppendU32(b, prev) },
		func(b []byte) []byte { return wire.SerTxU32(b, v) })
}

// SetInput writes this player's input field, recorded with Owner
// visibility so only the owning client's tx stream carries it. On the
// client, registering the client's own id as a Serializer client (see
// sim.Client) makes this the mechanism that produces the outbound input
// diff (spec §4.3/§4.9): the client is, to its own Serializer, simply the
// one peer allowed to see its Owner-scoped fields.
func (p *Player) SetInput(rec *diff.Serializer, v Input) {
	if p.Input == v {
		return
	}
	prev := p.Input
	p.Input = v
	rec.TrackPrimitive(p.Path, FieldInput, diff.Owner,
		func(b []byte) []byte { return appendInputRollback(b, prev) },
		func(b []byte) []byte { return serTxInput(b, v) })
}

// EncodeInputTx/DecodeInputTx expose the Input tx codec for the input
// history buffer and the client->server wire payload: the input sub-tree
// is always exactly one Input value, so sim sends it as a bare tx-encoded
// value rather than wrapping it in the general path/opcode machinery that
// exists to address arbitrary sub-state locations (see DESIGN.md).
func EncodeInputTx(buf []byte, in Input) []byte { return serTxInput(buf, in) }

func DecodeInputTx(buf []byte) (Input, []byte, error) { return desRxInput(buf) }

// SetHitFlash writes the untracked pulse field directly: Untracked fields
// never pass through the diff machinery (spec §3 "Untracked"), so this is
// a bare assignment, not a TrackPrimitive call.
func (p *Player) SetHitFlash(v bool) {
	p.HitFlash = v
}
