package state

import (
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/diffpath"
	"github.com/borgerland/netcode/slotmap"
	"github.com/borgerland/netcode/wire"
)

// Field identifiers for the example tree. A real deployment assigns these
// from the code-generation pipeline; here they are hand-picked constants.
const (
	FieldPlayers = uint32(1)

	FieldPosX  = uint32(1)
	FieldPosY  = uint32(2)
	FieldVelX  = uint32(3)
	FieldVelY  = uint32(4)
	FieldChar  = uint32(5)
	FieldScore = uint32(6)
	FieldInput = uint32(7)
)

// Input is the per-player command state, serialized as a single packed
// primitive (not a separate path level) — the same treatment the codec
// gives any small fixed-shape compound value such as a vector.
type Input struct {
	MoveX int8
	MoveY int8
	Fire  bool
}

func appendInputRollback(buf []byte, in Input) []byte {
	buf = wire.AppendI16(buf, int16(in.MoveX))
	buf = wire.AppendI16(buf, int16(in.MoveY))
	buf = wire.AppendBool(buf, in.Fire)
	return buf
}

func popInputRollback(buf []byte) (Input, []byte, error) {
	fire, rest, err := wire.PopBool(buf)
	if err != nil {
		return Input{}, nil, err
	}
	my, rest, err := wire.PopI16(rest)
	if err != nil {
		return Input{}, nil, err
	}
	mx, rest, err := wire.PopI16(rest)
	if err != nil {
		return Input{}, nil, err
	}
	return Input{MoveX: int8(mx), MoveY: int8(my), Fire: fire}, rest, nil
}

func serTxInput(buf []byte, in Input) []byte {
	buf = wire.SerTxI16(buf, int16(in.MoveX))
	buf = wire.SerTxI16(buf, int16(in.MoveY))
	buf = wire.SerTxBool(buf, in.Fire)
	return buf
}

func desRxInput(buf []byte) (Input, []byte, error) {
	mx, rest, err := wire.DesRxI16(buf)
	if err != nil {
		return Input{}, nil, err
	}
	my, rest, err := wire.DesRxI16(rest)
	if err != nil {
		return Input{}, nil, err
	}
	fire, rest, err := wire.DesRxBool(rest)
	if err != nil {
		return Input{}, nil, err
	}
	return Input{MoveX: int8(mx), MoveY: int8(my), Fire: fire}, rest, nil
}

// Player is one connected player's replicated state: plain int32
// position and velocity, a display glyph, a score, and the player's own
// input (Owner-visible only). HitFlash is an Untracked pulse cleared every
// tick before simulation runs.
type Player struct {
	Key   slotmap.Key
	Path  diffpath.Path
	PosX  int32
	PosY  int32
	VelX  int32
	VelY  int32
	Char  rune
	Score uint32
	Input Input

	HitFlash bool
}

func NewPlayer(key slotmap.Key) *Player {
	return &Player{
		Key:  key,
		Path: diffpath.Path{{Field: FieldPlayers, Key: uint32(key)}},
		Char: 'P',
	}
}

func (p *Player) SetFieldRollback(fieldID uint32, buf []byte) ([]byte, error) {
	switch fieldID {
	case FieldPosX:
		v, rest, err := wire.PopI32(buf)
		p.PosX = v
		return rest, err
	case FieldPosY:
		v, rest, err := wire.PopI32(buf)
		p.PosY = v
		return rest, err
	case FieldVelX:
		v, rest, err := wire.PopI32(buf)
		p.VelX = v
		return rest, err
	case FieldVelY:
		v, rest, err := wire.PopI32(buf)
		p.VelY = v
		return rest, err
	case FieldChar:
		v, rest, err := wire.PopChar(buf)
		p.Char = v
		return rest, err
	case FieldScore:
		v, rest, err := wire.PopU32(buf)
		p.Score = v
		return rest, err
	case FieldInput:
		v, rest, err := popInputRollback(buf)
		p.Input = v
		return rest, err
	default:
		return nil, diff.ErrFieldNotFound
	}
}

func (p *Player) SetFieldRx(fieldID uint32, buf []byte, rec *diff.Serializer) ([]byte, error) {
	switch fieldID {
	case FieldPosX:
		prev := p.PosX
		v, rest, err := wire.DesRxI32(buf)
		if err != nil {
			return nil, err
		}
		p.PosX = v
		rec.TrackPrimitive(p.Path, FieldPosX, diff.Public,
			func(b []byte) []byte { return wire.AppendI32(b, prev) }, nil)
		return rest, nil
	case FieldPosY:
		prev := p.PosY
		v, rest, err := wire.DesRxI32(buf)
		if err != nil {
			return nil, err
		}
		p.PosY = v
		rec.TrackPrimitive(p.Path, FieldPosY, diff.Public,
			func(b []byte) []byte { return wire.AppendI32(b, prev) }, nil)
		return rest, nil
	case FieldVelX:
		prev := p.VelX
		v, rest, err := wire.DesRxI32(buf)
		if err != nil {
			return nil, err
		}
		p.VelX = v
		rec.TrackPrimitive(p.Path, FieldVelX, diff.Public,
			func(b []byte) []byte { return wire.AppendI32(b, prev) }, nil)
		return rest, nil
	case FieldVelY:
		prev := p.VelY
		v, rest, err := wire.DesRxI32(buf)
		if err != nil {
			return nil, err
		}
		p.VelY = v
		rec.TrackPrimitive(p.Path, FieldVelY, diff.Public,
			func(b []byte) []byte { return wire.AppendI32(b, prev) }, nil)
		return rest, nil
	case FieldChar:
		prev := p.Char
		v, rest, err := wire.DesRxChar(buf)
		if err != nil {
			return nil, err
		}
		p.Char = v
		rec.TrackPrimitive(p.Path, FieldChar, diff.Public,
			func(b []byte) []byte { return wire.AppendChar(b, prev) }, nil)
		return rest, nil
	case FieldScore:
		prev := p.Score
		v, rest, err := wire.DesRxU32(buf)
		if err != nil {
			return nil, err
		}
		p.Score = v
		rec.TrackPrimitive(p.Path, FieldScore, diff.Public,
			func(b []byte) []byte { return wire.AppendU32(b, prev) }, nil)
		return rest, nil
	case FieldInput:
		prev := p.Input
		v, rest, err := desRxInput(buf)
		if err != nil {
			return nil, err
		}
		p.Input = v
		rec.TrackPrimitive(p.Path, FieldInput, diff.Owner,
			func(b []byte) []byte { return appendInputRollback(b, prev) }, nil)
		return rest, nil
	default:
		return nil, diff.ErrFieldNotFound
	}
}

func (p *Player) GetSlotMap(fieldID uint32) (diff.SlotMap, bool) { return nil, false }

func (p *Player) SlotKey() slotmap.Key { return p.Key }

// ResetUntracked clears this tick's hit-flash pulse before simulation
// code runs.
func (p *Player) ResetUntracked() { p.HitFlash = false }

// SnapshotRollback appends every tracked field in an order whose reverse
// (tail-popped) matches decodePlayerRollback.
func (p *Player) SnapshotRollback(buf []byte) []byte {
	buf = wire.AppendI32(buf, p.PosX)
	buf = wire.AppendI32(buf, p.PosY)
	buf = wire.AppendI32(buf, p.VelX)
	buf = wire.AppendI32(buf, p.VelY)
	buf = wire.AppendChar(buf, p.Char)
	buf = wire.AppendU32(buf, p.Score)
	buf = appendInputRollback(buf, p.Input)
	return buf
}

// decodePlayerRollback is the inverse of SnapshotRollback, reading from the
// tail backward to match append order.
func decodePlayerRollback(key slotmap.Key, buf []byte) (*Player, []byte, error) {
	p := NewPlayer(key)
	var err error
	p.Input, buf, err = popInputRollback(buf)
	if err != nil {
		return nil, nil, err
	}
	p.Score, buf, err = wire.PopU32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.Char, buf, err = wire.PopChar(buf)
	if err != nil {
		return nil, nil, err
	}
	p.VelY, buf, err = wire.PopI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.VelX, buf, err = wire.PopI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.PosY, buf, err = wire.PopI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.PosX, buf, err = wire.PopI32(buf)
	if err != nil {
		return nil, nil, err
	}
	return p, buf, nil
}

// EncodePlayerTx appends a player's full state in tx wire form, used by
// bootstrap snapshots (Root.SnapshotTx).
func EncodePlayerTx(buf []byte, p *Player) []byte {
	buf = wire.SerTxI32(buf, p.PosX)
	buf = wire.SerTxI32(buf, p.PosY)
	buf = wire.SerTxI32(buf, p.VelX)
	buf = wire.SerTxI32(buf, p.VelY)
	buf = wire.SerTxChar(buf, p.Char)
	buf = wire.SerTxU32(buf, p.Score)
	buf = serTxInput(buf, p.Input)
	return buf
}

func DecodePlayerTx(key slotmap.Key, buf []byte) (*Player, []byte, error) {
	p := NewPlayer(key)
	var err error
	p.PosX, buf, err = wire.DesRxI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.PosY, buf, err = wire.DesRxI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.VelX, buf, err = wire.DesRxI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.VelY, buf, err = wire.DesRxI32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.Char, buf, err = wire.DesRxChar(buf)
	if err != nil {
		return nil, nil, err
	}
	p.Score, buf, err = wire.DesRxU32(buf)
	if err != nil {
		return nil, nil, err
	}
	p.Input, buf, err = desRxInput(buf)
	if err != nil {
		return nil, nil, err
	}
	return p, buf, nil
}

// Root is the whole-game example state tree: a single slot map of
// players, keyed by client id.
type Root struct {
	Players *slotmap.Store[*Player]
	adapter *SlotMapAdapter[*Player]
	bridge  *SlotMapDiffBridge[*Player]
	rec     *diff.Serializer
}

func NewRoot(rec *diff.Serializer) *Root {
	store := slotmap.New[*Player](FieldPlayers)
	r := &Root{Players: store, rec: rec}
	r.adapter = NewSlotMapAdapter(store, NewPlayer, decodePlayerRollback)
	r.bridge = &SlotMapDiffBridge[*Player]{Rec: rec, Path: nil, Vis: diff.Public}
	return r
}

// Rec returns the Serializer this Root's mutations are tracked through, so
// game code holding only a *Root can still call the generated per-field
// setters (a real code-generation pipeline would thread this implicitly).
func (r *Root) Rec() *diff.Serializer { return r.rec }

func (r *Root) SetFieldRollback(fieldID uint32, buf []byte) ([]byte, error) {
	return nil, diff.ErrFieldNotFound
}

func (r *Root) SetFieldRx(fieldID uint32, buf []byte, rec *diff.Serializer) ([]byte, error) {
	return nil, diff.ErrFieldNotFound
}

func (r *Root) GetSlotMap(fieldID uint32) (diff.SlotMap, bool) {
	if fieldID == FieldPlayers {
		return r.adapter, true
	}
	return nil, false
}

// Walk visits every live player, for ResetUntrackedTree.
func (r *Root) Walk(fn func(n any)) {
	r.Players.Range(func(_ slotmap.Key, v *Player) bool {
		fn(v)
		return true
	})
}

// AddPlayer inserts a new player, recording TrackSlotMapAdd. The caller is
// expected to then write the newborn's fields (e.g. via a game-provided
// initializer) so those writes flow into tx as the element's visible
// initial state, per spec §4.5.
func AddPlayer(r *Root) (slotmap.Key, *Player) {
	return r.Players.Add(r.bridge, NewPlayer)
}

// RemovePlayer removes a player, recording TrackSlotMapRemove.
func RemovePlayer(r *Root, key slotmap.Key) bool {
	_, ok := r.Players.Remove(r.bridge, key)
	return ok
}

// SnapshotTx appends the whole tree's tx-wire bootstrap body to buf: here
// a single slot map, but a tree with more fields would append each in a
// fixed breadth-first order (spec §4.5/§6).
func (r *Root) SnapshotTx(buf []byte) []byte {
	return r.Players.SnapshotTx(buf, EncodePlayerTx)
}

// LoadRootSnapshotTx rebuilds a Root from a bootstrap body produced by
// SnapshotTx. rec is the new client's own serializer, wired into the
// rebuilt tree so later mutations can still record rollback ops.
func LoadRootSnapshotTx(rec *diff.Serializer, buf []byte) (*Root, []byte, error) {
	store, rest, err := slotmap.LoadSnapshotTx[*Player](buf, FieldPlayers, DecodePlayerTx)
	if err != nil {
		return nil, nil, err
	}
	r := &Root{Players: store, rec: rec}
	r.adapter = NewSlotMapAdapter(store, NewPlayer, decodePlayerRollback)
	r.bridge = &SlotMapDiffBridge[*Player]{Rec: rec, Path: nil, Vis: diff.Public}
	return r, rest, nil
}
