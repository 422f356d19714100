// Package state provides the generic glue between a concrete game state
// tree and the diff/slotmap machinery: a slot-map adapter that lets
// slotmap.Store[T] satisfy diff.SlotMap for any element type, and an
// untracked-field reset visitor. The state tree's actual shape (what
// fields exist, what they mean) is game-specific and in a production
// deployment would come from the code-generation pipeline this spec
// treats as an external collaborator; example.go holds a small example
// tree used by the sim package's tests and the demo commands.
package state

import (
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/diffpath"
	"github.com/borgerland/netcode/slotmap"
	"github.com/borgerland/netcode/wire"
)

// Entry is the contract a slot map's element type must satisfy to be
// adapted into diff.SlotMap: it must be a slot-map Element (snapshot for
// rollback removal/clear payloads) and a diff.Node (field dispatch).
type Entry interface {
	slotmap.Element
	diff.Node

	// SlotKey returns the key this element was constructed with, so a
	// clear snapshot can recover every removed element's key without a
	// side-channel array.
	SlotKey() slotmap.Key
}

// SlotMapAdapter wraps a slotmap.Store[T] so it satisfies diff.SlotMap,
// closing over the concrete element type T the deserializer's replay loop
// never needs to know about.
type SlotMapAdapter[T Entry] struct {
	Store *slotmap.Store[T]

	// New constructs a fresh zero-ish element for the given key, mirroring
	// the code-generated constructor the real Add path would use.
	New func(key slotmap.Key) T

	// DecodeRollback reconstructs an element (and its own nested tree) from
	// its rollback-wire snapshot, for undoing a remove/clear. key is the
	// slot the element is being restored to, since the snapshot bytes
	// alone may not encode it.
	DecodeRollback func(key slotmap.Key, buf []byte) (T, []byte, error)
}

func NewSlotMapAdapter[T Entry](store *slotmap.Store[T], newFn func(key slotmap.Key) T, decodeRollback func(key slotmap.Key, buf []byte) (T, []byte, error)) *SlotMapAdapter[T] {
	return &SlotMapAdapter[T]{Store: store, New: newFn, DecodeRollback: decodeRollback}
}

func (a *SlotMapAdapter[T]) ApplyAddRx() diff.Node {
	_, val := a.Store.AddNoTrack(a.New)
	return val
}

func (a *SlotMapAdapter[T]) ApplyAddRollback() {
	a.Store.UndoLastAdd()
}

func (a *SlotMapAdapter[T]) ApplyRemoveRx(key uint32) {
	a.Store.RemoveNoTrack(slotmap.Key(key))
}

func (a *SlotMapAdapter[T]) ApplyRemoveRollback(index int, key uint32, buf []byte) ([]byte, error) {
	val, rest, err := a.DecodeRollback(slotmap.Key(key), buf)
	if err != nil {
		return nil, err
	}
	a.Store.ReinsertAt(slotmap.Key(key), index, val)
	return rest, nil
}

func (a *SlotMapAdapter[T]) ApplyClearRx() {
	a.Store.ClearNoTrack()
}

// ApplyClearRollback consumes a rollback clear snapshot produced by
// EncodeClearSnapshot: a trailing element count, then that many
// (key, index, element) triples, tail-popped in reverse insertion order
// and reinserted at their saved indices so original order is restored
// regardless of decode order.
func (a *SlotMapAdapter[T]) ApplyClearRollback(buf []byte) ([]byte, error) {
	count, rest, err := wire.PopU32(buf)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var key, index uint32
		key, rest, err = wire.PopU32(rest)
		if err != nil {
			return nil, err
		}
		index, rest, err = wire.PopU32(rest)
		if err != nil {
			return nil, err
		}
		var val T
		val, rest, err = a.DecodeRollback(slotmap.Key(key), rest)
		if err != nil {
			return nil, err
		}
		a.Store.ReinsertAt(slotmap.Key(key), int(index), val)
	}
	return rest, nil
}

func (a *SlotMapAdapter[T]) Child(key uint32) (diff.Node, bool) {
	v, ok := a.Store.Get(slotmap.Key(key))
	if !ok {
		var zero T
		return zero, false
	}
	return v, true
}

// EncodeClearSnapshot appends the rollback payload TrackSlotMapClear needs:
// every removed element's snapshot followed by its index and key, in
// forward order, then the count, so tail-popping in ApplyClearRollback
// reads count first and then key, index and snapshot per element.
// startIndex is the physical index the first removed element occupied
// (always 0 for a full Clear, since Clear empties the whole map).
func EncodeClearSnapshot[T Entry](buf []byte, startIndex int, elems []T) []byte {
	for i, v := range elems {
		buf = v.SnapshotRollback(buf)
		buf = wire.AppendU32(buf, uint32(startIndex+i))
		buf = wire.AppendU32(buf, uint32(v.SlotKey()))
	}
	buf = wire.AppendU32(buf, uint32(len(elems)))
	return buf
}

// SlotMapDiffBridge adapts a diff.Serializer (which tracks path, field id,
// and visibility per call) into the narrower slotmap.Diff[T] shape
// Store.Add/Remove/Clear expect, so a concrete node's Add/Remove/Clear
// wrappers don't each have to restate path/visibility plumbing.
type SlotMapDiffBridge[T Entry] struct {
	Rec  *diff.Serializer
	Path diffpath.Path
	Vis  diff.Visibility
}

func (b *SlotMapDiffBridge[T]) TrackSlotMapAdd(fieldID uint32) {
	b.Rec.TrackSlotMapAdd(b.Path, fieldID, b.Vis)
}

func (b *SlotMapDiffBridge[T]) TrackSlotMapRemove(fieldID uint32, key slotmap.Key, index int, removed T) {
	b.Rec.TrackSlotMapRemove(b.Path, fieldID, uint32(key), index, func(buf []byte) []byte {
		return removed.SnapshotRollback(buf)
	}, b.Vis)
}

func (b *SlotMapDiffBridge[T]) TrackSlotMapClear(fieldID uint32, removed []T) {
	b.Rec.TrackSlotMapClear(b.Path, fieldID, func(buf []byte) []byte {
		return EncodeClearSnapshot(buf, 0, removed)
	}, b.Vis)
}
