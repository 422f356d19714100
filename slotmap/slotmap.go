// Package slotmap implements the keyed collection described in spec §4.5:
// stable 32-bit numeric keys assigned by the container, O(1) insert/remove
// via swap-remove, and self-recording into the diff machinery so game code
// never has to hand-roll add/remove tracking.
package slotmap

import (
	"fmt"
	"math"

	"github.com/borgerland/netcode/wire"
)

// Key is a slot map handle. Keys are never reused while an element with
// that key is live, and are recycled (LIFO) once freed.
type Key uint32

// Element is the contract a slot map's element type must satisfy so the
// map can snapshot it for rollback removal payloads and bootstrap
// onboarding without knowing its concrete shape.
type Element interface {
	// SnapshotRollback appends this element's full recursive state to buf
	// in rollback wire order (raw little-endian fields, nested slot maps
	// included), for use as a removal/clear undo payload.
	SnapshotRollback(buf []byte) []byte
}

// Diff is the subset of the diff serializer that a Store calls into when
// its contents change. fieldID identifies this Store within its parent
// state node; the cursor is assumed already positioned at that parent.
type Diff[T Element] interface {
	TrackSlotMapAdd(fieldID uint32)
	TrackSlotMapRemove(fieldID uint32, key Key, index int, removed T)
	TrackSlotMapClear(fieldID uint32, removed []T)
}

type entry[T Element] struct {
	key Key
	val T
}

// Store is a slot map of elements of type T, identified within its parent
// node by fieldID (a code-generated constant).
type Store[T Element] struct {
	fieldID   uint32
	entries   []entry[T]
	index     map[Key]int
	nextID    Key
	reclaimed []Key
}

// New returns an empty Store for the given field.
func New[T Element](fieldID uint32) *Store[T] {
	return &Store[T]{fieldID: fieldID, index: make(map[Key]int)}
}

// Len returns the number of live elements.
func (s *Store[T]) Len() int { return len(s.entries) }

// Get returns the element for key and whether it exists.
func (s *Store[T]) Get(key Key) (T, bool) {
	if idx, ok := s.index[key]; ok {
		return s.entries[idx].val, true
	}
	var zero T
	return zero, false
}

// Keys returns the live keys in stable (insertion/swap-remove) order.
func (s *Store[T]) Keys() []Key {
	keys := make([]Key, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.key
	}
	return keys
}

// Range calls fn for each live element in stable order. fn returning false
// stops iteration early.
func (s *Store[T]) Range(fn func(key Key, val T) bool) {
	for _, e := range s.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Add allocates a fresh key, constructs the element via ctor, inserts it,
// and records a TrackSlotMapAdd op. The newborn's own state is expected to
// be visited by subsequent mutations (per spec §4.5, its fields arrive as
// the next diff ops rather than being inlined into the Add op itself).
func (s *Store[T]) Add(diff Diff[T], ctor func(key Key) T) (Key, T) {
	key := s.allocate()
	val := ctor(key)
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry[T]{key: key, val: val})
	diff.TrackSlotMapAdd(s.fieldID)
	return key, val
}

// Remove deletes the element at key, if present, recording a
// TrackSlotMapRemove op carrying the element's pre-removal snapshot and its
// physical index (so rollback reinserts it at the same slot).
func (s *Store[T]) Remove(diff Diff[T], key Key) (T, bool) {
	idx, ok := s.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	removed := s.entries[idx].val
	diff.TrackSlotMapRemove(s.fieldID, key, idx, removed)
	s.swapRemove(idx)
	s.release(key)
	return removed, true
}

// Clear removes every element, recording a single TrackSlotMapClear op
// carrying every removed element's snapshot.
func (s *Store[T]) Clear(diff Diff[T]) {
	if len(s.entries) == 0 {
		return
	}
	removed := make([]T, len(s.entries))
	for i, e := range s.entries {
		removed[i] = e.val
	}
	diff.TrackSlotMapClear(s.fieldID, removed)
	for _, e := range s.entries {
		s.release(e.key)
	}
	s.entries = s.entries[:0]
	s.index = make(map[Key]int)
}

// AddNoTrack mirrors Add's allocation exactly (same key sequence) without
// constructing a value or recording a diff op, for rx replay of a remote
// TrackSlotMapAdd: the caller supplies the zero-value-ish element itself
// (field writes arrive as the ops that follow).
func (s *Store[T]) AddNoTrack(ctor func(key Key) T) (Key, T) {
	key := s.allocate()
	val := ctor(key)
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry[T]{key: key, val: val})
	return key, val
}

// UndoLastAdd removes the most recently added live element without
// recording a diff op, for rollback replay of a TrackSlotMapAdd. Relies on
// rollback replaying every later op in this tick in reverse first, so by
// the time an Add is undone its entry is once again the tail entry.
func (s *Store[T]) UndoLastAdd() {
	if len(s.entries) == 0 {
		return
	}
	last := len(s.entries) - 1
	key := s.entries[last].key
	s.entries = s.entries[:last]
	delete(s.index, key)
	s.release(key)
}

// RemoveNoTrack deletes key without recording a diff op, for rx replay of a
// remote TrackSlotMapRemove/Clear.
func (s *Store[T]) RemoveNoTrack(key Key) (T, bool) {
	idx, ok := s.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	removed := s.entries[idx].val
	s.swapRemove(idx)
	s.release(key)
	return removed, true
}

// ClearNoTrack removes every element without recording a diff op, for rx
// replay of a remote TrackSlotMapClear.
func (s *Store[T]) ClearNoTrack() {
	for _, e := range s.entries {
		s.release(e.key)
	}
	s.entries = s.entries[:0]
	s.index = make(map[Key]int)
}

// ReinsertAt restores an element at the given key and physical index
// (used by rollback replay of TrackSlotMapRemove/Clear). It does not
// record a diff op; it is the inverse application itself.
func (s *Store[T]) ReinsertAt(key Key, index int, val T) {
	if index > len(s.entries) {
		index = len(s.entries)
	}
	s.entries = append(s.entries, entry[T]{})
	copy(s.entries[index+1:], s.entries[index:])
	s.entries[index] = entry[T]{key: key, val: val}
	s.reindexFrom(index)
	s.reclaim(key)
}

// reclaim re-marks key as in-use for rollback reinsertion: if it was the
// most recently freed id it is popped back off reclaimed_ids or next_id is
// decremented again to undo the release() that happened on removal.
func (s *Store[T]) reclaim(key Key) {
	if len(s.reclaimed) > 0 && s.reclaimed[len(s.reclaimed)-1] == key {
		s.reclaimed = s.reclaimed[:len(s.reclaimed)-1]
		return
	}
	if key == s.nextID {
		s.nextID++
	}
}

func (s *Store[T]) reindexFrom(start int) {
	for i := start; i < len(s.entries); i++ {
		s.index[s.entries[i].key] = i
	}
}

func (s *Store[T]) allocate() Key {
	if n := len(s.reclaimed); n > 0 {
		key := s.reclaimed[n-1]
		s.reclaimed = s.reclaimed[:n-1]
		return key
	}
	if s.nextID == math.MaxUint32 {
		panic(fmt.Sprintf("slotmap: field %d exhausted the 32-bit key space", s.fieldID))
	}
	key := s.nextID
	s.nextID++
	return key
}

func (s *Store[T]) release(key Key) {
	if key == s.nextID-1 {
		s.nextID--
		return
	}
	s.reclaimed = append(s.reclaimed, key)
}

func (s *Store[T]) swapRemove(idx int) {
	last := len(s.entries) - 1
	removedKey := s.entries[idx].key
	s.entries[idx] = s.entries[last]
	s.entries = s.entries[:last]
	delete(s.index, removedKey)
	if idx != last {
		s.index[s.entries[idx].key] = idx
	}
}

// SnapshotTx appends the whole map (next_id, reclaimed ids, and every
// element's key + recursive state, via encodeElem) to buf for new-client
// bootstrap onboarding (spec §4.5).
func (s *Store[T]) SnapshotTx(buf []byte, encodeElem func(buf []byte, v T) []byte) []byte {
	buf = wire.SerTxU32(buf, uint32(s.nextID))
	buf = wire.SerTxU32(buf, uint32(len(s.reclaimed)))
	for _, k := range s.reclaimed {
		buf = wire.SerTxU32(buf, uint32(k))
	}
	buf = wire.SerTxU32(buf, uint32(len(s.entries)))
	for _, e := range s.entries {
		buf = wire.SerTxU32(buf, uint32(e.key))
		buf = encodeElem(buf, e.val)
	}
	return buf
}

// LoadSnapshotTx rebuilds a Store from the wire format SnapshotTx produces.
// decodeElem receives the element's own key, since a concrete element may
// need it to reconstruct its own key-derived fields (e.g. a diff path).
func LoadSnapshotTx[T Element](buf []byte, fieldID uint32, decodeElem func(key Key, buf []byte) (T, []byte, error)) (*Store[T], []byte, error) {
	s := New[T](fieldID)

	nextID, buf, err := wire.DesRxU32(buf)
	if err != nil {
		return nil, nil, err
	}
	s.nextID = Key(nextID)

	nReclaimed, buf, err := wire.DesRxU32(buf)
	if err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < nReclaimed; i++ {
		var k uint32
		k, buf, err = wire.DesRxU32(buf)
		if err != nil {
			return nil, nil, err
		}
		s.reclaimed = append(s.reclaimed, Key(k))
	}

	nElems, buf, err := wire.DesRxU32(buf)
	if err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < nElems; i++ {
		var k uint32
		k, buf, err = wire.DesRxU32(buf)
		if err != nil {
			return nil, nil, err
		}
		var v T
		v, buf, err = decodeElem(Key(k), buf)
		if err != nil {
			return nil, nil, err
		}
		s.index[Key(k)] = len(s.entries)
		s.entries = append(s.entries, entry[T]{key: Key(k), val: v})
	}

	return s, buf, nil
}
