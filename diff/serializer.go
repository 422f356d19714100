package diff

import (
	"github.com/borgerland/netcode/diffpath"
	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wire"
)

// ClientID identifies a connected peer for tx visibility purposes.
type ClientID uint32

type txStream struct {
	buf     []byte
	cursor  *diffpath.Cursor
	enabled bool
}

// Serializer is the per-controller instance of the diff machinery: one
// rollback log plus one tx log per connected client (servers have many,
// clients have at most one — themselves, writing the input diff).
type Serializer struct {
	rollbackEnabled bool
	rollbackBuf     []byte
	rollbackCursor  *diffpath.Cursor

	clients map[ClientID]*txStream
}

// NewSerializer returns an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{
		rollbackCursor: diffpath.NewCursor(),
		clients:        make(map[ClientID]*txStream),
	}
}

// RollbackBeginTick sets rollback_enabled = (t == Predicted) and, if
// enabled, writes a RollbackTickSeparator so the tail-to-head rollback
// reader knows where this tick's inverse operations end.
func (s *Serializer) RollbackBeginTick(t tick.Type) {
	s.rollbackEnabled = t == tick.Predicted
	if s.rollbackEnabled {
		s.rollbackBuf = append(s.rollbackBuf, byte(OpRollbackTickSeparator))
	}
	s.rollbackCursor.Reset()
}

// RollbackEndTick navigates the rollback cursor back to root — a
// defensive no-op if it is already there — so the next tick's first
// mutation starts from a clean base path.
func (s *Serializer) RollbackEndTick() {
	if !s.rollbackEnabled {
		return
	}
	ops := s.rollbackCursor.Navigate(nil)
	s.rollbackBuf = appendNavRollback(s.rollbackBuf, ops)
}

// RollbackBuf returns the accumulated rollback log.
func (s *Serializer) RollbackBuf() []byte { return s.rollbackBuf }

// TakeRollbackBuf hands the rollback log to the caller (the rollback
// replay loop), typically right before it starts popping ticks off it.
func (s *Serializer) TakeRollbackBuf() []byte {
	buf := s.rollbackBuf
	s.rollbackBuf = nil
	return buf
}

// SetRollbackBuf replaces the rollback log, used after a replay loop has
// consumed part of it and hands back what remains.
func (s *Serializer) SetRollbackBuf(buf []byte) { s.rollbackBuf = buf }

// AddClient registers a connected client's tx stream, seeded with a
// NetEvents tick marker (spec §4.3's "connect" behavior).
func (s *Serializer) AddClient(id ClientID) {
	ts := &txStream{cursor: diffpath.NewCursor()}
	ts.buf = append(ts.buf, byte(tick.NetEvents))
	s.clients[id] = ts
}

// RemoveClient drops a disconnected client's tx entry outright.
func (s *Serializer) RemoveClient(id ClientID) {
	delete(s.clients, id)
}

// TxBeginTick initializes a client's per-tick buffer with the tick-type
// marker. A disabled client (inputs not yet acked for this tick) gets an
// empty buffer — no marker, no ops — signaling "skip sending this tick".
func (s *Serializer) TxBeginTick(id ClientID, t tick.Type, enabled bool) {
	ts, ok := s.clients[id]
	if !ok {
		return
	}
	ts.enabled = enabled
	ts.cursor.Reset()
	if enabled {
		ts.buf = []byte{byte(t)}
	} else {
		ts.buf = nil
	}
}

// TxEndTick moves the finalized per-client buffer out, replacing it with a
// fresh empty one.
func (s *Serializer) TxEndTick(id ClientID) []byte {
	ts, ok := s.clients[id]
	if !ok {
		return nil
	}
	buf := ts.buf
	ts.buf = nil
	return buf
}

// TrackPrimitive records a single field's mutation into the rollback log
// (if enabled) and every enabled, visibility-permitted client's tx log.
// encodeRollbackPrev/encodeTxNew append the field's previous/new value in
// rollback/tx wire form respectively (the generated field accessor's job
// in a codegen pipeline; here the caller supplies it directly).
func (s *Serializer) TrackPrimitive(path diffpath.Path, fieldID uint32, vis Visibility, encodeRollbackPrev, encodeTxNew func(buf []byte) []byte) {
	if vis == Untracked {
		return
	}

	if s.rollbackEnabled {
		ops := s.rollbackCursor.Navigate(path)
		s.rollbackBuf = encodeRollbackPrev(s.rollbackBuf)
		s.rollbackBuf = wire.AppendU32(s.rollbackBuf, fieldID)
		s.rollbackBuf = append(s.rollbackBuf, byte(OpTrackPrimitive))
		s.rollbackBuf = appendNavRollback(s.rollbackBuf, ops)
	}

	s.forEachVisibleClient(path, vis, func(ts *txStream) {
		ops := ts.cursor.Navigate(path)
		ts.buf = appendNavTx(ts.buf, ops)
		ts.buf = append(ts.buf, byte(OpTrackPrimitive))
		ts.buf = wire.SerTxU32(ts.buf, fieldID)
		ts.buf = encodeTxNew(ts.buf)
	})
}

// TrackSlotMapAdd records a slot map insertion: rollback and every visible
// tx stream get just the field id (the newborn's own fields follow as
// subsequent TrackPrimitive ops once the caller descends into it).
func (s *Serializer) TrackSlotMapAdd(path diffpath.Path, fieldID uint32, vis Visibility) {
	if vis == Untracked {
		return
	}
	if s.rollbackEnabled {
		ops := s.rollbackCursor.Navigate(path)
		s.rollbackBuf = wire.AppendU32(s.rollbackBuf, fieldID)
		s.rollbackBuf = append(s.rollbackBuf, byte(OpTrackSlotMapAdd))
		s.rollbackBuf = appendNavRollback(s.rollbackBuf, ops)
	}
	s.forEachVisibleClient(path, vis, func(ts *txStream) {
		ops := ts.cursor.Navigate(path)
		ts.buf = appendNavTx(ts.buf, ops)
		ts.buf = append(ts.buf, byte(OpTrackSlotMapAdd))
		ts.buf = wire.SerTxU32(ts.buf, fieldID)
	})
}

// TrackSlotMapRemove records a removal. Rollback gets a full snapshot of
// the removed element plus its physical index so reinsertion lands back in
// the same slot; tx gets only the key, since the peer already knows that
// element's state.
func (s *Serializer) TrackSlotMapRemove(path diffpath.Path, fieldID uint32, key uint32, index int, snapshot func(buf []byte) []byte, vis Visibility) {
	if vis == Untracked {
		return
	}
	if s.rollbackEnabled {
		ops := s.rollbackCursor.Navigate(path)
		s.rollbackBuf = snapshot(s.rollbackBuf)
		s.rollbackBuf = wire.AppendU32(s.rollbackBuf, uint32(index))
		s.rollbackBuf = wire.AppendU32(s.rollbackBuf, key)
		s.rollbackBuf = wire.AppendU32(s.rollbackBuf, fieldID)
		s.rollbackBuf = append(s.rollbackBuf, byte(OpTrackSlotMapRemove))
		s.rollbackBuf = appendNavRollback(s.rollbackBuf, ops)
	}
	s.forEachVisibleClient(path, vis, func(ts *txStream) {
		ops := ts.cursor.Navigate(path)
		ts.buf = appendNavTx(ts.buf, ops)
		ts.buf = append(ts.buf, byte(OpTrackSlotMapRemove))
		ts.buf = wire.SerTxU32(ts.buf, fieldID)
		ts.buf = wire.SerTxU32(ts.buf, key)
	})
}

// TrackSlotMapClear records a bulk clear: rollback gets every removed
// element's snapshot, tx gets a single opcode.
func (s *Serializer) TrackSlotMapClear(path diffpath.Path, fieldID uint32, snapshotAll func(buf []byte) []byte, vis Visibility) {
	if vis == Untracked {
		return
	}
	if s.rollbackEnabled {
		ops := s.rollbackCursor.Navigate(path)
		s.rollbackBuf = snapshotAll(s.rollbackBuf)
		s.rollbackBuf = wire.AppendU32(s.rollbackBuf, fieldID)
		s.rollbackBuf = append(s.rollbackBuf, byte(OpTrackSlotMapClear))
		s.rollbackBuf = appendNavRollback(s.rollbackBuf, ops)
	}
	s.forEachVisibleClient(path, vis, func(ts *txStream) {
		ops := ts.cursor.Navigate(path)
		ts.buf = appendNavTx(ts.buf, ops)
		ts.buf = append(ts.buf, byte(OpTrackSlotMapClear))
		ts.buf = wire.SerTxU32(ts.buf, fieldID)
	})
}

func (s *Serializer) forEachVisibleClient(path diffpath.Path, vis Visibility, fn func(ts *txStream)) {
	for id, ts := range s.clients {
		if !ts.enabled {
			continue
		}
		if !visibilityPermits(vis, path, id) {
			continue
		}
		fn(ts)
	}
}

// visibilityPermits implements the scope rule from spec §4.3: Public goes
// to everyone, Private to no one, Owner only to the client whose id
// matches the first slot key in the path (the owning client).
func visibilityPermits(vis Visibility, path diffpath.Path, id ClientID) bool {
	switch vis {
	case Public:
		return true
	case Private, Untracked:
		return false
	case Owner:
		if len(path) == 0 {
			return false
		}
		return path[0].Key == uint32(id)
	default:
		return false
	}
}
