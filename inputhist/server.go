// Package inputhist implements the per-client and client-side input
// history buffers from spec §4.6: the record of recently-received inputs a
// controller diffs new inputs against and replays during rollback.
package inputhist

import "github.com/borgerland/netcode/tick"

// ServerEntry is one slot in a server-side client's input history.
type ServerEntry struct {
	Input []byte // serialized input diff payload, domain-opaque here
	// Ping is the tick offset sampled at first ack (assoc_tick -
	// server_tick); nil after the first ack, since the ping is only
	// transmitted once per tick.
	Ping *int16
}

// Server is one connected client's input history. The buffer is never
// empty once started: entries[0] always corresponds to tick
// id_consensus-1, per the invariant in spec §4.6.
type Server struct {
	entries        []ServerEntry
	timedOutTicks  int
	latestReceived []byte
}

// NewServer seeds a history with a single bogus entry, matching the
// invariant that the buffer is never empty.
func NewServer() *Server {
	return &Server{entries: []ServerEntry{{}}}
}

// Len reports the number of buffered entries.
func (s *Server) Len() int { return len(s.entries) }

// Entry returns the i'th buffered entry.
func (s *Server) Entry(i int) ServerEntry { return s.entries[i] }

// TimedOutTicks reports how many already-finalized ticks this client still
// owes an (unusable) input for.
func (s *Server) TimedOutTicks() int { return s.timedOutTicks }

// MarkTimedOut advances the timeout counter by one finalized tick that
// this client failed to acknowledge in time.
func (s *Server) MarkTimedOut() { s.timedOutTicks++ }

// ClearTimeout resets the counter once the client catches back up.
func (s *Server) ClearTimeout() { s.timedOutTicks = 0 }

// Receive applies a freshly-arrived input diff. If the client currently
// owes no timed-out ticks, the input is appended as a new entry and the
// rollback target candidate it implies is returned (the tick this entry is
// now associated with). If the client is catching up from a timeout, the
// counter is decremented and the input discarded — its tick has already
// been finalized and cannot be revised.
func (s *Server) Receive(assocTick, serverTick tick.ID, input []byte) (rollbackTo tick.ID, applied bool) {
	s.latestReceived = input

	if s.timedOutTicks > 0 {
		s.timedOutTicks--
		return 0, false
	}

	offset := int16(int64(assocTick) - int64(serverTick))
	entry := ServerEntry{Input: input, Ping: &offset}
	s.entries = append(s.entries, entry)
	return assocTick, true
}

// LatestReceived returns the most recently received raw input payload,
// regardless of whether Receive applied it.
func (s *Server) LatestReceived() []byte { return s.latestReceived }

// DropConsumed discards the oldest n entries once the consensus frontier
// has moved past them. Never drops below length 1.
func (s *Server) DropConsumed(n int) {
	if n <= 0 {
		return
	}
	if n >= len(s.entries) {
		n = len(s.entries) - 1
	}
	s.entries = s.entries[n:]
}
