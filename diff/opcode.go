// Package diff implements the diff serializer and deserializer from spec
// §4.3/§4.4: the machinery that turns game-code field writes into the
// rollback log (an inverse-operation stack, read tail-to-head during
// rewind) and the tx log (a forward operation stream, read head-to-tail by
// a connecting peer).
package diff

// Op is one byte of the diff alphabet: either a navigation primitive
// (shared with diffpath) or a mutation on the current node.
type Op byte

const (
	OpTrackPrimitive Op = iota
	OpTrackSlotMapAdd
	OpTrackSlotMapRemove
	OpTrackSlotMapClear
	OpNavigateUp
	OpNavigateDown
	OpNavigateReset
	OpRollbackTickSeparator
)

func (o Op) String() string {
	switch o {
	case OpTrackPrimitive:
		return "track_primitive"
	case OpTrackSlotMapAdd:
		return "track_slotmap_add"
	case OpTrackSlotMapRemove:
		return "track_slotmap_remove"
	case OpTrackSlotMapClear:
		return "track_slotmap_clear"
	case OpNavigateUp:
		return "navigate_up"
	case OpNavigateDown:
		return "navigate_down"
	case OpNavigateReset:
		return "navigate_reset"
	case OpRollbackTickSeparator:
		return "rollback_tick_separator"
	default:
		return "unknown"
	}
}

// Visibility controls which connected clients receive a field's tx
// mutations (spec §4.3). It never affects the rollback log, which is
// purely local to whichever controller produced it.
type Visibility uint8

const (
	// Public fields are sent to every enabled client.
	Public Visibility = iota
	// Owner fields are sent only to the client whose id equals the first
	// slot key in the field's path (the owning client).
	Owner
	// Private fields are never sent to any client.
	Private
	// Untracked fields are not diffed at all: they are reset to their
	// zero value at the end of every tick and never participate in
	// either log (spec §9, "untracked fields").
	Untracked
)
