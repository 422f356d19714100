// Package diffpath implements the path cursor described in spec §4.2: the
// minimal-navigation bookkeeping shared by the diff serializer and
// deserializer so that a run of mutations under the same sub-tree doesn't
// re-walk from the root every time.
package diffpath

// MaxDepth is the deepest nesting the cursor can represent: the on-wire
// per-navigation length field is 8 bits, so a NavigateDown/Up can move at
// most 255 levels in one op, and Elem slices longer than this are a logic
// error in the state tree, not a wire condition.
const MaxDepth = 128

// Elem is one level of a path: the field id that holds a slot map, and the
// key of the element within it. A full Path is an alternating sequence of
// these, e.g. the spec's flat [f0, k0, f1, k1, ...].
type Elem struct {
	Field uint32
	Key   uint32
}

// Path is a sequence of levels from the root to some sub-state node.
type Path []Elem

// OpKind identifies which of the three navigation primitives an Op carries.
type OpKind int

const (
	OpNavigateUp OpKind = iota
	OpNavigateDown
	OpNavigateReset
)

// Op is one navigation instruction emitted by Cursor.Navigate. For
// OpNavigateUp, N is the number of levels to ascend. For OpNavigateDown,
// Elems is the tail of the new path to descend into (len(Elems) levels).
// OpNavigateReset carries neither.
type Op struct {
	Kind  OpKind
	N     int
	Elems Path
}

// Cursor tracks the previously-emitted path so that Navigate can compute the
// minimal set of ops to reach a new path.
type Cursor struct {
	prev Path
	// fresh is true at the start of a tick, before any mutation has been
	// recorded. The first mutation of a tick never emits NavigateUp or
	// NavigateReset — the reader presumes the cursor starts at root — and
	// emits a single NavigateDown only when its path is below root.
	fresh bool
}

// NewCursor returns a cursor ready for a fresh tick.
func NewCursor() *Cursor {
	c := &Cursor{}
	c.Reset()
	return c
}

// Reset clears the cursor back to its fresh-tick state. Called at the start
// of each rollback_begin_tick/tx_begin_tick.
func (c *Cursor) Reset() {
	c.prev = nil
	c.fresh = true
}

// Navigate computes the ops needed to move the cursor from its previous
// position to newPath, and updates the cursor's notion of "previous" to
// newPath. The returned ops are in logical (tx) order: at most one
// NavigateUp/NavigateReset, followed by at most one NavigateDown. Callers
// writing to the rollback buffer must invert both the op order and, within
// the NavigateDown op, read Elems in reverse (see diff.Serializer).
func (c *Cursor) Navigate(newPath Path) []Op {
	defer func() {
		c.prev = append(Path(nil), newPath...)
		c.fresh = false
	}()

	if c.fresh {
		if len(newPath) == 0 {
			return nil
		}
		return []Op{{Kind: OpNavigateDown, Elems: newPath}}
	}

	shared := commonPrefixLevels(c.prev, newPath)
	var ops []Op
	if shared < len(c.prev) {
		if shared == 0 {
			ops = append(ops, Op{Kind: OpNavigateReset})
		} else {
			ops = append(ops, Op{Kind: OpNavigateUp, N: len(c.prev) - shared})
		}
	}
	if shared < len(newPath) {
		ops = append(ops, Op{Kind: OpNavigateDown, Elems: newPath[shared:]})
	}
	return ops
}

// commonPrefixLevels returns the number of whole levels (field+key pairs)
// that a and b agree on, scanning from the root.
func commonPrefixLevels(a, b Path) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
