package state

// Resettable is implemented by any node carrying Untracked fields (spec
// §4.3): fields with that visibility are never recorded in rollback or tx
// and must be reset to default at the start of every tick, before game
// simulation code runs.
type Resettable interface {
	ResetUntracked()
}

// Walker is implemented by nodes with slot-map children: Walk calls fn
// for each child, and ResetUntrackedTree recurses through it so that
// ResetUntracked reaches every Resettable node.
type Walker interface {
	Walk(fn func(n any))
}

// ResetUntrackedTree resets every Resettable node reachable from root.
func ResetUntrackedTree(root any) {
	if r, ok := root.(Resettable); ok {
		r.ResetUntracked()
	}
	if w, ok := root.(Walker); ok {
		w.Walk(func(n any) {
			ResetUntrackedTree(n)
		})
	}
}
