package diff

import "github.com/borgerland/netcode/wire"

// Node is the polymorphism interface every state-tree node implements
// (spec §4.4) so the deserializer's replay loop can dispatch field writes
// without knowing the node's concrete shape.
type Node interface {
	// SetFieldRollback consumes the trailing bytes of buf that encode
	// fieldID's previous value (rollback wire form) and writes it back,
	// returning the remaining buffer.
	SetFieldRollback(fieldID uint32, buf []byte) ([]byte, error)

	// SetFieldRx consumes the leading bytes of buf that encode fieldID's
	// new value (tx wire form), applies it, and records the prior value
	// into rec's rollback log so a client can un-apply a later revision.
	SetFieldRx(fieldID uint32, buf []byte, rec *Serializer) ([]byte, error)

	// GetSlotMap returns the named slot map child, or ok=false if fieldID
	// does not name one on this node (FieldNotFound).
	GetSlotMap(fieldID uint32) (SlotMap, bool)
}

// SlotMap is the subset of slotmap.Store's behavior the deserializer needs
// to replay Add/Remove/Clear without being generic over the element type
// (the concrete Store[T] implements this by closing over T).
type SlotMap interface {
	// ApplyAddRx allocates a fresh element exactly as Store.Add would,
	// without recording a new diff op (the op being replayed is itself
	// the record), and returns it as a Node for further descent.
	ApplyAddRx() Node
	// ApplyAddRollback undoes an Add: removes the element that Add most
	// recently created.
	ApplyAddRollback()

	ApplyRemoveRx(key uint32)
	// ApplyRemoveRollback consumes buf's trailing rollback-encoded element
	// snapshot and reinserts it at index under key.
	ApplyRemoveRollback(index int, key uint32, buf []byte) ([]byte, error)

	ApplyClearRx()
	// ApplyClearRollback consumes every removed element's rollback
	// snapshot from buf and restores them all.
	ApplyClearRollback(buf []byte) ([]byte, error)

	// Child returns the Node for the element at key, for NavigateDown.
	Child(key uint32) (Node, bool)
}

// DesRollback replays one tick's worth of inverse operations, reading buf
// tail-to-head until a RollbackTickSeparator terminates it. Returns the
// remaining (older) buffer.
func DesRollback(root Node, buf []byte) ([]byte, error) {
	stack := []Node{root}
	cur := root

	for {
		opByte, rest, err := wire.PopBytes(buf, 1)
		if err != nil {
			return nil, err
		}
		buf = rest
		op := Op(opByte[0])

		switch op {
		case OpRollbackTickSeparator:
			return buf, nil

		case OpNavigateUp:
			n, rest2, err := wire.PopU32(buf)
			if err != nil {
				return nil, err
			}
			buf = rest2
			if int(n) > len(stack)-1 {
				return nil, ErrCorruptDiffOperation
			}
			stack = stack[:len(stack)-int(n)]
			cur = stack[len(stack)-1]

		case OpNavigateReset:
			stack = stack[:1]
			cur = stack[0]

		case OpNavigateDown:
			lenB, rest2, err := wire.PopBytes(buf, 1)
			if err != nil {
				return nil, err
			}
			buf = rest2
			n := int(lenB[0])
			for i := 0; i < n; i++ {
				field, rest3, err := wire.PopU32(buf)
				if err != nil {
					return nil, err
				}
				buf = rest3
				key, rest4, err := wire.PopU32(buf)
				if err != nil {
					return nil, err
				}
				buf = rest4

				sm, ok := cur.GetSlotMap(field)
				if !ok {
					return nil, ErrFieldNotFound
				}
				child, ok := sm.Child(key)
				if !ok {
					return nil, ErrPathNotFound
				}
				stack = append(stack, child)
				cur = child
			}

		case OpTrackPrimitive:
			field, rest2, err := wire.PopU32(buf)
			if err != nil {
				return nil, err
			}
			buf, err = cur.SetFieldRollback(field, rest2)
			if err != nil {
				return nil, err
			}

		case OpTrackSlotMapAdd:
			field, rest2, err := wire.PopU32(buf)
			if err != nil {
				return nil, err
			}
			buf = rest2
			sm, ok := cur.GetSlotMap(field)
			if !ok {
				return nil, ErrFieldNotFound
			}
			sm.ApplyAddRollback()

		case OpTrackSlotMapRemove:
			field, rest2, err := wire.PopU32(buf)
			if err != nil {
				return nil, err
			}
			key, rest3, err := wire.PopU32(rest2)
			if err != nil {
				return nil, err
			}
			index, rest4, err := wire.PopU32(rest3)
			if err != nil {
				return nil, err
			}
			sm, ok := cur.GetSlotMap(field)
			if !ok {
				return nil, ErrFieldNotFound
			}
			buf, err = sm.ApplyRemoveRollback(int(index), key, rest4)
			if err != nil {
				return nil, err
			}

		case OpTrackSlotMapClear:
			field, rest2, err := wire.PopU32(buf)
			if err != nil {
				return nil, err
			}
			sm, ok := cur.GetSlotMap(field)
			if !ok {
				return nil, ErrFieldNotFound
			}
			buf, err = sm.ApplyClearRollback(rest2)
			if err != nil {
				return nil, err
			}

		default:
			return nil, ErrCorruptDiffOperation
		}
	}
}

// DesRxState replays a tx buffer head-to-tail until exhaustion
// (BufferUnderflow is the normal terminator, not an error to the caller).
// rec is the client's own serializer: every applied write is additionally
// recorded into rec's rollback log so a later server revision can be
// un-applied.
func DesRxState(root Node, rec *Serializer, buf []byte) error {
	stack := []Node{root}
	cur := root

	for len(buf) > 0 {
		op := Op(buf[0])
		buf = buf[1:]

		switch op {
		case OpRollbackTickSeparator:
			return ErrCorruptDiffOperation

		case OpNavigateUp:
			n, rest, err := wire.ReadUvarint(buf)
			if err != nil {
				return err
			}
			buf = rest
			if int(n) > len(stack)-1 {
				return ErrCorruptDiffOperation
			}
			stack = stack[:len(stack)-int(n)]
			cur = stack[len(stack)-1]

		case OpNavigateReset:
			stack = stack[:1]
			cur = stack[0]

		case OpNavigateDown:
			if len(buf) < 1 {
				return wire.ErrBufferUnderflow
			}
			n := int(buf[0])
			buf = buf[1:]
			for i := 0; i < n; i++ {
				field, rest, err := wire.DesRxU32(buf)
				if err != nil {
					return err
				}
				buf = rest
				key, rest2, err := wire.DesRxU32(buf)
				if err != nil {
					return err
				}
				buf = rest2

				sm, ok := cur.GetSlotMap(field)
				if !ok {
					return ErrFieldNotFound
				}
				child, ok := sm.Child(key)
				if !ok {
					return ErrPathNotFound
				}
				stack = append(stack, child)
				cur = child
			}

		case OpTrackPrimitive:
			field, rest, err := wire.DesRxU32(buf)
			if err != nil {
				return err
			}
			buf, err = cur.SetFieldRx(field, rest, rec)
			if err != nil {
				return err
			}

		case OpTrackSlotMapAdd:
			field, rest, err := wire.DesRxU32(buf)
			if err != nil {
				return err
			}
			buf = rest
			sm, ok := cur.GetSlotMap(field)
			if !ok {
				return ErrFieldNotFound
			}
			sm.ApplyAddRx()

		case OpTrackSlotMapRemove:
			field, rest, err := wire.DesRxU32(buf)
			if err != nil {
				return err
			}
			key, rest2, err := wire.DesRxU32(rest)
			if err != nil {
				return err
			}
			buf = rest2
			sm, ok := cur.GetSlotMap(field)
			if !ok {
				return ErrFieldNotFound
			}
			sm.ApplyRemoveRx(key)

		case OpTrackSlotMapClear:
			field, rest, err := wire.DesRxU32(buf)
			if err != nil {
				return err
			}
			buf = rest
			sm, ok := cur.GetSlotMap(field)
			if !ok {
				return ErrFieldNotFound
			}
			sm.ApplyClearRx()

		default:
			return ErrCorruptDiffOperation
		}
	}
	return nil
}
