package diff

import (
	"github.com/borgerland/netcode/diffpath"
	"github.com/borgerland/netcode/wire"
)

// appendNavTx writes ops to buf in forward (head-to-tail) order: exactly
// the order a tx reader processes them in, nav-first.
func appendNavTx(buf []byte, ops []diffpath.Op) []byte {
	for _, op := range ops {
		buf = appendOneNavTx(buf, op)
	}
	return buf
}

func appendOneNavTx(buf []byte, op diffpath.Op) []byte {
	switch op.Kind {
	case diffpath.OpNavigateReset:
		return append(buf, byte(OpNavigateReset))
	case diffpath.OpNavigateUp:
		buf = append(buf, byte(OpNavigateUp))
		return wire.AppendUvarint(buf, uint64(op.N))
	case diffpath.OpNavigateDown:
		buf = append(buf, byte(OpNavigateDown))
		buf = append(buf, byte(len(op.Elems)))
		for _, e := range op.Elems {
			buf = wire.SerTxU32(buf, e.Field)
			buf = wire.SerTxU32(buf, e.Key)
		}
		return buf
	default:
		return buf
	}
}

// appendNavRollback writes ops to the tail of buf such that popping the
// tail byte-by-byte replays the ops in the same logical order a tx reader
// would: op order is reversed in storage (so the first logical op is
// popped first), and a NavigateDown's element pairs are likewise stored
// reversed.
func appendNavRollback(buf []byte, ops []diffpath.Op) []byte {
	for i := len(ops) - 1; i >= 0; i-- {
		buf = appendOneNavRollback(buf, ops[i])
	}
	return buf
}

func appendOneNavRollback(buf []byte, op diffpath.Op) []byte {
	switch op.Kind {
	case diffpath.OpNavigateReset:
		return append(buf, byte(OpNavigateReset))
	case diffpath.OpNavigateUp:
		buf = wire.AppendU32(buf, uint32(op.N))
		return append(buf, byte(OpNavigateUp))
	case diffpath.OpNavigateDown:
		for i := len(op.Elems) - 1; i >= 0; i-- {
			buf = wire.AppendU32(buf, op.Elems[i].Key)
			buf = wire.AppendU32(buf, op.Elems[i].Field)
		}
		buf = append(buf, byte(len(op.Elems)))
		return append(buf, byte(OpNavigateDown))
	default:
		return buf
	}
}
