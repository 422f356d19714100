package sim

import (
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/slotmap"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/tick"
)

// rollbackTo rewinds root by replaying rec's rollback log tail-to-head,
// one tick at a time, until clock.IDCur() reaches target (spec §4.7 step
// 3). At target == id_consensus the rollback buffer must be empty; any
// failure here means our own serializer and deserializer disagree, a
// programmer error rather than a peer sending bad data (spec §7).
func rollbackTo(root diff.Node, clock *tick.Clock, rec *diff.Serializer, target tick.ID) error {
	for clock.IDCur() > target {
		rest, err := diff.DesRollback(root, rec.RollbackBuf())
		if err != nil {
			return err
		}
		rec.SetRollbackBuf(rest)
		clock.SetIDCur(clock.IDCur() - 1)
	}
	return nil
}

func wrapRollbackCorruption(err error) error {
	return diff.WrapRollbackCorruption(err)
}

// playerKey maps a client id onto its owning slot key. This repo's
// example tree keys the Players slot map by client id directly (spec §9
// "cyclic or back-reference data": every cross-entity link is a slot-map
// key, and here the simplest such link is identity).
func playerKey(clientID uint32) slotmap.Key { return slotmap.Key(clientID) }

// encodeInputPayload/decodeInputPayload are the wire payload for a
// client->server input frame and the inputhist storage format: a bare
// tx-encoded Input value (see state.EncodeInputTx).
func encodeInputPayload(in state.Input) []byte {
	return state.EncodeInputTx(nil, in)
}

func decodeInputPayload(buf []byte) state.Input {
	if len(buf) == 0 {
		return state.Input{}
	}
	in, _, err := state.DecodeInputTx(buf)
	if err != nil {
		return state.Input{}
	}
	return in
}
