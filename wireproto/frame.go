// Package wireproto implements the on-wire per-tick frame format from
// spec §4.8/§6: one length-prefixed binary frame per client per tick,
// adapted from the teacher's network.Message/Encode/Decode framing.
package wireproto

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wire"
)

// HeaderSize is the fixed frame prefix: [tick_type:1][flags:1][len:4].
// Unlike the teacher's general-purpose message header there is no
// seq/ack pair here — ordering and acknowledgment are carried inside the
// diff stream itself (tick ids, input_acked) rather than at the
// transport layer.
const HeaderSize = 6

const (
	// FlagFirstAck marks a frame that carries the server_offset
	// calibration sample, present only the first time a tick is acked.
	FlagFirstAck uint8 = 0x01
	// FlagInputAcked is meaningful only when Type == Consensus: whether
	// this client's input for the tick was known when it finalized.
	FlagInputAcked uint8 = 0x02
)

// Frame is one per-tick, per-client outbound message (spec §4.8).
type Frame struct {
	Type tick.Type
	// TickID is the predicted tick id, meaningful only when Type ==
	// Predicted (Consensus/NetEvents ticks are implicit: the receiver's
	// own id_consensus/id_cur tracks them).
	TickID tick.ID
	// FirstAck reports whether this is the first frame to ack the tick,
	// in which case ServerOffset carries a calibration sample.
	FirstAck bool
	// ServerOffset is the calibration sample taken at first-ack time, in
	// ticks; only meaningful when FirstAck is true.
	ServerOffset int16
	// InputAcked reports whether this client's input was known for this
	// Consensus tick; meaningful only when Type == Consensus.
	InputAcked bool
	// Ops is the diff op stream for this tick (already in wire form,
	// produced by diff.Serializer's tx side).
	Ops []byte
}

func (f Frame) flags() uint8 {
	var flags uint8
	if f.Type == tick.Consensus && f.InputAcked {
		flags |= FlagInputAcked
	}
	if f.FirstAck {
		flags |= FlagFirstAck
	}
	return flags
}

// body serializes everything but the [type][flags][len] header: tick id
// or ack bit depending on type, the optional calibration sample, then the
// raw diff op stream.
func (f Frame) body() []byte {
	var buf []byte
	switch f.Type {
	case tick.Predicted:
		buf = wire.AppendUvarint(buf, uint64(f.TickID))
	}
	if f.FirstAck {
		buf = wire.AppendVarint(buf, int64(f.ServerOffset))
	}
	return append(buf, f.Ops...)
}

func decodeBody(t tick.Type, flags uint8, buf []byte) (Frame, error) {
	f := Frame{Type: t}

	switch t {
	case tick.Predicted:
		id, rest, err := wire.ReadUvarint(buf)
		if err != nil {
			return Frame{}, err
		}
		f.TickID = tick.ID(id)
		buf = rest
	case tick.Consensus:
		f.InputAcked = flags&FlagInputAcked != 0
	}

	if flags&FlagFirstAck != 0 {
		f.FirstAck = true
		offset, rest, err := wire.ReadVarintN(buf, 16)
		if err != nil {
			return Frame{}, err
		}
		f.ServerOffset = int16(offset)
		buf = rest
	}

	f.Ops = buf
	return f, nil
}

// Write frames f with the [type][flags][len] header and writes it to w.
func Write(w io.Writer, f Frame) error {
	body := f.body()
	if uint64(len(body)) > 0xFFFFFFFF {
		return errors.New("wireproto: frame too large")
	}
	header := make([]byte, HeaderSize)
	header[0] = byte(f.Type)
	header[1] = f.flags()
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// Read reads one frame from r.
func Read(r io.Reader) (Frame, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	if header[0] > byte(tick.NetEvents) {
		return Frame{}, ErrCorruptTickType
	}
	t := tick.Type(header[0])
	flags := header[1]
	n := binary.LittleEndian.Uint32(header[2:6])
	body := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, err
		}
	}
	return decodeBody(t, flags, body)
}
