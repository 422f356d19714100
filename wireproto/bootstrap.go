package wireproto

import (
	"encoding/binary"
	"io"

	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wire"
)

// BootstrapHeader precedes the one-time full-state snapshot a server sends
// a newly connected client (spec §4.8).
type BootstrapHeader struct {
	NewClientID      uint32
	TickIDSnapshot   tick.ID
	FastForwardTicks uint32
}

// WriteBootstrap frames a bootstrap header followed by an already-encoded
// snapshot payload as one length-prefixed message.
func WriteBootstrap(w io.Writer, h BootstrapHeader, snapshot []byte) error {
	body := wire.AppendUvarint(nil, uint64(h.NewClientID))
	body = wire.AppendUvarint(body, uint64(h.TickIDSnapshot))
	body = wire.AppendUvarint(body, uint64(h.FastForwardTicks))
	body = append(body, snapshot...)

	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(body)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadBootstrap reads a bootstrap header + snapshot payload written by
// WriteBootstrap.
func ReadBootstrap(r io.Reader) (BootstrapHeader, []byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return BootstrapHeader{}, nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	body := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return BootstrapHeader{}, nil, err
		}
	}

	id, rest, err := wire.ReadUvarint(body)
	if err != nil {
		return BootstrapHeader{}, nil, err
	}
	tickSnap, rest, err := wire.ReadUvarint(rest)
	if err != nil {
		return BootstrapHeader{}, nil, err
	}
	fastForward, rest, err := wire.ReadUvarint(rest)
	if err != nil {
		return BootstrapHeader{}, nil, err
	}

	return BootstrapHeader{
		NewClientID:      uint32(id),
		TickIDSnapshot:   tick.ID(tickSnap),
		FastForwardTicks: uint32(fastForward),
	}, rest, nil
}
