// Package snapshot frames the one-time bootstrap payload a server sends a
// newly connected client (spec §4.8, §6): a wireproto.BootstrapHeader
// followed by the state tree's breadth-first tx-wire snapshot body,
// integrity-checked with a blake2b-256 digest so a truncated or corrupted
// read is caught before the client ever tries to replay it.
package snapshot

import (
	"bytes"
	"io"

	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wireproto"
	"golang.org/x/crypto/blake2b"
)

// ErrChecksumMismatch is returned by Read when the trailing digest doesn't
// match the body that precedes it.
type checksumError struct{ msg string }

func (e *checksumError) Error() string { return e.msg }

var ErrChecksumMismatch error = &checksumError{"snapshot: checksum mismatch"}

// Write appends a blake2b-256 digest to body and frames the result as a
// bootstrap message via wireproto.WriteBootstrap.
func Write(w io.Writer, clientID uint32, tickIDSnapshot tick.ID, fastForwardTicks uint32, body []byte) error {
	sum := blake2b.Sum256(body)
	checked := make([]byte, 0, len(body)+len(sum))
	checked = append(checked, body...)
	checked = append(checked, sum[:]...)

	return wireproto.WriteBootstrap(w, wireproto.BootstrapHeader{
		NewClientID:      clientID,
		TickIDSnapshot:   tickIDSnapshot,
		FastForwardTicks: fastForwardTicks,
	}, checked)
}

// Read reads a bootstrap message and verifies its trailing digest, returning
// the header and the verified snapshot body (digest stripped).
func Read(r io.Reader) (wireproto.BootstrapHeader, []byte, error) {
	header, checked, err := wireproto.ReadBootstrap(r)
	if err != nil {
		return wireproto.BootstrapHeader{}, nil, err
	}
	if len(checked) < blake2b.Size256 {
		return wireproto.BootstrapHeader{}, nil, ErrChecksumMismatch
	}
	split := len(checked) - blake2b.Size256
	body, wantSum := checked[:split], checked[split:]

	gotSum := blake2b.Sum256(body)
	if !bytes.Equal(gotSum[:], wantSum) {
		return wireproto.BootstrapHeader{}, nil, ErrChecksumMismatch
	}
	return header, body, nil
}
