package snapshot

import (
	"bytes"
	"testing"

	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/tick"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rec := diff.NewSerializer()
	root := state.NewRoot(rec)
	_, p := state.AddPlayer(root)
	p.PosX, p.Score = 55, 9

	body := root.SnapshotTx(nil)

	var buf bytes.Buffer
	if err := Write(&buf, 7, tick.ID(100), 3, body); err != nil {
		t.Fatalf("Write: %v", err)
	}

	header, gotBody, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if header.NewClientID != 7 || header.TickIDSnapshot != 100 || header.FastForwardTicks != 3 {
		t.Fatalf("unexpected header: %+v", header)
	}
	if !bytes.Equal(gotBody, body) {
		t.Fatalf("body mismatch: got %v want %v", gotBody, body)
	}

	rec2 := diff.NewSerializer()
	restored, rest, err := state.LoadRootSnapshotTx(rec2, gotBody)
	if err != nil {
		t.Fatalf("LoadRootSnapshotTx: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected body fully consumed, got %v", rest)
	}
	if restored.Players.Len() != 1 {
		t.Fatalf("expected 1 player restored, got %d", restored.Players.Len())
	}
}

func TestReadDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, 1, tick.ID(1), 0, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	if _, _, err := Read(bytes.NewReader(corrupted)); err != ErrChecksumMismatch {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}
