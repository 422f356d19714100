package diff

import "github.com/pkg/errors"

// ErrCorruptDiffOperation is returned when the replay loop reads an
// opcode it doesn't recognize, or a RollbackTickSeparator shows up on the
// rx side (spec §4.4: "a protocol error"). On the rollback path this can
// only mean our own serializer and deserializer disagree, which is a bug
// worth a stack trace (spec §7); on the rx path it means a peer sent
// garbage, which is handled, not panicked on.
var ErrCorruptDiffOperation = errors.New("diff: corrupt diff operation")

// ErrFieldNotFound is returned when GetSlotMap is asked for a field id a
// node doesn't expose as a slot map.
var ErrFieldNotFound = errors.New("diff: field not found")

// ErrPathNotFound is returned by OpNavigateDown when the field resolves to
// a slot map but the key inside it names no child (the slot was removed,
// or never existed) — distinct from ErrFieldNotFound, where the field id
// itself is unknown.
var ErrPathNotFound = errors.New("diff: path not found")

// WrapRollbackCorruption annotates an error encountered while replaying
// our own rollback log with a stack trace: this path should never fail in
// a correctly-implemented controller, so a failure here is the one place
// in the diff package worth the cost of capturing one.
func WrapRollbackCorruption(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, "rollback replay")
}
