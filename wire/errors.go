package wire

import "errors"

// Sentinel errors surfaced at the deserialization boundary. Callers compare
// with errors.Is; the diff package wraps the rollback-path subset with a
// stack trace before treating them as programmer error (spec §7).
var (
	// ErrBufferUnderflow is returned when a read needs more bytes than remain.
	// On the tx/rx side this is the normal end-of-stream terminator; on the
	// rollback side it indicates a logic bug in our own serializer.
	ErrBufferUnderflow = errors.New("wire: buffer underflow")

	// ErrCorruptBool is returned when a decoded bool byte is not 0 or 1.
	ErrCorruptBool = errors.New("wire: corrupt bool")

	// ErrCorruptVarInt is returned when a varint exceeds 10 bytes without
	// terminating (the continuation bit never clears).
	ErrCorruptVarInt = errors.New("wire: corrupt varint")

	// ErrObeseVarInt is returned when a varint decodes to a value wider than
	// its target integer type.
	ErrObeseVarInt = errors.New("wire: varint too wide for target")

	// ErrCorruptChar is returned when a decoded u32 is not a valid Unicode
	// scalar value.
	ErrCorruptChar = errors.New("wire: corrupt char")
)
