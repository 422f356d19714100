package wire

// Tx/rx-side primitives (spec §4.1): small integers are LEB128/zigzag
// varint-compressed since they cross the wire; bool keeps the rollback
// side's single validated byte; char is varint-compressed like a u32 and
// validated as a Unicode scalar on decode; floats stay raw IEEE-754 in both directions — they rarely compress well
// and the decode cost of trying isn't worth it.

func SerTxBool(buf []byte, v bool) []byte { return AppendBool(buf, v) }

func DesRxBool(buf []byte) (bool, []byte, error) { return PopFrontBool(buf) }

func SerTxU16(buf []byte, v uint16) []byte { return AppendUvarint(buf, uint64(v)) }
func SerTxI16(buf []byte, v int16) []byte  { return AppendVarint(buf, int64(v)) }
func SerTxU32(buf []byte, v uint32) []byte { return AppendUvarint(buf, uint64(v)) }
func SerTxI32(buf []byte, v int32) []byte  { return AppendVarint(buf, int64(v)) }
func SerTxU64(buf []byte, v uint64) []byte { return AppendUvarint(buf, v) }
func SerTxI64(buf []byte, v int64) []byte  { return AppendVarint(buf, v) }

func SerTxF32(buf []byte, v float32) []byte { return AppendF32(buf, v) }
func SerTxF64(buf []byte, v float64) []byte { return AppendF64(buf, v) }

func SerTxChar(buf []byte, v rune) []byte { return AppendUvarint(buf, uint64(uint32(v))) }

func DesRxU16(buf []byte) (uint16, []byte, error) {
	v, rest, err := ReadUvarintN(buf, 16)
	return uint16(v), rest, err
}

func DesRxI16(buf []byte) (int16, []byte, error) {
	v, rest, err := ReadVarintN(buf, 16)
	return int16(v), rest, err
}

func DesRxU32(buf []byte) (uint32, []byte, error) {
	v, rest, err := ReadUvarintN(buf, 32)
	return uint32(v), rest, err
}

func DesRxI32(buf []byte) (int32, []byte, error) {
	v, rest, err := ReadVarintN(buf, 32)
	return int32(v), rest, err
}

func DesRxU64(buf []byte) (uint64, []byte, error) {
	return ReadUvarintN(buf, 64)
}

func DesRxI64(buf []byte) (int64, []byte, error) {
	return ReadVarintN(buf, 64)
}

func DesRxF32(buf []byte) (float32, []byte, error) { return PopFrontF32(buf) }
func DesRxF64(buf []byte) (float64, []byte, error) { return PopFrontF64(buf) }

func DesRxChar(buf []byte) (rune, []byte, error) {
	u, rest, err := ReadUvarintN(buf, 32)
	if err != nil {
		return 0, nil, err
	}
	r := rune(u)
	if !validScalar(r) {
		return 0, nil, ErrCorruptChar
	}
	return r, rest, nil
}

// PopFrontBool/PopFrontF32/PopFrontF64 read from the *front* of buf. Unlike
// rollback (a stack, read tail-first) the tx stream is a FIFO: it is
// produced head-to-tail and consumed the same way by the peer.

func PopFrontBool(buf []byte) (bool, []byte, error) {
	if len(buf) < 1 {
		return false, nil, ErrBufferUnderflow
	}
	switch buf[0] {
	case 0:
		return false, buf[1:], nil
	case 1:
		return true, buf[1:], nil
	default:
		return false, nil, ErrCorruptBool
	}
}

func PopFrontF32(buf []byte) (float32, []byte, error) {
	b, rest, err := popFront(buf, 4)
	if err != nil {
		return 0, nil, err
	}
	v, _, _ := PopF32(b)
	return v, rest, nil
}

func PopFrontF64(buf []byte) (float64, []byte, error) {
	b, rest, err := popFront(buf, 8)
	if err != nil {
		return 0, nil, err
	}
	v, _, _ := PopF64(b)
	return v, rest, nil
}

func popFront(buf []byte, n int) ([]byte, []byte, error) {
	if len(buf) < n {
		return nil, nil, ErrBufferUnderflow
	}
	return buf[:n], buf[n:], nil
}
