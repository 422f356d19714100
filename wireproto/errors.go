package wireproto

import "errors"

// ErrCorruptTickType is returned when a frame header names a tick_type
// byte outside tick.Type's valid range (spec §7). On the state stream this
// is a peer sending garbage rather than a local bug, but the spec still
// treats it as fatal to the client: there is no sane tick to reconcile
// against.
var ErrCorruptTickType = errors.New("wireproto: corrupt tick type")
