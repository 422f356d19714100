// Package tradeoff expresses the responsiveness/correctness spectrum that
// the original engine exposed to game code as a compile-time
// multiplayer_tradeoff!() macro (spec §9): Immediate code runs identically
// on server and client (cheap, may mispredict); WaitForServer code runs
// only on the server; WaitForConsensus code runs only on the server, and
// only once every client's input for the tick has arrived.
//
// Go has no conditional compilation analogous to Rust's #[cfg(feature =
// "server")], so the three levels become runtime gates instead of
// compile-time ones. Game code pays a branch instead of a stripped
// binary section; the ordering guarantee (Immediate -> WaitForServer ->
// WaitForConsensus, strictly increasing latency, never nested in reverse)
// is the caller's responsibility, exactly as the original's doc comment
// places it on the macro's user rather than the macro itself.
package tradeoff

// Immediate runs fn unconditionally. It exists mainly so call sites read
// the same whichever tier they use, and to mark intent: this block must be
// deterministic on every device that runs it.
func Immediate(fn func()) {
	fn()
}

// WaitForServer runs fn only when isServer is true.
func WaitForServer(isServer bool, fn func()) {
	if isServer {
		fn()
	}
}

// WaitForConsensus runs fn only on the server, and only for a tick that
// has already reached consensus (every client's input for it is known, or
// it aged out and was declared consensus by timeout).
func WaitForConsensus(isServer bool, hasConsensus bool, fn func()) {
	if isServer && hasConsensus {
		fn()
	}
}
