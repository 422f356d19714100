// Package tick implements the fixed-rate virtual clock and tick-type state
// machine described in spec §4.6 and §4.10. It is deliberately ignorant of
// the simulation loop itself (that lives in sim) — Clock only answers "what
// wall-clock instant does tick k fall on" and "do we currently have
// consensus", and TickType tracks how a single tick is classified as it is
// born, runs, and is later superseded.
package tick

import "time"

// TimeProvider abstracts the wall clock so tests can inject a fake one.
// Grounded on the teacher's engine.TimeProvider: the simulation thread
// always wants a monotonic source, never a pausable one.
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider is the production TimeProvider.
type MonotonicTimeProvider struct{}

func (MonotonicTimeProvider) Now() time.Time { return time.Now() }

// ID is a tick number. Widened past the original's u32 (see DESIGN.md Open
// Questions) since a long-running dedicated server can outlive 2^32 ticks
// at typical simulation rates.
type ID uint64

// Clock anchors virtual tick time to a wall-clock instant. Instant(k) =
// first + k*dt. It owns no state beyond that anchor and the consensus
// frontier flag; id_cur itself is owned by the simulation controller.
type Clock struct {
	tp    TimeProvider
	dt    time.Duration
	first time.Time

	idCur       ID
	idConsensus ID
}

// NewClock anchors tick 0 to tp.Now().
func NewClock(tp TimeProvider, dt time.Duration) *Clock {
	return &Clock{tp: tp, dt: dt, first: tp.Now()}
}

// Dt returns the fixed simulation timestep.
func (c *Clock) Dt() time.Duration { return c.dt }

// Instant returns the wall-clock instant tick k is scheduled for.
func (c *Clock) Instant(k ID) time.Time {
	return c.first.Add(time.Duration(k) * c.dt)
}

// Recalibrate shifts the clock's anchor so that the current tick's instant
// moves by -offset ticks: a positive offset means the caller (typically a
// client comparing itself to the server) is running ahead and wants its
// clock pulled back.
func (c *Clock) Recalibrate(offset float64) {
	shift := time.Duration(offset * float64(c.dt))
	c.first = c.first.Add(-shift)
}

// IDCur returns the controller's current tick.
func (c *Clock) IDCur() ID { return c.idCur }

// SetIDCur is called by the simulation controller as id_cur advances or
// rewinds during rollback.
func (c *Clock) SetIDCur(id ID) { c.idCur = id }

// IDConsensus returns the last tick known to be authoritative.
func (c *Clock) IDConsensus() ID { return c.idConsensus }

// SetIDConsensus advances the consensus frontier.
func (c *Clock) SetIDConsensus(id ID) { c.idConsensus = id }

// HasConsensus reports whether the clock is mid-processing of a tick that
// has already been declared consensus: true iff id_consensus > id_cur, a
// transient condition the scheduler checks at the top of a tick before
// simulating it forward.
func (c *Clock) HasConsensus() bool { return c.idConsensus > c.idCur }

// Now returns the current wall-clock time from the underlying provider.
func (c *Clock) Now() time.Time { return c.tp.Now() }

// SleepUntil blocks until the wall-clock instant scheduled for tick k, or
// returns immediately (with overran=true) if that instant has already passed —
// the simulation controller logs a drift warning in that case and presses
// on without sleeping (spec §5).
func (c *Clock) SleepUntil(k ID) (overran bool) {
	d := c.Instant(k).Sub(c.tp.Now())
	if d <= 0 {
		return true
	}
	time.Sleep(d)
	return false
}
