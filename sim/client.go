package sim

import (
	"sync"

	"go.uber.org/zap"

	"github.com/borgerland/netcode/config"
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/inputhist"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wireproto"
)

// rawInputs is a small mutex-guarded queue of presentation-thread inputs,
// mirroring the server's unbounded inbox shape (spec §5: the only
// suspension point in the sim loop is the end-of-tick sleep, so every
// cross-thread handoff is non-blocking).
type rawInputs struct {
	mu    sync.Mutex
	items []state.Input
}

func (r *rawInputs) push(in state.Input) {
	r.mu.Lock()
	r.items = append(r.items, in)
	r.mu.Unlock()
}

func (r *rawInputs) drain() []state.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return nil
	}
	items := r.items
	r.items = nil
	return items
}

type receivedFrames struct {
	mu    sync.Mutex
	items []wireproto.Frame
}

func (r *receivedFrames) push(f wireproto.Frame) {
	r.mu.Lock()
	r.items = append(r.items, f)
	r.mu.Unlock()
}

func (r *receivedFrames) drain() []wireproto.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return nil
	}
	items := r.items
	r.items = nil
	return items
}

// Snapshot is what the sim thread publishes for the render thread to pick
// up: the presentation-visible fields of Root plus the bookkeeping the
// interpolation layer needs (spec §4.9 step 6).
type Snapshot struct {
	Root          *state.Root
	Time          tick.ID
	LocalClientID uint32
}

// Client is the client-side simulation controller (spec §4.7/§4.9).
type Client struct {
	GC     GameCode
	SelfID uint32
	Clock  *tick.Clock
	Rec    *diff.Serializer
	Root   *state.Root
	History *inputhist.Client

	cfg config.Tunables
	log *zap.SugaredLogger

	presentation rawInputs
	received     receivedFrames

	// lastSafeTickID is the newest tick id this client has already
	// reconciled; any incoming buffer older than this is stale and
	// dropped (spec §4.9 step 3, first pass).
	lastSafeTickID tick.ID
	prevInput      state.Input

	offsetRing      []float64
	calibrated      bool
	// underflowed is set by the Consensus arm of applyFrame when the input
	// history has dropped below two entries, and consumed by the next
	// sampleOffset call (spec §4.9: input_rtt "adjusted for input
	// underflow").
	underflowed bool

	// SendInput transmits one tick's outbound input frame to the server.
	SendInput func(f wireproto.Frame)
	// PublishSnapshot hands the latest presentation snapshot to the
	// render thread (a single-slot atomic cell in a real deployment;
	// here a plain callback the demo's render loop polls).
	PublishSnapshot func(s Snapshot)
}

// NewClient constructs a client controller bootstrapped from a server
// snapshot (spec E2: "client initializes at tick 100"). selfID is this
// client's own id, assigned by the server's bootstrap header.
func NewClient(gc GameCode, selfID uint32, cfg config.Tunables, log *zap.SugaredLogger, root *state.Root, rec *diff.Serializer, startTick tick.ID) *Client {
	clock := tick.NewClock(tick.MonotonicTimeProvider{}, cfg.SimDT())
	clock.SetIDCur(startTick)
	clock.SetIDConsensus(startTick)

	rec.AddClient(diff.ClientID(selfID))

	c := &Client{
		GC:      gc,
		SelfID:  selfID,
		Clock:   clock,
		Rec:     rec,
		Root:    root,
		History: inputhist.NewClient(),
		cfg:     cfg,
		log:     log,
	}
	return c
}

// SubmitRawInput queues one presentation-thread input sample. Safe to
// call from the presentation thread.
func (c *Client) SubmitRawInput(in state.Input) { c.presentation.push(in) }

// ReceiveFrame queues one inbound state frame from the server. Safe to
// call from the I/O thread.
func (c *Client) ReceiveFrame(f wireproto.Frame) { c.received.push(f) }

// RunTick drives one scheduled iteration of the client loop (spec §4.9
// steps 1-6).
func (c *Client) RunTick(target tick.ID) {
	in := c.captureInput()
	c.submitInput(in)
	c.reconcile()

	if c.Clock.IDCur() >= target {
		// Server already got ahead of local prediction; pull the clock
		// back instead of simulating backwards.
		c.Clock.Recalibrate(float64(int64(c.Clock.IDCur()) - int64(target)))
		return
	}
	c.simulateForward(target)
	c.calibrateClock()
	c.publish()
}

// captureInput merges every presentation sample that arrived since the
// last tick, or synthesizes one via PredictLateInput if none did (spec
// §4.9 step 1).
func (c *Client) captureInput() state.Input {
	samples := c.presentation.drain()
	if len(samples) == 0 {
		in := c.GC.PredictLateInput(c.prevInput, c.Root, c.SelfID)
		c.GC.ValidateInput(&in)
		return in
	}
	combined := samples[0]
	for _, s := range samples[1:] {
		c.GC.MergeInput(&combined, s)
	}
	c.GC.ValidateInput(&combined)
	return combined
}

// submitInput records in as this tick's captured input: appended to the
// local history (so simulateForward has it to apply once this tick
// rolls forward) and handed to SendInput as a bare tx-encoded payload
// (spec §4.9 step 2). The actual Player.Input write happens later, inside
// simulateForward's rollback bracket — writing it here, outside any
// bracket, would corrupt the rollback log.
func (c *Client) submitInput(in state.Input) {
	c.prevInput = in

	payload := encodeInputPayload(in)
	c.History.Append(payload)
	if c.SendInput != nil {
		c.SendInput(wireproto.Frame{Type: tick.Predicted, TickID: c.Clock.IDCur() + 1, Ops: payload})
	}
}

// reconcile implements spec §4.9 step 3: a first pass drops stale
// buffers, a second pass rolls back to each accepted buffer's boundary
// and re-applies it.
func (c *Client) reconcile() {
	frames := c.received.drain()
	if len(frames) == 0 {
		return
	}

	accepted := frames[:0]
	for _, f := range frames {
		if f.Type == tick.Predicted && f.TickID < c.lastSafeTickID {
			continue
		}
		accepted = append(accepted, f)
	}

	for _, f := range accepted {
		c.applyFrame(f)
	}
}

func (c *Client) applyFrame(f wireproto.Frame) {
	switch f.Type {
	case tick.NetEvents:
		c.rewind(c.Clock.IDConsensus())
		c.applyOps(f)

	case tick.Consensus:
		c.rewind(c.Clock.IDConsensus())
		c.applyOps(f)
		c.Clock.SetIDConsensus(c.Clock.IDConsensus() + 1)
		c.Clock.SetIDCur(c.Clock.IDCur() + 1)
		c.lastSafeTickID = c.Clock.IDConsensus()
		c.ackInput(f)
		c.checkInputUnderflow()

	case tick.Predicted:
		// f.TickID < id_cur means an older prediction superseding our
		// own timeline; rewinding to it and replaying forward discards
		// whatever local prediction had already run past that point.
		c.rewind(f.TickID)
		c.applyOps(f)
		c.Clock.SetIDCur(c.Clock.IDCur() + 1)
		c.ackInput(f)

	default:
		if c.log != nil {
			c.log.Errorw("corrupt tick type, aborting", "type", f.Type)
		}
		panic(wireproto.ErrCorruptTickType)
	}

	if f.FirstAck {
		c.sampleOffset(f)
	}
}

// rewind replays the rollback log back to target, panicking on corruption
// just as the server does (spec §7: a serializer/deserializer disagreement
// is a programmer error, not a peer fault).
func (c *Client) rewind(target tick.ID) {
	if err := rollbackTo(c.Root, c.Clock, c.Rec, target); err != nil {
		panic(wrapRollbackCorruption(err))
	}
}

// applyOps replays f's diff ops against the live Root, recording the
// rollback side as it goes so a later server revision can be undone
// (spec §4.4's SetFieldRx contract).
func (c *Client) applyOps(f wireproto.Frame) {
	if len(f.Ops) == 0 {
		return
	}
	// f.Ops is the server's tx buffer, which leads with its tick-type
	// marker; f.Type already carries that classification, so skip it.
	if err := diff.DesRxState(c.Root, c.Rec, f.Ops[1:]); err != nil {
		if c.log != nil {
			c.log.Errorw("state stream desync, aborting", "err", err)
		}
		panic(err)
	}
}

// ackInput clears the "unacked" flag on the oldest pending history entry
// once the server confirms the tick it belongs to (spec §4.6 client
// history: ping is true until first server ack).
func (c *Client) ackInput(f wireproto.Frame) {
	c.History.Ack(1)
}

// checkInputUnderflow implements spec §4.9's "Input underflow": once a
// Consensus frame leaves fewer than two entries in the local input
// history (the client is running far enough behind that Drop never got a
// second entry to retire), the ≥1 invariant still holds, but there's
// nothing left to diff for this tick. The server still needs one ack per
// tick, so an empty diff goes out in place of the usual prediction, and
// the next calibration sample is nudged by one tick to account for it.
func (c *Client) checkInputUnderflow() {
	if c.History.Len() >= 2 {
		return
	}
	c.underflowed = true
	if c.SendInput != nil {
		c.SendInput(wireproto.Frame{Type: tick.Predicted, TickID: c.Clock.IDCur(), Ops: nil})
	}
}

// sampleOffset records a calibration sample from a first-ack frame (spec
// §4.9 step 5): input_rtt approximated from how far ahead of the acked
// tick our local clock has already run, adjusted by the server's own
// reported offset.
func (c *Client) sampleOffset(f wireproto.Frame) {
	targetTick := c.Clock.IDCur()
	inputRTT := int64(targetTick) - int64(f.TickID) - 1
	if c.underflowed {
		inputRTT++
		c.underflowed = false
	}
	offset := float64(inputRTT)/2 + float64(f.ServerOffset)
	c.pushOffsetSample(offset)
}

func (c *Client) pushOffsetSample(offset float64) {
	c.offsetRing = append(c.offsetRing, offset)
	if len(c.offsetRing) > c.cfg.OffsetBufferSize {
		c.offsetRing = c.offsetRing[len(c.offsetRing)-c.cfg.OffsetBufferSize:]
	}
}

// calibrateClock implements spec §4.9 step 5: once the ring is full and
// its jitter is within tolerance, recalibrate on the first measurement or
// whenever the running average drifts past OFFSET_TOLERANCE.
func (c *Client) calibrateClock() {
	if len(c.offsetRing) < c.cfg.OffsetBufferSize {
		return
	}
	minV, maxV, sum := c.offsetRing[0], c.offsetRing[0], 0.0
	for _, v := range c.offsetRing {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}
	jitterTicks := (maxV - minV)
	jitterTolerance := float64(c.cfg.JitterTolerance()) / float64(c.cfg.SimDT())
	if jitterTicks > jitterTolerance {
		return
	}

	avg := sum / float64(len(c.offsetRing))
	offsetTolerance := float64(c.cfg.OffsetTolerance()) / float64(c.cfg.SimDT())

	if !c.calibrated || avg > offsetTolerance || avg < -offsetTolerance {
		c.Clock.Recalibrate(avg)
		c.calibrated = true
		if avg < 0 {
			// Client is behind: catch up immediately rather than waiting
			// for the next sleep to absorb the delay.
			extra := tick.ID(-avg)
			c.simulateForward(c.Clock.IDCur() + extra)
		}
	}
}

// simulateForward runs every tick from id_cur+1 through target, writing
// only this client's own input slot (the server is authoritative for
// everyone else's) and invoking the game tick under prediction.
func (c *Client) simulateForward(target tick.ID) {
	for c.Clock.IDCur() < target {
		next := c.Clock.IDCur() + 1
		t := tick.Predicted
		if c.Clock.IDConsensus() >= next {
			t = tick.Consensus
		}

		c.Rec.RollbackBeginTick(t)

		if player, ok := c.Root.Players.Get(playerKey(c.SelfID)); ok {
			in := decodeInputPayload(historyInputAt(c.History, 0))
			player.SetInput(c.Rec, in)
		}

		c.GC.SimulationTick(c.Root, c.SelfID, false, t == tick.Consensus)
		state.ResetUntrackedTree(c.Root)

		c.Rec.RollbackEndTick()
		if c.History.Len() > 1 {
			c.History.Drop(1)
		}
		c.Clock.SetIDCur(next)
	}
}

// publish hands the render thread the latest state, if anyone is
// listening (spec §4.9 step 6).
func (c *Client) publish() {
	if c.PublishSnapshot == nil {
		return
	}
	c.PublishSnapshot(Snapshot{Root: c.Root, Time: c.Clock.IDCur(), LocalClientID: c.SelfID})
}

// historyInputAt returns entry i's raw payload, or nil if the history is
// shorter than that (input underflow, spec §4.9).
func historyInputAt(h *inputhist.Client, i int) []byte {
	if i >= h.Len() {
		return nil
	}
	return h.Entry(i).Input
}

// Run drives the scheduler loop for the process lifetime, mirroring
// Server.Run (spec §4.7 step 8 is the caller's sleep-until-deadline loop).
// Intended for cmd/ binaries; tests call RunTick directly instead.
func (c *Client) Run() {
	for {
		target := c.Clock.IDCur() + 1
		c.RunTick(target)
		if overran := c.Clock.SleepUntil(target); overran && c.log != nil {
			c.log.Warnw("tick overran deadline", "tick", target)
		}
	}
}

// SeekTo scrubs a client's local Root to an arbitrary past tick for
// debugging/replay tooling, reusing the same rollback primitives the
// normal loop uses (supplemented feature, see SPEC_FULL.md "Supplemented
// features": the original engine's simulation_controller/seek.rs).
func (c *Client) SeekTo(target tick.ID) error {
	return rollbackTo(c.Root, c.Clock, c.Rec, target)
}
