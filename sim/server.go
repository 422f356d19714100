package sim

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/borgerland/netcode/config"
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/inputhist"
	"github.com/borgerland/netcode/netevents"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/status"
	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wireproto"
)

// inboundInput is one client's just-arrived input diff payload, queued by
// the I/O thread and drained at the top of a scheduled tick. Unbounded on
// purpose (spec §5): the server polices senders via the too-early kick
// rather than backpressure.
type inboundInput struct {
	ClientID uint32
	Payload  []byte
}

type inbox struct {
	mu    sync.Mutex
	items []inboundInput
}

func (b *inbox) push(i inboundInput) {
	b.mu.Lock()
	b.items = append(b.items, i)
	b.mu.Unlock()
}

func (b *inbox) drain() []inboundInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil
	}
	items := b.items
	b.items = nil
	return items
}

// Server is the server-side simulation controller (spec §4.7/§4.8): it
// owns the authoritative Root, drives rollback/reconciliation/consensus,
// and emits one outbound tx frame per client per tick.
type Server struct {
	GC    GameCode
	Clock *tick.Clock
	Rec   *diff.Serializer
	Root  *state.Root

	NetEvents *netevents.Queue

	cfg     config.Tunables
	log     *zap.SugaredLogger
	metrics *status.Registry

	histories   map[uint32]*inputhist.Server
	enabled     map[uint32]bool
	timedOut    map[uint32]bool
	lastInputAt map[uint32]time.Time

	in inbox

	// SendFrame transmits f to clientID; a real deployment wires this to
	// transport.PeerManager.Send. Nil is valid (no-op) for headless
	// single-process tests.
	SendFrame func(clientID uint32, f wireproto.Frame)
	// SendBootstrap transmits the one-time snapshot to a newly connected
	// client.
	SendBootstrap func(clientID uint32, hdr wireproto.BootstrapHeader, body []byte)
	// Kick disconnects a client with a logged reason (spec §7: input
	// stream failures and policy violations are not fatal to the server).
	Kick func(clientID uint32, reason string)
}

// NewServer constructs a server controller with an empty Root and a
// pending ServerStart net event, matching spec E1's startup sequence.
func NewServer(gc GameCode, cfg config.Tunables, log *zap.SugaredLogger, metrics *status.Registry) *Server {
	rec := diff.NewSerializer()
	s := &Server{
		GC:          gc,
		Clock:       tick.NewClock(tick.MonotonicTimeProvider{}, cfg.SimDT()),
		Rec:         rec,
		Root:        state.NewRoot(rec),
		NetEvents:   netevents.NewQueue(),
		cfg:         cfg,
		log:         log,
		metrics:     metrics,
		histories:   make(map[uint32]*inputhist.Server),
		enabled:     make(map[uint32]bool),
		timedOut:    make(map[uint32]bool),
		lastInputAt: make(map[uint32]time.Time),
	}
	s.NetEvents.Push(netevents.Event{Kind: netevents.ServerStart})
	return s
}

// SubmitInput queues a client's raw input diff payload for the next
// scheduled tick. Safe to call from the I/O thread.
func (s *Server) SubmitInput(clientID uint32, payload []byte) {
	if len(payload) > s.cfg.NetInputSizeLimit {
		s.countKick()
		if s.Kick != nil {
			s.Kick(clientID, "input diff exceeds size limit")
		}
		return
	}
	s.in.push(inboundInput{ClientID: clientID, Payload: payload})
}

// Connect enqueues a ClientConnect net event; channel is transport-level
// context (e.g. a *transport.Peer) opaque to the simulation thread.
func (s *Server) Connect(clientID uint32, channel any) {
	s.NetEvents.Push(netevents.Event{Kind: netevents.ClientConnect, ClientID: clientID, Channel: channel})
}

// Disconnect enqueues a ClientDisconnect net event.
func (s *Server) Disconnect(clientID uint32) {
	s.NetEvents.Push(netevents.Event{Kind: netevents.ClientDisconnect, ClientID: clientID})
}

// RunTick drives the scheduler loop's server-side body for one scheduled
// iteration, simulating forward to target (spec §4.7 steps 1-7; step 8,
// sleeping until the next deadline, is the caller's loop, see Run).
func (s *Server) RunTick(target tick.ID) {
	arrivals := s.in.drain()
	rollbackTarget := s.decideRollbackTarget(arrivals)

	if err := rollbackTo(s.Root, s.Clock, s.Rec, rollbackTarget); err != nil {
		panic(wrapRollbackCorruption(err))
	}

	s.applyArrivals(arrivals)
	s.applyNetEvents()
	s.advanceConsensus(target)
	s.simulateForward(target)
	s.updateMetrics()
}

// updateMetrics publishes the scheduler's own view of tick progress to the
// status registry (SPEC_FULL.md "Metrics"): tick count, consensus lag,
// pending event-queue depth, and connected-client count. A nil registry
// (headless tests) makes every call here a no-op.
func (s *Server) updateMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.Ints.Get("tick.count").Store(int64(s.Clock.IDCur()))
	s.metrics.Ints.Get("tick.consensus_lag").Store(int64(s.Clock.IDCur() - s.Clock.IDConsensus()))
	s.metrics.Ints.Get("tick.event_queue_len").Store(int64(s.NetEvents.Len()))
	s.metrics.Ints.Get("clients.connected").Store(int64(len(s.enabled)))
}

// decideRollbackTarget implements spec §4.8's "processing any event forces
// a rollback to id_consensus" plus §4.4's "a newly arrived input may lower
// the rollback target to the tick now associated with it": the minimum of
// id_cur, id_consensus (if net events are pending), and every accepted
// input's newly-associated tick.
func (s *Server) decideRollbackTarget(arrivals []inboundInput) tick.ID {
	target := s.Clock.IDCur()
	if s.NetEvents.Len() > 0 && s.Clock.IDConsensus() < target {
		target = s.Clock.IDConsensus()
	}
	for _, a := range arrivals {
		h := s.historyFor(a.ClientID)
		assoc := s.Clock.IDConsensus() + tick.ID(h.Len()) - 1
		if h.TimedOutTicks() > 0 {
			continue
		}
		if assoc < target {
			target = assoc
		}
	}
	return target
}

// applyArrivals feeds every queued input into its client's history,
// policing the too-early window and clearing timeouts for clients that
// catch back up (spec §4.8).
func (s *Server) applyArrivals(arrivals []inboundInput) {
	for _, a := range arrivals {
		h := s.historyFor(a.ClientID)
		assoc := s.Clock.IDConsensus() + tick.ID(h.Len()) - 1

		if tooEarly := int64(assoc) - int64(s.Clock.IDCur()); tooEarly >= int64(s.tooEarlyTicks()) {
			s.countKick()
			if s.Kick != nil {
				s.Kick(a.ClientID, "input too early")
			}
			continue
		}

		s.lastInputAt[a.ClientID] = s.Clock.Now()
		if h.TimedOutTicks() > 0 && assoc >= s.Clock.IDCur()-tick.ID(s.tooLateTicks()/2) {
			h.ClearTimeout()
			s.timedOut[a.ClientID] = false
		}
		h.Receive(assoc, s.Clock.IDCur(), a.Payload)
	}
}

// applyNetEvents processes the queue: each event forces this half-tick to
// run as NetEvents (non-deterministic, server-only; no game simulation),
// marked as such in every connected client's outbound buffer.
func (s *Server) applyNetEvents() {
	events := s.NetEvents.DrainAll()
	if len(events) == 0 {
		return
	}

	for id := range s.enabled {
		s.Rec.TxBeginTick(diff.ClientID(id), tick.NetEvents, s.enabled[id])
	}

	for _, ev := range events {
		switch ev.Kind {
		case netevents.ServerStart:
			s.GC.OnServerStart(s.Root)
		case netevents.ClientConnect:
			s.onConnect(ev.ClientID)
		case netevents.ClientDisconnect:
			s.onDisconnect(ev.ClientID)
		}
	}

	for id := range s.enabled {
		buf := s.Rec.TxEndTick(diff.ClientID(id))
		if len(buf) == 0 {
			continue
		}
		s.sendFrame(id, wireproto.Frame{Type: tick.NetEvents, Ops: buf})
	}
}

func (s *Server) onConnect(clientID uint32) {
	s.Rec.AddClient(diff.ClientID(clientID))
	s.histories[clientID] = inputhist.NewServer()
	s.enabled[clientID] = true
	s.lastInputAt[clientID] = s.Clock.Now()

	s.GC.OnClientConnect(s.Root, clientID)

	if s.SendBootstrap != nil {
		hdr := wireproto.BootstrapHeader{
			NewClientID:      clientID,
			TickIDSnapshot:   s.Clock.IDCur(),
			FastForwardTicks: 0,
		}
		s.SendBootstrap(clientID, hdr, s.Root.SnapshotTx(nil))
	}
}

func (s *Server) onDisconnect(clientID uint32) {
	s.GC.OnClientDisconnect(s.Root, clientID)
	s.Rec.RemoveClient(diff.ClientID(clientID))
	delete(s.histories, clientID)
	delete(s.enabled, clientID)
	delete(s.timedOut, clientID)
	delete(s.lastInputAt, clientID)
}

// advanceConsensus implements spec §4.8: id_consensus advances by the
// smallest of (a) the distance left to target and (b) the smallest
// "inputs still owed" count across clients that aren't currently timed
// out. Timed-out clients contribute no bound (they don't block the
// frontier); a server with no clients advances straight to target.
func (s *Server) advanceConsensus(target tick.ID) {
	remaining := int64(target - s.Clock.IDConsensus())
	if remaining <= 0 {
		return
	}

	s.checkTimeouts()

	bound := remaining
	haveClient := false
	for id, h := range s.histories {
		if s.timedOut[id] {
			continue
		}
		haveClient = true
		owed := int64(h.Len() - 1)
		if owed < bound {
			bound = owed
		}
	}
	if !haveClient {
		bound = remaining
	}
	if bound < 0 {
		bound = 0
	}
	if bound > remaining {
		bound = remaining
	}

	s.Clock.SetIDConsensus(s.Clock.IDConsensus() + tick.ID(bound))
}

// checkTimeouts marks any client that has not delivered an input for
// id_consensus within INPUT_TOO_LATE as timed out, so advanceConsensus can
// cross it without waiting (spec §4.8, E3).
func (s *Server) checkTimeouts() {
	now := s.Clock.Now()
	for id, h := range s.histories {
		if s.timedOut[id] {
			continue
		}
		if h.Len() > 1 {
			continue
		}
		last, ok := s.lastInputAt[id]
		if !ok {
			last = now
			s.lastInputAt[id] = now
		}
		if now.Sub(last) >= s.cfg.InputTooLate() {
			s.timedOut[id] = true
			h.MarkTimedOut()
		}
	}
}

// simulateForward runs every tick from id_cur+1 through target, writing
// each client's (prev, cur) input pair into the state tree, invoking the
// game tick, resetting untracked fields, and draining per-client tx
// buffers (spec §4.7 step 6).
func (s *Server) simulateForward(target tick.ID) {
	for s.Clock.IDCur() < target {
		next := s.Clock.IDCur() + 1
		t := tick.Predicted
		if s.Clock.IDConsensus() >= next {
			t = tick.Consensus
		}

		s.Rec.RollbackBeginTick(t)
		for id := range s.enabled {
			s.Rec.TxBeginTick(diff.ClientID(id), t, s.enabled[id])
		}

		for id, h := range s.histories {
			in := s.inputForTick(h, id)
			if player, ok := s.Root.Players.Get(playerKey(id)); ok {
				player.SetInput(s.Rec, in)
			}
		}

		for id := range s.enabled {
			s.GC.SimulationTick(s.Root, id, true, t == tick.Consensus)
		}
		state.ResetUntrackedTree(s.Root)

		s.Rec.RollbackEndTick()
		for id := range s.enabled {
			inputAcked := false
			if h, ok := s.histories[id]; ok {
				inputAcked = h.Len() > 1
			}
			buf := s.Rec.TxEndTick(diff.ClientID(id))
			firstAck, offset := s.firstAckSample(id, t)
			s.sendFrame(id, wireproto.Frame{
				Type:         t,
				TickID:       next,
				InputAcked:   inputAcked,
				FirstAck:     firstAck,
				ServerOffset: offset,
				Ops:          buf,
			})
		}

		for _, h := range s.histories {
			if h.Len() > 1 {
				h.DropConsumed(1)
			}
		}

		s.Clock.SetIDCur(next)
	}
}

// inputForTick returns the input the current tick should apply for a
// client: the oldest buffered entry if the client is still within its
// acked window, or a predicted one when the history has underflowed to a
// single bogus entry.
func (s *Server) inputForTick(h *inputhist.Server, clientID uint32) state.Input {
	var in state.Input
	if h.Len() > 0 {
		in = decodeInputPayload(h.Entry(0).Input)
	}
	if h.Len() <= 1 {
		in = s.GC.PredictLateInput(in, s.Root, clientID)
	}
	s.GC.ValidateInput(&in)
	return in
}

// firstAckSample reports the calibration sample to attach to this tick's
// frame: present only the first time a Consensus tick is acked for a
// client (spec §4.8 wire format, E2).
func (s *Server) firstAckSample(clientID uint32, t tick.Type) (bool, int16) {
	if t != tick.Consensus {
		return false, 0
	}
	h, ok := s.histories[clientID]
	if !ok || h.Len() == 0 {
		return false, 0
	}
	e := h.Entry(0)
	if e.Ping == nil {
		return false, 0
	}
	return true, *e.Ping
}

func (s *Server) historyFor(clientID uint32) *inputhist.Server {
	h, ok := s.histories[clientID]
	if !ok {
		h = inputhist.NewServer()
		s.histories[clientID] = h
	}
	return h
}

func (s *Server) tooEarlyTicks() int64 {
	return int64(s.cfg.InputTooEarly() / s.cfg.SimDT())
}

func (s *Server) tooLateTicks() int64 {
	return int64(s.cfg.InputTooLate() / s.cfg.SimDT())
}

func (s *Server) countKick() {
	if s.metrics != nil {
		s.metrics.Ints.Get("clients.kicked_total").Add(1)
	}
}

func (s *Server) sendFrame(clientID uint32, f wireproto.Frame) {
	if s.SendFrame != nil {
		s.SendFrame(clientID, f)
	}
}

// Run drives the scheduler loop for the process lifetime (spec §4.7:
// "none. The loop runs for process lifetime"). Intended for cmd/ binaries;
// tests call RunTick directly instead.
func (s *Server) Run() {
	for {
		target := s.Clock.IDCur() + 1
		s.RunTick(target)
		if overran := s.Clock.SleepUntil(target); overran && s.log != nil {
			s.log.Warnw("tick overran deadline", "tick", target)
		}
	}
}
