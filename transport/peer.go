package transport

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/borgerland/netcode/snapshot"
	"github.com/borgerland/netcode/wireproto"
)

// ClientID identifies a connected client for the lifetime of its session.
type ClientID uint32

// ConnState is a peer's connection lifecycle stage.
type ConnState uint8

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

// Peer is one connected client's transport-level session: framed I/O plus
// the rate limiter that polices its inbound traffic (spec §4.8 input
// arrival window policing starts here, at the transport boundary).
type Peer struct {
	ID       ClientID
	Addr     string
	State    atomic.Uint32
	LastSeen atomic.Int64

	limiter *rate.Limiter

	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	sendCh      chan wireproto.Frame
	bootstrapCh chan bootstrapMsg
	closeCh     chan struct{}
	closeOnce   sync.Once
}

// bootstrapMsg is the one-time snapshot payload queued ahead of any
// wireproto.Frame (spec §4.8: a newly connected client must see its
// snapshot before the first per-tick diff it's meant to apply against).
type bootstrapMsg struct {
	hdr  wireproto.BootstrapHeader
	body []byte
}

func newPeer(id ClientID, conn net.Conn, cfg *Config) *Peer {
	p := &Peer{
		ID:      id,
		Addr:    conn.RemoteAddr().String(),
		limiter: rate.NewLimiter(rate.Limit(cfg.InputRateLimit), cfg.InputRateBurst),
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, 64*1024),
		writer:  bufio.NewWriterSize(conn, 64*1024),
		sendCh:      make(chan wireproto.Frame, cfg.SendQueueSize),
		bootstrapCh: make(chan bootstrapMsg, 1),
		closeCh:     make(chan struct{}),
	}
	p.State.Store(uint32(StateConnected))
	p.LastSeen.Store(time.Now().UnixNano())
	return p
}

// Send queues a frame for transmission. Returns false if the peer is gone
// or its outbound queue is saturated.
func (p *Peer) Send(f wireproto.Frame) bool {
	if ConnState(p.State.Load()) != StateConnected {
		return false
	}
	select {
	case p.sendCh <- f:
		return true
	default:
		return false
	}
}

// Allow reports whether the next inbound frame from this peer is within
// its input rate budget.
func (p *Peer) Allow() bool {
	return p.limiter.Allow()
}

// SendBootstrap queues the one-time snapshot payload, drained by writeLoop
// ahead of any already-queued Frame (see bootstrapCh's priority in
// writeLoop). Returns false if the peer is gone.
func (p *Peer) SendBootstrap(hdr wireproto.BootstrapHeader, body []byte) bool {
	if ConnState(p.State.Load()) != StateConnected {
		return false
	}
	select {
	case p.bootstrapCh <- bootstrapMsg{hdr: hdr, body: body}:
		return true
	default:
		return false
	}
}

// Close initiates graceful shutdown. Safe to call more than once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.State.Store(uint32(StateDisconnecting))
		close(p.closeCh)
		p.conn.Close()
	})
}

func (p *Peer) readLoop(handler func(ClientID, wireproto.Frame)) {
	defer p.Close()
	for {
		select {
		case <-p.closeCh:
			return
		default:
		}

		f, err := wireproto.Read(p.reader)
		if err != nil {
			return
		}
		p.LastSeen.Store(time.Now().UnixNano())
		if !p.Allow() {
			continue
		}
		handler(p.ID, f)
	}
}

func (p *Peer) writeLoop() {
	defer p.Close()
	for {
		// Bootstrap, if one is queued, always goes out before the next
		// per-tick frame: a non-blocking drain here beats the fairness a
		// plain multi-case select would give sendCh.
		select {
		case <-p.closeCh:
			return
		case m := <-p.bootstrapCh:
			if !p.writeBootstrap(m) {
				return
			}
			continue
		default:
		}

		select {
		case <-p.closeCh:
			return
		case m := <-p.bootstrapCh:
			if !p.writeBootstrap(m) {
				return
			}
		case f := <-p.sendCh:
			if err := wireproto.Write(p.writer, f); err != nil {
				return
			}
			if err := p.writer.Flush(); err != nil {
				return
			}
		}
	}
}

func (p *Peer) writeBootstrap(m bootstrapMsg) bool {
	if err := snapshot.Write(p.writer, uint32(p.ID), m.hdr.TickIDSnapshot, m.hdr.FastForwardTicks, m.body); err != nil {
		return false
	}
	return p.writer.Flush() == nil
}
