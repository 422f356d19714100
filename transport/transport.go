// Package transport implements the client/server connection layer: framed
// wireproto.Frame I/O over TCP+TLS, adapted from the teacher's network
// package, plus a QUIC alternative (quictransport.go) and reconnect-grace
// session resumption via go-cache.
package transport

import (
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"

	"github.com/borgerland/netcode/snapshot"
	"github.com/borgerland/netcode/wireproto"
)

// Transport drives network I/O for one role: it listens and accepts
// (server) or dials once (client).
type Transport struct {
	config   *Config
	listener net.Listener
	peers    *PeerManager

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewTransport(cfg *Config) *Transport {
	return &Transport{
		config: cfg,
		peers:  NewPeerManager(cfg),
		stopCh: make(chan struct{}),
	}
}

func (t *Transport) SetHandlers(onConnect, onDisconnect func(ClientID), onFrame func(ClientID, wireproto.Frame)) {
	t.peers.SetHandlers(onConnect, onDisconnect, onFrame)
}

// SetBootstrapHandler wires the client-side one-time snapshot callback (see
// PeerManager.SetBootstrapHandler). A no-op on a server-role Transport.
func (t *Transport) SetBootstrapHandler(onBootstrap func(ClientID, wireproto.BootstrapHeader, []byte)) {
	t.peers.SetBootstrapHandler(onBootstrap)
}

// SendBootstrap queues the one-time snapshot for a connected client.
func (t *Transport) SendBootstrap(id ClientID, hdr wireproto.BootstrapHeader, body []byte) bool {
	return t.peers.SendBootstrap(id, hdr, body)
}

func (t *Transport) Start() error {
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}
	switch t.config.Role {
	case RoleServer:
		return t.startServer()
	case RoleClient:
		return t.startClient()
	default:
		return nil
	}
}

func (t *Transport) startServer() error {
	var ln net.Listener
	var err error
	if t.config.TLS != nil {
		ln, err = tls.Listen("tcp", t.config.Address, t.config.TLS)
	} else {
		ln, err = net.Listen("tcp", t.config.Address)
	}
	if err != nil {
		t.running.Store(false)
		return err
	}
	t.listener = ln

	t.wg.Add(1)
	go t.acceptLoop()
	return nil
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				continue
			}
		}
		t.peers.AddConnection(conn)
	}
}

// startClient dials, then reads exactly one bootstrap message synchronously
// off the raw connection before any Peer/readLoop exists — bootstrap and
// wireproto.Frame share no framing discriminator, so the two message kinds
// can only be told apart by this fixed connection-lifecycle ordering (spec
// §4.8: the snapshot always precedes the first per-tick diff).
func (t *Transport) startClient() error {
	conn, err := dial(t.config.Address, t.config)
	if err != nil {
		t.running.Store(false)
		return err
	}

	hdr, body, err := snapshot.Read(conn)
	if err != nil {
		conn.Close()
		t.running.Store(false)
		return err
	}

	id := ClientID(hdr.NewClientID)
	if err := t.peers.AddClientConnection(conn, id); err != nil {
		conn.Close()
		t.running.Store(false)
		return err
	}

	if t.peers.onBootstrap != nil {
		t.peers.onBootstrap(id, hdr, body)
	}
	return nil
}

func (t *Transport) Stop() error {
	if !t.running.CompareAndSwap(true, false) {
		return nil
	}
	close(t.stopCh)
	if t.listener != nil {
		t.listener.Close()
	}
	t.peers.Close()
	t.wg.Wait()
	return nil
}

func (t *Transport) Send(id ClientID, f wireproto.Frame) bool { return t.peers.Send(id, f) }
func (t *Transport) Broadcast(f wireproto.Frame)               { t.peers.Broadcast(f) }
func (t *Transport) ClientCount() int                          { return t.peers.ClientCount() }
func (t *Transport) IsRunning() bool                           { return t.running.Load() }
func (t *Transport) CloseClient(id ClientID) bool              { return t.peers.CloseClient(id) }
