package transport

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/patrickmn/go-cache"

	"github.com/borgerland/netcode/wireproto"
)

var ErrMaxClients = errors.New("transport: max clients reached")

// session is the reconnect-grace record cached for a disconnected client:
// enough for the server to recognize a reconnecting socket as the same
// logical client rather than bootstrapping it from scratch.
type session struct {
	id ClientID
}

// PeerManager owns every connected Peer and the reconnect-grace cache of
// recently disconnected ones: a connection from the same remote address
// within the grace window gets its previous client id back. The connect
// callback fires for it exactly as for a new client, so it is not spared
// the bootstrap snapshot.
type PeerManager struct {
	mu     sync.RWMutex
	peers  map[ClientID]*Peer
	nextID atomic.Uint32
	config *Config

	grace *cache.Cache

	onConnect    func(ClientID)
	onDisconnect func(ClientID)
	onFrame      func(ClientID, wireproto.Frame)
	onBootstrap  func(ClientID, wireproto.BootstrapHeader, []byte)
}

func NewPeerManager(cfg *Config) *PeerManager {
	return &PeerManager{
		peers:  make(map[ClientID]*Peer),
		config: cfg,
		grace:  cache.New(cfg.ReconnectGrace, cfg.ReconnectGrace/2),
	}
}

func (pm *PeerManager) SetHandlers(onConnect, onDisconnect func(ClientID), onFrame func(ClientID, wireproto.Frame)) {
	pm.onConnect = onConnect
	pm.onDisconnect = onDisconnect
	pm.onFrame = onFrame
}

// SetBootstrapHandler wires the client-side callback invoked with the
// one-time snapshot read synchronously off a freshly dialed connection,
// before that connection's Peer (and its Frame-oriented readLoop) exists.
func (pm *PeerManager) SetBootstrapHandler(onBootstrap func(ClientID, wireproto.BootstrapHeader, []byte)) {
	pm.onBootstrap = onBootstrap
}

// SendBootstrap queues the one-time snapshot for a connected client,
// ahead of any already-queued per-tick Frame (spec §4.8).
func (pm *PeerManager) SendBootstrap(id ClientID, hdr wireproto.BootstrapHeader, body []byte) bool {
	pm.mu.RLock()
	peer, ok := pm.peers[id]
	pm.mu.RUnlock()
	if !ok {
		return false
	}
	return peer.SendBootstrap(hdr, body)
}

// AddConnection registers a new peer from a raw connection, optionally
// resuming a prior session if addr matches one still in the reconnect
// grace window. Server-role only: the id is this manager's own to assign.
func (pm *PeerManager) AddConnection(conn net.Conn) (ClientID, bool, error) {
	pm.mu.Lock()

	if len(pm.peers) >= pm.config.MaxClients {
		pm.mu.Unlock()
		conn.Close()
		return 0, false, ErrMaxClients
	}

	resumed := false
	// IDs start at 0 so the first-connected client's id lines up with the
	// slot-map key the demo game code's player store allocates it (spec
	// §9 "client owns that character" is a domain-specific equality check
	// between a slot key and a client id; see DESIGN.md).
	id := ClientID(pm.nextID.Add(1) - 1)
	if cached, ok := pm.grace.Get(conn.RemoteAddr().String()); ok {
		id = cached.(session).id
		pm.grace.Delete(conn.RemoteAddr().String())
		resumed = true
	}

	pm.registerPeer(id, conn)
	pm.mu.Unlock()
	pm.fireConnect(id)
	return id, resumed, nil
}

// AddClientConnection registers the single peer a client-role Transport
// dials, under the id the server assigned in its bootstrap header — unlike
// AddConnection, the id is not this manager's to choose.
func (pm *PeerManager) AddClientConnection(conn net.Conn, id ClientID) error {
	pm.mu.Lock()
	pm.registerPeer(id, conn)
	pm.mu.Unlock()
	pm.fireConnect(id)
	return nil
}

// registerPeer starts a peer's I/O loops. Caller holds pm.mu.
func (pm *PeerManager) registerPeer(id ClientID, conn net.Conn) {
	peer := newPeer(id, conn, pm.config)
	pm.peers[id] = peer

	go peer.readLoop(pm.handleFrame)
	go peer.writeLoop()
	go pm.monitorPeer(peer)
}

// fireConnect invokes onConnect with no lock held, so the callback is free
// to call back into pm (e.g. SendBootstrap) without deadlocking against
// registerPeer's own lock.
func (pm *PeerManager) fireConnect(id ClientID) {
	if pm.onConnect != nil {
		pm.onConnect(id)
	}
}

func (pm *PeerManager) handleFrame(id ClientID, f wireproto.Frame) {
	if pm.onFrame != nil {
		pm.onFrame(id, f)
	}
}

func (pm *PeerManager) monitorPeer(peer *Peer) {
	<-peer.closeCh

	pm.mu.Lock()
	delete(pm.peers, peer.ID)
	pm.grace.Set(peer.Addr, session{id: peer.ID}, cache.DefaultExpiration)
	pm.mu.Unlock()

	if pm.onDisconnect != nil {
		pm.onDisconnect(peer.ID)
	}
}

func (pm *PeerManager) Send(id ClientID, f wireproto.Frame) bool {
	pm.mu.RLock()
	peer, ok := pm.peers[id]
	pm.mu.RUnlock()
	if !ok {
		return false
	}
	return peer.Send(f)
}

func (pm *PeerManager) Broadcast(f wireproto.Frame) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	for _, peer := range pm.peers {
		peer.Send(f)
	}
}

// CloseClient forcibly disconnects id, e.g. after a policy kick (spec §7).
// The disconnect callback still fires normally, from monitorPeer.
func (pm *PeerManager) CloseClient(id ClientID) bool {
	pm.mu.RLock()
	peer, ok := pm.peers[id]
	pm.mu.RUnlock()
	if !ok {
		return false
	}
	peer.Close()
	return true
}

func (pm *PeerManager) GetPeer(id ClientID) (*Peer, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.peers[id]
	return p, ok
}

func (pm *PeerManager) ClientCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

func (pm *PeerManager) Close() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, peer := range pm.peers {
		peer.Close()
	}
	pm.peers = make(map[ClientID]*Peer)
}

func dial(addr string, cfg *Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	if cfg.TLS != nil {
		return tlsDial(dialer, addr, cfg)
	}
	return dialer.Dial("tcp", addr)
}
