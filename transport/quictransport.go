package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/borgerland/netcode/wireproto"
)

// QUICTransport is an alternative to Transport's TCP listener/dialer,
// using a single QUIC stream per client in place of a raw net.Conn. It
// implements the same framing (wireproto.Frame) over the stream, so
// PeerManager is unaware which carrier it is given.
type QUICTransport struct {
	config   *Config
	listener *quic.Listener
	peers    *PeerManager
}

func NewQUICTransport(cfg *Config) *QUICTransport {
	return &QUICTransport{config: cfg, peers: NewPeerManager(cfg)}
}

func (q *QUICTransport) SetHandlers(onConnect, onDisconnect func(ClientID), onFrame func(ClientID, wireproto.Frame)) {
	// quicStreamConn satisfies net.Conn, so PeerManager's ordinary
	// readLoop/writeLoop goroutines work unchanged over a QUIC stream.
	q.peers.SetHandlers(onConnect, onDisconnect, onFrame)
}

func (q *QUICTransport) SetBootstrapHandler(onBootstrap func(ClientID, wireproto.BootstrapHeader, []byte)) {
	q.peers.SetBootstrapHandler(onBootstrap)
}

func (q *QUICTransport) SendBootstrap(id ClientID, hdr wireproto.BootstrapHeader, body []byte) bool {
	return q.peers.SendBootstrap(id, hdr, body)
}

func (q *QUICTransport) ListenAndServe(ctx context.Context, tlsConf *tls.Config) error {
	ln, err := quic.ListenAddr(q.config.Address, tlsConf, nil)
	if err != nil {
		return err
	}
	q.listener = ln

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			return err
		}
		go q.acceptStreams(ctx, conn)
	}
}

func (q *QUICTransport) acceptStreams(ctx context.Context, conn *quic.Conn) {
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return
	}
	netConn := &quicStreamConn{Stream: stream, conn: conn}
	q.peers.AddConnection(netConn)
}

func (q *QUICTransport) Dial(ctx context.Context, tlsConf *tls.Config) (net.Conn, error) {
	conn, err := quic.DialAddr(ctx, q.config.Address, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &quicStreamConn{Stream: stream, conn: conn}, nil
}

// quicStreamConn adapts a quic.Stream (plus its parent quic.Conn, for
// address info) to the net.Conn shape Peer/PeerManager expect.
type quicStreamConn struct {
	*quic.Stream
	conn *quic.Conn
}

func (c *quicStreamConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *quicStreamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *quicStreamConn) SetDeadline(t time.Time) error {
	if err := c.Stream.SetReadDeadline(t); err != nil {
		return err
	}
	return c.Stream.SetWriteDeadline(t)
}
