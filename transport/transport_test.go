package transport

import (
	"testing"
	"time"

	"github.com/borgerland/netcode/tick"
	"github.com/borgerland/netcode/wireproto"
)

func TestServerClientRoundTrip(t *testing.T) {
	addr := "127.0.0.1:18217"
	serverCfg := DebugConfig(RoleServer, addr)
	clientCfg := DebugConfig(RoleClient, addr)

	server := NewTransport(serverCfg)
	received := make(chan wireproto.Frame, 1)
	var serverClient ClientID
	server.SetHandlers(func(id ClientID) {
		serverClient = id
		// A real connect-event hook would run later, on the sim thread;
		// here the test must still supply the snapshot every client
		// connection now blocks on before it can start reading frames.
		server.SendBootstrap(id, wireproto.BootstrapHeader{NewClientID: uint32(id)}, nil)
	}, nil, func(id ClientID, f wireproto.Frame) {
		received <- f
	})
	if err := server.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	defer server.Stop()

	client := NewTransport(clientCfg)
	connected := make(chan ClientID, 1)
	client.SetHandlers(func(id ClientID) { connected <- id }, nil, nil)
	if err := client.Start(); err != nil {
		t.Fatalf("client start: %v", err)
	}
	defer client.Stop()

	var clientID ClientID
	select {
	case clientID = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}

	frame := wireproto.Frame{Type: tick.Predicted, TickID: 5, Ops: []byte{1, 2, 3}}
	if !client.Send(clientID, frame) {
		t.Fatalf("client send failed")
	}

	select {
	case got := <-received:
		if got.TickID != 5 {
			t.Fatalf("got tick id %d, want 5", got.TickID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received frame")
	}
	_ = serverClient
}
