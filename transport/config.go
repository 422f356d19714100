package transport

import (
	"crypto/tls"
	"time"
)

// Role determines which side of the connection this endpoint plays.
type Role uint8

const (
	RoleNone   Role = iota // transport disabled (local-only simulation)
	RoleClient             // dials the server
	RoleServer             // accepts client connections
)

// Config holds transport configuration, adapted from the teacher's
// network.Config but trimmed to the client/server topology spec §4.8/§4.9
// actually uses (no peer-to-peer host/join roles).
type Config struct {
	Role Role

	// Address to bind (server) or dial (client).
	Address string

	// TLS configuration. nil is plaintext, for local debug only; a real
	// deployment must set this.
	TLS *tls.Config

	MaxClients int

	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	DisconnectTimeout time.Duration

	SendQueueSize int

	// InputRateLimit and InputRateBurst configure the per-client token
	// bucket (golang.org/x/time/rate) that polices inbound input frames,
	// rejecting a client that floods faster than the tick rate allows.
	InputRateLimit float64
	InputRateBurst int

	// ReconnectGrace is how long a disconnected client's id stays cached
	// (via github.com/patrickmn/go-cache) for a reconnect from the same
	// remote address; after that a reconnect gets a fresh id.
	ReconnectGrace time.Duration
}

// DefaultConfig returns the default settings, with TLS left nil
// (plaintext).
func DefaultConfig() *Config {
	return &Config{
		Role:              RoleNone,
		Address:           ":7777",
		TLS:               nil,
		MaxClients:        64,
		ConnectTimeout:    5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Second,
		DisconnectTimeout: 30 * time.Second,
		SendQueueSize:     256,
		InputRateLimit:    120,
		InputRateBurst:    30,
		ReconnectGrace:    60 * time.Second,
	}
}

// DebugConfig returns a config with TLS disabled for local testing.
func DebugConfig(role Role, addr string) *Config {
	cfg := DefaultConfig()
	cfg.Role = role
	cfg.Address = addr
	return cfg
}
