package transport

import (
	"crypto/tls"
	"net"
)

func tlsDial(dialer *net.Dialer, addr string, cfg *Config) (net.Conn, error) {
	return tls.DialWithDialer(dialer, "tcp", addr, cfg.TLS)
}
