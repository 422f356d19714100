// Command netcode-server runs the authoritative simulation server: it
// accepts connections over transport, drives sim.Server's tick loop against
// the demo game code, and keeps status.Registry updated for
// cmd/netcode-debug to read.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/borgerland/netcode/config"
	"github.com/borgerland/netcode/core"
	"github.com/borgerland/netcode/demo"
	"github.com/borgerland/netcode/netlog"
	"github.com/borgerland/netcode/sim"
	"github.com/borgerland/netcode/status"
	"github.com/borgerland/netcode/transport"
	"github.com/borgerland/netcode/wireproto"
)

var (
	configPath = flag.String("config", "", "path to a TOML tunables file (baked-in defaults if empty)")
	addr       = flag.String("addr", "", "listen address, overrides config's transport.address if set")
	logPath    = flag.String("log", "", "log file path (console only if empty)")
	logLevel   = flag.String("log-level", "info", "debug|info|warn|error")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadFromEnv("NETCODE_CONFIG", *configPath)
	if err != nil {
		panic(err)
	}
	if *addr != "" {
		cfg.Transport.Address = *addr
	}

	log := netlog.New(netlog.Config{Path: *logPath, Level: *logLevel, Console: *logPath == ""}, "server")
	defer log.Sync()

	core.SetCrashHandler(func(r any) {
		log.Errorw("fatal panic, aborting", "panic", r)
		log.Sync()
		os.Exit(1)
	})

	metrics := status.NewRegistry()
	srv := sim.NewServer(demo.GameCode{}, cfg, log, metrics)

	tcfg := transport.DefaultConfig()
	tcfg.Role = transport.RoleServer
	tcfg.Address = cfg.Transport.Address
	tcfg.MaxClients = cfg.Transport.MaxClients
	tcfg.InputRateLimit = cfg.Transport.InputRateLimit
	tcfg.InputRateBurst = cfg.Transport.InputRateBurst
	tcfg.ReconnectGrace = cfg.ReconnectGrace()

	tr := transport.NewTransport(tcfg)
	tr.SetHandlers(
		func(id transport.ClientID) { srv.Connect(uint32(id), nil) },
		func(id transport.ClientID) { srv.Disconnect(uint32(id)) },
		func(id transport.ClientID, f wireproto.Frame) { srv.SubmitInput(uint32(id), f.Ops) },
	)

	srv.SendFrame = func(clientID uint32, f wireproto.Frame) {
		tr.Send(transport.ClientID(clientID), f)
	}
	srv.SendBootstrap = func(clientID uint32, hdr wireproto.BootstrapHeader, body []byte) {
		tr.SendBootstrap(transport.ClientID(clientID), hdr, body)
	}
	srv.Kick = func(clientID uint32, reason string) {
		log.Warnw("kicking client", "client", clientID, "reason", reason)
		tr.CloseClient(transport.ClientID(clientID))
	}

	if err := tr.Start(); err != nil {
		log.Fatalw("transport start failed", "err", err)
	}
	log.Infow("server listening", "addr", tcfg.Address)

	core.Go(srv.Run)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infow("shutting down")
	tr.Stop()
}
