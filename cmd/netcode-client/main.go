// Command netcode-client dials a netcode-server, bootstraps from its
// snapshot, and drives sim.Client's tick loop against the demo game code.
// It has no presentation layer of its own (this corpus's rollback core is
// headless by design, see DESIGN.md's "Dropped teacher dependencies"): the
// input it submits each tick is a simple synthetic generator standing in
// for a real presentation thread's SubmitRawInput calls, and the snapshot
// it publishes is logged rather than rendered.
package main

import (
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/borgerland/netcode/config"
	"github.com/borgerland/netcode/core"
	"github.com/borgerland/netcode/demo"
	"github.com/borgerland/netcode/diff"
	"github.com/borgerland/netcode/netlog"
	"github.com/borgerland/netcode/sim"
	"github.com/borgerland/netcode/state"
	"github.com/borgerland/netcode/transport"
	"github.com/borgerland/netcode/wireproto"
)

var (
	configPath = flag.String("config", "", "path to a TOML tunables file (baked-in defaults if empty)")
	addr       = flag.String("addr", "127.0.0.1:7777", "server address to dial")
	logPath    = flag.String("log", "", "log file path (console only if empty)")
	logLevel   = flag.String("log-level", "info", "debug|info|warn|error")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadFromEnv("NETCODE_CONFIG", *configPath)
	if err != nil {
		panic(err)
	}

	log := netlog.New(netlog.Config{Path: *logPath, Level: *logLevel, Console: *logPath == ""}, "client")
	defer log.Sync()

	core.SetCrashHandler(func(r any) {
		log.Errorw("fatal panic, aborting", "panic", r)
		log.Sync()
		os.Exit(1)
	})

	tcfg := transport.DefaultConfig()
	tcfg.Role = transport.RoleClient
	tcfg.Address = *addr
	tr := transport.NewTransport(tcfg)

	// clientRef is nil until the bootstrap handler below constructs the
	// sim.Client; SetHandlers' onFrame can fire (on the I/O goroutine) as
	// soon as the connection registers, which races the bootstrap callback
	// completing. An atomic pointer lets onFrame simply drop a frame that
	// somehow wins that race rather than deref a half-built client.
	var clientRef atomic.Pointer[sim.Client]

	tr.SetHandlers(
		func(transport.ClientID) {},
		func(transport.ClientID) {
			log.Warnw("disconnected from server")
			os.Exit(1)
		},
		func(_ transport.ClientID, f wireproto.Frame) {
			if c := clientRef.Load(); c != nil {
				c.ReceiveFrame(f)
			}
		},
	)

	tr.SetBootstrapHandler(func(id transport.ClientID, hdr wireproto.BootstrapHeader, body []byte) {
		rec := diff.NewSerializer()
		root, _, err := state.LoadRootSnapshotTx(rec, body)
		if err != nil {
			log.Errorw("failed to load bootstrap snapshot", "err", err)
			os.Exit(1)
		}

		c := sim.NewClient(demo.GameCode{}, uint32(id), cfg, log, root, rec, hdr.TickIDSnapshot)
		c.SendInput = func(f wireproto.Frame) { tr.Send(id, f) }
		c.PublishSnapshot = func(s sim.Snapshot) {
			log.Debugw("snapshot", "tick", s.Time, "self", s.LocalClientID)
		}

		clientRef.Store(c)
		log.Infow("bootstrapped", "self_id", id, "tick", hdr.TickIDSnapshot)

		core.Go(func() { runInputGenerator(c, id) })
		core.Go(c.Run)
	})

	if err := tr.Start(); err != nil {
		log.Fatalw("connect failed", "err", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infow("shutting down")
	tr.Stop()
}

// runInputGenerator stands in for a presentation thread: it submits a
// gently wandering movement sample roughly every simulation tick, with an
// occasional Fire press, so a headless client still exercises prediction,
// reconciliation, and consensus-gated scoring end to end.
func runInputGenerator(c *sim.Client, selfID transport.ClientID) {
	rng := rand.New(rand.NewSource(int64(selfID) + 1))
	dir := state.Input{MoveX: 1}
	for {
		if rng.Intn(30) == 0 {
			dir.MoveX = int8(rng.Intn(3) - 1)
			dir.MoveY = int8(rng.Intn(3) - 1)
		}
		dir.Fire = rng.Intn(20) == 0
		c.SubmitRawInput(dir)
		time.Sleep(33 * time.Millisecond)
	}
}
