// Command netcode-debug runs the same server loop as netcode-server, with
// a live tcell dashboard over status.Registry in place of a headless
// process: tick count, consensus lag, event-queue depth, connected and
// kicked client counts, refreshed a few times a second for an operator
// watching a single box.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

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
	logPath    = flag.String("log", "", "log file path (defaults to a file so the dashboard owns the terminal)")
)

func main() {
	flag.Parse()
	if *logPath == "" {
		*logPath = "netcode-debug.log"
	}

	cfg, err := config.LoadFromEnv("NETCODE_CONFIG", *configPath)
	if err != nil {
		panic(err)
	}
	if *addr != "" {
		cfg.Transport.Address = *addr
	}

	log := netlog.New(netlog.Config{Path: *logPath, Level: "info", Console: false}, "debug")
	defer log.Sync()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tcell init failed: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "tcell init failed: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	core.SetCrashHandler(func(r any) {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
		log.Errorw("fatal panic, aborting", "panic", r)
		log.Sync()
		os.Exit(1)
	})

	metrics := status.NewRegistry()
	srv := sim.NewServer(demo.GameCode{}, cfg, log, metrics)

	tcfg := transport.DefaultConfig()
	tcfg.Role = transport.RoleServer
	tcfg.Address = cfg.Transport.Address
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

	var running atomic.Bool
	running.Store(true)
	core.Go(srv.Run)

	eventCh := make(chan tcell.Event, 16)
	go func() {
		for {
			eventCh <- screen.PollEvent()
		}
	}()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for running.Load() {
		select {
		case ev := <-eventCh:
			switch e := ev.(type) {
			case *tcell.EventKey:
				if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC ||
					(e.Key() == tcell.KeyRune && e.Rune() == 'q') {
					running.Store(false)
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			draw(screen, tcfg.Address, metrics, tr.ClientCount())
		}
	}

	tr.Stop()
}

// draw renders every registered metric, one per line. MetricMap.Range
// already iterates each type's keys in sorted order.
func draw(screen tcell.Screen, addr string, metrics *status.Registry, clients int) {
	screen.Clear()
	style := tcell.StyleDefault

	row := 0
	puts := func(s string) {
		for i, r := range s {
			screen.SetContent(i, row, r, nil, style)
		}
		row++
	}

	puts(fmt.Sprintf("netcode-debug — listening on %s — connected clients: %d", addr, clients))
	puts(fmt.Sprintf("%d metrics registered — press q / Esc / Ctrl-C to quit", metrics.TotalCount()))
	row++

	metrics.Ints.Range(func(key string, v *atomic.Int64) {
		puts(fmt.Sprintf("  %-28s %d", key, v.Load()))
	})
	metrics.Floats.Range(func(key string, v *status.AtomicFloat) {
		puts(fmt.Sprintf("  %-28s %.2f", key, v.Get()))
	})
	metrics.Bools.Range(func(key string, v *atomic.Bool) {
		puts(fmt.Sprintf("  %-28s %v", key, v.Load()))
	})
	metrics.Strings.Range(func(key string, v *status.AtomicString) {
		puts(fmt.Sprintf("  %-28s %s", key, v.Load()))
	})

	screen.Show()
}
