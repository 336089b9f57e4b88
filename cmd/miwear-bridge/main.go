// Command miwear-bridge is the reference bridge daemon.
//
// It wires the protocol core to a link dialer, persists configuration and
// paired devices, hosts plugins, and offers an interactive console:
//
//	miwear-bridge -state-dir ~/.local/share/miwear-bridge -interactive
//
// Flags:
//
//	-state-dir string    Directory for config, captures and plugins
//	-log-level string    debug, info, warn, error (default "info")
//	-protocol-log        Capture protocol events to <state-dir>/link.mlog
//	-interactive         Enable the interactive console
//	-emulated            Use the in-process emulated watch (development)
//	-debug               Debug build behavior (plugin debug permission)
//
// Real deployments provide a platform Bluetooth dialer; the -emulated
// flag exists so the whole stack can be driven without hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/miwear-protocol/miwear-go/cmd/miwear-bridge/interactive"
	"github.com/miwear-protocol/miwear-go/internal/testharness"
	"github.com/miwear-protocol/miwear-go/pkg/config"
	"github.com/miwear-protocol/miwear-go/pkg/frontapi"
	"github.com/miwear-protocol/miwear-go/pkg/log"
	"github.com/miwear-protocol/miwear-go/pkg/mass"
	"github.com/miwear-protocol/miwear-go/pkg/transport"
)

// version is stamped by the build.
var version = "dev"

func main() {
	var (
		stateDir        = flag.String("state-dir", defaultStateDir(), "directory for config, captures and plugins")
		logLevel        = flag.String("log-level", "info", "log level: debug, info, warn, error")
		protocolLog     = flag.Bool("protocol-log", false, "capture protocol events to link.mlog")
		interactiveMode = flag.Bool("interactive", false, "enable the interactive console")
		emulated        = flag.Bool("emulated", false, "use the in-process emulated watch")
		debugBuild      = flag.Bool("debug", false, "debug build behavior")
	)
	flag.Parse()

	setupLogging(*logLevel)

	if err := os.MkdirAll(*stateDir, 0755); err != nil {
		fatal("create state dir: %v", err)
	}

	store, err := config.NewStore(filepath.Join(*stateDir, "config.json"))
	if err != nil {
		fatal("load config: %v", err)
	}
	accounts, err := config.NewAccountStore(filepath.Join(*stateDir, "accounts.json"))
	if err != nil {
		fatal("load accounts: %v", err)
	}

	var protoLogger log.Logger = log.NoopLogger{}
	if *protocolLog {
		fl, err := log.NewFileLogger(filepath.Join(*stateDir, "link.mlog"))
		if err != nil {
			fatal("open protocol log: %v", err)
		}
		defer fl.Close()
		protoLogger = fl
	}

	var dialer frontapi.Dialer
	if *emulated {
		slog.Info("using emulated watch", "authkey", testharness.DefaultAuthKey)
		dialer = &emulatedDialer{}
	} else {
		fatal("no platform dialer built in; run with -emulated for development")
	}

	api := frontapi.New(frontapi.Options{
		Dialer:         dialer,
		Config:         store,
		Accounts:       accounts,
		Logger:         protoLogger,
		StateDir:       *stateDir,
		DebugBuild:     *debugBuild,
		RuntimeVersion: version,
		Events: frontapi.Events{
			OnNetworkSpeed: func(read, write float64) {
				slog.Debug("network speed", "read_bps", read, "write_bps", write)
			},
			OnDisconnect: func() {
				slog.Info("device disconnected")
			},
			OnInstallProgress: func(p mass.Progress) {
				slog.Info("install progress",
					"part", p.CurrentPart, "total", p.TotalParts,
					"pct", int(p.Progress*100))
			},
		},
	})
	defer api.Plugins().Close()

	pluginDir := filepath.Join(*stateDir, "plugins")
	store.Read(func(c *config.AppConfig) {
		if c.PluginDir != "" && filepath.IsAbs(c.PluginDir) {
			pluginDir = c.PluginDir
		}
	})
	if err := api.Plugins().LoadFromDir(pluginDir); err != nil {
		slog.Error("plugin load", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *interactiveMode {
		console, err := interactive.New(api)
		if err != nil {
			fatal("console: %v", err)
		}
		// Route log output through readline so the prompt survives.
		slog.SetDefault(slog.New(slog.NewTextHandler(console.Stdout(), nil)))
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("signal received", "sig", sig.String())
	case <-ctx.Done():
	}

	api.Disconnect()
	slog.Info("goodbye")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "miwear-bridge")
	}
	return "./miwear-bridge-state"
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// emulatedDialer spins up an in-process emulated watch per connection.
type emulatedDialer struct{}

func (d *emulatedDialer) Dial(ctx context.Context, addr string, connectType transport.ConnectType) (transport.Link, error) {
	w := testharness.NewDefault()
	return w.Link(), nil
}
