// Package interactive provides the interactive command-line interface for
// the bridge daemon.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/miwear-protocol/miwear-go/pkg/frontapi"
	"github.com/miwear-protocol/miwear-go/pkg/resource"
)

// commandTimeout bounds each interactive protocol call.
const commandTimeout = 30 * time.Second

// installTimeout bounds interactive installs (large transfers).
const installTimeout = 15 * time.Minute

// Console handles interactive mode for miwear-bridge.
type Console struct {
	api *frontapi.API
	rl  *readline.Instance
}

// New creates the console with history and completion.
func New(api *frontapi.API) (*Console, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("connect"),
		readline.PcItem("auth"),
		readline.PcItem("disconnect"),
		readline.PcItem("status"),
		readline.PcItem("info"),
		readline.PcItem("watchfaces"),
		readline.PcItem("watchface-set"),
		readline.PcItem("watchface-del"),
		readline.PcItem("install-watchface"),
		readline.PcItem("apps"),
		readline.PcItem("install-app"),
		readline.PcItem("install-firmware"),
		readline.PcItem("plugins"),
		readline.PcItem("plugin-enable"),
		readline.PcItem("plugin-disable"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "miwear> ",
		HistoryFile:     "/tmp/miwear-bridge.history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, err
	}
	return &Console{api: api, rl: rl}, nil
}

// Stdout returns the readline-managed writer; route log output through it
// so background lines do not mangle the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			cancel()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect":
			c.cmdConnect(ctx, args)

		case "auth":
			c.cmdAuth(ctx, args)

		case "disconnect":
			c.api.Disconnect()
			c.printf("disconnected")

		case "status":
			c.cmdStatus(ctx)

		case "info":
			c.cmdInfo(ctx)

		case "watchfaces":
			c.cmdWatchfaces(ctx)

		case "watchface-set":
			c.cmdWatchfaceSet(ctx, args)

		case "watchface-del":
			c.cmdWatchfaceDel(ctx, args)

		case "install-watchface":
			c.cmdInstallWatchface(args)

		case "apps":
			c.cmdApps(ctx)

		case "install-app":
			c.cmdInstallApp(args)

		case "install-firmware":
			c.cmdInstallFirmware(args)

		case "plugins":
			c.cmdPlugins()

		case "plugin-enable":
			c.cmdPluginToggle(args, true)

		case "plugin-disable":
			c.cmdPluginToggle(args, false)

		case "quit", "exit", "q":
			cancel()
			return

		default:
			c.printf("unknown command %q (try: help)", cmd)
		}
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.rl.Stdout(), format+"\n", args...)
}

func (c *Console) printHelp() {
	c.printf(`Commands:
  connect <addr> [name]          connect to a device
  auth <32-hex-key>              run the pairing handshake
  disconnect                     tear the link down
  status                         battery status
  info                           model / serial / firmware
  watchfaces                     list installed watchfaces
  watchface-set <id>             make a watchface current
  watchface-del <id>             uninstall a watchface
  install-watchface <file>       push a watchface
  apps                           list installed mini-apps
  install-app <file> <pkg> <ver> push a mini-app
  install-firmware <file> <ver>  push a firmware image
  plugins                        list plugins
  plugin-enable <name>           enable a plugin
  plugin-disable <name>          disable a plugin
  quit                           exit`)
}

func (c *Console) cmdConnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		c.printf("usage: connect <addr> [name]")
		return
	}
	name := ""
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	dev, err := c.api.Connect(cctx, args[0], name)
	if err != nil {
		c.printf("connect failed: %v", err)
		return
	}
	c.printf("connected to %s (%s)", dev.State().Name(), dev.State().Addr())
}

func (c *Console) cmdAuth(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.printf("usage: auth <32-hex-key>")
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := c.api.Auth(cctx, args[0]); err != nil {
		c.printf("auth failed: %v", err)
		return
	}
	c.printf("authenticated")
}

func (c *Console) cmdStatus(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	st, err := c.api.DeviceStatus(cctx)
	if err != nil {
		c.printf("status failed: %v", err)
		return
	}
	c.printf("battery: %d%% (%s)", st.Capacity, st.ChargeStatus)
}

func (c *Console) cmdInfo(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	info, err := c.api.DeviceInfo(cctx)
	if err != nil {
		c.printf("info failed: %v", err)
		return
	}
	c.printf("model: %s  serial: %s  firmware: %s", info.Model, info.SerialNumber, info.FirmwareVersion)
}

func (c *Console) cmdWatchfaces(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	list, err := c.api.WatchfaceList(cctx)
	if err != nil {
		c.printf("list failed: %v", err)
		return
	}
	for _, wf := range list {
		marker := " "
		if wf.IsCurrent {
			marker = "*"
		}
		c.printf("%s %-20s %s", marker, wf.ID, wf.Name)
	}
	c.printf("%d watchface(s)", len(list))
}

func (c *Console) cmdWatchfaceSet(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.printf("usage: watchface-set <id>")
		return
	}
	dev := c.api.Slot().Get()
	if dev == nil {
		c.printf("no device connected")
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := resource.SetWatchface(cctx, dev, args[0]); err != nil {
		c.printf("set failed: %v", err)
	}
}

func (c *Console) cmdWatchfaceDel(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.printf("usage: watchface-del <id>")
		return
	}
	dev := c.api.Slot().Get()
	if dev == nil {
		c.printf("no device connected")
		return
	}
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := resource.UninstallWatchface(cctx, dev, args[0]); err != nil {
		c.printf("uninstall failed: %v", err)
	}
}

func (c *Console) cmdInstallWatchface(args []string) {
	if len(args) != 1 {
		c.printf("usage: install-watchface <file>")
		return
	}
	cctx, cancel := context.WithTimeout(context.Background(), installTimeout)
	defer cancel()
	if err := c.api.InstallWatchface(cctx, args[0]); err != nil {
		c.printf("install failed: %v", err)
		return
	}
	c.printf("watchface installed")
}

func (c *Console) cmdApps(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	list, err := c.api.AppList(cctx)
	if err != nil {
		c.printf("list failed: %v", err)
		return
	}
	for _, app := range list {
		c.printf("  %-30s v%d %s", app.PackageName, app.VersionCode, app.AppName)
	}
	c.printf("%d app(s)", len(list))
}

func (c *Console) cmdInstallApp(args []string) {
	if len(args) != 3 {
		c.printf("usage: install-app <file> <package> <version-code>")
		return
	}
	ver, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		c.printf("bad version code: %v", err)
		return
	}
	cctx, cancel := context.WithTimeout(context.Background(), installTimeout)
	defer cancel()
	if err := c.api.InstallApp(cctx, args[0], args[1], uint32(ver)); err != nil {
		c.printf("install failed: %v", err)
		return
	}
	c.printf("app installed")
}

func (c *Console) cmdInstallFirmware(args []string) {
	if len(args) != 2 {
		c.printf("usage: install-firmware <file> <version>")
		return
	}
	cctx, cancel := context.WithTimeout(context.Background(), installTimeout)
	defer cancel()
	opts := resource.FirmwareOptions{Version: args[1], ChangeLog: "Bridge Update"}
	if err := c.api.InstallFirmware(cctx, args[0], opts); err != nil {
		c.printf("install failed: %v", err)
		return
	}
	c.printf("firmware transferred; the device continues on its own")
}

func (c *Console) cmdPlugins() {
	for _, m := range c.api.Plugins().List() {
		c.printf("  %-20s v%-8s %s", m.Name, m.Version, m.Description)
	}
}

func (c *Console) cmdPluginToggle(args []string, enable bool) {
	if len(args) != 1 {
		c.printf("usage: plugin-%s <name>", map[bool]string{true: "enable", false: "disable"}[enable])
		return
	}
	var err error
	if enable {
		err = c.api.Plugins().Enable(args[0])
	} else {
		err = c.api.Plugins().Disable(args[0])
	}
	if err != nil {
		c.printf("failed: %v", err)
	}
}
