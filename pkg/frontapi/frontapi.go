package frontapi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/config"
	"github.com/miwear-protocol/miwear-go/pkg/connection"
	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/log"
	"github.com/miwear-protocol/miwear-go/pkg/mass"
	"github.com/miwear-protocol/miwear-go/pkg/netbridge"
	"github.com/miwear-protocol/miwear-go/pkg/plugin"
	"github.com/miwear-protocol/miwear-go/pkg/resource"
	"github.com/miwear-protocol/miwear-go/pkg/session"
	"github.com/miwear-protocol/miwear-go/pkg/transport"
)

// Facade errors.
var (
	// ErrNoDevice indicates no device is connected.
	ErrNoDevice = errors.New("no devices are connected")
)

// Dialer establishes physical links; provided by the platform layer.
type Dialer interface {
	Dial(ctx context.Context, addr string, connectType transport.ConnectType) (transport.Link, error)
}

// Events are the callbacks the shell subscribes to.
type Events struct {
	// OnNetworkSpeed receives one bandwidth snapshot per second.
	OnNetworkSpeed func(readBps, writeBps float64)

	// OnDisconnect fires when the connected device goes away.
	OnDisconnect func()

	// OnInstallProgress receives mass transfer progress.
	OnInstallProgress func(p mass.Progress)
}

// Options configures the facade.
type Options struct {
	Dialer   Dialer
	Config   *config.Store
	Accounts *config.AccountStore
	Logger   log.Logger
	Events   Events

	// StateDir holds capture files and plugin data.
	StateDir string

	// DebugBuild is forwarded to the plugin host.
	DebugBuild bool

	// RuntimeVersion is the app version exposed to plugins.
	RuntimeVersion string

	// FilePicker shows the shell's file dialog for plugins.
	FilePicker func() (string, error)
}

// API is the command surface.
type API struct {
	opts Options

	slot      *device.Slot
	reconnect *connection.Manager

	mu         sync.Mutex
	bridge     *netbridge.Bridge
	apps       *resource.AppManager
	plugins    *plugin.Manager
	targetAddr string
	targetName string
}

// New builds the facade and its plugin host.
func New(opts Options) *API {
	a := &API{opts: opts, slot: device.NewSlot()}

	// The reconnect manager re-dials the remembered target with backoff.
	// Off by default; the shell opts in with SetAutoReconnect.
	a.reconnect = connection.NewManager(a.dialTarget)
	a.reconnect.SetAutoReconnect(false)
	a.reconnect.StartReconnectLoop()

	a.slot.OnDisconnect(func() {
		a.reconnect.NotifyConnectionLost()
		if opts.Events.OnDisconnect != nil {
			opts.Events.OnDisconnect()
		}
	})

	a.plugins = plugin.NewManager(plugin.Host{
		RuntimeVersion: opts.RuntimeVersion,
		DebugBuild:     opts.DebugBuild,
		Config:         opts.Config,
		Devices:        a.slot,
		PickFile:       opts.FilePicker,
		QueueInstall:   a.queueInstall,
		SendQAIC:       a.sendQAIC,
		LaunchQA:       a.launchQA,
		ThirdPartyAppList: func() ([]resource.AppInfo, error) {
			return a.AppList(context.Background())
		},
		SendRaw: a.sendRaw,
	})
	return a
}

// Plugins exposes the plugin manager to the shell.
func (a *API) Plugins() *plugin.Manager {
	return a.plugins
}

// Slot exposes the connected-device slot.
func (a *API) Slot() *device.Slot {
	return a.slot
}

// SetAutoReconnect toggles backoff re-dialing of the last target after a
// link loss.
func (a *API) SetAutoReconnect(enabled bool) {
	a.reconnect.SetAutoReconnect(enabled)
}

// Connect dials a device, runs the hello exchange and starts the network
// bridge. The target is remembered for auto-reconnect.
func (a *API) Connect(ctx context.Context, addr, name string) (*device.Device, error) {
	a.mu.Lock()
	a.targetAddr, a.targetName = addr, name
	a.mu.Unlock()

	if err := a.reconnect.Connect(ctx); err != nil {
		return nil, err
	}
	dev := a.slot.Get()
	if dev == nil {
		return nil, ErrNoDevice
	}
	return dev, nil
}

// dialTarget is the reconnect manager's connect function.
func (a *API) dialTarget(ctx context.Context) error {
	a.mu.Lock()
	addr, name := a.targetAddr, a.targetName
	a.mu.Unlock()
	if addr == "" {
		return ErrNoDevice
	}
	_, err := a.connect(ctx, addr, name)
	return err
}

// connect performs one dial attempt.
func (a *API) connect(ctx context.Context, addr, name string) (*device.Device, error) {
	if a.opts.Dialer == nil {
		return nil, fmt.Errorf("no dialer configured")
	}

	var connectType transport.ConnectType
	var delay time.Duration = session.DefaultFragmentDelay
	if a.opts.Config != nil {
		a.opts.Config.Read(func(c *config.AppConfig) {
			connectType = c.ConnectType
			delay = time.Duration(c.FragmentsSendDelayMS) * time.Millisecond
		})
	}

	link, err := a.opts.Dialer.Dial(ctx, addr, connectType)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}

	cfg := device.DefaultConfig()
	cfg.FragmentDelay = delay
	cfg.Logger = a.opts.Logger
	if a.opts.Config != nil {
		if snap, ok := a.opts.Config.PairedDevice(addr); ok {
			cfg.NetworkMTU = snap.NetworkMTU
		}
	}

	dev := device.New(link, cfg)
	if err := a.slot.Set(dev); err != nil {
		_ = dev.Disconnect()
		return nil, err
	}

	if err := dev.StartHello(ctx); err != nil {
		a.slot.Drop()
		return nil, err
	}

	bridge, err := a.startBridge(dev)
	if err != nil {
		a.slot.Drop()
		return nil, err
	}

	apps := resource.NewAppManager(dev)
	// Mini-app pushes surface to plugins as per-package events.
	apps.OnQAICMessage(func(pkg string, data []byte) {
		go func() {
			_ = a.plugins.EmitEvent("onQAICMessage_"+pkg, string(data))
		}()
	})

	a.mu.Lock()
	a.bridge = bridge
	a.apps = apps
	a.mu.Unlock()

	if a.opts.Config != nil {
		_ = a.opts.Config.RememberDevice(dev.State().Snapshot())
	}
	return dev, nil
}

// startBridge opens the capture file and wires the tunnel.
func (a *API) startBridge(dev *device.Device) (*netbridge.Bridge, error) {
	var capture *netbridge.Capture
	if a.opts.StateDir != "" {
		dir := filepath.Join(a.opts.StateDir, "captures")
		if err := os.MkdirAll(dir, 0755); err == nil {
			name := strings.ReplaceAll(dev.State().Addr(), ":", "") +
				"-" + time.Now().Format("20060102-150405") + ".pcap"
			if f, err := os.Create(filepath.Join(dir, name)); err == nil {
				capture, _ = netbridge.NewCapture(f)
			}
		}
	}

	return netbridge.Start(dev, netbridge.Config{
		Capture: capture,
		Logger:  a.opts.Logger,
		OnSpeed: a.opts.Events.OnNetworkSpeed,
	})
}

// Disconnect tears down the connected device deliberately: auto-reconnect
// is switched off so the drop is not treated as a link loss.
func (a *API) Disconnect() {
	a.reconnect.SetAutoReconnect(false)

	a.mu.Lock()
	bridge := a.bridge
	a.bridge = nil
	a.apps = nil
	a.mu.Unlock()

	if bridge != nil {
		bridge.Close()
	}
	a.slot.Drop()
}

// Auth runs the pairing handshake and persists the auth key on success.
func (a *API) Auth(ctx context.Context, authKeyHex string) error {
	dev := a.slot.Get()
	if dev == nil {
		return ErrNoDevice
	}
	if err := dev.StartAuth(ctx, authKeyHex); err != nil {
		return err
	}
	if a.opts.Config != nil {
		_ = a.opts.Config.RememberDevice(dev.State().Snapshot())
	}
	return nil
}

// DeviceInfo fetches the device identity block and caches the codename.
func (a *API) DeviceInfo(ctx context.Context) (*device.Info, error) {
	dev := a.slot.Get()
	if dev == nil {
		return nil, ErrNoDevice
	}
	info, err := dev.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	if dev.State().Codename() == "" && info.Model != "" {
		dev.State().SetCodename(info.Model)
		if a.opts.Config != nil {
			_ = a.opts.Config.RememberDevice(dev.State().Snapshot())
		}
	}
	return info, nil
}

// DeviceStatus fetches the battery status.
func (a *API) DeviceStatus(ctx context.Context) (*device.Status, error) {
	dev := a.slot.Get()
	if dev == nil {
		return nil, ErrNoDevice
	}
	return dev.GetStatus(ctx)
}

// InstallWatchface installs a watchface file.
func (a *API) InstallWatchface(ctx context.Context, path string) error {
	dev := a.slot.Get()
	if dev == nil {
		return ErrNoDevice
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if kind := resource.SniffKind(data, ext(path)); kind != resource.KindWatchface {
		return fmt.Errorf("%s is not a watchface file (detected %s)", path, kind)
	}
	return resource.InstallWatchface(ctx, dev, data, nil, resource.WatchfaceID(data), a.progress())
}

// InstallApp installs a mini-app package.
func (a *API) InstallApp(ctx context.Context, path, packageName string, versionCode uint32) error {
	dev := a.slot.Get()
	if dev == nil {
		return ErrNoDevice
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return resource.InstallApp(ctx, dev, data, packageName, versionCode, a.progress())
}

// InstallFirmware installs a firmware image.
func (a *API) InstallFirmware(ctx context.Context, path string, opts resource.FirmwareOptions) error {
	dev := a.slot.Get()
	if dev == nil {
		return ErrNoDevice
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return resource.InstallFirmware(ctx, dev, data, opts, a.progress())
}

// WatchfaceList fetches installed watchfaces.
func (a *API) WatchfaceList(ctx context.Context) ([]resource.WatchfaceInfo, error) {
	dev := a.slot.Get()
	if dev == nil {
		return nil, ErrNoDevice
	}
	return resource.GetWatchfaceList(ctx, dev)
}

// AppList fetches installed mini-apps.
func (a *API) AppList(ctx context.Context) ([]resource.AppInfo, error) {
	dev := a.slot.Get()
	if dev == nil {
		return nil, ErrNoDevice
	}
	return resource.GetAppList(ctx, dev)
}

// progress adapts the shell's progress callback.
func (a *API) progress() mass.ProgressFunc {
	if a.opts.Events.OnInstallProgress == nil {
		return nil
	}
	return a.opts.Events.OnInstallProgress
}

// queueInstall serves the plugin installer namespace.
func (a *API) queueInstall(kind plugin.InstallKind, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch kind {
	case plugin.InstallWatchFace:
		return a.InstallWatchface(ctx, path)
	case plugin.InstallThirdPartyApp:
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		dev := a.slot.Get()
		if dev == nil {
			return ErrNoDevice
		}
		pkg := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return resource.InstallApp(ctx, dev, data, pkg, 1, a.progress())
	case plugin.InstallFirmware:
		return a.InstallFirmware(ctx, path, resource.FirmwareOptions{Version: "9.9.9", ChangeLog: "Bridge Update"})
	default:
		return fmt.Errorf("unknown install kind %q", kind)
	}
}

// sendQAIC serves the plugin interconnect namespace.
func (a *API) sendQAIC(packageName string, data []byte) error {
	a.mu.Lock()
	apps := a.apps
	a.mu.Unlock()
	if apps == nil {
		return ErrNoDevice
	}
	ctx, cancel := context.WithTimeout(context.Background(), device.DefaultRequestTimeout)
	defer cancel()
	return apps.SendQAICMessage(ctx, packageName, data)
}

// launchQA serves the plugin thirdpartyapp namespace.
func (a *API) launchQA(app resource.AppInfo, page string) error {
	dev := a.slot.Get()
	if dev == nil {
		return ErrNoDevice
	}
	ctx, cancel := context.WithTimeout(context.Background(), device.DefaultRequestTimeout)
	defer cancel()
	return resource.LaunchApp(ctx, dev, app, page)
}

// sendRaw serves the plugin debug namespace.
func (a *API) sendRaw(data []byte) error {
	dev := a.slot.Get()
	if dev == nil {
		return ErrNoDevice
	}
	ctx, cancel := context.WithTimeout(context.Background(), device.DefaultRequestTimeout)
	defer cancel()
	return dev.SendRawFrame(ctx, data)
}

func ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
