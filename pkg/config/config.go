package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/transport"
)

// ConfigVersion is the current config file format version.
const ConfigVersion = 1

// AppConfig is the persisted application configuration.
type AppConfig struct {
	// Version is the config file format version.
	Version int `json:"version"`

	// ConnectType selects BLE or SPP for new connections.
	ConnectType transport.ConnectType `json:"connect_type"`

	// FragmentsSendDelayMS paces outbound fragments, in milliseconds.
	FragmentsSendDelayMS uint32 `json:"fragments_send_delay"`

	// PluginDir is where plugin directories live.
	PluginDir string `json:"plugin_dir"`

	// DisabledPlugins lists plugins that stay unloaded.
	DisabledPlugins []string `json:"disabled_plugins"`

	// CurrentDevice is the most recently connected device.
	CurrentDevice *device.Snapshot `json:"current_device,omitempty"`

	// PairedDevices lists every device paired so far.
	PairedDevices []device.Snapshot `json:"paired_devices"`

	// PluginConfigs holds each plugin's KV map.
	PluginConfigs map[string]map[string]string `json:"plugin_configs"`

	// AutoInstall installs queued resources as soon as a device connects.
	AutoInstall bool `json:"auto_install"`

	// DebugWindow opens the debug surface at startup.
	DebugWindow bool `json:"debug_window"`
}

// Default returns the default configuration.
func Default() AppConfig {
	return AppConfig{
		Version:              ConfigVersion,
		ConnectType:          transport.ConnectSPP,
		FragmentsSendDelayMS: 5,
		PluginDir:            "plugins",
		DisabledPlugins:      []string{},
		PairedDevices:        []device.Snapshot{},
		PluginConfigs:        map[string]map[string]string{},
		AutoInstall:          true,
	}
}

// Store manages the config file.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  AppConfig
}

// NewStore creates a store bound to path and loads the existing file, or
// defaults if none exists.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, cfg: Default()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, s.persist()
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Read calls f with the current config under a read lock.
func (s *Store) Read(f func(*AppConfig)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f(&s.cfg)
}

// Write calls f with the config under a write lock and persists the
// result.
func (s *Store) Write(f func(*AppConfig)) error {
	s.mu.Lock()
	f(&s.cfg)
	s.mu.Unlock()
	return s.persist()
}

// Snapshot returns a copy of the current config.
func (s *Store) Snapshot() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// RememberDevice records a connected device as current and paired.
func (s *Store) RememberDevice(snap device.Snapshot) error {
	return s.Write(func(c *AppConfig) {
		c.CurrentDevice = &snap
		for i, dev := range c.PairedDevices {
			if dev.Addr == snap.Addr {
				c.PairedDevices[i] = snap
				return
			}
		}
		c.PairedDevices = append(c.PairedDevices, snap)
	})
}

// PairedDevice looks up a paired device by address.
func (s *Store) PairedDevice(addr string) (device.Snapshot, bool) {
	var (
		snap  device.Snapshot
		found bool
	)
	s.Read(func(c *AppConfig) {
		for _, dev := range c.PairedDevices {
			if dev.Addr == addr {
				snap = dev
				found = true
				return
			}
		}
	})
	return snap, found
}

// PluginConfig returns a copy of one plugin's KV map.
func (s *Store) PluginConfig(name string) map[string]string {
	out := map[string]string{}
	s.Read(func(c *AppConfig) {
		for k, v := range c.PluginConfigs[name] {
			out[k] = v
		}
	})
	return out
}

// SetPluginConfig replaces one plugin's KV map.
func (s *Store) SetPluginConfig(name string, kv map[string]string) error {
	return s.Write(func(c *AppConfig) {
		if c.PluginConfigs == nil {
			c.PluginConfigs = map[string]map[string]string{}
		}
		c.PluginConfigs[name] = kv
	})
}

func (s *Store) persist() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(&s.cfg, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Merge deep-merges patch into dst: objects merge key by key, everything
// else is replaced.
func Merge(dst, patch map[string]any) {
	for k, v := range patch {
		if pm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				Merge(dm, pm)
				continue
			}
		}
		dst[k] = v
	}
}
