package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/miwear-protocol/miwear-go/pkg/config"
)

// Manager owns every plugin context on one worker goroutine.
type Manager struct {
	host Host

	// cmds carries work onto the worker goroutine.
	cmds chan func()

	// plugins is touched only on the worker.
	plugins map[string]*Plugin

	stop chan struct{}
	done chan struct{}
}

// NewManager starts the plugin worker.
func NewManager(host Host) *Manager {
	m := &Manager{
		host:    host,
		cmds:    make(chan func(), 64),
		plugins: make(map[string]*Plugin),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			for _, p := range m.plugins {
				p.teardown()
			}
			return
		case f := <-m.cmds:
			f()
		}
	}
}

// Do runs f on the worker goroutine and waits for it.
//
// Code already running on the worker (API implementations, timer
// dispatch) must not call Do; it holds the registry directly.
func (m *Manager) Do(f func()) error {
	doneCh := make(chan struct{})
	select {
	case m.cmds <- func() { f(); close(doneCh) }:
	case <-m.stop:
		return ErrManagerClosed
	}
	select {
	case <-doneCh:
		return nil
	case <-m.done:
		return ErrManagerClosed
	}
}

// Close stops the worker and tears every plugin down.
func (m *Manager) Close() {
	select {
	case <-m.stop:
		return
	default:
	}
	close(m.stop)
	<-m.done
}

// LoadFromDir loads every plugin directory under dir.
// Individual plugin failures are logged and skipped.
func (m *Manager) LoadFromDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	return m.Do(func() {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if err := m.add(filepath.Join(dir, entry.Name())); err != nil {
				slog.Error("plugin load failed", "dir", entry.Name(), "err", err)
			}
		}
	})
}

// Add loads one plugin directory.
func (m *Manager) Add(dir string) error {
	var loadErr error
	err := m.Do(func() { loadErr = m.add(dir) })
	if err != nil {
		return err
	}
	return loadErr
}

// add loads a plugin on the worker.
func (m *Manager) add(dir string) error {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return err
	}

	disabled := false
	for _, name := range m.disabledPlugins() {
		if name == manifest.Name {
			disabled = true
			break
		}
	}

	p := &Plugin{Manifest: manifest, Dir: dir, Disabled: disabled}
	m.plugins[manifest.Name] = p

	if !disabled {
		if err := m.bootPlugin(p); err != nil {
			return err
		}
	}
	return nil
}

// bootPlugin builds the context and runs the entry script.
func (m *Manager) bootPlugin(p *Plugin) error {
	p.rt = goja.New()
	p.rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	p.env = newEnvData()

	if err := m.injectGlobals(p); err != nil {
		return err
	}
	m.registerConsole(p)
	m.registerTimers(p)
	if err := m.registerAPIs(p); err != nil {
		return err
	}
	return p.runEntry()
}

// injectGlobals installs the runtime identity globals.
func (m *Manager) injectGlobals(p *Plugin) error {
	globals := map[string]any{
		"RUNTIME":         "AstroBox",
		"RUNTIME_VERSION": m.host.RuntimeVersion,
		"PLUGIN_NAME":     p.Manifest.Name,
		"PLUGIN_PATH":     p.Dir,
		"PLUGIN_VERSION":  p.Manifest.Version,
	}
	for k, v := range globals {
		if err := p.rt.Set(k, v); err != nil {
			return fmt.Errorf("set global %s: %w", k, err)
		}
	}
	return nil
}

// registerConsole maps console.log/warn/error onto slog.
func (m *Manager) registerConsole(p *Plugin) {
	name := p.Manifest.Name
	console := p.rt.NewObject()
	logAt := func(level slog.Level) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]any, 0, len(call.Arguments))
			for _, a := range call.Arguments {
				args = append(args, a.String())
			}
			slog.Log(context.Background(), level, fmt.Sprint(args...), "plugin", name)
			return goja.Undefined()
		}
	}
	_ = console.Set("log", logAt(slog.LevelInfo))
	_ = console.Set("warn", logAt(slog.LevelWarn))
	_ = console.Set("error", logAt(slog.LevelError))
	_ = p.rt.Set("console", console)
}

// Enable re-enables a plugin and boots it.
func (m *Manager) Enable(name string) error {
	var opErr error
	err := m.Do(func() {
		p, ok := m.plugins[name]
		if !ok {
			opErr = ErrPluginNotFound
			return
		}
		if !p.Disabled {
			return
		}
		p.Disabled = false
		m.setDisabledConfig(name, false)
		opErr = m.bootPlugin(p)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Disable drops a plugin's context and marks it disabled.
func (m *Manager) Disable(name string) error {
	var opErr error
	err := m.Do(func() {
		p, ok := m.plugins[name]
		if !ok {
			opErr = ErrPluginNotFound
			return
		}
		p.teardown()
		p.Disabled = true
		m.setDisabledConfig(name, true)
	})
	if err != nil {
		return err
	}
	return opErr
}

// Remove unloads a plugin and deletes its directory.
func (m *Manager) Remove(name string) error {
	var dir string
	var opErr error
	err := m.Do(func() {
		p, ok := m.plugins[name]
		if !ok {
			opErr = ErrPluginNotFound
			return
		}
		p.teardown()
		dir = p.Dir
		delete(m.plugins, name)
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	return os.RemoveAll(dir)
}

// List returns every loaded plugin's manifest and disabled flag.
func (m *Manager) List() []Manifest {
	var out []Manifest
	_ = m.Do(func() {
		for _, p := range m.plugins {
			out = append(out, *p.Manifest)
		}
	})
	return out
}

// EmitEvent dispatches an event to every enabled plugin's listeners.
func (m *Manager) EmitEvent(name string, payload any) error {
	return m.Do(func() {
		for _, p := range m.plugins {
			if p.Disabled || p.rt == nil {
				continue
			}
			p.callListeners(name, p.rt.ToValue(payload))
		}
	})
}

// CallNative invokes a registered native function by its opaque ID.
func (m *Manager) CallNative(pluginName, funID string, payload any) error {
	var opErr error
	err := m.Do(func() {
		p, ok := m.plugins[pluginName]
		if !ok || p.rt == nil {
			opErr = ErrPluginNotFound
			return
		}
		fn, ok := p.env.natives[funID]
		if !ok {
			opErr = fmt.Errorf("native function %s not registered", funID)
			return
		}
		if _, err := fn(goja.Undefined(), p.rt.ToValue(payload)); err != nil {
			opErr = err
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// SettingsUI returns a plugin's current settings nodes.
func (m *Manager) SettingsUI(name string) []UINode {
	var out []UINode
	_ = m.Do(func() {
		if p, ok := m.plugins[name]; ok {
			out = append(out, p.env.settingsUI...)
		}
	})
	return out
}

// disabledPlugins reads the disabled list from config.
func (m *Manager) disabledPlugins() []string {
	if m.host.Config == nil {
		return nil
	}
	var out []string
	m.host.Config.Read(func(c *config.AppConfig) {
		out = append(out, c.DisabledPlugins...)
	})
	return out
}

// setDisabledConfig persists the disabled flag.
func (m *Manager) setDisabledConfig(name string, disabled bool) {
	if m.host.Config == nil {
		return
	}
	_ = m.host.Config.Write(func(c *config.AppConfig) {
		filtered := c.DisabledPlugins[:0]
		for _, n := range c.DisabledPlugins {
			if n != name {
				filtered = append(filtered, n)
			}
		}
		c.DisabledPlugins = filtered
		if disabled {
			c.DisabledPlugins = append(c.DisabledPlugins, name)
		}
	})
}
