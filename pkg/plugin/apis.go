package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// Permission strings; one per API namespace.
const (
	PermLifecycle     = "lifecycle"
	PermEvent         = "event"
	PermNetwork       = "network"
	PermConfig        = "config"
	PermDevice        = "device"
	PermUI            = "ui"
	PermNative        = "native"
	PermInstaller     = "installer"
	PermInterconnect  = "interconnect"
	PermProvider      = "provider"
	PermThirdpartyApp = "thirdpartyapp"
	PermDebug         = "debug"
	PermFilesystem    = "filesystem"
)

// checkPermission applies the manifest permission gate.
//
// The debug permission stands in for everything in debug builds; in
// release builds a plugin leaning on it is refused outright.
func (m *Manager) checkPermission(p *Plugin, perm string) error {
	hasDebug := p.Manifest.HasPermission(PermDebug)
	has := p.Manifest.HasPermission(perm)

	if perm == PermDebug && !m.host.DebugBuild {
		return ErrDebugDisabled
	}
	if !has && hasDebug && !m.host.DebugBuild {
		return ErrDebugDisabled
	}
	if has {
		return nil
	}
	if hasDebug && m.host.DebugBuild {
		return nil
	}
	return &PermissionError{Permission: perm}
}

// gated wraps an API implementation with its permission check.
func (m *Manager) gated(p *Plugin, perm string, impl func(call goja.FunctionCall) goja.Value) func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if err := m.checkPermission(p, perm); err != nil {
			panic(p.rt.NewGoError(err))
		}
		return impl(call)
	}
}

// throw raises err as a JS exception.
func throw(rt *goja.Runtime, err error) {
	panic(rt.NewGoError(err))
}

// decodeArg converts a JS value into a Go struct via JSON.
func decodeArg(v goja.Value, out any) error {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	raw, err := json.Marshal(v.Export())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// registerAPIs installs the AstroBox global.
func (m *Manager) registerAPIs(p *Plugin) error {
	root := p.rt.NewObject()

	namespaces := map[string]*goja.Object{
		"lifecycle":     m.lifecycleAPI(p),
		"event":         m.eventAPI(p),
		"network":       m.networkAPI(p),
		"config":        m.configAPI(p),
		"device":        m.deviceAPI(p),
		"ui":            m.uiAPI(p),
		"native":        m.nativeAPI(p),
		"installer":     m.installerAPI(p),
		"interconnect":  m.interconnectAPI(p),
		"provider":      m.providerAPI(p),
		"thirdpartyapp": m.thirdpartyAppAPI(p),
		"filesystem":    m.filesystemAPI(p),
	}
	if m.host.DebugBuild {
		namespaces["debug"] = m.debugAPI(p)
	}

	for name, obj := range namespaces {
		if err := root.Set(name, obj); err != nil {
			return fmt.Errorf("install namespace %s: %w", name, err)
		}
	}
	return p.rt.Set("AstroBox", root)
}

// lifecycleAPI: onLoad registration.
func (m *Manager) lifecycleAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	_ = obj.Set("onLoad", m.gated(p, PermLifecycle, func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(p.rt.NewTypeError("onLoad: argument must be a function"))
		}
		p.env.onLoad = fn
		return goja.Undefined()
	}))
	return obj
}

// eventAPI: listener registration and cross-plugin events.
func (m *Manager) eventAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()

	_ = obj.Set("addEventListener", m.gated(p, PermEvent, func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(p.rt.NewTypeError("addEventListener: second argument must be a function"))
		}
		p.env.listeners[name] = append(p.env.listeners[name], fn)
		return goja.Undefined()
	}))

	_ = obj.Set("removeEventListener", m.gated(p, PermEvent, func(call goja.FunctionCall) goja.Value {
		delete(p.env.listeners, call.Argument(0).String())
		return goja.Undefined()
	}))

	_ = obj.Set("sendEvent", m.gated(p, PermEvent, func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		payload := call.Argument(1).Export()
		// Already on the worker: dispatch to every plugin directly.
		for _, other := range m.plugins {
			if other.Disabled || other.rt == nil {
				continue
			}
			other.callListeners(name, other.rt.ToValue(payload))
		}
		return goja.Undefined()
	}))

	return obj
}

// uiAPI: settings and page surfaces.
func (m *Manager) uiAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()

	_ = obj.Set("updatePluginSettingsUI", m.gated(p, PermUI, func(call goja.FunctionCall) goja.Value {
		var nodes []UINode
		if err := decodeArg(call.Argument(0), &nodes); err != nil {
			throw(p.rt, err)
		}
		p.env.settingsUI = nodes
		if m.host.UpdateSettingsUI != nil {
			m.host.UpdateSettingsUI(p.Manifest.Name, nodes)
		}
		return goja.Undefined()
	}))

	_ = obj.Set("openPageWithNodes", m.gated(p, PermUI, func(call goja.FunctionCall) goja.Value {
		var nodes []UINode
		if err := decodeArg(call.Argument(0), &nodes); err != nil {
			throw(p.rt, err)
		}
		if m.host.OpenPageWithNodes != nil {
			m.host.OpenPageWithNodes(p.Manifest.Name, nodes)
		}
		return goja.Undefined()
	}))

	_ = obj.Set("openPageWithUrl", m.gated(p, PermUI, func(call goja.FunctionCall) goja.Value {
		if m.host.OpenPageWithURL != nil {
			m.host.OpenPageWithURL(p.Manifest.Name, call.Argument(0).String())
		}
		return goja.Undefined()
	}))

	return obj
}

// nativeAPI: opaque function handles for host-driven callbacks.
func (m *Manager) nativeAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	_ = obj.Set("regNativeFun", m.gated(p, PermNative, func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(p.rt.NewTypeError("regNativeFun: argument must be a function"))
		}
		id := uuid.NewString()
		p.env.natives[id] = fn
		return p.rt.ToValue(id)
	}))
	return obj
}

// installerAPI: install queues.
func (m *Manager) installerAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	queue := func(kind InstallKind) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			if m.host.QueueInstall == nil {
				throw(p.rt, fmt.Errorf("install queue unavailable"))
			}
			if err := m.host.QueueInstall(kind, call.Argument(0).String()); err != nil {
				throw(p.rt, err)
			}
			return goja.Undefined()
		}
	}
	_ = obj.Set("addThirdPartyAppToQueue", m.gated(p, PermInstaller, queue(InstallThirdPartyApp)))
	_ = obj.Set("addWatchFaceToQueue", m.gated(p, PermInstaller, queue(InstallWatchFace)))
	_ = obj.Set("addFirmwareToQueue", m.gated(p, PermInstaller, queue(InstallFirmware)))
	return obj
}

// interconnectAPI: messages to mini-apps.
func (m *Manager) interconnectAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	_ = obj.Set("sendQAICMessage", m.gated(p, PermInterconnect, func(call goja.FunctionCall) goja.Value {
		if m.host.SendQAIC == nil {
			throw(p.rt, fmt.Errorf("interconnect unavailable"))
		}
		pkg := call.Argument(0).String()
		data := call.Argument(1).String()
		if err := m.host.SendQAIC(pkg, []byte(data)); err != nil {
			throw(p.rt, err)
		}
		return goja.Undefined()
	}))
	return obj
}

// providerAPI: JS-implemented content providers.
func (m *Manager) providerAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	_ = obj.Set("registerCommunityProvider", m.gated(p, PermProvider, func(call goja.FunctionCall) goja.Value {
		var prov CommunityProvider
		if err := decodeArg(call.Argument(0), &prov); err != nil {
			throw(p.rt, err)
		}
		if prov.Name == "" {
			panic(p.rt.NewTypeError("registerCommunityProvider: provider needs a name"))
		}
		if m.host.RegisterProvider != nil {
			m.host.RegisterProvider(p.Manifest.Name, prov)
		}
		return goja.Undefined()
	}))
	return obj
}

// debugAPI: raw link writes; debug builds only.
func (m *Manager) debugAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	_ = obj.Set("sendRaw", m.gated(p, PermDebug, func(call goja.FunctionCall) goja.Value {
		if m.host.SendRaw == nil {
			throw(p.rt, fmt.Errorf("raw link access unavailable"))
		}
		raw, err := decodeBase64(call.Argument(0).String())
		if err != nil {
			throw(p.rt, err)
		}
		if err := m.host.SendRaw(raw); err != nil {
			throw(p.rt, err)
		}
		return goja.Undefined()
	}))
	return obj
}
