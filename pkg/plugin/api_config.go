package plugin

import (
	"fmt"

	"github.com/dop251/goja"
)

// configAPI: per-plugin persisted KV map.
func (m *Manager) configAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()

	_ = obj.Set("readConfig", m.gated(p, PermConfig, func(call goja.FunctionCall) goja.Value {
		if m.host.Config == nil {
			return p.rt.ToValue(map[string]string{})
		}
		return p.rt.ToValue(m.host.Config.PluginConfig(p.Manifest.Name))
	}))

	_ = obj.Set("writeConfig", m.gated(p, PermConfig, func(call goja.FunctionCall) goja.Value {
		if m.host.Config == nil {
			throw(p.rt, fmt.Errorf("config store unavailable"))
		}
		var kv map[string]string
		if err := decodeArg(call.Argument(0), &kv); err != nil {
			throw(p.rt, err)
		}
		if kv == nil {
			kv = map[string]string{}
		}
		if err := m.host.Config.SetPluginConfig(p.Manifest.Name, kv); err != nil {
			throw(p.rt, err)
		}
		return goja.Undefined()
	}))

	return obj
}
