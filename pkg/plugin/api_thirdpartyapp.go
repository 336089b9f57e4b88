package plugin

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/miwear-protocol/miwear-go/pkg/resource"
)

// thirdpartyAppAPI: mini-app launch and listing.
func (m *Manager) thirdpartyAppAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()

	_ = obj.Set("launchQA", m.gated(p, PermThirdpartyApp, func(call goja.FunctionCall) goja.Value {
		if m.host.LaunchQA == nil {
			throw(p.rt, fmt.Errorf("mini-app launch unavailable"))
		}

		var app resource.AppInfo
		if err := decodeArg(call.Argument(0), &app); err != nil {
			throw(p.rt, err)
		}
		if app.PackageName == "" {
			panic(p.rt.NewTypeError("launchQA: appInfo needs a package_name"))
		}
		page := ""
		if len(call.Arguments) > 1 {
			page = call.Argument(1).String()
		}

		if err := m.host.LaunchQA(app, page); err != nil {
			throw(p.rt, err)
		}
		return goja.Undefined()
	}))

	_ = obj.Set("getThirdPartyAppList", m.gated(p, PermThirdpartyApp, func(call goja.FunctionCall) goja.Value {
		if m.host.ThirdPartyAppList == nil {
			throw(p.rt, fmt.Errorf("mini-app listing unavailable"))
		}
		list, err := m.host.ThirdPartyAppList()
		if err != nil {
			throw(p.rt, err)
		}
		return p.rt.ToValue(list)
	}))

	return obj
}
