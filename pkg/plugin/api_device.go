package plugin

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/miwear-protocol/miwear-go/pkg/device"
)

// deviceStateView is the device state exposed to plugins.
type deviceStateView struct {
	Name         string `json:"name"`
	Addr         string `json:"addr"`
	MaxFrameSize int    `json:"max_frame_size"`
	NetworkMTU   uint16 `json:"network_mtu"`
	Codename     string `json:"codename"`
	Authed       bool   `json:"authenticated"`
}

// deviceAPI: connected-device inspection and control.
func (m *Manager) deviceAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()

	_ = obj.Set("getDeviceList", m.gated(p, PermDevice, func(call goja.FunctionCall) goja.Value {
		var list []DeviceListEntry
		if dev := m.connectedDevice(); dev != nil {
			list = append(list, DeviceListEntry{
				Name: dev.State().Name(),
				Addr: dev.State().Addr(),
			})
		}
		return p.rt.ToValue(list)
	}))

	_ = obj.Set("getDeviceState", m.gated(p, PermDevice, func(call goja.FunctionCall) goja.Value {
		addr := call.Argument(0).String()
		dev := m.connectedDevice()
		if dev == nil || dev.State().Addr() != addr {
			throw(p.rt, fmt.Errorf("device %s not connected", addr))
		}
		st := dev.State()
		return p.rt.ToValue(deviceStateView{
			Name:         st.Name(),
			Addr:         st.Addr(),
			MaxFrameSize: st.MaxFrameSize(),
			NetworkMTU:   st.NetworkMTU(),
			Codename:     st.Codename(),
			Authed:       st.Authenticated(),
		})
	}))

	_ = obj.Set("modifyDeviceState", m.gated(p, PermDevice, func(call goja.FunctionCall) goja.Value {
		addr := call.Argument(0).String()
		dev := m.connectedDevice()
		if dev == nil || dev.State().Addr() != addr {
			throw(p.rt, fmt.Errorf("device %s not connected", addr))
		}

		var patch struct {
			MaxFrameSize *int    `json:"max_frame_size"`
			NetworkMTU   *uint16 `json:"network_mtu"`
		}
		if err := decodeArg(call.Argument(1), &patch); err != nil {
			throw(p.rt, err)
		}
		if patch.MaxFrameSize != nil {
			dev.State().SetMaxFrameSize(*patch.MaxFrameSize)
		}
		if patch.NetworkMTU != nil {
			dev.State().SetNetworkMTU(*patch.NetworkMTU)
		}
		return goja.Undefined()
	}))

	_ = obj.Set("disconnectDevice", m.gated(p, PermDevice, func(call goja.FunctionCall) goja.Value {
		if m.host.Devices != nil {
			m.host.Devices.Drop()
		}
		return goja.Undefined()
	}))

	return obj
}

func (m *Manager) connectedDevice() *device.Device {
	if m.host.Devices == nil {
		return nil
	}
	return m.host.Devices.Get()
}
