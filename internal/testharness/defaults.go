package testharness

import (
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
)

// DefaultAuthKey is the pairing key the default emulated watch accepts.
const DefaultAuthKey = "000102030405060708090a0b0c0d0e0f"

// NewDefault creates an emulated watch with DefaultAuthKey and stock
// handlers for the common read paths, so the bridge can be driven without
// hardware.
func NewDefault() *Watch {
	w := New(DefaultAuthKey)

	ready := wearpb.PrepareReady

	w.Handle(wearpb.TypeSystem, wearpb.SystemIDGetDeviceInfo, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeSystem, ID: wearpb.SystemIDGetDeviceInfo,
			System: &wearpb.System{DeviceInfo: &wearpb.DeviceInfo{
				SerialNumber:    "EMU0000001",
				FirmwareVersion: "2.3.1",
				Model:           "redmi.band.emu",
			}},
		}
	})

	w.Handle(wearpb.TypeSystem, wearpb.SystemIDGetDeviceStatus, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeSystem, ID: wearpb.SystemIDGetDeviceStatus,
			System: &wearpb.System{DeviceStatus: &wearpb.DeviceStatus{
				Battery: &wearpb.Battery{Capacity: 88, ChargeStatus: wearpb.ChargeNotCharging},
			}},
		}
	})

	w.Handle(wearpb.TypeSystem, wearpb.SystemIDPrepareOTA, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeSystem, ID: wearpb.SystemIDPrepareOTA,
			System: &wearpb.System{PrepareOTAResponse: &wearpb.PrepareOTAResponse{Status: ready}},
		}
	})

	w.Handle(wearpb.TypeMass, wearpb.MassIDPrepare, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeMass, ID: wearpb.MassIDPrepare,
			Mass: &wearpb.Mass{PrepareResponse: &wearpb.MassPrepareResponse{
				Status: ready, ExpectedSliceLength: 2048,
			}},
		}
	})

	w.Handle(wearpb.TypeWatchFace, wearpb.WatchFaceIDPrepareInstall, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeWatchFace, ID: wearpb.WatchFaceIDPrepareInstall,
			WatchFace: &wearpb.WatchFace{PrepareStatus: &ready},
		}
	})

	w.Handle(wearpb.TypeWatchFace, wearpb.WatchFaceIDGetInstalledList, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeWatchFace, ID: wearpb.WatchFaceIDGetInstalledList,
			WatchFace: &wearpb.WatchFace{List: &wearpb.WatchFaceList{Items: []*wearpb.WatchFaceItem{
				{ID: "emu-analog", Name: "Analog", IsCurrent: true},
				{ID: "emu-digital", Name: "Digital", CanRemove: true},
			}}},
		}
	})

	w.Handle(wearpb.TypeThirdpartyApp, wearpb.ThirdpartyAppIDPrepareInstall, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeThirdpartyApp, ID: wearpb.ThirdpartyAppIDPrepareInstall,
			ThirdpartyApp: &wearpb.ThirdpartyApp{
				InstallResponse: &wearpb.AppInstallResponse{Status: ready},
			},
		}
	})

	w.Handle(wearpb.TypeThirdpartyApp, wearpb.ThirdpartyAppIDGetInstalledList, func(*wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeThirdpartyApp, ID: wearpb.ThirdpartyAppIDGetInstalledList,
			ThirdpartyApp: &wearpb.ThirdpartyApp{AppItemList: &wearpb.AppItemList{Items: []*wearpb.AppItem{
				{PackageName: "com.emu.timer", VersionCode: 3, AppName: "Timer", CanRemove: true},
			}}},
		}
	})

	return w
}
