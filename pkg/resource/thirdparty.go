package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/mass"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// AppInstallResultWindow is how long the watch gets to report a mini-app
// install result after the transfer.
const AppInstallResultWindow = 30 * time.Second

// AppInfo describes a mini-app known to the bridge.
type AppInfo struct {
	PackageName string `json:"package_name"`
	Fingerprint []byte `json:"fingerprint"`
	VersionCode uint32 `json:"version_code"`
	CanRemove   bool   `json:"can_remove"`
	AppName     string `json:"app_name"`
}

// QAICHandler observes interconnect messages pushed by a mini-app.
type QAICHandler func(packageName string, data []byte)

// AppManager tracks the mini-apps the watch announces and relays
// interconnect traffic.
//
// It subscribes to ThirdpartyApp pushes at construction: BasicInfo pushes
// register the app and are answered with a Connected status sync;
// MessageContent pushes fan out to the registered QAIC handlers.
type AppManager struct {
	dev *device.Device

	mu       sync.RWMutex
	apps     map[string]AppInfo
	handlers []QAICHandler
}

// NewAppManager wires an AppManager onto the device.
func NewAppManager(dev *device.Device) *AppManager {
	m := &AppManager{dev: dev, apps: make(map[string]AppInfo)}
	dev.SubscribeProto(uint32(wearpb.TypeThirdpartyApp), m.onPush)
	return m
}

// OnQAICMessage registers an interconnect message observer.
func (m *AppManager) OnQAICMessage(h QAICHandler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// Known returns the app table.
func (m *AppManager) Known() []AppInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AppInfo, 0, len(m.apps))
	for _, a := range m.apps {
		out = append(out, a)
	}
	return out
}

// Lookup returns the app registered under packageName.
func (m *AppManager) Lookup(packageName string) (AppInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.apps[packageName]
	return a, ok
}

// SendQAICMessage relays an interconnect message to a mini-app.
// Fails if the app never announced itself.
func (m *AppManager) SendQAICMessage(ctx context.Context, packageName string, data []byte) error {
	app, ok := m.Lookup(packageName)
	if !ok {
		return fmt.Errorf("app info not found for %s", packageName)
	}

	req := &wearpb.WearPacket{
		Type: wearpb.TypeThirdpartyApp,
		ID:   wearpb.ThirdpartyAppIDMessageContent,
		ThirdpartyApp: &wearpb.ThirdpartyApp{
			MessageContent: &wearpb.AppMessageContent{
				BasicInfo: &wearpb.AppBasicInfo{
					PackageName: app.PackageName,
					Fingerprint: app.Fingerprint,
				},
				Data: data,
			},
		},
	}
	return m.dev.SendPacket(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal())
}

// onPush handles unsolicited ThirdpartyApp envelopes.
func (m *AppManager) onPush(pkt *wearpb.WearPacket) {
	if pkt.ThirdpartyApp == nil {
		return
	}

	switch {
	case pkt.ThirdpartyApp.BasicInfo != nil:
		info := pkt.ThirdpartyApp.BasicInfo
		app := AppInfo{PackageName: info.PackageName, Fingerprint: info.Fingerprint}
		m.mu.Lock()
		m.apps[app.PackageName] = app
		m.mu.Unlock()

		// Tell the watch the companion side of the session is up; off the
		// receive loop.
		go m.syncStatus(app, wearpb.AppStatusConnected)

	case pkt.ThirdpartyApp.MessageContent != nil:
		mc := pkt.ThirdpartyApp.MessageContent
		if mc.BasicInfo == nil {
			return
		}
		m.mu.RLock()
		handlers := append([]QAICHandler(nil), m.handlers...)
		m.mu.RUnlock()
		for _, h := range handlers {
			h(mc.BasicInfo.PackageName, mc.Data)
		}
	}
}

func (m *AppManager) syncStatus(app AppInfo, status uint32) {
	req := &wearpb.WearPacket{
		Type: wearpb.TypeThirdpartyApp,
		ID:   wearpb.ThirdpartyAppIDStatusSync,
		ThirdpartyApp: &wearpb.ThirdpartyApp{
			StatusSync: &wearpb.AppStatusSync{
				BasicInfo: &wearpb.AppBasicInfo{
					PackageName: app.PackageName,
					Fingerprint: app.Fingerprint,
				},
				Status: status,
			},
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), device.DefaultRequestTimeout)
	defer cancel()
	_ = m.dev.SendPacket(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal())
}

// InstallApp pushes a mini-app package to the watch and waits for its
// install report.
func InstallApp(ctx context.Context, dev *device.Device, fileData []byte, packageName string, versionCode uint32, progress mass.ProgressFunc) error {
	req := &wearpb.WearPacket{
		Type: wearpb.TypeThirdpartyApp,
		ID:   wearpb.ThirdpartyAppIDPrepareInstall,
		ThirdpartyApp: &wearpb.ThirdpartyApp{
			InstallRequest: &wearpb.AppInstallRequest{
				PackageName: packageName,
				VersionCode: versionCode,
				Size:        uint32(len(fileData)),
			},
		},
	}

	reply, err := dev.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeThirdpartyApp), wearpb.ThirdpartyAppIDPrepareInstall, 0)
	if err != nil {
		return fmt.Errorf("app prepare: %w", err)
	}
	if reply.ThirdpartyApp == nil || reply.ThirdpartyApp.InstallResponse == nil {
		return fmt.Errorf("app prepare: reply carried no install response")
	}
	if st := reply.ThirdpartyApp.InstallResponse.Status; st != wearpb.PrepareReady {
		return &mass.PrepareError{Status: st}
	}

	if err := mass.Send(ctx, dev, fileData, mass.DataThirdpartyApp, progress); err != nil {
		return err
	}

	_, err = dev.WaitProto(ctx, uint32(wearpb.TypeThirdpartyApp),
		wearpb.ThirdpartyAppIDReportInstallResult, AppInstallResultWindow)
	if err != nil {
		return fmt.Errorf("app install report: %w", err)
	}
	return nil
}

// GetAppList fetches the installed mini-apps.
func GetAppList(ctx context.Context, dev *device.Device) ([]AppInfo, error) {
	req := &wearpb.WearPacket{Type: wearpb.TypeThirdpartyApp, ID: wearpb.ThirdpartyAppIDGetInstalledList}
	reply, err := dev.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeThirdpartyApp), wearpb.ThirdpartyAppIDGetInstalledList, 0)
	if err != nil {
		return nil, err
	}
	if reply.ThirdpartyApp == nil || reply.ThirdpartyApp.AppItemList == nil {
		return nil, fmt.Errorf("app list reply carried no list")
	}

	out := make([]AppInfo, 0, len(reply.ThirdpartyApp.AppItemList.Items))
	for _, item := range reply.ThirdpartyApp.AppItemList.Items {
		out = append(out, AppInfo{
			PackageName: item.PackageName,
			Fingerprint: item.Fingerprint,
			VersionCode: item.VersionCode,
			CanRemove:   item.CanRemove,
			AppName:     item.AppName,
		})
	}
	return out, nil
}

// LaunchApp opens a mini-app, optionally at a page.
func LaunchApp(ctx context.Context, dev *device.Device, app AppInfo, page string) error {
	req := &wearpb.WearPacket{
		Type: wearpb.TypeThirdpartyApp,
		ID:   wearpb.ThirdpartyAppIDLaunch,
		ThirdpartyApp: &wearpb.ThirdpartyApp{
			LaunchRequest: &wearpb.AppLaunchRequest{
				BasicInfo: &wearpb.AppBasicInfo{
					PackageName: app.PackageName,
					Fingerprint: app.Fingerprint,
				},
				Page: page,
			},
		},
	}
	return dev.SendPacket(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal())
}

// UninstallApp removes a mini-app.
func UninstallApp(ctx context.Context, dev *device.Device, app AppInfo) error {
	req := &wearpb.WearPacket{
		Type: wearpb.TypeThirdpartyApp,
		ID:   wearpb.ThirdpartyAppIDRemove,
		ThirdpartyApp: &wearpb.ThirdpartyApp{
			RemoveRequest: &wearpb.AppRemoveRequest{
				BasicInfo: &wearpb.AppBasicInfo{
					PackageName: app.PackageName,
					Fingerprint: app.Fingerprint,
				},
			},
		},
	}
	return dev.SendPacket(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal())
}
