package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/mass"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// WatchfaceInstallResultWindow is how long the watch gets to report a
// watchface install result after the transfer.
const WatchfaceInstallResultWindow = 10 * time.Second

// watchfaceSliceHint is the fragment-size hint sent with the prepare
// request. The transfer honors the peer's response value regardless.
const watchfaceSliceHint = 65536

// watchfaceIDPatchOffset is where a replacement ID is written into the
// package before install.
const watchfaceIDPatchOffset = 0x28

// WatchfaceInfo describes one installed watchface.
type WatchfaceInfo struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	IsCurrent           bool     `json:"is_current"`
	CanRemove           bool     `json:"can_remove"`
	VersionCode         uint64   `json:"version_code"`
	CanEdit             bool     `json:"can_edit"`
	BackgroundColor     string   `json:"background_color"`
	BackgroundImage     string   `json:"background_image"`
	Style               string   `json:"style"`
	BackgroundImageList []string `json:"background_image_list"`
}

// InstallWatchface pushes a watchface package to the watch.
//
// newID, when non-nil, is patched into the package before upload (used to
// sidestep ID collisions). The flow waits for the watch's install report
// after the transfer completes.
func InstallWatchface(ctx context.Context, dev *device.Device, fileData []byte, newID []byte, id string, progress mass.ProgressFunc) error {
	if newID != nil {
		if len(fileData) < watchfaceIDPatchOffset+len(newID) {
			return fmt.Errorf("watchface file too short to patch ID")
		}
		fileData = append([]byte(nil), fileData...)
		copy(fileData[watchfaceIDPatchOffset:], newID)
	}

	req := &wearpb.WearPacket{
		Type: wearpb.TypeWatchFace,
		ID:   wearpb.WatchFaceIDPrepareInstall,
		WatchFace: &wearpb.WatchFace{
			PrepareInfo: &wearpb.WatchFacePrepareInfo{
				ID:          id,
				Size:        uint32(len(fileData)),
				SliceLength: watchfaceSliceHint,
			},
		},
	}

	reply, err := dev.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeWatchFace), wearpb.WatchFaceIDPrepareInstall, 0)
	if err != nil {
		return fmt.Errorf("watchface prepare: %w", err)
	}
	if reply.WatchFace == nil || reply.WatchFace.PrepareStatus == nil {
		return fmt.Errorf("watchface prepare: reply carried no status")
	}
	if st := *reply.WatchFace.PrepareStatus; st != wearpb.PrepareReady {
		return &mass.PrepareError{Status: st}
	}

	if err := mass.Send(ctx, dev, fileData, mass.DataWatchface, progress); err != nil {
		return err
	}

	_, err = dev.WaitProto(ctx, uint32(wearpb.TypeWatchFace),
		wearpb.WatchFaceIDReportInstallResult, WatchfaceInstallResultWindow)
	if err != nil {
		return fmt.Errorf("watchface install report: %w", err)
	}
	return nil
}

// GetWatchfaceList fetches the installed watchfaces.
func GetWatchfaceList(ctx context.Context, dev *device.Device) ([]WatchfaceInfo, error) {
	req := &wearpb.WearPacket{Type: wearpb.TypeWatchFace, ID: wearpb.WatchFaceIDGetInstalledList}
	reply, err := dev.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeWatchFace), wearpb.WatchFaceIDGetInstalledList, 0)
	if err != nil {
		return nil, err
	}
	if reply.WatchFace == nil || reply.WatchFace.List == nil {
		return nil, fmt.Errorf("watchface list reply carried no list")
	}

	out := make([]WatchfaceInfo, 0, len(reply.WatchFace.List.Items))
	for _, item := range reply.WatchFace.List.Items {
		out = append(out, WatchfaceInfo{
			ID:                  item.ID,
			Name:                item.Name,
			IsCurrent:           item.IsCurrent,
			CanRemove:           item.CanRemove,
			VersionCode:         item.VersionCode,
			CanEdit:             item.CanEdit,
			BackgroundColor:     item.BackgroundColor,
			BackgroundImage:     item.BackgroundImage,
			Style:               item.Style,
			BackgroundImageList: item.BackgroundImageList,
		})
	}
	return out, nil
}

// SetWatchface makes the given watchface current.
func SetWatchface(ctx context.Context, dev *device.Device, id string) error {
	req := &wearpb.WearPacket{
		Type:      wearpb.TypeWatchFace,
		ID:        wearpb.WatchFaceIDSetWatchFace,
		WatchFace: &wearpb.WatchFace{ID: id},
	}
	return dev.SendPacket(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal())
}

// UninstallWatchface removes an installed watchface.
func UninstallWatchface(ctx context.Context, dev *device.Device, id string) error {
	req := &wearpb.WearPacket{
		Type:      wearpb.TypeWatchFace,
		ID:        wearpb.WatchFaceIDRemoveWatchFace,
		WatchFace: &wearpb.WatchFace{ID: id},
	}
	return dev.SendPacket(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal())
}
