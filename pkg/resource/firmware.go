package resource

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/miwear-protocol/miwear-go/pkg/crypto"
	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/mass"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// FirmwareOptions carries the OTA prepare metadata.
type FirmwareOptions struct {
	// Version is the firmware version advertised to the watch.
	Version string

	// ChangeLog is shown on the watch during the update prompt.
	ChangeLog string

	// Force skips the watch's version comparison.
	Force bool
}

// InstallFirmware pushes a firmware image to the watch.
// Unlike watchfaces and apps, the watch sends no install report after the
// transfer; the update continues on-device.
func InstallFirmware(ctx context.Context, dev *device.Device, fileData []byte, opts FirmwareOptions, progress mass.ProgressFunc) error {
	md5Hex := hex.EncodeToString(crypto.MD5Sum(fileData))

	req := &wearpb.WearPacket{
		Type: wearpb.TypeSystem,
		ID:   wearpb.SystemIDPrepareOTA,
		System: &wearpb.System{
			PrepareOTARequest: &wearpb.PrepareOTARequest{
				Force:           opts.Force,
				UpdateType:      wearpb.OTAUpdateAll,
				FirmwareVersion: opts.Version,
				FileMD5:         md5Hex,
				ChangeLog:       opts.ChangeLog,
			},
		},
	}

	reply, err := dev.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeSystem), wearpb.SystemIDPrepareOTA, 0)
	if err != nil {
		return fmt.Errorf("ota prepare: %w", err)
	}
	if reply.System == nil || reply.System.PrepareOTAResponse == nil {
		return fmt.Errorf("ota prepare: reply carried no response")
	}
	if st := reply.System.PrepareOTAResponse.Status; st != wearpb.PrepareReady {
		return &mass.PrepareError{Status: st}
	}

	return mass.Send(ctx, dev, fileData, mass.DataFirmware, progress)
}
