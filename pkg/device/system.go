package device

import (
	"context"
	"fmt"

	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// Info is the watch's identity as reported by the System channel.
type Info struct {
	SerialNumber    string
	FirmwareVersion string
	IMEI            string
	Model           string
}

// ChargeStatus is the battery charging state.
type ChargeStatus uint8

const (
	ChargeUnknown     ChargeStatus = 0
	ChargeCharging    ChargeStatus = 1
	ChargeNotCharging ChargeStatus = 2
	ChargeFull        ChargeStatus = 3
)

// String returns the charge status name.
func (c ChargeStatus) String() string {
	switch c {
	case ChargeCharging:
		return "CHARGING"
	case ChargeNotCharging:
		return "NOT_CHARGING"
	case ChargeFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Status is the watch's battery status.
type Status struct {
	Capacity     uint32
	ChargeStatus ChargeStatus
}

// GetInfo requests the device info block.
func (d *Device) GetInfo(ctx context.Context) (*Info, error) {
	req := &wearpb.WearPacket{Type: wearpb.TypeSystem, ID: wearpb.SystemIDGetDeviceInfo}
	reply, err := d.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeSystem), wearpb.SystemIDGetDeviceInfo, 0)
	if err != nil {
		return nil, err
	}
	if reply.System == nil || reply.System.DeviceInfo == nil {
		return nil, fmt.Errorf("device info reply carried no info block")
	}

	di := reply.System.DeviceInfo
	return &Info{
		SerialNumber:    di.SerialNumber,
		FirmwareVersion: di.FirmwareVersion,
		IMEI:            di.IMEI,
		Model:           di.Model,
	}, nil
}

// GetStatus requests the battery status.
func (d *Device) GetStatus(ctx context.Context) (*Status, error) {
	req := &wearpb.WearPacket{Type: wearpb.TypeSystem, ID: wearpb.SystemIDGetDeviceStatus}
	reply, err := d.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeSystem), wearpb.SystemIDGetDeviceStatus, 0)
	if err != nil {
		return nil, err
	}
	if reply.System == nil || reply.System.DeviceStatus == nil || reply.System.DeviceStatus.Battery == nil {
		return nil, fmt.Errorf("device status reply carried no battery block")
	}

	bat := reply.System.DeviceStatus.Battery
	st := &Status{Capacity: bat.Capacity}
	switch bat.ChargeStatus {
	case wearpb.ChargeCharging:
		st.ChargeStatus = ChargeCharging
	case wearpb.ChargeNotCharging:
		st.ChargeStatus = ChargeNotCharging
	case wearpb.ChargeFull:
		st.ChargeStatus = ChargeFull
	}
	return st, nil
}
