package wearpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// System is the device info / status / OTA container.
type System struct {
	PrepareOTARequest  *PrepareOTARequest
	PrepareOTAResponse *PrepareOTAResponse
	DeviceInfo         *DeviceInfo
	DeviceStatus       *DeviceStatus
}

const (
	fieldSystemPrepareOTARequest  = 1
	fieldSystemPrepareOTAResponse = 2
	fieldSystemDeviceInfo         = 3
	fieldSystemDeviceStatus       = 4
)

func (m *System) marshal(b []byte) []byte {
	switch {
	case m.PrepareOTARequest != nil:
		b = appendMessageField(b, fieldSystemPrepareOTARequest, m.PrepareOTARequest)
	case m.PrepareOTAResponse != nil:
		b = appendMessageField(b, fieldSystemPrepareOTAResponse, m.PrepareOTAResponse)
	case m.DeviceInfo != nil:
		b = appendMessageField(b, fieldSystemDeviceInfo, m.DeviceInfo)
	case m.DeviceStatus != nil:
		b = appendMessageField(b, fieldSystemDeviceStatus, m.DeviceStatus)
	}
	return b
}

func unmarshalSystem(data []byte) (*System, error) {
	m := &System{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldSystemPrepareOTARequest:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalPrepareOTARequest(sub)
				m.PrepareOTARequest = msg
				return err
			})
		case fieldSystemPrepareOTAResponse:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalPrepareOTAResponse(sub)
				m.PrepareOTAResponse = msg
				return err
			})
		case fieldSystemDeviceInfo:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalDeviceInfo(sub)
				m.DeviceInfo = msg
				return err
			})
		case fieldSystemDeviceStatus:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalDeviceStatus(sub)
				m.DeviceStatus = msg
				return err
			})
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return m, subErr
}

// PrepareOTARequest asks the watch to accept a firmware upload.
type PrepareOTARequest struct {
	Force           bool
	UpdateType      uint32
	FirmwareVersion string
	FileMD5         string // lowercase hex
	ChangeLog       string
	FileURL         string
}

// OTA update types.
const (
	OTAUpdateAll uint32 = 0
)

func (m *PrepareOTARequest) marshal(b []byte) []byte {
	b = appendBoolField(b, 1, m.Force)
	b = appendVarintField(b, 2, uint64(m.UpdateType))
	b = appendStringField(b, 3, m.FirmwareVersion)
	b = appendStringField(b, 4, m.FileMD5)
	b = appendStringField(b, 5, m.ChangeLog)
	return appendStringField(b, 6, m.FileURL)
}

func unmarshalPrepareOTARequest(data []byte) (*PrepareOTARequest, error) {
	m := &PrepareOTARequest{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeBool(b, &m.Force)
		case 2:
			return consumeUint32(b, &m.UpdateType)
		case 3:
			return consumeString(b, &m.FirmwareVersion)
		case 4:
			return consumeString(b, &m.FileMD5)
		case 5:
			return consumeString(b, &m.ChangeLog)
		case 6:
			return consumeString(b, &m.FileURL)
		}
		return 0
	})
	return m, err
}

// PrepareOTAResponse carries the watch's verdict on the OTA prepare.
type PrepareOTAResponse struct {
	Status PrepareStatus
}

func (m *PrepareOTAResponse) marshal(b []byte) []byte {
	return appendVarintField(b, 1, uint64(m.Status))
}

func unmarshalPrepareOTAResponse(data []byte) (*PrepareOTAResponse, error) {
	m := &PrepareOTAResponse{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			var v uint32
			n := consumeUint32(b, &v)
			m.Status = PrepareStatus(v)
			return n
		}
		return 0
	})
	return m, err
}

// DeviceInfo identifies the watch hardware and firmware.
type DeviceInfo struct {
	SerialNumber    string
	FirmwareVersion string
	IMEI            string
	Model           string
}

func (m *DeviceInfo) marshal(b []byte) []byte {
	b = appendStringField(b, 1, m.SerialNumber)
	b = appendStringField(b, 2, m.FirmwareVersion)
	b = appendStringField(b, 3, m.IMEI)
	return appendStringField(b, 4, m.Model)
}

func unmarshalDeviceInfo(data []byte) (*DeviceInfo, error) {
	m := &DeviceInfo{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(b, &m.SerialNumber)
		case 2:
			return consumeString(b, &m.FirmwareVersion)
		case 3:
			return consumeString(b, &m.IMEI)
		case 4:
			return consumeString(b, &m.Model)
		}
		return 0
	})
	return m, err
}

// DeviceStatus reports battery state.
type DeviceStatus struct {
	Battery *Battery
}

func (m *DeviceStatus) marshal(b []byte) []byte {
	if m.Battery != nil {
		b = appendMessageField(b, 1, m.Battery)
	}
	return b
}

func unmarshalDeviceStatus(data []byte) (*DeviceStatus, error) {
	m := &DeviceStatus{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalBattery(sub)
				m.Battery = msg
				return err
			})
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return m, subErr
}

// Battery charge state as reported by the watch.
type Battery struct {
	Capacity     uint32
	ChargeStatus uint32
	ChargeInfo   *ChargeInfo
}

// Charge status values.
const (
	ChargeUnknown     uint32 = 0
	ChargeCharging    uint32 = 1
	ChargeNotCharging uint32 = 2
	ChargeFull        uint32 = 3
)

func (m *Battery) marshal(b []byte) []byte {
	b = appendVarintField(b, 1, uint64(m.Capacity))
	b = appendVarintField(b, 2, uint64(m.ChargeStatus))
	if m.ChargeInfo != nil {
		b = appendMessageField(b, 3, m.ChargeInfo)
	}
	return b
}

func unmarshalBattery(data []byte) (*Battery, error) {
	m := &Battery{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(b, &m.Capacity)
		case 2:
			return consumeUint32(b, &m.ChargeStatus)
		case 3:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalChargeInfo(sub)
				m.ChargeInfo = msg
				return err
			})
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return m, subErr
}

// ChargeInfo is the optional detailed charging state.
type ChargeInfo struct {
	State     uint32
	Timestamp uint32
}

func (m *ChargeInfo) marshal(b []byte) []byte {
	b = appendVarintField(b, 1, uint64(m.State))
	if m.Timestamp != 0 {
		b = appendVarintField(b, 2, uint64(m.Timestamp))
	}
	return b
}

func unmarshalChargeInfo(data []byte) (*ChargeInfo, error) {
	m := &ChargeInfo{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(b, &m.State)
		case 2:
			return consumeUint32(b, &m.Timestamp)
		}
		return 0
	})
	return m, err
}
