package wearpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Account is the auth message container. One payload pointer is set.
type Account struct {
	AuthAppVerify     *AppVerify
	AuthDeviceVerify  *DeviceVerify
	AuthAppConfirm    *AppConfirm
	AuthDeviceConfirm *DeviceConfirm
}

const (
	fieldAccountAppVerify     = 1
	fieldAccountDeviceVerify  = 2
	fieldAccountAppConfirm    = 3
	fieldAccountDeviceConfirm = 4
)

func (m *Account) marshal(b []byte) []byte {
	switch {
	case m.AuthAppVerify != nil:
		b = appendMessageField(b, fieldAccountAppVerify, m.AuthAppVerify)
	case m.AuthDeviceVerify != nil:
		b = appendMessageField(b, fieldAccountDeviceVerify, m.AuthDeviceVerify)
	case m.AuthAppConfirm != nil:
		b = appendMessageField(b, fieldAccountAppConfirm, m.AuthAppConfirm)
	case m.AuthDeviceConfirm != nil:
		b = appendMessageField(b, fieldAccountDeviceConfirm, m.AuthDeviceConfirm)
	}
	return b
}

func unmarshalAccount(data []byte) (*Account, error) {
	m := &Account{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldAccountAppVerify:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppVerify(sub)
				m.AuthAppVerify = msg
				return err
			})
		case fieldAccountDeviceVerify:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalDeviceVerify(sub)
				m.AuthDeviceVerify = msg
				return err
			})
		case fieldAccountAppConfirm:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppConfirm(sub)
				m.AuthAppConfirm = msg
				return err
			})
		case fieldAccountDeviceConfirm:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalDeviceConfirm(sub)
				m.AuthDeviceConfirm = msg
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

// AppVerify opens the handshake with the phone's 16-byte nonce.
type AppVerify struct {
	Nonce []byte
}

func (m *AppVerify) marshal(b []byte) []byte {
	return appendBytesField(b, 1, m.Nonce)
}

func unmarshalAppVerify(data []byte) (*AppVerify, error) {
	m := &AppVerify{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeBytes(b, &m.Nonce)
		}
		return 0
	})
	return m, err
}

// DeviceVerify is the watch's reply: its nonce plus an HMAC over both nonces.
type DeviceVerify struct {
	Nonce []byte
	Sign  []byte
}

func (m *DeviceVerify) marshal(b []byte) []byte {
	b = appendBytesField(b, 1, m.Nonce)
	return appendBytesField(b, 2, m.Sign)
}

func unmarshalDeviceVerify(data []byte) (*DeviceVerify, error) {
	m := &DeviceVerify{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeBytes(b, &m.Nonce)
		case 2:
			return consumeBytes(b, &m.Sign)
		}
		return 0
	})
	return m, err
}

// AppConfirm closes the handshake: the phone's HMAC plus the CCM-sealed
// companion device description.
type AppConfirm struct {
	EncSigns      []byte
	EncDeviceInfo []byte
}

func (m *AppConfirm) marshal(b []byte) []byte {
	b = appendBytesField(b, 1, m.EncSigns)
	return appendBytesField(b, 2, m.EncDeviceInfo)
}

func unmarshalAppConfirm(data []byte) (*AppConfirm, error) {
	m := &AppConfirm{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeBytes(b, &m.EncSigns)
		case 2:
			return consumeBytes(b, &m.EncDeviceInfo)
		}
		return 0
	})
	return m, err
}

// DeviceConfirm reports the watch's verdict on AppConfirm.
type DeviceConfirm struct {
	Status uint32
}

// DeviceConfirm status values.
const (
	DeviceConfirmSuccess uint32 = 1
)

func (m *DeviceConfirm) marshal(b []byte) []byte {
	return appendVarintField(b, 1, uint64(m.Status))
}

func unmarshalDeviceConfirm(data []byte) (*DeviceConfirm, error) {
	m := &DeviceConfirm{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeUint32(b, &m.Status)
		}
		return 0
	})
	return m, err
}

// CompanionDevice describes the phone to the watch inside AppConfirm.
// It is serialized standalone (not wrapped in a WearPacket) and then
// CCM-sealed.
type CompanionDevice struct {
	DeviceType uint32
	Name       string
	Capability uint32
}

const (
	fieldCompanionDeviceType       = 1
	fieldCompanionDeviceName       = 3
	fieldCompanionDeviceCapability = 4
)

// Marshal serializes the companion device description.
func (m *CompanionDevice) Marshal() []byte {
	return m.marshal(nil)
}

func (m *CompanionDevice) marshal(b []byte) []byte {
	b = appendVarintField(b, fieldCompanionDeviceType, uint64(m.DeviceType))
	b = appendStringField(b, fieldCompanionDeviceName, m.Name)
	return appendVarintField(b, fieldCompanionDeviceCapability, uint64(m.Capability))
}

// UnmarshalCompanionDevice decodes a companion device description.
func UnmarshalCompanionDevice(data []byte) (*CompanionDevice, error) {
	m := &CompanionDevice{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldCompanionDeviceType:
			return consumeUint32(b, &m.DeviceType)
		case fieldCompanionDeviceName:
			return consumeString(b, &m.Name)
		case fieldCompanionDeviceCapability:
			return consumeUint32(b, &m.Capability)
		}
		return 0
	})
	return m, err
}
