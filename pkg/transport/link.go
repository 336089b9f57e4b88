package transport

import (
	"context"
	"errors"
)

// Default outbound chunk sizes per connect type.
const (
	// DefaultFrameSizeBLE is the largest write a BLE GATT characteristic
	// accepts after MTU negotiation.
	DefaultFrameSizeBLE = 244

	// DefaultFrameSizeSPP is the largest RFCOMM write: 1004 bytes max packet
	// minus 27 bytes of Bluetooth packet header.
	DefaultFrameSizeSPP = 977
)

// Link errors.
var (
	// ErrLinkClosed indicates the link was closed locally or by the peer.
	ErrLinkClosed = errors.New("link closed")

	// ErrCharacteristicsMissing indicates a BLE link without the vendor
	// send/receive characteristics.
	ErrCharacteristicsMissing = errors.New("vendor characteristics missing")
)

// ConnectType selects the physical transport flavor.
type ConnectType uint8

const (
	// ConnectSPP is Bluetooth Classic RFCOMM.
	ConnectSPP ConnectType = 0

	// ConnectBLE is Bluetooth Low Energy GATT.
	ConnectBLE ConnectType = 1
)

// String returns the connect type name.
func (t ConnectType) String() string {
	switch t {
	case ConnectSPP:
		return "SPP"
	case ConnectBLE:
		return "BLE"
	default:
		return "UNKNOWN"
	}
}

// Info describes an established link.
type Info struct {
	// Type is the transport flavor.
	Type ConnectType

	// Name is the peer's advertised name, if any.
	Name string

	// Address is the canonical colon-separated MAC address.
	Address string

	// MaxFrameSize is the largest single write the link accepts.
	MaxFrameSize int

	// RecvCharacteristic and SendCharacteristic are the vendor GATT
	// characteristic UUIDs; empty for SPP links.
	RecvCharacteristic string
	SendCharacteristic string
}

// Link is an established byte pipe to the device.
//
// Implementations are provided by platform adapters; the core only sends
// byte chunks and receives callbacks. Subscribe callbacks must not be
// invoked concurrently with each other.
type Link interface {
	// Info returns the link parameters negotiated at connect time.
	Info() Info

	// Send writes one chunk to the link.
	Send(ctx context.Context, data []byte) error

	// Subscribe installs the inbound byte and error callbacks.
	// onError is invoked once when the link dies; the link is unusable
	// afterwards.
	Subscribe(onBytes func([]byte), onError func(error))

	// Close tears the link down. Idempotent.
	Close() error
}
