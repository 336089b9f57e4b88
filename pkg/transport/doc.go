// Package transport defines the boundary to the physical Bluetooth link.
//
// The core never touches GATT characteristics or RFCOMM sockets itself; a
// platform adapter implements Link and hands the core raw bytes. Frames may
// arrive split at arbitrary boundaries; reassembly is the session layer's
// job.
//
// # Protocol stack
//
//	┌────────────────────────────────┐
//	│   WearPacket (protobuf)        │
//	├────────────────────────────────┤
//	│   Channel frames + crypto      │
//	├────────────────────────────────┤
//	│   8-byte header framing        │
//	├────────────────────────────────┤
//	│   Link (BLE GATT / SPP)        │
//	└────────────────────────────────┘
package transport
