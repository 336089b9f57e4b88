// Package wire defines the framed packet format spoken on the Bluetooth link.
//
// Every frame is an 8-byte header followed by a body:
//
//	┌──────────┬──────┬─────┬──────────┬──────────┬────────────┐
//	│ A5 A5    │ type │ seq │ len (LE) │ crc (LE) │   body     │
//	│ 2 bytes  │ 1 B  │ 1 B │ 2 bytes  │ 2 bytes  │ len bytes  │
//	└──────────┴──────┴─────┴──────────┴──────────┴────────────┘
//
// The CRC is CRC-16/ARC over the body only. Data frames carry a one-byte
// channel and a one-byte opcode in front of the payload; ACK frames have an
// empty body and echo the acknowledged sequence number in the header.
//
// # Reassembly
//
// The transport delivers bytes in MTU-sized chunks that do not respect frame
// boundaries. Framer buffers incoming bytes and only yields complete,
// CRC-valid frames; mis-framed bytes are skipped one byte at a time until the
// next magic marker.
//
// # Hello frames
//
// Frames beginning BA DC FE belong to the session hello exchange and are not
// packets in the sense above; IsHello lets callers divert them before they
// reach the framer.
package wire
