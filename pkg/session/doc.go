// Package session implements the link session layer: the hello exchange,
// the shared sequence counter, and outbound fragmentation.
//
// # Handshake
//
// The host opens every session by sending a fixed hello blob. The watch
// answers with its own hello (recognizable by the BA DC FE prefix), upon
// which the host sends a fixed SessionConfig frame advertising channel
// properties. No encryption is in effect during this exchange.
//
// # Sequencing
//
// One 8-bit counter is shared by all channels; every outbound Data frame
// consumes a value, wrapping 255 → 0.
//
// # Fragmentation
//
// A complete frame larger than the link's write size is split into chunks,
// with a short pacing sleep between chunks so slow peer Bluetooth stacks
// are not overrun. Fragments of one frame must never interleave with
// another frame's; callers hold the device send lock across the whole
// Write call.
package session
