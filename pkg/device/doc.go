// Package device owns the per-watch protocol state and exposes the
// high-level request API.
//
// A Device ties together the link, the frame codec, the sequence counter,
// the command pool and the pending-waiter tables. Inbound bytes flow
// through reassembly into the dispatch loop, which pairs replies with
// waiters (by sequence number or protobuf (type, id) key), fans pushes out
// to subscribers, hands tunneled IP frames to the network sink, and
// acknowledges every Data frame back to the watch.
//
// Outbound traffic goes through the command pool. Encryption is
// transparent: the opcode byte on each frame decides whether the payload
// is CTR ciphertext, keyed by the session keys installed after
// authentication.
//
// One device is connected per process at a time; the Slot type holds that
// single reference and broadcasts disconnects to everything holding
// in-flight waiters.
package device
