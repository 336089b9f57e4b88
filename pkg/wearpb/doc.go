// Package wearpb implements the protobuf envelope carried on the Pb channel.
//
// Every control message is wrapped in a WearPacket:
//
//	WearPacket{ type, id, payload(oneof Account|System|Mass|WatchFace|ThirdpartyApp) }
//
// The peer's schema is identified purely by the numeric (type, id) pair and
// the field numbers; names are local. Encoding and decoding are hand-rolled
// over google.golang.org/protobuf/encoding/protowire so the wire contract is
// spelled out field by field instead of hiding behind generated code, and
// unknown fields are skipped for forward compatibility.
package wearpb
