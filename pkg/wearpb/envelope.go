package wearpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// WearPacket field numbers.
const (
	fieldWearPacketType          = 1
	fieldWearPacketID            = 2
	fieldWearPacketAccount       = 3
	fieldWearPacketSystem        = 4
	fieldWearPacketMass          = 5
	fieldWearPacketWatchFace     = 6
	fieldWearPacketThirdpartyApp = 7
)

// WearPacket is the envelope wrapped around every Pb-channel message.
// Exactly one payload pointer is set (or none, for bare requests like
// "get installed list").
type WearPacket struct {
	Type MessageType
	ID   uint32

	Account       *Account
	System        *System
	Mass          *Mass
	WatchFace     *WatchFace
	ThirdpartyApp *ThirdpartyApp
}

// Key returns the (type, id) pair that identifies the operation.
func (p *WearPacket) Key() (uint32, uint32) {
	return uint32(p.Type), p.ID
}

// Marshal serializes the envelope.
func (p *WearPacket) Marshal() []byte {
	return p.marshal(nil)
}

func (p *WearPacket) marshal(b []byte) []byte {
	b = appendVarintField(b, fieldWearPacketType, uint64(p.Type))
	b = appendVarintField(b, fieldWearPacketID, uint64(p.ID))
	switch {
	case p.Account != nil:
		b = appendMessageField(b, fieldWearPacketAccount, p.Account)
	case p.System != nil:
		b = appendMessageField(b, fieldWearPacketSystem, p.System)
	case p.Mass != nil:
		b = appendMessageField(b, fieldWearPacketMass, p.Mass)
	case p.WatchFace != nil:
		b = appendMessageField(b, fieldWearPacketWatchFace, p.WatchFace)
	case p.ThirdpartyApp != nil:
		b = appendMessageField(b, fieldWearPacketThirdpartyApp, p.ThirdpartyApp)
	}
	return b
}

// Unmarshal decodes an envelope.
func Unmarshal(data []byte) (*WearPacket, error) {
	p := &WearPacket{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldWearPacketType:
			var v uint32
			n := consumeUint32(b, &v)
			p.Type = MessageType(v)
			return n
		case fieldWearPacketID:
			return consumeUint32(b, &p.ID)
		case fieldWearPacketAccount:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAccount(sub)
				p.Account = msg
				return err
			})
		case fieldWearPacketSystem:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalSystem(sub)
				p.System = msg
				return err
			})
		case fieldWearPacketMass:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalMass(sub)
				p.Mass = msg
				return err
			})
		case fieldWearPacketWatchFace:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalWatchFace(sub)
				p.WatchFace = msg
				return err
			})
		case fieldWearPacketThirdpartyApp:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalThirdpartyApp(sub)
				p.ThirdpartyApp = msg
				return err
			})
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	if subErr != nil {
		return nil, subErr
	}
	return p, nil
}

// consumeSub consumes a length-delimited submessage and hands it to decode.
func consumeSub(b []byte, subErr *error, decode func([]byte) error) int {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	if err := decode(v); err != nil && *subErr == nil {
		*subErr = err
	}
	return n
}
