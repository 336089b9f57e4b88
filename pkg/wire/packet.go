package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sigurn/crc16"
)

// Magic is the two-byte frame marker.
var Magic = [2]byte{0xA5, 0xA5}

// HelloPrefix marks session-layer hello frames, which are not packets.
var HelloPrefix = []byte{0xBA, 0xDC, 0xFE}

// HeaderSize is the fixed frame header size in bytes.
const HeaderSize = 8

// MaxBodySize is the largest body a frame can carry (16-bit length field).
const MaxBodySize = 0xFFFF

// Packet errors.
var (
	// ErrShortHeader indicates fewer than HeaderSize bytes were available.
	ErrShortHeader = errors.New("incomplete header")

	// ErrBadMagic indicates the buffer does not start with the frame marker.
	ErrBadMagic = errors.New("magic mismatch")

	// ErrShortFrame indicates the body is not fully buffered yet.
	ErrShortFrame = errors.New("incomplete frame")

	// ErrBadCRC indicates the body checksum did not match the header.
	ErrBadCRC = errors.New("crc mismatch")

	// ErrBodyTooLarge indicates the body exceeds the 16-bit length field.
	ErrBodyTooLarge = errors.New("body too large")

	// ErrNotData indicates a channel/opcode split was requested on a
	// non-Data frame.
	ErrNotData = errors.New("not a data frame")
)

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Checksum computes the CRC-16/ARC of data as carried in the frame header.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// IsHello reports whether buf starts a session-layer hello frame.
func IsHello(buf []byte) bool {
	return len(buf) >= len(HelloPrefix) &&
		buf[0] == HelloPrefix[0] && buf[1] == HelloPrefix[1] && buf[2] == HelloPrefix[2]
}

// Packet is one framed unit on the link.
type Packet struct {
	Type PacketType
	Seq  uint8
	Body []byte
}

// Payload is the channel/opcode split of a Data frame body.
type Payload struct {
	Channel Channel
	Op      OpCode
	Data    []byte
}

// NewData builds a Data packet for the given channel and opcode.
func NewData(seq uint8, ch Channel, op OpCode, payload []byte) *Packet {
	body := make([]byte, 2+len(payload))
	body[0] = byte(ch)
	body[1] = byte(op)
	copy(body[2:], payload)
	return &Packet{Type: PacketData, Seq: seq, Body: body}
}

// NewACK builds an ACK packet echoing the acknowledged sequence number.
func NewACK(seq uint8) *Packet {
	return &Packet{Type: PacketACK, Seq: seq}
}

// Encode serializes the packet into a complete frame.
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Body) > MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(p.Body))
	}

	out := make([]byte, HeaderSize+len(p.Body))
	out[0] = Magic[0]
	out[1] = Magic[1]
	out[2] = byte(p.Type)
	out[3] = p.Seq
	binary.LittleEndian.PutUint16(out[4:6], uint16(len(p.Body)))
	binary.LittleEndian.PutUint16(out[6:8], Checksum(p.Body))
	copy(out[HeaderSize:], p.Body)
	return out, nil
}

// DataFields splits a Data frame body into channel, opcode and payload.
func (p *Packet) DataFields() (Payload, error) {
	if p.Type != PacketData || len(p.Body) < 2 {
		return Payload{}, ErrNotData
	}
	op := OpCode(p.Body[1])
	if !op.IsValid() {
		return Payload{}, fmt.Errorf("%w: opcode %d", ErrNotData, p.Body[1])
	}
	return Payload{
		Channel: Channel(p.Body[0]),
		Op:      op,
		Data:    p.Body[2:],
	}, nil
}

// Parse decodes one packet from the start of buf.
// It returns the packet and the number of bytes consumed.
func Parse(buf []byte) (*Packet, int, error) {
	if len(buf) < HeaderSize {
		return nil, 0, ErrShortHeader
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] {
		return nil, 0, ErrBadMagic
	}

	bodyLen := int(binary.LittleEndian.Uint16(buf[4:6]))
	frameLen := HeaderSize + bodyLen
	if len(buf) < frameLen {
		return nil, 0, ErrShortFrame
	}

	body := buf[HeaderSize:frameLen]
	if got := Checksum(body); got != binary.LittleEndian.Uint16(buf[6:8]) {
		return nil, 0, ErrBadCRC
	}

	p := &Packet{
		Type: PacketType(buf[2] & 0x0F),
		Seq:  buf[3],
		Body: append([]byte(nil), body...),
	}
	return p, frameLen, nil
}
