package wearpb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decode errors.
var (
	// ErrTruncated indicates the buffer ended inside a field.
	ErrTruncated = errors.New("truncated message")

	// ErrUnknownPayload indicates the envelope carried no recognizable payload.
	ErrUnknownPayload = errors.New("unknown envelope payload")
)

// marshaler is implemented by every message in this package.
type marshaler interface {
	marshal(b []byte) []byte
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarintField(b, num, 1)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessageField(b []byte, num protowire.Number, m marshaler) []byte {
	sub := m.marshal(nil)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

// walkFields drives a protowire decode loop, dispatching each field to fn
// and skipping fields fn does not recognize (fn returns 0).
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]

		n = fn(num, typ, b)
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrTruncated, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func consumeVarint(b []byte, out *uint64) int {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	*out = v
	return n
}

func consumeUint32(b []byte, out *uint32) int {
	var v uint64
	n := consumeVarint(b, &v)
	if n >= 0 {
		*out = uint32(v)
	}
	return n
}

func consumeBool(b []byte, out *bool) int {
	var v uint64
	n := consumeVarint(b, &v)
	if n >= 0 {
		*out = v != 0
	}
	return n
}

func consumeBytes(b []byte, out *[]byte) int {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	*out = append([]byte(nil), v...)
	return n
}

func consumeString(b []byte, out *string) int {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	*out = string(v)
	return n
}
