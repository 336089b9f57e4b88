package wearpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Mass is the bulk-transfer control container.
type Mass struct {
	PrepareRequest  *MassPrepareRequest
	PrepareResponse *MassPrepareResponse
}

const (
	fieldMassPrepareRequest  = 1
	fieldMassPrepareResponse = 2
)

func (m *Mass) marshal(b []byte) []byte {
	switch {
	case m.PrepareRequest != nil:
		b = appendMessageField(b, fieldMassPrepareRequest, m.PrepareRequest)
	case m.PrepareResponse != nil:
		b = appendMessageField(b, fieldMassPrepareResponse, m.PrepareResponse)
	}
	return b
}

func unmarshalMass(data []byte) (*Mass, error) {
	m := &Mass{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldMassPrepareRequest:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalMassPrepareRequest(sub)
				m.PrepareRequest = msg
				return err
			})
		case fieldMassPrepareResponse:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalMassPrepareResponse(sub)
				m.PrepareResponse = msg
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

// MassPrepareRequest announces an upcoming upload.
// DataID is the MD5 of the file contents.
type MassPrepareRequest struct {
	DataType   uint32
	DataID     []byte
	DataLength uint32
}

func (m *MassPrepareRequest) marshal(b []byte) []byte {
	b = appendVarintField(b, 1, uint64(m.DataType))
	b = appendBytesField(b, 2, m.DataID)
	return appendVarintField(b, 3, uint64(m.DataLength))
}

func unmarshalMassPrepareRequest(data []byte) (*MassPrepareRequest, error) {
	m := &MassPrepareRequest{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(b, &m.DataType)
		case 2:
			return consumeBytes(b, &m.DataID)
		case 3:
			return consumeUint32(b, &m.DataLength)
		}
		return 0
	})
	return m, err
}

// MassPrepareResponse is the peer's verdict plus its preferred fragment size.
type MassPrepareResponse struct {
	Status PrepareStatus

	// ExpectedSliceLength is the peer-advertised maximum Data-frame body for
	// Mass fragments, in bytes. Zero means the peer did not advertise one.
	ExpectedSliceLength uint32
}

func (m *MassPrepareResponse) marshal(b []byte) []byte {
	b = appendVarintField(b, 1, uint64(m.Status))
	if m.ExpectedSliceLength != 0 {
		b = appendVarintField(b, 2, uint64(m.ExpectedSliceLength))
	}
	return b
}

func unmarshalMassPrepareResponse(data []byte) (*MassPrepareResponse, error) {
	m := &MassPrepareResponse{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			var v uint32
			n := consumeUint32(b, &v)
			m.Status = PrepareStatus(v)
			return n
		case 2:
			return consumeUint32(b, &m.ExpectedSliceLength)
		}
		return 0
	})
	return m, err
}
