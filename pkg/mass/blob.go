package mass

import (
	"encoding/binary"

	"github.com/miwear-protocol/miwear-go/pkg/crypto"
)

// DataType tags the kind of blob being uploaded.
type DataType uint8

const (
	// DataWatchface is a watchface package.
	DataWatchface DataType = 16

	// DataFirmware is a firmware image.
	DataFirmware DataType = 32

	// DataNotificationIcon is a notification icon bitmap.
	DataNotificationIcon DataType = 50

	// DataThirdpartyApp is a mini-app package.
	DataThirdpartyApp DataType = 64
)

// String returns the data type name.
func (t DataType) String() string {
	switch t {
	case DataWatchface:
		return "WATCHFACE"
	case DataFirmware:
		return "FIRMWARE"
	case DataNotificationIcon:
		return "NOTIFICATION_ICON"
	case DataThirdpartyApp:
		return "THIRDPARTY_APP"
	default:
		return "UNKNOWN"
	}
}

// compFlagStored marks an uncompressed blob; the only mode in use.
const compFlagStored = 0x00

// headerSize is the inner blob header: comp flag, data type, MD5, length.
const headerSize = 1 + 1 + 16 + 4

// BuildInnerBlob wraps file data in the transfer envelope and trails the
// CRC32 of everything before it.
func BuildInnerBlob(fileData []byte, dataType DataType) []byte {
	blob := make([]byte, 0, headerSize+len(fileData)+4)
	blob = append(blob, compFlagStored, byte(dataType))
	blob = append(blob, crypto.MD5Sum(fileData)...)
	blob = binary.LittleEndian.AppendUint32(blob, uint32(len(fileData)))
	blob = append(blob, fileData...)
	return binary.LittleEndian.AppendUint32(blob, crypto.CRC32(blob))
}

// fragmentOverhead is what each Data-frame body spends before the slice:
// channel, opcode, blocks_total and block_index.
const fragmentOverhead = 1 + 1 + 2 + 2

// blockBody builds one outbound block: blocks_total | index | slice.
func blockBody(totalBlocks, index uint16, slice []byte) []byte {
	body := make([]byte, 0, 4+len(slice))
	body = binary.LittleEndian.AppendUint16(body, totalBlocks)
	body = binary.LittleEndian.AppendUint16(body, index)
	return append(body, slice...)
}
