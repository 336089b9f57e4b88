package resource

import (
	"bytes"
	"unicode/utf8"
)

// FileKind classifies an install candidate by content.
type FileKind string

const (
	// KindABP is a plugin package (zip with .abp extension).
	KindABP FileKind = "abp"

	// KindQuickApp is a mini-app package (zip with a toolkit marker).
	KindQuickApp FileKind = "quickapp"

	// KindZip is any other zip archive.
	KindZip FileKind = "zip"

	// KindWatchface is a watchface package.
	KindWatchface FileKind = "watchface"

	// KindText is valid UTF-8 text.
	KindText FileKind = "text"

	// KindBinary is anything else.
	KindBinary FileKind = "binary"

	// KindEmpty is a zero-length file.
	KindEmpty FileKind = "null"
)

var (
	zipMagic       = []byte{0x50, 0x4B, 0x03, 0x04}
	watchfaceMagic = []byte{0x5A, 0xA5, 0x34, 0x12}
)

// watchfaceIDOffset is where the ASCII watchface ID sits in the package.
const (
	watchfaceIDOffset = 34
	watchfaceIDLen    = 16
)

// SniffKind classifies file content the way the install queue does.
// ext is the lowercase filename extension without the dot; it only
// disambiguates zips.
func SniffKind(data []byte, ext string) FileKind {
	if len(data) == 0 {
		return KindEmpty
	}

	if bytes.HasPrefix(data, zipMagic) {
		if ext == "abp" {
			return KindABP
		}
		tail := data
		if len(tail) > 256 {
			tail = tail[len(tail)-256:]
		}
		if bytes.Contains(tail, []byte("toolkit")) {
			return KindQuickApp
		}
		return KindZip
	}

	if utf8.Valid(data) {
		return KindText
	}

	if bytes.HasPrefix(data, watchfaceMagic) {
		return KindWatchface
	}

	return KindBinary
}

// WatchfaceID extracts the watchface ID string embedded in a package.
// Returns "" if the file is too short.
func WatchfaceID(data []byte) string {
	if len(data) < watchfaceIDOffset+watchfaceIDLen {
		return ""
	}
	id := data[watchfaceIDOffset : watchfaceIDOffset+watchfaceIDLen]
	return string(bytes.TrimRight(id, "\x00"))
}
