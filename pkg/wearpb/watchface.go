package wearpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// WatchFace is the watchface management container.
type WatchFace struct {
	PrepareInfo   *WatchFacePrepareInfo
	PrepareStatus *PrepareStatus
	List          *WatchFaceList
	ID            string
	InstallResult *InstallResult
}

const (
	fieldWatchFacePrepareInfo   = 1
	fieldWatchFacePrepareStatus = 2
	fieldWatchFaceList          = 3
	fieldWatchFaceID            = 4
	fieldWatchFaceInstallResult = 5
)

func (m *WatchFace) marshal(b []byte) []byte {
	switch {
	case m.PrepareInfo != nil:
		b = appendMessageField(b, fieldWatchFacePrepareInfo, m.PrepareInfo)
	case m.PrepareStatus != nil:
		b = appendVarintField(b, fieldWatchFacePrepareStatus, uint64(*m.PrepareStatus))
	case m.List != nil:
		b = appendMessageField(b, fieldWatchFaceList, m.List)
	case m.ID != "":
		b = appendStringField(b, fieldWatchFaceID, m.ID)
	case m.InstallResult != nil:
		b = appendMessageField(b, fieldWatchFaceInstallResult, m.InstallResult)
	}
	return b
}

func unmarshalWatchFace(data []byte) (*WatchFace, error) {
	m := &WatchFace{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldWatchFacePrepareInfo:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalWatchFacePrepareInfo(sub)
				m.PrepareInfo = msg
				return err
			})
		case fieldWatchFacePrepareStatus:
			var v uint32
			n := consumeUint32(b, &v)
			status := PrepareStatus(v)
			m.PrepareStatus = &status
			return n
		case fieldWatchFaceList:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalWatchFaceList(sub)
				m.List = msg
				return err
			})
		case fieldWatchFaceID:
			return consumeString(b, &m.ID)
		case fieldWatchFaceInstallResult:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalInstallResult(sub)
				m.InstallResult = msg
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

// WatchFacePrepareInfo announces a watchface install.
type WatchFacePrepareInfo struct {
	ID   string
	Size uint32

	// SliceLength is a fragment-size hint sent with the request. The
	// transfer always honors the peer's PrepareResponse value instead.
	SliceLength uint32
}

func (m *WatchFacePrepareInfo) marshal(b []byte) []byte {
	b = appendStringField(b, 1, m.ID)
	b = appendVarintField(b, 2, uint64(m.Size))
	if m.SliceLength != 0 {
		b = appendVarintField(b, 3, uint64(m.SliceLength))
	}
	return b
}

func unmarshalWatchFacePrepareInfo(data []byte) (*WatchFacePrepareInfo, error) {
	m := &WatchFacePrepareInfo{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(b, &m.ID)
		case 2:
			return consumeUint32(b, &m.Size)
		case 3:
			return consumeUint32(b, &m.SliceLength)
		}
		return 0
	})
	return m, err
}

// WatchFaceItem describes one installed watchface.
type WatchFaceItem struct {
	ID                  string
	Name                string
	IsCurrent           bool
	CanRemove           bool
	VersionCode         uint64
	CanEdit             bool
	BackgroundColor     string
	BackgroundImage     string
	Style               string
	BackgroundImageList []string
}

func (m *WatchFaceItem) marshal(b []byte) []byte {
	b = appendStringField(b, 1, m.ID)
	b = appendStringField(b, 2, m.Name)
	b = appendBoolField(b, 3, m.IsCurrent)
	b = appendBoolField(b, 4, m.CanRemove)
	if m.VersionCode != 0 {
		b = appendVarintField(b, 5, m.VersionCode)
	}
	b = appendBoolField(b, 6, m.CanEdit)
	b = appendStringField(b, 7, m.BackgroundColor)
	b = appendStringField(b, 8, m.BackgroundImage)
	b = appendStringField(b, 9, m.Style)
	for _, img := range m.BackgroundImageList {
		b = appendStringField(b, 10, img)
	}
	return b
}

func unmarshalWatchFaceItem(data []byte) (*WatchFaceItem, error) {
	m := &WatchFaceItem{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(b, &m.ID)
		case 2:
			return consumeString(b, &m.Name)
		case 3:
			return consumeBool(b, &m.IsCurrent)
		case 4:
			return consumeBool(b, &m.CanRemove)
		case 5:
			return consumeVarint(b, &m.VersionCode)
		case 6:
			return consumeBool(b, &m.CanEdit)
		case 7:
			return consumeString(b, &m.BackgroundColor)
		case 8:
			return consumeString(b, &m.BackgroundImage)
		case 9:
			return consumeString(b, &m.Style)
		case 10:
			var s string
			n := consumeString(b, &s)
			if n >= 0 {
				m.BackgroundImageList = append(m.BackgroundImageList, s)
			}
			return n
		}
		return 0
	})
	return m, err
}

// WatchFaceList is the installed-watchface listing.
type WatchFaceList struct {
	Items []*WatchFaceItem
}

func (m *WatchFaceList) marshal(b []byte) []byte {
	for _, item := range m.Items {
		b = appendMessageField(b, 1, item)
	}
	return b
}

func unmarshalWatchFaceList(data []byte) (*WatchFaceList, error) {
	m := &WatchFaceList{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeSub(b, &subErr, func(sub []byte) error {
				item, err := unmarshalWatchFaceItem(sub)
				m.Items = append(m.Items, item)
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

// InstallResult reports the outcome of an install after the transfer.
type InstallResult struct {
	Code uint32
}

// Install result codes.
const (
	InstallResultSuccess uint32 = 0
)

func (m *InstallResult) marshal(b []byte) []byte {
	if m.Code != 0 {
		b = appendVarintField(b, 1, uint64(m.Code))
	}
	return b
}

func unmarshalInstallResult(data []byte) (*InstallResult, error) {
	m := &InstallResult{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeUint32(b, &m.Code)
		}
		return 0
	})
	return m, err
}
