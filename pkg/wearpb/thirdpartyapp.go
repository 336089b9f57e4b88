package wearpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// ThirdpartyApp is the mini-app management container.
type ThirdpartyApp struct {
	InstallRequest  *AppInstallRequest
	InstallResponse *AppInstallResponse
	AppItemList     *AppItemList
	BasicInfo       *AppBasicInfo
	MessageContent  *AppMessageContent
	StatusSync      *AppStatusSync
	LaunchRequest   *AppLaunchRequest
	RemoveRequest   *AppRemoveRequest
	InstallResult   *InstallResult
}

const (
	fieldAppInstallRequest  = 1
	fieldAppInstallResponse = 2
	fieldAppItemList        = 3
	fieldAppBasicInfo       = 4
	fieldAppMessageContent  = 5
	fieldAppStatusSync      = 6
	fieldAppLaunchRequest   = 7
	fieldAppRemoveRequest   = 8
	fieldAppInstallResult   = 9
)

func (m *ThirdpartyApp) marshal(b []byte) []byte {
	switch {
	case m.InstallRequest != nil:
		b = appendMessageField(b, fieldAppInstallRequest, m.InstallRequest)
	case m.InstallResponse != nil:
		b = appendMessageField(b, fieldAppInstallResponse, m.InstallResponse)
	case m.AppItemList != nil:
		b = appendMessageField(b, fieldAppItemList, m.AppItemList)
	case m.BasicInfo != nil:
		b = appendMessageField(b, fieldAppBasicInfo, m.BasicInfo)
	case m.MessageContent != nil:
		b = appendMessageField(b, fieldAppMessageContent, m.MessageContent)
	case m.StatusSync != nil:
		b = appendMessageField(b, fieldAppStatusSync, m.StatusSync)
	case m.LaunchRequest != nil:
		b = appendMessageField(b, fieldAppLaunchRequest, m.LaunchRequest)
	case m.RemoveRequest != nil:
		b = appendMessageField(b, fieldAppRemoveRequest, m.RemoveRequest)
	case m.InstallResult != nil:
		b = appendMessageField(b, fieldAppInstallResult, m.InstallResult)
	}
	return b
}

func unmarshalThirdpartyApp(data []byte) (*ThirdpartyApp, error) {
	m := &ThirdpartyApp{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldAppInstallRequest:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppInstallRequest(sub)
				m.InstallRequest = msg
				return err
			})
		case fieldAppInstallResponse:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppInstallResponse(sub)
				m.InstallResponse = msg
				return err
			})
		case fieldAppItemList:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppItemList(sub)
				m.AppItemList = msg
				return err
			})
		case fieldAppBasicInfo:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppBasicInfo(sub)
				m.BasicInfo = msg
				return err
			})
		case fieldAppMessageContent:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppMessageContent(sub)
				m.MessageContent = msg
				return err
			})
		case fieldAppStatusSync:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppStatusSync(sub)
				m.StatusSync = msg
				return err
			})
		case fieldAppLaunchRequest:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppLaunchRequest(sub)
				m.LaunchRequest = msg
				return err
			})
		case fieldAppRemoveRequest:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppRemoveRequest(sub)
				m.RemoveRequest = msg
				return err
			})
		case fieldAppInstallResult:
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

// AppInstallRequest announces a mini-app install.
type AppInstallRequest struct {
	PackageName string
	VersionCode uint32
	Size        uint32
}

func (m *AppInstallRequest) marshal(b []byte) []byte {
	b = appendStringField(b, 1, m.PackageName)
	b = appendVarintField(b, 2, uint64(m.VersionCode))
	return appendVarintField(b, 3, uint64(m.Size))
}

func unmarshalAppInstallRequest(data []byte) (*AppInstallRequest, error) {
	m := &AppInstallRequest{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(b, &m.PackageName)
		case 2:
			return consumeUint32(b, &m.VersionCode)
		case 3:
			return consumeUint32(b, &m.Size)
		}
		return 0
	})
	return m, err
}

// AppInstallResponse is the peer's verdict on an install request.
type AppInstallResponse struct {
	Status PrepareStatus
}

func (m *AppInstallResponse) marshal(b []byte) []byte {
	return appendVarintField(b, 1, uint64(m.Status))
}

func unmarshalAppInstallResponse(data []byte) (*AppInstallResponse, error) {
	m := &AppInstallResponse{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			var v uint32
			n := consumeUint32(b, &v)
			m.Status = PrepareStatus(v)
			return n
		}
		return 0
	})
	return m, err
}

// AppItem describes one installed mini-app.
type AppItem struct {
	PackageName string
	Fingerprint []byte
	VersionCode uint32
	CanRemove   bool
	AppName     string
}

func (m *AppItem) marshal(b []byte) []byte {
	b = appendStringField(b, 1, m.PackageName)
	b = appendBytesField(b, 2, m.Fingerprint)
	b = appendVarintField(b, 3, uint64(m.VersionCode))
	b = appendBoolField(b, 4, m.CanRemove)
	return appendStringField(b, 5, m.AppName)
}

func unmarshalAppItem(data []byte) (*AppItem, error) {
	m := &AppItem{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(b, &m.PackageName)
		case 2:
			return consumeBytes(b, &m.Fingerprint)
		case 3:
			return consumeUint32(b, &m.VersionCode)
		case 4:
			return consumeBool(b, &m.CanRemove)
		case 5:
			return consumeString(b, &m.AppName)
		}
		return 0
	})
	return m, err
}

// AppItemList is the installed-app listing.
type AppItemList struct {
	Items []*AppItem
}

func (m *AppItemList) marshal(b []byte) []byte {
	for _, item := range m.Items {
		b = appendMessageField(b, 1, item)
	}
	return b
}

func unmarshalAppItemList(data []byte) (*AppItemList, error) {
	m := &AppItemList{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeSub(b, &subErr, func(sub []byte) error {
				item, err := unmarshalAppItem(sub)
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

// AppBasicInfo identifies a mini-app in pushes and requests.
type AppBasicInfo struct {
	PackageName string
	Fingerprint []byte
}

func (m *AppBasicInfo) marshal(b []byte) []byte {
	b = appendStringField(b, 1, m.PackageName)
	return appendBytesField(b, 2, m.Fingerprint)
}

func unmarshalAppBasicInfo(data []byte) (*AppBasicInfo, error) {
	m := &AppBasicInfo{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(b, &m.PackageName)
		case 2:
			return consumeBytes(b, &m.Fingerprint)
		}
		return 0
	})
	return m, err
}

// AppMessageContent is an interconnect message to or from a mini-app.
type AppMessageContent struct {
	BasicInfo *AppBasicInfo
	Data      []byte
}

func (m *AppMessageContent) marshal(b []byte) []byte {
	if m.BasicInfo != nil {
		b = appendMessageField(b, 1, m.BasicInfo)
	}
	return appendBytesField(b, 2, m.Data)
}

func unmarshalAppMessageContent(data []byte) (*AppMessageContent, error) {
	m := &AppMessageContent{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppBasicInfo(sub)
				m.BasicInfo = msg
				return err
			})
		case 2:
			return consumeBytes(b, &m.Data)
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return m, subErr
}

// App connection status values for AppStatusSync.
const (
	AppStatusConnected    uint32 = 1
	AppStatusDisconnected uint32 = 2
)

// AppStatusSync tells the watch whether the companion side of a mini-app
// session is reachable.
type AppStatusSync struct {
	BasicInfo *AppBasicInfo
	Status    uint32
}

func (m *AppStatusSync) marshal(b []byte) []byte {
	if m.BasicInfo != nil {
		b = appendMessageField(b, 1, m.BasicInfo)
	}
	return appendVarintField(b, 2, uint64(m.Status))
}

func unmarshalAppStatusSync(data []byte) (*AppStatusSync, error) {
	m := &AppStatusSync{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppBasicInfo(sub)
				m.BasicInfo = msg
				return err
			})
		case 2:
			return consumeUint32(b, &m.Status)
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return m, subErr
}

// AppLaunchRequest opens a mini-app, optionally at a specific page.
type AppLaunchRequest struct {
	BasicInfo *AppBasicInfo
	Page      string
}

func (m *AppLaunchRequest) marshal(b []byte) []byte {
	if m.BasicInfo != nil {
		b = appendMessageField(b, 1, m.BasicInfo)
	}
	return appendStringField(b, 2, m.Page)
}

func unmarshalAppLaunchRequest(data []byte) (*AppLaunchRequest, error) {
	m := &AppLaunchRequest{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppBasicInfo(sub)
				m.BasicInfo = msg
				return err
			})
		case 2:
			return consumeString(b, &m.Page)
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return m, subErr
}

// AppRemoveRequest uninstalls a mini-app.
type AppRemoveRequest struct {
	BasicInfo *AppBasicInfo
}

func (m *AppRemoveRequest) marshal(b []byte) []byte {
	if m.BasicInfo != nil {
		b = appendMessageField(b, 1, m.BasicInfo)
	}
	return b
}

func unmarshalAppRemoveRequest(data []byte) (*AppRemoveRequest, error) {
	m := &AppRemoveRequest{}
	var subErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 {
			return consumeSub(b, &subErr, func(sub []byte) error {
				msg, err := unmarshalAppBasicInfo(sub)
				m.BasicInfo = msg
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
