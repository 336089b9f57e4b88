package wearpb

// MessageType is the WearPacket type discriminator.
type MessageType uint32

const (
	// TypeAccount carries authentication traffic.
	TypeAccount MessageType = 1

	// TypeSystem carries device info, status and OTA control.
	TypeSystem MessageType = 2

	// TypeMass carries bulk-transfer control (prepare handshake).
	TypeMass MessageType = 3

	// TypeWatchFace carries watchface management.
	TypeWatchFace MessageType = 4

	// TypeThirdpartyApp carries mini-app management and interconnect.
	TypeThirdpartyApp MessageType = 5
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TypeAccount:
		return "ACCOUNT"
	case TypeSystem:
		return "SYSTEM"
	case TypeMass:
		return "MASS"
	case TypeWatchFace:
		return "WATCH_FACE"
	case TypeThirdpartyApp:
		return "THIRDPARTY_APP"
	default:
		return "UNKNOWN"
	}
}

// Account operation IDs.
const (
	AccountIDAuthVerify  uint32 = 1
	AccountIDAuthConfirm uint32 = 2
)

// System operation IDs.
const (
	SystemIDGetDeviceInfo   uint32 = 1
	SystemIDGetDeviceStatus uint32 = 2
	SystemIDPrepareOTA      uint32 = 3
)

// Mass operation IDs.
const (
	MassIDPrepare uint32 = 1
)

// WatchFace operation IDs.
const (
	WatchFaceIDPrepareInstall      uint32 = 1
	WatchFaceIDReportInstallResult uint32 = 2
	WatchFaceIDGetInstalledList    uint32 = 3
	WatchFaceIDSetWatchFace        uint32 = 4
	WatchFaceIDRemoveWatchFace     uint32 = 5
)

// ThirdpartyApp operation IDs.
const (
	ThirdpartyAppIDPrepareInstall      uint32 = 1
	ThirdpartyAppIDReportInstallResult uint32 = 2
	ThirdpartyAppIDGetInstalledList    uint32 = 3
	ThirdpartyAppIDLaunch              uint32 = 4
	ThirdpartyAppIDRemove              uint32 = 5
	ThirdpartyAppIDMessageContent      uint32 = 6
	ThirdpartyAppIDStatusSync          uint32 = 7
	ThirdpartyAppIDBasicInfo           uint32 = 8
)

// PrepareStatus is the peer's verdict on a bulk-transfer prepare request.
type PrepareStatus uint32

const (
	PrepareUnknown             PrepareStatus = 0
	PrepareReady               PrepareStatus = 1
	PrepareBusy                PrepareStatus = 2
	PrepareDowngrade           PrepareStatus = 3
	PrepareDuplicated          PrepareStatus = 4
	PrepareExceedQuantityLimit PrepareStatus = 5
	PrepareLowBattery          PrepareStatus = 6
	PrepareLowStorage          PrepareStatus = 7
	PrepareNetworkError        PrepareStatus = 8
	PrepareOpNotSupport        PrepareStatus = 9
	PrepareFailed              PrepareStatus = 10
)

// String returns the status name.
func (s PrepareStatus) String() string {
	switch s {
	case PrepareReady:
		return "READY"
	case PrepareBusy:
		return "BUSY"
	case PrepareDowngrade:
		return "DOWNGRADE"
	case PrepareDuplicated:
		return "DUPLICATED"
	case PrepareExceedQuantityLimit:
		return "EXCEED_QUANTITY_LIMIT"
	case PrepareLowBattery:
		return "LOW_BATTERY"
	case PrepareLowStorage:
		return "LOW_STORAGE"
	case PrepareNetworkError:
		return "NETWORK_ERROR"
	case PrepareOpNotSupport:
		return "OP_NOT_SUPPORT"
	case PrepareFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// CompanionDevice device types.
const (
	// DeviceTypeAndroid is declared regardless of the real host OS: the peer
	// unlocks its full feature set only for Android companions.
	DeviceTypeAndroid uint32 = 1

	DeviceTypeIOS uint32 = 2
)

// CapabilityAll declares every capability bit set, matching the companion
// behavior the peer expects.
const CapabilityAll uint32 = 0xFFFFFFFF
