package plugin

import (
	"net/http"

	"github.com/miwear-protocol/miwear-go/pkg/config"
	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/resource"
)

// InstallKind selects the install queue a picked file lands in.
type InstallKind string

const (
	// InstallThirdPartyApp queues a mini-app package.
	InstallThirdPartyApp InstallKind = "thirdpartyapp"

	// InstallWatchFace queues a watchface package.
	InstallWatchFace InstallKind = "watchface"

	// InstallFirmware queues a firmware image.
	InstallFirmware InstallKind = "firmware"
)

// Host provides the capabilities the API surface hands to plugins.
// Nil function fields make the corresponding calls fail cleanly.
type Host struct {
	// RuntimeVersion is exposed to plugins as RUNTIME_VERSION.
	RuntimeVersion string

	// DebugBuild enables the debug namespace and the debug-permission
	// bypass.
	DebugBuild bool

	// Config persists per-plugin KV maps.
	Config *config.Store

	// Devices is the connected-device slot.
	Devices *device.Slot

	// HTTPClient serves network.fetch. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// PickFile shows the host's file picker and returns the chosen path.
	PickFile func() (string, error)

	// QueueInstall adds a file to an install queue.
	QueueInstall func(kind InstallKind, path string) error

	// UpdateSettingsUI replaces a plugin's settings UI nodes.
	UpdateSettingsUI func(pluginName string, nodes []UINode)

	// OpenPageWithNodes opens a full page rendered from nodes.
	OpenPageWithNodes func(pluginName string, nodes []UINode)

	// OpenPageWithURL opens a URL in the shell.
	OpenPageWithURL func(pluginName, url string)

	// SendQAIC relays an interconnect message to a mini-app.
	SendQAIC func(packageName string, data []byte) error

	// LaunchQA opens a mini-app at a page.
	LaunchQA func(app resource.AppInfo, page string) error

	// ThirdPartyAppList fetches the installed mini-apps.
	ThirdPartyAppList func() ([]resource.AppInfo, error)

	// RegisterProvider registers a JS-implemented content provider.
	RegisterProvider func(pluginName string, p CommunityProvider)

	// SendRaw writes raw bytes to the link (debug builds only).
	SendRaw func(data []byte) error
}

func (h *Host) httpClient() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return http.DefaultClient
}
