package plugin

// UINodeContent is the tagged content of a UI node.
type UINodeContent struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// UINode is one element of a plugin-defined UI.
type UINode struct {
	NodeID     string        `json:"node_id"`
	Visibility bool          `json:"visibility"`
	Disabled   bool          `json:"disabled"`
	Content    UINodeContent `json:"content"`
}

// UIButton is a Button node value.
type UIButton struct {
	Primary       bool   `json:"primary"`
	Text          string `json:"text"`
	CallbackFunID string `json:"callback_fun_id"`
}

// UIDropdown is a Dropdown node value.
type UIDropdown struct {
	Options       []string `json:"options"`
	CallbackFunID string   `json:"callback_fun_id"`
}

// UIInput is an Input node value.
type UIInput struct {
	Text          string `json:"text"`
	CallbackFunID string `json:"callback_fun_id"`
}

// FetchOptions mirrors the network.fetch options object.
type FetchOptions struct {
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body"`
	Raw         bool              `json:"raw"`
	BodyEncoded bool              `json:"body_encoded"`
}

// FetchResult is the network.fetch return value.
type FetchResult struct {
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers"`
	ContentType string            `json:"contentType"`
	Body        string            `json:"body"`
}

// PickFileOptions mirrors filesystem.pickFile options.
type PickFileOptions struct {
	DecodeText bool    `json:"decode_text"`
	Encoding   *string `json:"encoding,omitempty"`
}

// PickFileResult is the filesystem.pickFile return value.
type PickFileResult struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	TextLen int64  `json:"text_len"`
}

// ReadFileOptions mirrors filesystem.readFile options.
type ReadFileOptions struct {
	Offset     int64 `json:"offset"`
	Len        int64 `json:"len"`
	DecodeText bool  `json:"decode_text"`
}

// DeviceListEntry is one device.getDeviceList element.
type DeviceListEntry struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
}

// CommunityProvider is a JS-implemented content provider registration.
type CommunityProvider struct {
	Name string `json:"name"`

	// FunIDs are the native function IDs implementing the provider hooks.
	FunIDs map[string]string `json:"fun_ids"`
}
