package wearpb

import (
	"bytes"
	"testing"
)

func TestEnvelopeAccountRoundTrip(t *testing.T) {
	in := &WearPacket{
		Type: TypeAccount,
		ID:   AccountIDAuthVerify,
		Account: &Account{
			AuthAppVerify: &AppVerify{Nonce: bytes.Repeat([]byte{0x10}, 16)},
		},
	}

	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Type != TypeAccount || out.ID != AccountIDAuthVerify {
		t.Errorf("key = (%v, %d), want (ACCOUNT, %d)", out.Type, out.ID, AccountIDAuthVerify)
	}
	if out.Account == nil || out.Account.AuthAppVerify == nil {
		t.Fatal("AuthAppVerify missing after round trip")
	}
	if !bytes.Equal(out.Account.AuthAppVerify.Nonce, in.Account.AuthAppVerify.Nonce) {
		t.Error("nonce differs after round trip")
	}
}

func TestEnvelopeMassPrepare(t *testing.T) {
	in := &WearPacket{
		Type: TypeMass,
		ID:   MassIDPrepare,
		Mass: &Mass{
			PrepareResponse: &MassPrepareResponse{
				Status:              PrepareReady,
				ExpectedSliceLength: 4096,
			},
		},
	}

	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	resp := out.Mass.PrepareResponse
	if resp == nil {
		t.Fatal("PrepareResponse missing")
	}
	if resp.Status != PrepareReady {
		t.Errorf("Status = %v, want READY", resp.Status)
	}
	if resp.ExpectedSliceLength != 4096 {
		t.Errorf("ExpectedSliceLength = %d, want 4096", resp.ExpectedSliceLength)
	}
}

func TestEnvelopeWatchFaceList(t *testing.T) {
	in := &WearPacket{
		Type: TypeWatchFace,
		ID:   WatchFaceIDGetInstalledList,
		WatchFace: &WatchFace{
			List: &WatchFaceList{
				Items: []*WatchFaceItem{
					{ID: "wf-1", Name: "Analog", IsCurrent: true, VersionCode: 3},
					{ID: "wf-2", Name: "Digital", CanRemove: true,
						BackgroundImageList: []string{"a.png", "b.png"}},
				},
			},
		},
	}

	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	items := out.WatchFace.List.Items
	if len(items) != 2 {
		t.Fatalf("items len = %d, want 2", len(items))
	}
	if items[0].ID != "wf-1" || !items[0].IsCurrent || items[0].VersionCode != 3 {
		t.Errorf("item 0 = %+v", items[0])
	}
	if len(items[1].BackgroundImageList) != 2 {
		t.Errorf("repeated field len = %d, want 2", len(items[1].BackgroundImageList))
	}
}

func TestEnvelopeThirdpartyAppMessage(t *testing.T) {
	in := &WearPacket{
		Type: TypeThirdpartyApp,
		ID:   ThirdpartyAppIDMessageContent,
		ThirdpartyApp: &ThirdpartyApp{
			MessageContent: &AppMessageContent{
				BasicInfo: &AppBasicInfo{PackageName: "com.example.qa", Fingerprint: []byte{1, 2}},
				Data:      []byte(`{"k":"v"}`),
			},
		},
	}

	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	mc := out.ThirdpartyApp.MessageContent
	if mc == nil || mc.BasicInfo == nil {
		t.Fatal("MessageContent missing")
	}
	if mc.BasicInfo.PackageName != "com.example.qa" {
		t.Errorf("PackageName = %q", mc.BasicInfo.PackageName)
	}
	if !bytes.Equal(mc.Data, []byte(`{"k":"v"}`)) {
		t.Errorf("Data = %q", mc.Data)
	}
}

func TestEnvelopeBareRequest(t *testing.T) {
	// "Get installed list" carries no payload at all.
	in := &WearPacket{Type: TypeThirdpartyApp, ID: ThirdpartyAppIDGetInstalledList}

	out, err := Unmarshal(in.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.ThirdpartyApp != nil || out.Account != nil {
		t.Error("payload should be absent")
	}
}

func TestEnvelopeSkipsUnknownFields(t *testing.T) {
	raw := (&WearPacket{Type: TypeSystem, ID: SystemIDGetDeviceInfo}).Marshal()
	// Append an unknown varint field (number 15).
	raw = append(raw, 0x78, 0x2A)

	out, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Type != TypeSystem {
		t.Errorf("Type = %v, want SYSTEM", out.Type)
	}
}

func TestCompanionDeviceRoundTrip(t *testing.T) {
	in := &CompanionDevice{
		DeviceType: DeviceTypeAndroid,
		Name:       "AstroBox",
		Capability: CapabilityAll,
	}

	out, err := UnmarshalCompanionDevice(in.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalCompanionDevice() error = %v", err)
	}
	if *out != *in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	raw := (&WearPacket{
		Type:    TypeAccount,
		ID:      AccountIDAuthVerify,
		Account: &Account{AuthAppVerify: &AppVerify{Nonce: make([]byte, 16)}},
	}).Marshal()

	if _, err := Unmarshal(raw[:len(raw)-4]); err == nil {
		t.Error("Unmarshal() accepted truncated buffer")
	}
}
