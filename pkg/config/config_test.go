package config

import (
	"path/filepath"
	"testing"

	"github.com/miwear-protocol/miwear-go/pkg/device"
)

func TestStoreDefaultsAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	s.Read(func(c *AppConfig) {
		if c.FragmentsSendDelayMS != 5 {
			t.Errorf("FragmentsSendDelayMS = %d, want 5", c.FragmentsSendDelayMS)
		}
		if !c.AutoInstall {
			t.Error("AutoInstall should default to true")
		}
	})

	if err := s.Write(func(c *AppConfig) { c.FragmentsSendDelayMS = 20 }); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// A fresh store sees the persisted value.
	s2, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore() reload error = %v", err)
	}
	s2.Read(func(c *AppConfig) {
		if c.FragmentsSendDelayMS != 20 {
			t.Errorf("reloaded FragmentsSendDelayMS = %d, want 20", c.FragmentsSendDelayMS)
		}
	})
}

func TestRememberDevice(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	snap := device.Snapshot{Name: "Band 9", Addr: "a4:c1:38:00:11:22", NetworkMTU: 800}
	if err := s.RememberDevice(snap); err != nil {
		t.Fatalf("RememberDevice() error = %v", err)
	}

	// Remembering the same address updates in place.
	snap.NetworkMTU = 850
	if err := s.RememberDevice(snap); err != nil {
		t.Fatalf("RememberDevice() update error = %v", err)
	}

	got, ok := s.PairedDevice("a4:c1:38:00:11:22")
	if !ok {
		t.Fatal("PairedDevice() not found")
	}
	if got.NetworkMTU != 850 {
		t.Errorf("NetworkMTU = %d, want 850", got.NetworkMTU)
	}

	s.Read(func(c *AppConfig) {
		if len(c.PairedDevices) != 1 {
			t.Errorf("PairedDevices len = %d, want 1", len(c.PairedDevices))
		}
		if c.CurrentDevice == nil || c.CurrentDevice.Addr != snap.Addr {
			t.Error("CurrentDevice not recorded")
		}
	})
}

func TestPluginConfigRoundTrip(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := s.SetPluginConfig("weather", map[string]string{"city": "Berlin"}); err != nil {
		t.Fatalf("SetPluginConfig() error = %v", err)
	}

	got := s.PluginConfig("weather")
	if got["city"] != "Berlin" {
		t.Errorf("PluginConfig = %v", got)
	}

	// Mutating the returned map must not affect the store.
	got["city"] = "Munich"
	if s.PluginConfig("weather")["city"] != "Berlin" {
		t.Error("PluginConfig returned a shared map")
	}
}

func TestMerge(t *testing.T) {
	dst := map[string]any{
		"a": 1,
		"nested": map[string]any{
			"keep":    "x",
			"replace": "old",
		},
	}
	Merge(dst, map[string]any{
		"b": 2,
		"nested": map[string]any{
			"replace": "new",
		},
	})

	if dst["a"] != 1 || dst["b"] != 2 {
		t.Errorf("top-level merge wrong: %v", dst)
	}
	nested := dst["nested"].(map[string]any)
	if nested["keep"] != "x" || nested["replace"] != "new" {
		t.Errorf("nested merge wrong: %v", nested)
	}
}

func TestAccountStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")

	s, err := NewAccountStore(path)
	if err != nil {
		t.Fatalf("NewAccountStore() error = %v", err)
	}

	if err := s.Upsert("bandbbs", Account{ID: "1", Username: "alice"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Upsert("bandbbs", Account{ID: "1", Username: "alice2"}); err != nil {
		t.Fatalf("Upsert() replace error = %v", err)
	}

	list := s.List("bandbbs")
	if len(list) != 1 || list[0].Username != "alice2" {
		t.Errorf("List() = %v", list)
	}

	// Persisted across reload.
	s2, err := NewAccountStore(path)
	if err != nil {
		t.Fatalf("NewAccountStore() reload error = %v", err)
	}
	if got := s2.List("bandbbs"); len(got) != 1 {
		t.Errorf("reloaded List() len = %d, want 1", len(got))
	}

	if err := s2.Remove("bandbbs", "1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := s2.List("bandbbs"); len(got) != 0 {
		t.Errorf("List() after remove = %v", got)
	}
}
