package plugin

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/miwear-protocol/miwear-go/pkg/config"
)

// writePlugin lays a plugin directory on disk.
func writePlugin(t *testing.T, root, name, entry string, permissions ...string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	manifest := `{
		"name": "` + name + `",
		"icon": "icon.png",
		"version": "1.0.0",
		"description": "test plugin",
		"author": "tester",
		"website": "https://example.com",
		"entry": "main.js",
		"api_level": 1,
		"permissions": [`
	for i, p := range permissions {
		if i > 0 {
			manifest += ","
		}
		manifest += `"` + p + `"`
	}
	manifest += `]}`

	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte(entry), 0644))
	return dir
}

func newTestManager(t *testing.T, host Host) *Manager {
	t.Helper()
	if host.Config == nil {
		store, err := config.NewStore(filepath.Join(t.TempDir(), "config.json"))
		require.NoError(t, err)
		host.Config = store
	}
	m := NewManager(host)
	t.Cleanup(m.Close)
	return m
}

func TestPluginLoadRunsOnLoad(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "hello", `
		var loaded = false;
		AstroBox.lifecycle.onLoad(function() { loaded = true; });
	`, "lifecycle")

	m := newTestManager(t, Host{RuntimeVersion: "1.2.3"})
	require.NoError(t, m.LoadFromDir(root))

	var loaded bool
	require.NoError(t, m.Do(func() {
		p := m.plugins["hello"]
		require.NotNil(t, p)
		v, err := p.rt.RunString("loaded")
		require.NoError(t, err)
		loaded = v.ToBoolean()
	}))
	require.True(t, loaded, "onLoad did not run")
}

func TestGlobalsInjected(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "globals", `
		var seen = RUNTIME + "/" + RUNTIME_VERSION + "/" + PLUGIN_NAME + "/" + PLUGIN_VERSION;
	`)

	m := newTestManager(t, Host{RuntimeVersion: "9.9"})
	require.NoError(t, m.LoadFromDir(root))

	require.NoError(t, m.Do(func() {
		v, err := m.plugins["globals"].rt.RunString("seen")
		require.NoError(t, err)
		require.Equal(t, "AstroBox/9.9/globals/1.0.0", v.String())
	}))
}

func TestPermissionDenied(t *testing.T) {
	root := t.TempDir()
	// No "event" permission declared.
	writePlugin(t, root, "denied", `
		var errMsg = "";
		try {
			AstroBox.event.addEventListener("x", function() {});
		} catch (e) {
			errMsg = String(e);
		}
	`, "lifecycle")

	m := newTestManager(t, Host{})
	require.NoError(t, m.LoadFromDir(root))

	require.NoError(t, m.Do(func() {
		v, err := m.plugins["denied"].rt.RunString("errMsg")
		require.NoError(t, err)
		require.Contains(t, v.String(), "permission denied: event")
	}))
}

func TestDebugPermissionBypassInDebugBuild(t *testing.T) {
	root := t.TempDir()
	script := `
		var ok = true;
		try {
			AstroBox.event.addEventListener("x", function() {});
		} catch (e) {
			ok = false;
		}
	`
	writePlugin(t, root, "dbg", script, "debug")

	// Debug build: the debug permission stands in for everything.
	m := newTestManager(t, Host{DebugBuild: true})
	require.NoError(t, m.LoadFromDir(root))
	require.NoError(t, m.Do(func() {
		v, err := m.plugins["dbg"].rt.RunString("ok")
		require.NoError(t, err)
		require.True(t, v.ToBoolean(), "debug bypass should pass in debug builds")
	}))
}

func TestDebugPermissionRefusedInReleaseBuild(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "dbg2", `
		var ok = true;
		try {
			AstroBox.event.addEventListener("x", function() {});
		} catch (e) {
			ok = false;
		}
	`, "debug")

	m := newTestManager(t, Host{DebugBuild: false})
	require.NoError(t, m.LoadFromDir(root))
	require.NoError(t, m.Do(func() {
		v, err := m.plugins["dbg2"].rt.RunString("ok")
		require.NoError(t, err)
		require.False(t, v.ToBoolean(), "debug bypass must fail in release builds")
	}))
}

func TestEventEmitAndSend(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "listener", `
		var got = "";
		AstroBox.event.addEventListener("ping", function(payload) { got = payload; });
	`, "event")
	writePlugin(t, root, "sender", `
		function fire() { AstroBox.event.sendEvent("ping", "from-sender"); }
	`, "event")

	m := newTestManager(t, Host{})
	require.NoError(t, m.LoadFromDir(root))

	// Host-side event.
	require.NoError(t, m.EmitEvent("ping", "from-host"))
	require.NoError(t, m.Do(func() {
		v, err := m.plugins["listener"].rt.RunString("got")
		require.NoError(t, err)
		require.Equal(t, "from-host", v.String())
	}))

	// Plugin-to-plugin event.
	require.NoError(t, m.Do(func() {
		_, err := m.plugins["sender"].rt.RunString("fire()")
		require.NoError(t, err)
		v, err := m.plugins["listener"].rt.RunString("got")
		require.NoError(t, err)
		require.Equal(t, "from-sender", v.String())
	}))
}

func TestConfigReadWrite(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "cfg", `
		AstroBox.config.writeConfig({city: "Berlin"});
		var back = AstroBox.config.readConfig();
	`, "config")

	store, err := config.NewStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	m := newTestManager(t, Host{Config: store})
	require.NoError(t, m.LoadFromDir(root))

	require.Equal(t, "Berlin", store.PluginConfig("cfg")["city"])
	require.NoError(t, m.Do(func() {
		v, err := m.plugins["cfg"].rt.RunString("back.city")
		require.NoError(t, err)
		require.Equal(t, "Berlin", v.String())
	}))
}

func TestTimersFireOnWorker(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "timers", `
		var fired = 0;
		setTimeout(function() { fired++; }, 10);
		var iv = setInterval(function() {
			fired++;
			if (fired >= 3) { clearInterval(iv); }
		}, 10);
	`)

	m := newTestManager(t, Host{})
	require.NoError(t, m.LoadFromDir(root))

	require.Eventually(t, func() bool {
		var fired int64
		_ = m.Do(func() {
			v, err := m.plugins["timers"].rt.RunString("fired")
			if err == nil {
				fired = v.ToInteger()
			}
		})
		return fired >= 3
	}, 5*time.Second, 20*time.Millisecond, "timers never fired")
}

func TestFilesystemAllowSet(t *testing.T) {
	// The file the picker will return.
	picked := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(picked, []byte("hello files"), 0644))
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0644))

	root := t.TempDir()
	writePlugin(t, root, "files", `
		var pick = AstroBox.filesystem.pickFile({decode_text: true});
		var text = AstroBox.filesystem.readFile(pick.path, {offset: 0, len: 0, decode_text: true});

		var blockedMsg = "";
		try {
			AstroBox.filesystem.readFile(`+"`"+secret+"`"+`, {decode_text: true});
		} catch (e) {
			blockedMsg = String(e);
		}

		AstroBox.filesystem.unloadFile(pick.path);
		var unloadedMsg = "";
		try {
			AstroBox.filesystem.readFile(pick.path, {decode_text: true});
		} catch (e) {
			unloadedMsg = String(e);
		}
	`, "filesystem")

	m := newTestManager(t, Host{
		PickFile: func() (string, error) { return picked, nil },
	})
	require.NoError(t, m.LoadFromDir(root))

	require.NoError(t, m.Do(func() {
		rt := m.plugins["files"].rt

		v, err := rt.RunString("text")
		require.NoError(t, err)
		require.Equal(t, "hello files", v.String())

		v, err = rt.RunString("blockedMsg")
		require.NoError(t, err)
		require.Contains(t, v.String(), "not allowed")
	}))
}

func TestNativeFunctions(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "native", `
		var calls = [];
		var funId = AstroBox.native.regNativeFun(function(arg) { calls.push(arg); });
	`, "native")

	m := newTestManager(t, Host{})
	require.NoError(t, m.LoadFromDir(root))

	var funID string
	require.NoError(t, m.Do(func() {
		v, err := m.plugins["native"].rt.RunString("funId")
		require.NoError(t, err)
		funID = v.String()
	}))
	require.NotEmpty(t, funID)

	require.NoError(t, m.CallNative("native", funID, "payload-1"))
	require.Error(t, m.CallNative("native", "bogus-id", nil))

	require.NoError(t, m.Do(func() {
		v, err := m.plugins["native"].rt.RunString("calls.length")
		require.NoError(t, err)
		require.Equal(t, int64(1), v.ToInteger())
	}))
}

func TestInstallerQueue(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "inst", `
		AstroBox.installer.addWatchFaceToQueue("/tmp/face.bin");
	`, "installer")

	var gotKind InstallKind
	var gotPath string
	m := newTestManager(t, Host{
		QueueInstall: func(kind InstallKind, path string) error {
			gotKind, gotPath = kind, path
			return nil
		},
	})
	require.NoError(t, m.LoadFromDir(root))

	require.Equal(t, InstallWatchFace, gotKind)
	require.Equal(t, "/tmp/face.bin", gotPath)
}

func TestDisableDropsContext(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "togglable", `var x = 1;`)

	m := newTestManager(t, Host{})
	require.NoError(t, m.LoadFromDir(root))

	require.NoError(t, m.Disable("togglable"))
	require.NoError(t, m.Do(func() {
		p := m.plugins["togglable"]
		require.True(t, p.Disabled)
		require.Nil(t, p.rt, "context must be dropped on disable")
	}))

	require.NoError(t, m.Enable("togglable"))
	require.NoError(t, m.Do(func() {
		p := m.plugins["togglable"]
		require.False(t, p.Disabled)
		require.NotNil(t, p.rt)
	}))

	require.ErrorIs(t, m.Disable("ghost"), ErrPluginNotFound)
}
