package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dop251/goja"
)

// Plugin is one loaded plugin: manifest, directory, JS context and the
// state its script registered.
//
// Everything here is owned by the manager worker goroutine; nothing is
// touched from outside it.
type Plugin struct {
	Manifest *Manifest
	Dir      string
	Disabled bool

	rt  *goja.Runtime
	env envData
}

// envData is what the plugin script registered with the host.
type envData struct {
	onLoad    goja.Callable
	listeners map[string][]goja.Callable
	natives   map[string]goja.Callable
	timeouts  map[uint32]goja.Callable
	intervals map[uint32]*intervalState

	// allowedPaths is the canonicalized filesystem allow-set.
	allowedPaths map[string]struct{}

	settingsUI []UINode
}

type intervalState struct {
	fn   goja.Callable
	stop chan struct{}
	once sync.Once
}

func (s *intervalState) cancel() {
	s.once.Do(func() { close(s.stop) })
}

func newEnvData() envData {
	return envData{
		listeners:    make(map[string][]goja.Callable),
		natives:      make(map[string]goja.Callable),
		timeouts:     make(map[uint32]goja.Callable),
		intervals:    make(map[uint32]*intervalState),
		allowedPaths: make(map[string]struct{}),
	}
}

// runEntry evaluates the entry script and fires onLoad.
func (p *Plugin) runEntry() error {
	script, err := os.ReadFile(filepath.Join(p.Dir, p.Manifest.Entry))
	if err != nil {
		return fmt.Errorf("read entry script: %w", err)
	}

	if _, err := p.rt.RunScript(p.Manifest.Entry, string(script)); err != nil {
		return fmt.Errorf("eval entry script: %w", err)
	}

	if p.env.onLoad != nil {
		if _, err := p.env.onLoad(goja.Undefined()); err != nil {
			return fmt.Errorf("onLoad: %w", err)
		}
	}
	return nil
}

// teardown cancels timers and drops the JS context.
func (p *Plugin) teardown() {
	for _, iv := range p.env.intervals {
		iv.cancel()
	}
	p.env = newEnvData()
	p.rt = nil
}

// allowPath records a user-picked path (and its canonical form) in the
// allow-set.
func (p *Plugin) allowPath(path string) {
	p.env.allowedPaths[path] = struct{}{}
	if canon, err := filepath.EvalSymlinks(path); err == nil {
		if abs, err := filepath.Abs(canon); err == nil {
			p.env.allowedPaths[abs] = struct{}{}
		}
	}
}

// pathAllowed checks a path against the allow-set, canonicalizing first.
func (p *Plugin) pathAllowed(path string) bool {
	if _, ok := p.env.allowedPaths[path]; ok {
		return true
	}
	canon, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(canon)
	if err != nil {
		return false
	}
	_, ok := p.env.allowedPaths[abs]
	return ok
}

// callListeners invokes every listener registered for name.
func (p *Plugin) callListeners(name string, payload goja.Value) {
	for _, fn := range p.env.listeners[name] {
		_, _ = fn(goja.Undefined(), payload)
	}
}
