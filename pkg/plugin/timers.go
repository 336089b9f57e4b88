package plugin

import (
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

// timerIDs are globally unique across all plugins.
var nextTimerID atomic.Uint32

// registerTimers installs host-emulated setTimeout/setInterval globals.
// Callbacks are marshalled back onto the worker goroutine; JS never runs
// off it.
func (m *Manager) registerTimers(p *Plugin) {
	name := p.Manifest.Name

	_ = p.rt.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(p.rt.NewTypeError("setTimeout: first argument must be a function"))
		}
		delay := durationArg(call.Argument(1))

		id := nextTimerID.Add(1)
		p.env.timeouts[id] = fn
		time.AfterFunc(delay, func() {
			m.dispatchTimer(name, id, false)
		})
		return p.rt.ToValue(id)
	})

	_ = p.rt.Set("clearTimeout", func(call goja.FunctionCall) goja.Value {
		if id, ok := timerIDArg(call.Argument(0)); ok {
			delete(p.env.timeouts, id)
		}
		return goja.Undefined()
	})

	_ = p.rt.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(p.rt.NewTypeError("setInterval: first argument must be a function"))
		}
		delay := durationArg(call.Argument(1))
		if delay <= 0 {
			delay = time.Millisecond
		}

		id := nextTimerID.Add(1)
		iv := &intervalState{fn: fn, stop: make(chan struct{})}
		p.env.intervals[id] = iv

		go func() {
			ticker := time.NewTicker(delay)
			defer ticker.Stop()
			for {
				select {
				case <-iv.stop:
					return
				case <-m.stop:
					return
				case <-ticker.C:
					m.dispatchTimer(name, id, true)
				}
			}
		}()
		return p.rt.ToValue(id)
	})

	_ = p.rt.Set("clearInterval", func(call goja.FunctionCall) goja.Value {
		if id, ok := timerIDArg(call.Argument(0)); ok {
			if iv, exists := p.env.intervals[id]; exists {
				iv.cancel()
				delete(p.env.intervals, id)
			}
		}
		return goja.Undefined()
	})
}

// dispatchTimer runs a timer callback on the worker goroutine.
func (m *Manager) dispatchTimer(pluginName string, id uint32, interval bool) {
	_ = m.Do(func() {
		p, ok := m.plugins[pluginName]
		if !ok || p.rt == nil {
			return
		}
		if interval {
			if iv, exists := p.env.intervals[id]; exists {
				_, _ = iv.fn(goja.Undefined())
			}
			return
		}
		if fn, exists := p.env.timeouts[id]; exists {
			delete(p.env.timeouts, id)
			_, _ = fn(goja.Undefined())
		}
	})
}

func durationArg(v goja.Value) time.Duration {
	ms := v.ToInteger()
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func timerIDArg(v goja.Value) (uint32, bool) {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, false
	}
	return uint32(v.ToInteger()), true
}
