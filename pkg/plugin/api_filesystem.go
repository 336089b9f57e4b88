package plugin

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/dop251/goja"
)

// filesystemAPI: pick-gated file access.
//
// Plugins can only read paths the user picked for them; the allow-set is
// per plugin context and dies with it.
func (m *Manager) filesystemAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()

	_ = obj.Set("pickFile", m.gated(p, PermFilesystem, func(call goja.FunctionCall) goja.Value {
		if m.host.PickFile == nil {
			throw(p.rt, fmt.Errorf("file picker unavailable"))
		}

		var opts PickFileOptions
		if err := decodeArg(call.Argument(0), &opts); err != nil {
			throw(p.rt, err)
		}

		path, err := m.host.PickFile()
		if err != nil {
			throw(p.rt, err)
		}
		if path == "" {
			return goja.Null() // user cancelled
		}

		info, err := os.Stat(path)
		if err != nil {
			throw(p.rt, err)
		}
		p.allowPath(path)

		result := PickFileResult{Path: path, Size: info.Size()}
		if opts.DecodeText {
			raw, err := os.ReadFile(path)
			if err != nil {
				throw(p.rt, err)
			}
			result.TextLen = int64(utf8.RuneCount(raw))
		}
		return p.rt.ToValue(result)
	}))

	_ = obj.Set("readFile", m.gated(p, PermFilesystem, func(call goja.FunctionCall) goja.Value {
		path := call.Argument(0).String()
		if !p.pathAllowed(path) {
			throw(p.rt, ErrPathNotAllowed)
		}

		var opts ReadFileOptions
		if err := decodeArg(call.Argument(1), &opts); err != nil {
			throw(p.rt, err)
		}

		f, err := os.Open(path)
		if err != nil {
			throw(p.rt, err)
		}
		defer f.Close()

		if opts.Offset > 0 {
			if _, err := f.Seek(opts.Offset, io.SeekStart); err != nil {
				throw(p.rt, err)
			}
		}

		var reader io.Reader = f
		if opts.Len > 0 {
			reader = io.LimitReader(f, opts.Len)
		}
		raw, err := io.ReadAll(reader)
		if err != nil {
			throw(p.rt, err)
		}

		if opts.DecodeText {
			return p.rt.ToValue(string(raw))
		}
		out := make([]any, len(raw))
		for i, b := range raw {
			out[i] = int(b)
		}
		return p.rt.ToValue(out)
	}))

	_ = obj.Set("unloadFile", m.gated(p, PermFilesystem, func(call goja.FunctionCall) goja.Value {
		delete(p.env.allowedPaths, call.Argument(0).String())
		return goja.Undefined()
	}))

	return obj
}
