package plugin

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/dop251/goja"
)

// maxFetchBody bounds what a plugin can pull through network.fetch.
const maxFetchBody = 32 << 20

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// networkAPI: one-shot HTTP fetch.
func (m *Manager) networkAPI(p *Plugin) *goja.Object {
	obj := p.rt.NewObject()
	_ = obj.Set("fetch", m.gated(p, PermNetwork, func(call goja.FunctionCall) goja.Value {
		url := call.Argument(0).String()
		var opts FetchOptions
		if err := decodeArg(call.Argument(1), &opts); err != nil {
			throw(p.rt, err)
		}

		result, err := m.doFetch(url, opts)
		if err != nil {
			throw(p.rt, err)
		}
		return p.rt.ToValue(result)
	}))
	return obj
}

func (m *Manager) doFetch(url string, opts FetchOptions) (*FetchResult, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != "" {
		raw := []byte(opts.Body)
		if opts.BodyEncoded {
			decoded, err := decodeBase64(opts.Body)
			if err != nil {
				return nil, err
			}
			raw = decoded
		}
		body = strings.NewReader(string(raw))
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.host.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	out := &FetchResult{
		Status:      resp.StatusCode,
		Headers:     headers,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if opts.Raw {
		out.Body = base64.StdEncoding.EncodeToString(raw)
	} else {
		out.Body = string(raw)
	}
	return out, nil
}
