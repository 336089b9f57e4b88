package transport

import (
	"context"
	"sync"
)

// FakeLink is an in-memory Link for tests and the emulated peer harness.
//
// Writes are recorded and forwarded to an optional peer hook; InjectBytes
// plays the role of the device talking back.
type FakeLink struct {
	mu       sync.Mutex
	info     Info
	closed   bool
	sent     [][]byte
	onBytes  func([]byte)
	onError  func(error)
	peerHook func([]byte)
}

// NewFakeLink creates a fake link with the given parameters.
func NewFakeLink(info Info) *FakeLink {
	if info.MaxFrameSize == 0 {
		info.MaxFrameSize = DefaultFrameSizeSPP
	}
	return &FakeLink{info: info}
}

// Info implements Link.
func (l *FakeLink) Info() Info {
	return l.info
}

// Send implements Link. The chunk is copied.
func (l *FakeLink) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	chunk := append([]byte(nil), data...)
	l.sent = append(l.sent, chunk)
	hook := l.peerHook
	l.mu.Unlock()

	if hook != nil {
		hook(chunk)
	}
	return nil
}

// Subscribe implements Link.
func (l *FakeLink) Subscribe(onBytes func([]byte), onError func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onBytes = onBytes
	l.onError = onError
}

// Close implements Link.
func (l *FakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// OnPeerWrite installs a hook invoked synchronously for every chunk the
// core writes, i.e. the fake device's receive path.
func (l *FakeLink) OnPeerWrite(hook func([]byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peerHook = hook
}

// InjectBytes delivers bytes from the fake device to the core.
func (l *FakeLink) InjectBytes(data []byte) {
	l.mu.Lock()
	cb := l.onBytes
	l.mu.Unlock()
	if cb != nil {
		cb(append([]byte(nil), data...))
	}
}

// InjectError delivers a link error to the core.
func (l *FakeLink) InjectError(err error) {
	l.mu.Lock()
	cb := l.onError
	l.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Sent returns a copy of every chunk written so far.
func (l *FakeLink) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// SentBytes returns all written chunks concatenated.
func (l *FakeLink) SentBytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []byte
	for _, c := range l.sent {
		out = append(out, c...)
	}
	return out
}

// Compile-time interface satisfaction check.
var _ Link = (*FakeLink)(nil)
