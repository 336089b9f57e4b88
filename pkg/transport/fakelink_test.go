package transport

import (
	"context"
	"testing"
)

func TestFakeLinkDefaults(t *testing.T) {
	l := NewFakeLink(Info{Type: ConnectSPP, Address: "aa:bb:cc:dd:ee:ff"})

	if got := l.Info().MaxFrameSize; got != DefaultFrameSizeSPP {
		t.Errorf("MaxFrameSize = %d, want %d", got, DefaultFrameSizeSPP)
	}
}

func TestFakeLinkSendAndPeerHook(t *testing.T) {
	l := NewFakeLink(Info{Type: ConnectBLE, MaxFrameSize: DefaultFrameSizeBLE})

	var peerGot []byte
	l.OnPeerWrite(func(chunk []byte) { peerGot = chunk })

	if err := l.Send(context.Background(), []byte{1, 2, 3}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(peerGot) != 3 {
		t.Errorf("peer hook got %d bytes, want 3", len(peerGot))
	}
	if got := l.SentBytes(); len(got) != 3 {
		t.Errorf("SentBytes() len = %d, want 3", len(got))
	}
}

func TestFakeLinkClosedSendFails(t *testing.T) {
	l := NewFakeLink(Info{})
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Send(context.Background(), []byte{1}); err != ErrLinkClosed {
		t.Errorf("Send() after close = %v, want %v", err, ErrLinkClosed)
	}
}

func TestFakeLinkSubscribeCallbacks(t *testing.T) {
	l := NewFakeLink(Info{})

	var gotBytes []byte
	var gotErr error
	l.Subscribe(func(b []byte) { gotBytes = b }, func(err error) { gotErr = err })

	l.InjectBytes([]byte{0xA5, 0xA5})
	if len(gotBytes) != 2 {
		t.Errorf("InjectBytes delivered %d bytes, want 2", len(gotBytes))
	}

	l.InjectError(ErrLinkClosed)
	if gotErr != ErrLinkClosed {
		t.Errorf("InjectError delivered %v, want %v", gotErr, ErrLinkClosed)
	}
}

func TestConnectTypeString(t *testing.T) {
	if ConnectSPP.String() != "SPP" || ConnectBLE.String() != "BLE" {
		t.Error("ConnectType names wrong")
	}
}
