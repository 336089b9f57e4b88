package device

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/transport"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// newRawDevice wires a device to a bare fake link (no emulated watch).
func newRawDevice(t *testing.T) (*Device, *transport.FakeLink) {
	t.Helper()
	link := transport.NewFakeLink(transport.Info{
		Type:    transport.ConnectSPP,
		Address: "00:11:22:33:44:55",
	})
	cfg := DefaultConfig()
	cfg.FragmentDelay = time.Millisecond
	d := New(link, cfg)
	t.Cleanup(func() { d.Disconnect() })
	return d, link
}

// Request pairs the reply by sequence number on raw (non-protobuf)
// channels.
func TestRequestSeqPairing(t *testing.T) {
	d, link := newRawDevice(t)

	// Answer every outbound Mass frame with a Mass frame echoing its seq.
	link.OnPeerWrite(func(chunk []byte) {
		pkt, _, err := wire.Parse(chunk)
		if err != nil || pkt.Type != wire.PacketData {
			return
		}
		reply, err := wire.NewData(pkt.Seq, wire.ChannelMass, wire.OpPlain, []byte{0xCA, 0xFE}).Encode()
		if err != nil {
			return
		}
		go link.InjectBytes(reply)
	})

	body, err := d.Request(context.Background(), wire.ChannelMass, wire.OpPlain,
		[]byte{0x01}, time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if !bytes.Equal(body, []byte{0xCA, 0xFE}) {
		t.Errorf("Request() body = % x, want ca fe", body)
	}

	if d.seqTable.Len() != 0 {
		t.Errorf("seq table len = %d after reply, want 0", d.seqTable.Len())
	}
}

func TestRequestTimeoutCleansUp(t *testing.T) {
	d, _ := newRawDevice(t)

	_, err := d.Request(context.Background(), wire.ChannelFileFitness, wire.OpPlain,
		[]byte{0x01}, 30*time.Millisecond)
	if err == nil {
		t.Fatal("Request() should time out with no reply")
	}
	if d.seqTable.Len() != 0 {
		t.Errorf("seq table len = %d after timeout, want 0", d.seqTable.Len())
	}
}

func TestBuildFrameEncryptsPayload(t *testing.T) {
	d, _ := newRawDevice(t)

	// Unauthenticated encrypted send is refused.
	if _, _, err := d.buildFrame(wire.ChannelPb, wire.OpEncrypted, []byte{1, 2, 3}); err != ErrNotAuthenticated {
		t.Fatalf("buildFrame() error = %v, want %v", err, ErrNotAuthenticated)
	}
}
