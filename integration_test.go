package miwear_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/miwear-protocol/miwear-go/internal/testharness"
	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/mass"
	"github.com/miwear-protocol/miwear-go/pkg/netbridge"
	"github.com/miwear-protocol/miwear-go/pkg/resource"
	"github.com/miwear-protocol/miwear-go/pkg/session"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// TestE2E_SessionAndAuth walks the full connection bring-up against the
// emulated watch: hello exchange, session config, auth handshake,
// encrypted request.
func TestE2E_SessionAndAuth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	w := testharness.NewDefault()
	defer w.Close()

	cfg := device.DefaultConfig()
	cfg.FragmentDelay = time.Millisecond
	dev := device.New(w.Link(), cfg)
	defer dev.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := dev.StartHello(ctx); err != nil {
		t.Fatalf("StartHello() error = %v", err)
	}

	// The hello reply must be answered with the fixed SessionConfig frame.
	deadline := time.Now().Add(2 * time.Second)
	configured := false
	for time.Now().Before(deadline) && !configured {
		for _, chunk := range w.Link().Sent() {
			if bytes.Equal(chunk, session.SessionConfigFrame) {
				configured = true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !configured {
		t.Fatal("session config never reached the watch")
	}

	if err := dev.StartAuth(ctx, testharness.DefaultAuthKey); err != nil {
		t.Fatalf("StartAuth() error = %v", err)
	}

	// Encrypted request/response across the authenticated link.
	info, err := dev.GetInfo(ctx)
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Model != "redmi.band.emu" {
		t.Errorf("Model = %q", info.Model)
	}
}

// TestE2E_WatchfaceInstall runs prepare → mass transfer → install report
// end to end.
func TestE2E_WatchfaceInstall(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	mass.ClearResumeState()

	w := testharness.NewDefault()
	defer w.Close()

	cfg := device.DefaultConfig()
	cfg.FragmentDelay = time.Millisecond
	dev := device.New(w.Link(), cfg)
	defer dev.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := dev.StartAuth(ctx, testharness.DefaultAuthKey); err != nil {
		t.Fatalf("StartAuth() error = %v", err)
	}

	// Answer the install report once the final block arrives.
	go func() {
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			blocks := w.MassBlocks()
			if len(blocks) > 0 {
				last := blocks[len(blocks)-1]
				total := binary.LittleEndian.Uint16(last[0:2])
				idx := binary.LittleEndian.Uint16(last[2:4])
				if idx == total {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)
		w.SendProto(&wearpb.WearPacket{
			Type:      wearpb.TypeWatchFace,
			ID:        wearpb.WatchFaceIDReportInstallResult,
			WatchFace: &wearpb.WatchFace{InstallResult: &wearpb.InstallResult{}},
		})
	}()

	face := bytes.Repeat([]byte{0x42}, 8000)
	var sawProgress bool
	err := resource.InstallWatchface(ctx, dev, face, nil, "itest-face", func(p mass.Progress) {
		sawProgress = true
	})
	if err != nil {
		t.Fatalf("InstallWatchface() error = %v", err)
	}
	if !sawProgress {
		t.Error("no progress callbacks during transfer")
	}

	// Reassemble what the watch collected and verify the CRC-trailed blob.
	var blob []byte
	for _, b := range w.MassBlocks() {
		blob = append(blob, b[4:]...)
	}
	want := mass.BuildInnerBlob(face, mass.DataWatchface)
	if !bytes.Equal(blob, want) {
		t.Error("watch-side blob differs from BuildInnerBlob output")
	}
}

// TestE2E_DHCPThroughDispatch injects a DHCP DISCOVER on the Network
// channel and expects the OFFER to come back over the link.
func TestE2E_DHCPThroughDispatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	w := testharness.NewDefault()
	defer w.Close()

	cfg := device.DefaultConfig()
	cfg.FragmentDelay = time.Millisecond
	dev := device.New(w.Link(), cfg)
	defer dev.Disconnect()

	bridge, err := netbridge.Start(dev, netbridge.Config{})
	if err != nil {
		t.Fatalf("netbridge.Start() error = %v", err)
	}
	defer bridge.Close()

	// A raw DISCOVER as the watch would send it (built by the netbridge
	// test helpers would import internals; craft via the public handler
	// round trip instead: any BootRequest works).
	discover := buildDiscoverFrame(t)
	w.SendNetwork(discover)

	// The OFFER comes back as a Network-channel Data frame.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, chunk := range w.Link().Sent() {
			pkt, _, err := wire.Parse(chunk)
			if err != nil {
				continue
			}
			pl, err := pkt.DataFields()
			if err != nil || pl.Channel != wire.ChannelNetwork {
				continue
			}
			// IPv4/UDP from port 67: the DHCP reply.
			if len(pl.Data) > 28 && pl.Data[9] == 0x11 &&
				binary.BigEndian.Uint16(pl.Data[20:22]) == 67 {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no DHCP reply on the network channel")
}

// buildDiscoverFrame assembles a minimal IPv4/UDP DHCP DISCOVER.
func buildDiscoverFrame(t *testing.T) []byte {
	t.Helper()

	// DHCP payload: BOOTREQUEST with a message-type option.
	dhcp := make([]byte, 240)
	dhcp[0] = 1 // op: request
	dhcp[1] = 1 // htype: ethernet
	dhcp[2] = 6 // hlen
	binary.BigEndian.PutUint32(dhcp[4:8], 0x3903F326)
	copy(dhcp[28:34], []byte{0xA5, 0xA5, 0xA5, 0xA5, 0xA5, 0xA5})
	binary.BigEndian.PutUint32(dhcp[236:240], 0x63825363) // magic cookie
	dhcp = append(dhcp, 53, 1, 1, 255)                    // message type: discover; end

	udpLen := 8 + len(dhcp)
	udp := make([]byte, 8)
	binary.BigEndian.PutUint16(udp[0:2], 68)
	binary.BigEndian.PutUint16(udp[2:4], 67)
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	// Checksum 0 (unset) is valid for IPv4 UDP.

	ipLen := 20 + udpLen
	ip := make([]byte, 20)
	ip[0] = 0x45
	binary.BigEndian.PutUint16(ip[2:4], uint16(ipLen))
	ip[8] = 64   // ttl
	ip[9] = 0x11 // udp
	copy(ip[12:16], []byte{0, 0, 0, 0})
	copy(ip[16:20], []byte{255, 255, 255, 255})
	binary.BigEndian.PutUint16(ip[10:12], ipChecksum(ip))

	frame := append(ip, udp...)
	return append(frame, dhcp...)
}

func ipChecksum(hdr []byte) uint16 {
	var sum uint32
	for i := 0; i < len(hdr); i += 2 {
		if i == 10 {
			continue // checksum field
		}
		sum += uint32(binary.BigEndian.Uint16(hdr[i : i+2]))
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}
