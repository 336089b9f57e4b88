package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/miwear-protocol/miwear-go/internal/testharness"
	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/pending"
	"github.com/miwear-protocol/miwear-go/pkg/session"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

const testAuthKey = "000102030405060708090a0b0c0d0e0f"

func newDevice(t *testing.T, w *testharness.Watch) *device.Device {
	t.Helper()
	cfg := device.DefaultConfig()
	cfg.FragmentDelay = time.Millisecond
	d := device.New(w.Link(), cfg)
	t.Cleanup(func() { d.Disconnect() })
	return d
}

func TestHelloExchange(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	require.NoError(t, d.StartHello(context.Background()))

	// The watch's hello reply must be answered with the SessionConfig
	// frame.
	require.Eventually(t, func() bool {
		sent := w.Link().Sent()
		for _, chunk := range sent {
			if len(chunk) == len(session.SessionConfigFrame) &&
				chunk[2] == byte(wire.PacketSessionConfig) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "session config never sent")
}

func TestStartAuthInstallsKeys(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.StartAuth(ctx, testAuthKey))
	require.True(t, d.State().Authenticated())

	// Both sides derived the same block.
	require.Equal(t, w.Keys().EncKey, d.State().Keys().EncKey)
	require.Equal(t, w.Keys().DecKey, d.State().Keys().DecKey)

	// Second auth on a live session is refused.
	require.ErrorIs(t, d.StartAuth(ctx, testAuthKey), device.ErrAlreadyAuthenticated)
}

func TestStartAuthWrongKey(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := d.StartAuth(ctx, "ffffffffffffffffffffffffffffffff")
	require.Error(t, err)
	require.False(t, d.State().Authenticated())
}

func TestRequestProtoEncrypted(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	w.Handle(wearpb.TypeSystem, wearpb.SystemIDGetDeviceInfo, func(req *wearpb.WearPacket) *wearpb.WearPacket {
		return &wearpb.WearPacket{
			Type: wearpb.TypeSystem,
			ID:   wearpb.SystemIDGetDeviceInfo,
			System: &wearpb.System{
				DeviceInfo: &wearpb.DeviceInfo{Model: "redmi.band.9", FirmwareVersion: "2.3.1"},
			},
		}
	})

	d := newDevice(t, w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.StartAuth(ctx, testAuthKey))

	info, err := d.GetInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "redmi.band.9", info.Model)
	require.Equal(t, "2.3.1", info.FirmwareVersion)
}

func TestRequestProtoTimeout(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	// No handler registered: nothing answers.
	req := &wearpb.WearPacket{Type: wearpb.TypeWatchFace, ID: wearpb.WatchFaceIDGetInstalledList}
	_, err := d.RequestProto(context.Background(), wire.ChannelPb, wire.OpPlain, req.Marshal(),
		uint32(wearpb.TypeWatchFace), wearpb.WatchFaceIDGetInstalledList, 50*time.Millisecond)
	require.ErrorIs(t, err, device.ErrProtoTimeout)

	// The waiter must be cleaned up: registering again succeeds.
	_, err = d.WaitProto(context.Background(), uint32(wearpb.TypeWatchFace),
		wearpb.WatchFaceIDGetInstalledList, 50*time.Millisecond)
	require.ErrorIs(t, err, device.ErrProtoTimeout)
}

func TestWaitProtoConflict(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := d.WaitProto(context.Background(), uint32(wearpb.TypeThirdpartyApp),
			wearpb.ThirdpartyAppIDReportInstallResult, time.Second)
		done <- err
	}()

	// Wait until the first waiter is registered, then try a duplicate.
	require.Eventually(t, func() bool {
		_, err := d.WaitProto(context.Background(), uint32(wearpb.TypeThirdpartyApp),
			wearpb.ThirdpartyAppIDReportInstallResult, time.Millisecond)
		return err == pending.ErrConflictingWaiter
	}, time.Second, time.Millisecond, "duplicate waiter never refused")

	<-done
}

func TestSubscribeProtoFanOut(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	got := make(chan string, 2)
	d.SubscribeProto(uint32(wearpb.TypeThirdpartyApp), func(p *wearpb.WearPacket) {
		got <- "first"
	})
	d.SubscribeProto(uint32(wearpb.TypeThirdpartyApp), func(p *wearpb.WearPacket) {
		got <- "second"
	})

	// Unsolicited push from the watch.
	push := &wearpb.WearPacket{
		Type: wearpb.TypeThirdpartyApp,
		ID:   wearpb.ThirdpartyAppIDBasicInfo,
		ThirdpartyApp: &wearpb.ThirdpartyApp{
			BasicInfo: &wearpb.AppBasicInfo{PackageName: "com.example.qa"},
		},
	}
	frame, err := wire.NewData(1, wire.ChannelPb, wire.OpPlain, push.Marshal()).Encode()
	require.NoError(t, err)
	w.Link().InjectBytes(frame)

	require.Equal(t, "first", <-got)
	require.Equal(t, "second", <-got)
}

func TestInboundDataIsAcked(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)
	_ = d

	push := &wearpb.WearPacket{Type: wearpb.TypeSystem, ID: wearpb.SystemIDGetDeviceStatus}
	frame, err := wire.NewData(9, wire.ChannelPb, wire.OpPlain, push.Marshal()).Encode()
	require.NoError(t, err)
	w.Link().InjectBytes(frame)

	// The host must acknowledge seq 9.
	require.Eventually(t, func() bool {
		for _, chunk := range w.Link().Sent() {
			if len(chunk) == wire.HeaderSize &&
				chunk[2] == byte(wire.PacketACK) && chunk[3] == 9 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "no ACK for seq 9")
}

func TestNetworkSinkReceivesFrames(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	got := make(chan []byte, 1)
	d.SetNetworkSink(func(b []byte) { got <- b })

	w.SendNetwork([]byte{0x45, 0x00, 0x00, 0x1C})

	select {
	case frame := <-got:
		require.Equal(t, []byte{0x45, 0x00, 0x00, 0x1C}, frame)
	case <-time.After(time.Second):
		t.Fatal("network sink never invoked")
	}
}

func TestDisconnectAbortsWaiters(t *testing.T) {
	w := testharness.New(testAuthKey)
	defer w.Close()
	d := newDevice(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := d.WaitProto(context.Background(), uint32(wearpb.TypeMass),
			wearpb.MassIDPrepare, time.Minute)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, d.Disconnect())

	select {
	case err := <-done:
		require.ErrorIs(t, err, device.ErrLinkDown)
	case <-time.After(time.Second):
		t.Fatal("waiter not aborted by disconnect")
	}

	// Disconnect is idempotent.
	require.NoError(t, d.Disconnect())
}

func TestSlotSingleOccupancy(t *testing.T) {
	slot := device.NewSlot()

	w1 := testharness.New(testAuthKey)
	defer w1.Close()
	d1 := newDevice(t, w1)
	require.NoError(t, slot.Set(d1))
	require.Same(t, d1, slot.Get())

	// A second live device is refused.
	w2 := testharness.New(testAuthKey)
	defer w2.Close()
	d2 := newDevice(t, w2)
	require.ErrorIs(t, slot.Set(d2), device.ErrSlotOccupied)

	// After the first dies, the slot accepts a replacement.
	require.NoError(t, d1.Disconnect())
	require.NoError(t, slot.Set(d2))

	notified := make(chan struct{}, 1)
	slot.OnDisconnect(func() { notified <- struct{}{} })
	slot.Drop()
	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("disconnect listener not notified")
	}
	require.Nil(t, slot.Get())
}
