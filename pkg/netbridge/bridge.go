package netbridge

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"gvisor.dev/gvisor/pkg/buffer"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/adapters/gonet"
	"gvisor.dev/gvisor/pkg/tcpip/header"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
	"gvisor.dev/gvisor/pkg/tcpip/transport/tcp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/udp"
	"gvisor.dev/gvisor/pkg/waiter"

	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/log"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// FIFO depth of the virtual tun device, in frames per direction.
const tunQueueDepth = 100

const nicID tcpip.NICID = 1

// Bridge errors.
var (
	// ErrBridgeClosed indicates the bridge was shut down.
	ErrBridgeClosed = errors.New("network bridge closed")
)

// SpeedFunc receives one bandwidth snapshot per second.
type SpeedFunc func(readBps, writeBps float64)

// Config tunes a Bridge.
type Config struct {
	// MTU overrides the device state's tun MTU.
	MTU uint16

	// Capture, when non-nil, records every frame.
	Capture *Capture

	// OnSpeed receives bandwidth snapshots. Nil disables reporting.
	OnSpeed SpeedFunc

	// Logger receives protocol events. Nil disables capture.
	Logger log.Logger

	// UDPIdleTimeout closes idle relayed UDP flows. Zero means 60s.
	UDPIdleTimeout time.Duration
}

// Bridge drives the user-space IP stack for one device.
type Bridge struct {
	dev     *device.Device
	capture *Capture
	meter   *BandwidthMeter
	logger  log.Logger
	onSpeed SpeedFunc
	udpIdle time.Duration

	stack *stack.Stack
	ep    *channel.Endpoint

	inbound chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Start wires a bridge onto the device's Network channel.
func Start(dev *device.Device, cfg Config) (*Bridge, error) {
	mtu := cfg.MTU
	if mtu == 0 {
		mtu = dev.State().NetworkMTU()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	udpIdle := cfg.UDPIdleTimeout
	if udpIdle <= 0 {
		udpIdle = 60 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		dev:     dev,
		capture: cfg.Capture,
		meter:   NewBandwidthMeter(MeterWindow),
		logger:  logger,
		onSpeed: cfg.OnSpeed,
		udpIdle: udpIdle,
		inbound: make(chan []byte, tunQueueDepth),
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := b.buildStack(uint32(mtu)); err != nil {
		cancel()
		return nil, err
	}

	dev.SetNetworkSink(b.ingress)

	b.wg.Add(3)
	go b.pumpInbound()
	go b.pumpOutbound()
	go b.reportSpeed()

	// The bridge dies with the device.
	go func() {
		select {
		case <-dev.Done():
			b.Close()
		case <-ctx.Done():
		}
	}()

	return b, nil
}

// Meter returns the bridge's bandwidth meter.
func (b *Bridge) Meter() *BandwidthMeter {
	return b.meter
}

// Close stops the stack and the pumps. Idempotent.
func (b *Bridge) Close() {
	b.once.Do(func() {
		b.dev.SetNetworkSink(nil)
		b.cancel()
		b.wg.Wait()
		b.ep.Close()
		b.stack.Destroy()
		if b.capture != nil {
			_ = b.capture.Close()
		}
	})
}

// buildStack assembles the netstack with TCP/UDP forwarders that relay to
// the OS socket layer.
func (b *Bridge) buildStack(mtu uint32) error {
	s := stack.New(stack.Options{
		NetworkProtocols:   []stack.NetworkProtocolFactory{ipv4.NewProtocol},
		TransportProtocols: []stack.TransportProtocolFactory{tcp.NewProtocol, udp.NewProtocol},
	})

	ep := channel.New(tunQueueDepth, mtu, "")
	if err := s.CreateNIC(nicID, ep); err != nil {
		s.Destroy()
		return errors.New(err.String())
	}

	// Accept any destination the watch addresses; the forwarders dial out.
	if err := s.SetPromiscuousMode(nicID, true); err != nil {
		s.Destroy()
		return errors.New(err.String())
	}
	if err := s.SetSpoofing(nicID, true); err != nil {
		s.Destroy()
		return errors.New(err.String())
	}
	s.SetRouteTable([]tcpip.Route{{Destination: header.IPv4EmptySubnet, NIC: nicID}})

	tcpFwd := tcp.NewForwarder(s, 0, 512, func(r *tcp.ForwarderRequest) {
		var wq waiter.Queue
		ep, tcpErr := r.CreateEndpoint(&wq)
		if tcpErr != nil {
			r.Complete(true)
			return
		}
		r.Complete(false)
		go b.relayTCP(gonet.NewTCPConn(&wq, ep), r.ID())
	})
	s.SetTransportProtocolHandler(tcp.ProtocolNumber, tcpFwd.HandlePacket)

	udpFwd := udp.NewForwarder(s, func(r *udp.ForwarderRequest) {
		var wq waiter.Queue
		ep, udpErr := r.CreateEndpoint(&wq)
		if udpErr != nil {
			return
		}
		go b.relayUDP(gonet.NewUDPConn(&wq, ep), r.ID())
	})
	s.SetTransportProtocolHandler(udp.ProtocolNumber, udpFwd.HandlePacket)

	b.stack = s
	b.ep = ep
	return nil
}

// ingress receives decrypted Network-channel payloads from the device.
// DHCP and ICMP echo short-circuit; everything else enters the stack.
func (b *Bridge) ingress(frame []byte) {
	if reply := HandleDHCP(frame); reply != nil {
		b.sendToDevice(reply)
		return
	}
	if reply := HandleICMPEcho(frame); reply != nil {
		b.sendToDevice(reply)
		return
	}

	select {
	case b.inbound <- frame:
	default:
		// Slow stack; dropping beats unbounded memory on a flaky link.
		b.logError(errors.New("inbound tun queue full"), "ingress")
	}
}

// pumpInbound feeds device frames into the stack.
func (b *Bridge) pumpInbound() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case frame := <-b.inbound:
			b.meter.AddRead(len(frame))
			if b.capture != nil {
				b.capture.WriteInbound(frame)
			}
			pkb := stack.NewPacketBuffer(stack.PacketBufferOptions{
				Payload: buffer.MakeWithData(frame),
			})
			b.ep.InjectInbound(header.IPv4ProtocolNumber, pkb)
			pkb.DecRef()
		}
	}
}

// pumpOutbound moves stack output back to the watch.
func (b *Bridge) pumpOutbound() {
	defer b.wg.Done()
	for {
		pkt := b.ep.ReadContext(b.ctx)
		if pkt == nil {
			return
		}
		buf := pkt.ToBuffer()
		frame := buf.Flatten()
		pkt.DecRef()

		b.sendToDevice(frame)
	}
}

// sendToDevice writes one IP frame to the Network channel.
func (b *Bridge) sendToDevice(frame []byte) {
	b.meter.AddWritten(len(frame))
	if b.capture != nil {
		b.capture.WriteOutbound(frame)
	}

	ctx, cancel := context.WithTimeout(b.ctx, device.DefaultRequestTimeout)
	defer cancel()
	if err := b.dev.SendPacket(ctx, wire.ChannelNetwork, wire.OpPlain, frame); err != nil {
		b.logError(err, "send network frame")
	}
}

// reportSpeed emits one bandwidth snapshot per second.
func (b *Bridge) reportSpeed() {
	defer b.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			read, write := b.meter.ReadSpeed(), b.meter.WriteSpeed()
			if b.onSpeed != nil {
				b.onSpeed(read, write)
			}
			b.logger.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: b.dev.ConnectionID(),
				Direction:    log.DirectionIn,
				Layer:        log.LayerNetwork,
				Category:     log.CategoryTraffic,
				DeviceAddr:   b.dev.State().Addr(),
				Traffic:      &log.TrafficEvent{ReadBps: read, WriteBps: write},
			})
		}
	}
}

// relayTCP bridges one stack stream to an OS TCP socket.
func (b *Bridge) relayTCP(conn *gonet.TCPConn, id stack.TransportEndpointID) {
	defer conn.Close()

	target := net.JoinHostPort(id.LocalAddress.String(), strconv.Itoa(int(id.LocalPort)))
	upstream, err := net.DialTimeout("tcp", target, 10*time.Second)
	if err != nil {
		b.logError(err, "dial tcp "+target)
		return
	}
	defer upstream.Close()

	done := make(chan struct{}, 2)
	go proxyHalf(upstream, conn, done)
	go proxyHalf(conn, upstream, done)

	select {
	case <-done:
	case <-b.ctx.Done():
	}
}

// relayUDP bridges one stack flow to an OS UDP socket.
func (b *Bridge) relayUDP(conn *gonet.UDPConn, id stack.TransportEndpointID) {
	defer conn.Close()

	target := net.JoinHostPort(id.LocalAddress.String(), strconv.Itoa(int(id.LocalPort)))
	upstream, err := net.Dial("udp", target)
	if err != nil {
		b.logError(err, "dial udp "+target)
		return
	}
	defer upstream.Close()

	done := make(chan struct{}, 2)
	go proxyUDPHalf(upstream, conn, b.udpIdle, done)
	go proxyUDPHalf(conn, upstream, b.udpIdle, done)

	select {
	case <-done:
	case <-b.ctx.Done():
	}
}

func proxyHalf(dst io.Writer, src io.Reader, done chan<- struct{}) {
	_, _ = io.Copy(dst, src)
	done <- struct{}{}
}

// proxyUDPHalf copies datagrams with an idle deadline per read.
func proxyUDPHalf(dst net.Conn, src net.Conn, idle time.Duration, done chan<- struct{}) {
	buf := make([]byte, 65535)
	for {
		_ = src.SetReadDeadline(time.Now().Add(idle))
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}
	done <- struct{}{}
}

func (b *Bridge) logError(err error, context string) {
	b.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: b.dev.ConnectionID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerNetwork,
		Category:     log.CategoryError,
		DeviceAddr:   b.dev.State().Addr(),
		Error:        &log.ErrorEventData{Layer: log.LayerNetwork, Message: err.Error(), Context: context},
	})
}
