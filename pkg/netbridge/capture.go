package netbridge

import (
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Synthetic Ethernet addressing for the capture file. The watch side gets
// a recognizable repeated-A5 MAC; the host side is all zeroes.
var (
	captureDeviceMAC = []byte{0xA5, 0xA5, 0xA5, 0xA5, 0xA5, 0xA5}
	captureHostMAC   = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// etherTypeIPv4 is the Ethernet payload type written ahead of every frame.
var etherTypeIPv4 = []byte{0x08, 0x00}

// Capture appends tunneled frames to a pcap stream with a synthetic
// 14-byte Ethernet header so standard tools can open it.
type Capture struct {
	mu sync.Mutex
	w  *pcapgo.Writer
	c  io.Closer
}

// NewCapture writes a pcap header to w and returns the capture.
// If w implements io.Closer, Close closes it.
func NewCapture(w io.Writer) (*Capture, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return nil, err
	}
	c, _ := w.(io.Closer)
	return &Capture{w: pw, c: c}, nil
}

// WriteInbound records a device→host IP frame.
func (c *Capture) WriteInbound(frame []byte) {
	c.write(captureHostMAC, captureDeviceMAC, frame)
}

// WriteOutbound records a host→device IP frame.
func (c *Capture) WriteOutbound(frame []byte) {
	c.write(captureDeviceMAC, captureHostMAC, frame)
}

func (c *Capture) write(dst, src, frame []byte) {
	pkt := make([]byte, 0, 14+len(frame))
	pkt = append(pkt, dst...)
	pkt = append(pkt, src...)
	pkt = append(pkt, etherTypeIPv4...)
	pkt = append(pkt, frame...)

	c.mu.Lock()
	defer c.mu.Unlock()
	// Capture failures must not disturb the tunnel.
	_ = c.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(pkt),
		Length:        len(pkt),
	}, pkt)
}

// Close closes the underlying writer if it is closable.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.c != nil {
		return c.c.Close()
	}
	return nil
}
