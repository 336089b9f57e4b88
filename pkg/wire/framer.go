package wire

import (
	"sync"
)

// Framer reassembles transport chunks into complete packets.
//
// Bytes pushed in are buffered until a complete, CRC-valid frame is
// available. Garbage in front of a frame and frames corrupted in transit are
// skipped one byte at a time, so a single bad chunk cannot wedge the stream.
type Framer struct {
	mu  sync.Mutex
	buf []byte
}

// NewFramer creates an empty framer.
func NewFramer() *Framer {
	return &Framer{}
}

// PushBytes appends a transport chunk to the reassembly buffer.
func (f *Framer) PushBytes(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = append(f.buf, chunk...)
}

// Buffered returns the number of bytes held for reassembly.
func (f *Framer) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf)
}

// Reset discards all buffered bytes.
func (f *Framer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = nil
}

// DrainPackets extracts every complete packet currently buffered.
//
// A partial frame at the tail is retained for the next push. The result is
// in arrival order and may be empty.
func (f *Framer) DrainPackets() []*Packet {
	f.mu.Lock()
	defer f.mu.Unlock()

	var packets []*Packet
	idx := 0
	for len(f.buf)-idx >= HeaderSize {
		if f.buf[idx] != Magic[0] || f.buf[idx+1] != Magic[1] {
			idx++
			continue
		}

		pkt, n, err := Parse(f.buf[idx:])
		switch err {
		case nil:
			packets = append(packets, pkt)
			idx += n
		case ErrShortFrame:
			// Wait for more bytes; keep the partial frame buffered.
			f.buf = f.buf[idx:]
			return packets
		default:
			// CRC mismatch or mangled header: resync one byte forward.
			idx++
		}
	}

	if idx > 0 {
		f.buf = f.buf[idx:]
	}
	return packets
}
