package session

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultFragmentDelay is the pacing sleep between fragments of one frame.
const DefaultFragmentDelay = 5 * time.Millisecond

// HelloBlob is the fixed hello the host sends to open a session.
var HelloBlob = []byte{0xBA, 0xDC, 0xFE, 0x00, 0xC0, 0x03, 0x00, 0x00, 0x01, 0x00, 0xEF}

// SessionConfigFrame is the fixed SessionConfig packet (type 2) the host
// sends when the watch's hello arrives. The body advertises per-channel
// properties and is treated as an opaque constant.
var SessionConfigFrame = []byte{
	0xA5, 0xA5, 0x02, 0x00, 0x16, 0x00, 0x1D, 0x4D,
	0x01, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x00, 0x00, 0xFC, 0x03, 0x02, 0x00, 0x20,
	0x00, 0x04, 0x02, 0x00, 0x10, 0x27,
}

// SeqCounter is the shared 8-bit sequence counter.
// The zero value is ready to use; the first value issued is 0.
type SeqCounter struct {
	v atomic.Uint32
}

// Next returns the next sequence number, wrapping 255 → 0.
func (c *SeqCounter) Next() uint8 {
	for {
		cur := c.v.Load()
		next := cur + 1
		if cur == 255 {
			next = 0
		}
		if c.v.CompareAndSwap(cur, next) {
			return uint8(cur)
		}
	}
}

// Sender writes one chunk to the link.
type Sender func(ctx context.Context, chunk []byte) error

// Fragmenter splits frames into link-sized chunks with pacing.
type Fragmenter struct {
	// MaxChunk is the largest single write the link accepts.
	MaxChunk int

	// Delay is the sleep before each chunk after the first.
	// Zero disables pacing.
	Delay time.Duration
}

// Split returns the frame cut into chunks of at most MaxChunk bytes.
// The chunks alias the input frame.
func (f *Fragmenter) Split(frame []byte) [][]byte {
	if f.MaxChunk <= 0 || len(frame) <= f.MaxChunk {
		return [][]byte{frame}
	}
	chunks := make([][]byte, 0, (len(frame)+f.MaxChunk-1)/f.MaxChunk)
	for len(frame) > f.MaxChunk {
		chunks = append(chunks, frame[:f.MaxChunk])
		frame = frame[f.MaxChunk:]
	}
	return append(chunks, frame)
}

// Write sends the frame through send, fragment by fragment.
// The caller is responsible for holding the transport send lock so the
// fragment sequence is not interleaved with another frame's.
func (f *Fragmenter) Write(ctx context.Context, send Sender, frame []byte) error {
	chunks := f.Split(frame)
	for i, chunk := range chunks {
		if i > 0 && f.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.Delay):
			}
		}
		if err := send(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}
