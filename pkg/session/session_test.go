package session

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

func TestSeqCounterWraps(t *testing.T) {
	var c SeqCounter

	for i := 0; i < 256; i++ {
		if got := c.Next(); got != uint8(i) {
			t.Fatalf("Next() #%d = %d, want %d", i, got, i)
		}
	}
	if got := c.Next(); got != 0 {
		t.Errorf("Next() after 255 = %d, want 0 (wrap)", got)
	}
}

func TestSeqCounterConcurrent(t *testing.T) {
	var c SeqCounter
	var wg sync.WaitGroup
	seen := make([]int32, 256)
	var mu sync.Mutex

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 32; j++ {
				s := c.Next()
				mu.Lock()
				seen[s]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 256 draws over a 256-value space: every value exactly once.
	for v, n := range seen {
		if n != 1 {
			t.Errorf("seq %d issued %d times, want 1", v, n)
		}
	}
}

func TestFragmenterReassembles(t *testing.T) {
	for _, maxChunk := range []int{20, 33, 244, 977, 4096} {
		f := &Fragmenter{MaxChunk: maxChunk}
		frame := make([]byte, 5000)
		for i := range frame {
			frame[i] = byte(i)
		}

		var got []byte
		err := f.Write(context.Background(), func(_ context.Context, chunk []byte) error {
			if len(chunk) > maxChunk {
				t.Fatalf("chunk of %d bytes exceeds max %d", len(chunk), maxChunk)
			}
			got = append(got, chunk...)
			return nil
		}, frame)
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if !bytes.Equal(got, frame) {
			t.Errorf("maxChunk %d: concatenated fragments differ from frame", maxChunk)
		}
	}
}

func TestFragmenterSmallFrameSingleWrite(t *testing.T) {
	f := &Fragmenter{MaxChunk: 244}
	writes := 0
	err := f.Write(context.Background(), func(_ context.Context, chunk []byte) error {
		writes++
		return nil
	}, make([]byte, 100))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
}

func TestFragmenterCancellation(t *testing.T) {
	f := &Fragmenter{MaxChunk: 10, Delay: DefaultFragmentDelay}
	ctx, cancel := context.WithCancel(context.Background())

	writes := 0
	err := f.Write(ctx, func(_ context.Context, chunk []byte) error {
		writes++
		cancel()
		return nil
	}, make([]byte, 100))

	if err != context.Canceled {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
	if writes != 1 {
		t.Errorf("writes = %d, want 1 (stopped at pacing sleep)", writes)
	}
}

func TestHelloConstants(t *testing.T) {
	if !wire.IsHello(HelloBlob) {
		t.Error("HelloBlob does not carry the hello prefix")
	}
	if len(HelloBlob) != 11 {
		t.Errorf("HelloBlob len = %d, want 11", len(HelloBlob))
	}

	// SessionConfigFrame must be a valid type-2 frame.
	pkt, n, err := wire.Parse(SessionConfigFrame)
	if err != nil {
		t.Fatalf("Parse(SessionConfigFrame) error = %v", err)
	}
	if n != len(SessionConfigFrame) {
		t.Errorf("Parse consumed %d, want %d", n, len(SessionConfigFrame))
	}
	if pkt.Type != wire.PacketSessionConfig {
		t.Errorf("Type = %v, want SESSION_CONFIG", pkt.Type)
	}
}
