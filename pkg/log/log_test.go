package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvent(dir Direction) Event {
	ch := uint8(1)
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-1",
		Direction:    dir,
		Layer:        LayerWire,
		Category:     CategoryPacket,
		DeviceAddr:   "a4:c1:38:00:11:22",
		Packet: &PacketEvent{
			PacketType: 3,
			Seq:        7,
			Channel:    &ch,
			BodySize:   4,
		},
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	ev := sampleEvent(DirectionOut)

	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}

	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if got.ConnectionID != ev.ConnectionID || got.Direction != ev.Direction {
		t.Errorf("decoded header differs: %+v", got)
	}
	if got.Packet == nil || got.Packet.Seq != 7 || *got.Packet.Channel != 1 {
		t.Errorf("decoded packet differs: %+v", got.Packet)
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	big := make([]byte, MaxFrameEventData+100)
	ev := NewFrameEvent(big)
	if !ev.Truncated {
		t.Error("Truncated = false for oversized chunk")
	}
	if len(ev.Data) != MaxFrameEventData {
		t.Errorf("Data len = %d, want %d", len(ev.Data), MaxFrameEventData)
	}
	if ev.Size != len(big) {
		t.Errorf("Size = %d, want %d", ev.Size, len(big))
	}
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.mlog")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	fl.Log(sampleEvent(DirectionOut))
	fl.Log(sampleEvent(DirectionIn))
	fl.Log(sampleEvent(DirectionOut))
	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Unfiltered: all three events.
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	count := 0
	for {
		if _, err := r.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		count++
	}
	r.Close()
	if count != 3 {
		t.Errorf("event count = %d, want 3", count)
	}

	// Filtered by direction.
	in := DirectionIn
	fr, err := NewFilteredReader(path, Filter{Direction: &in})
	if err != nil {
		t.Fatalf("NewFilteredReader() error = %v", err)
	}
	defer fr.Close()
	count = 0
	for {
		ev, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if ev.Direction != DirectionIn {
			t.Errorf("filter leaked direction %v", ev.Direction)
		}
		count++
	}
	if count != 1 {
		t.Errorf("filtered count = %d, want 1", count)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.mlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	// Logging after close is a no-op.
	fl.Log(sampleEvent(DirectionIn))
}

func TestMultiLogger(t *testing.T) {
	var a, b countingLogger
	m := NewMultiLogger(&a, &b)
	m.Log(sampleEvent(DirectionIn))
	m.Log(sampleEvent(DirectionOut))

	if a.n != 2 || b.n != 2 {
		t.Errorf("counts = (%d, %d), want (2, 2)", a.n, b.n)
	}
}

type countingLogger struct{ n int }

func (c *countingLogger) Log(Event) { c.n++ }

func TestSlogAdapterDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	a := NewSlogAdapter(logger)

	a.Log(sampleEvent(DirectionIn))
	a.Log(Event{
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityAuth, NewState: "AUTHENTICATED"},
	})
	a.Log(Event{
		Category: CategoryTraffic,
		Traffic:  &TrafficEvent{ReadBps: 1024, WriteBps: 2048},
	})
	a.Log(Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerTransport, Message: "link reset"},
	})
}
