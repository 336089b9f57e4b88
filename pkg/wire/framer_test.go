package wire

import (
	"bytes"
	"math/rand"
	"testing"
)

func encodeAll(t *testing.T, pkts ...*Packet) []byte {
	t.Helper()
	var stream []byte
	for _, p := range pkts {
		enc, err := p.Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		stream = append(stream, enc...)
	}
	return stream
}

func TestFramerSingleFrame(t *testing.T) {
	f := NewFramer()
	f.PushBytes(encodeAll(t, NewData(1, ChannelPb, OpPlain, []byte{0x42})))

	pkts := f.DrainPackets()
	if len(pkts) != 1 {
		t.Fatalf("DrainPackets() len = %d, want 1", len(pkts))
	}
	if pkts[0].Seq != 1 {
		t.Errorf("Seq = %d, want 1", pkts[0].Seq)
	}
	if f.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", f.Buffered())
	}
}

func TestFramerPartialFrame(t *testing.T) {
	f := NewFramer()
	stream := encodeAll(t, NewData(9, ChannelMass, OpPlain, bytes.Repeat([]byte{0x55}, 64)))

	f.PushBytes(stream[:10])
	if pkts := f.DrainPackets(); len(pkts) != 0 {
		t.Fatalf("DrainPackets() on partial frame len = %d, want 0", len(pkts))
	}

	f.PushBytes(stream[10:])
	pkts := f.DrainPackets()
	if len(pkts) != 1 {
		t.Fatalf("DrainPackets() len = %d, want 1", len(pkts))
	}
	if len(pkts[0].Body) != 66 {
		t.Errorf("body len = %d, want 66", len(pkts[0].Body))
	}
}

func TestFramerSkipsGarbage(t *testing.T) {
	f := NewFramer()
	stream := append([]byte{0x00, 0xFF, 0xA5, 0x13}, encodeAll(t, NewACK(5))...)
	f.PushBytes(stream)

	pkts := f.DrainPackets()
	if len(pkts) != 1 {
		t.Fatalf("DrainPackets() len = %d, want 1", len(pkts))
	}
	if pkts[0].Type != PacketACK || pkts[0].Seq != 5 {
		t.Errorf("packet = (%v, %d), want (ACK, 5)", pkts[0].Type, pkts[0].Seq)
	}
}

func TestFramerResyncsOnCorruptCRC(t *testing.T) {
	f := NewFramer()
	bad := encodeAll(t, NewData(1, ChannelPb, OpPlain, []byte{0x01, 0x02, 0x03}))
	bad[HeaderSize] ^= 0xFF // corrupt body, CRC now mismatches
	good := encodeAll(t, NewData(2, ChannelPb, OpPlain, []byte{0x04}))

	f.PushBytes(append(bad, good...))
	pkts := f.DrainPackets()
	if len(pkts) != 1 {
		t.Fatalf("DrainPackets() len = %d, want 1 (corrupt frame dropped)", len(pkts))
	}
	if pkts[0].Seq != 2 {
		t.Errorf("Seq = %d, want 2", pkts[0].Seq)
	}
}

// Feeding any chunk partition of a byte stream must yield the same packets
// as feeding the stream at once.
func TestFramerChunkPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var packets []*Packet
	for i := 0; i < 20; i++ {
		payload := make([]byte, rng.Intn(400))
		rng.Read(payload)
		packets = append(packets, NewData(uint8(i), ChannelPb, OpPlain, payload))
	}
	stream := encodeAll(t, packets...)
	// Sprinkle garbage between some frames.
	stream = append([]byte{0x13, 0x37}, stream...)

	whole := NewFramer()
	whole.PushBytes(stream)
	want := whole.DrainPackets()
	if len(want) != len(packets) {
		t.Fatalf("baseline drain len = %d, want %d", len(want), len(packets))
	}

	for trial := 0; trial < 50; trial++ {
		f := NewFramer()
		var got []*Packet
		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			f.PushBytes(rest[:n])
			got = append(got, f.DrainPackets()...)
			rest = rest[n:]
		}

		if len(got) != len(want) {
			t.Fatalf("trial %d: len = %d, want %d", trial, len(got), len(want))
		}
		for i := range got {
			if got[i].Seq != want[i].Seq || !bytes.Equal(got[i].Body, want[i].Body) {
				t.Fatalf("trial %d: packet %d differs", trial, i)
			}
		}
	}
}
