package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/pending"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// fakeExec records written frames and lets tests gate the worker.
type fakeExec struct {
	mu     sync.Mutex
	lock   sync.Mutex
	ack    *pending.AckSlot
	seq    uint8
	writes []wire.Channel
	gate   chan struct{} // if non-nil, WriteFrame blocks on it

	massActive bool
}

func newFakeExec() *fakeExec {
	return &fakeExec{ack: pending.NewAckSlot()}
}

func (f *fakeExec) BuildFrame(ch wire.Channel, op wire.OpCode, payload []byte) (uint8, []byte, error) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()
	frame, err := wire.NewData(seq, ch, op, payload).Encode()
	return seq, frame, err
}

func (f *fakeExec) WriteFrame(ctx context.Context, frame []byte) error {
	if f.gate != nil {
		<-f.gate
	}
	pkt, _, err := wire.Parse(frame)
	if err != nil {
		return err
	}
	pl, err := pkt.DataFields()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.writes = append(f.writes, pl.Channel)
	f.mu.Unlock()
	return nil
}

func (f *fakeExec) SendLock() *sync.Mutex     { return &f.lock }
func (f *fakeExec) AckSlot() *pending.AckSlot { return f.ack }
func (f *fakeExec) MassActive() bool          { return f.massActive }

func (f *fakeExec) written() []wire.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wire.Channel(nil), f.writes...)
}

func push(p *Pool, ch wire.Channel) <-chan Result {
	return p.Push(&Command{Channel: ch, Op: wire.OpPlain, Kind: KindSend})
}

func TestPoolSend(t *testing.T) {
	exec := newFakeExec()
	p := NewPool(exec)
	defer p.Close()

	res := <-push(p, wire.ChannelPb)
	if res.Err != nil {
		t.Fatalf("Send result = %v", res.Err)
	}
	if got := exec.written(); len(got) != 1 || got[0] != wire.ChannelPb {
		t.Errorf("writes = %v, want [PB]", got)
	}
}

func TestPoolPriorityOrder(t *testing.T) {
	exec := newFakeExec()
	exec.gate = make(chan struct{})
	p := NewPool(exec)
	defer p.Close()

	// Plug the worker so subsequent pushes queue up.
	plug := push(p, wire.ChannelLyra)

	// Give the worker a moment to dequeue the plug.
	time.Sleep(20 * time.Millisecond)

	pushed := []wire.Channel{
		wire.ChannelPb, wire.ChannelMass, wire.ChannelPb,
		wire.ChannelNetwork, wire.ChannelMass, wire.ChannelNetwork,
	}
	var results []<-chan Result
	for _, ch := range pushed {
		results = append(results, push(p, ch))
	}

	want := []wire.Channel{
		wire.ChannelMass, wire.ChannelMass,
		wire.ChannelPb, wire.ChannelPb,
		wire.ChannelNetwork, wire.ChannelNetwork,
	}
	if got := p.Snapshot(); len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(want))
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Snapshot()[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	}

	// Release the worker and wait for everything to drain.
	close(exec.gate)
	<-plug
	for _, r := range results {
		if res := <-r; res.Err != nil {
			t.Fatalf("result = %v", res.Err)
		}
	}

	got := exec.written()[1:] // drop the plug write
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("execution[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPoolWaitAck(t *testing.T) {
	exec := newFakeExec()
	p := NewPool(exec)
	defer p.Close()

	done := p.Push(&Command{
		Channel: wire.ChannelPb, Op: wire.OpPlain, Kind: KindWaitAck,
		Timeout: time.Second,
	})

	// Simulate the peer's ACK once the frame is out.
	deadline := time.After(time.Second)
	for {
		if exec.ack.Signal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("frame never written")
		case <-time.After(time.Millisecond):
		}
	}

	if res := <-done; res.Err != nil {
		t.Fatalf("WaitAck result = %v", res.Err)
	}
}

func TestPoolWaitAckTimeout(t *testing.T) {
	exec := newFakeExec()
	p := NewPool(exec)
	defer p.Close()

	res := <-p.Push(&Command{
		Channel: wire.ChannelPb, Op: wire.OpPlain, Kind: KindWaitAck,
		Timeout: 30 * time.Millisecond,
	})
	if res.Err != ErrAckTimeout {
		t.Fatalf("result = %v, want %v", res.Err, ErrAckTimeout)
	}

	// The pending slot must have been cleaned up.
	if exec.ack.Signal() {
		t.Error("ack slot still occupied after timeout")
	}
}

func TestPoolRegisterAck(t *testing.T) {
	exec := newFakeExec()
	p := NewPool(exec)
	defer p.Close()

	res := <-p.Push(&Command{
		Channel: wire.ChannelMass, Op: wire.OpPlain, Kind: KindRegisterAck, Unlocked: true,
	})
	if res.Err != nil {
		t.Fatalf("RegisterAck result = %v", res.Err)
	}
	if res.Ack == nil {
		t.Fatal("RegisterAck returned no ack channel")
	}

	exec.ack.Signal()
	select {
	case <-res.Ack:
	case <-time.After(time.Second):
		t.Fatal("ack not delivered")
	}
}

func TestPoolNetworkBypassesLockDuringMass(t *testing.T) {
	exec := newFakeExec()
	exec.massActive = true
	p := NewPool(exec)
	defer p.Close()

	// Simulate a mass transfer holding the send lock for its full duration.
	exec.lock.Lock()
	defer exec.lock.Unlock()

	select {
	case res := <-push(p, wire.ChannelNetwork):
		if res.Err != nil {
			t.Fatalf("Network send result = %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("Network send blocked on the mass-held lock")
	}
}

func TestPoolClose(t *testing.T) {
	exec := newFakeExec()
	exec.gate = make(chan struct{})
	p := NewPool(exec)

	plug := push(p, wire.ChannelPb)
	time.Sleep(10 * time.Millisecond)
	queued := push(p, wire.ChannelPb)

	p.Close()
	close(exec.gate)
	<-plug

	if res := <-queued; res.Err != ErrPoolClosed {
		t.Errorf("queued result = %v, want %v", res.Err, ErrPoolClosed)
	}
}
