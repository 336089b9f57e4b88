package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/pending"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// DefaultTimeout is the default wait-for-ACK window.
const DefaultTimeout = 5 * time.Second

// Pool errors.
var (
	// ErrAckTimeout indicates the peer did not acknowledge in time.
	ErrAckTimeout = errors.New("ack timeout")

	// ErrPoolClosed indicates the pool worker has stopped.
	ErrPoolClosed = errors.New("command pool closed")
)

// Kind selects how a command's completion is observed.
type Kind uint8

const (
	// KindSend completes when the frame is written.
	KindSend Kind = iota

	// KindWaitAck completes when the peer ACKs, or fails on timeout.
	KindWaitAck

	// KindRegisterAck completes when the frame is written; the ACK channel
	// is returned to the caller un-awaited.
	KindRegisterAck
)

// Command is one queued outbound frame.
type Command struct {
	Channel wire.Channel
	Op      wire.OpCode
	Payload []byte
	Kind    Kind

	// Unlocked skips the transport send lock (KindRegisterAck only); used
	// from within a mass transfer that already holds it.
	Unlocked bool

	// Timeout overrides DefaultTimeout for KindWaitAck.
	Timeout time.Duration

	done chan Result
}

// Result is delivered to the command's issuer.
type Result struct {
	Err error

	// Ack is the un-awaited ACK channel for KindRegisterAck.
	Ack <-chan struct{}
}

// Executor is the device-side surface the pool drives.
type Executor interface {
	// BuildFrame encrypts (if the opcode demands), assigns a sequence
	// number and returns the encoded frame.
	BuildFrame(ch wire.Channel, op wire.OpCode, payload []byte) (seq uint8, frame []byte, err error)

	// WriteFrame fragments and writes one frame. It does not take the send
	// lock; the pool decides when to hold it.
	WriteFrame(ctx context.Context, frame []byte) error

	// SendLock is the transport send lock shared with the mass transfer.
	SendLock() *sync.Mutex

	// AckSlot is the single outstanding wait-for-ACK slot.
	AckSlot() *pending.AckSlot

	// MassActive reports whether a mass transfer currently holds the send
	// lock. Network sends bypass the lock while it does, so tunnel
	// keep-alives flow during long uploads.
	MassActive() bool
}

// Pool is the per-device outbound scheduler.
type Pool struct {
	exec Executor

	mu       sync.Mutex
	queue    []*Command
	priority []wire.Channel

	notify chan struct{}
	stop   chan struct{}
	once   sync.Once
}

// DefaultPriority is the default channel priority order, highest first.
func DefaultPriority() []wire.Channel {
	return []wire.Channel{wire.ChannelMass, wire.ChannelPb, wire.ChannelNetwork}
}

// NewPool creates a pool and starts its worker.
func NewPool(exec Executor) *Pool {
	p := &Pool{
		exec:     exec,
		priority: DefaultPriority(),
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	go p.run()
	return p
}

// SetChannelPriority replaces the priority order, highest first.
// Channels not listed rank below all listed ones.
func (p *Pool) SetChannelPriority(order []wire.Channel) {
	p.mu.Lock()
	p.priority = append([]wire.Channel(nil), order...)
	p.mu.Unlock()
}

// priorityIndex returns the rank of ch; unlisted channels rank last.
// Caller holds p.mu.
func (p *Pool) priorityIndex(ch wire.Channel) int {
	for i, c := range p.priority {
		if c == ch {
			return i
		}
	}
	return len(p.priority)
}

// Push enqueues cmd and returns the channel its Result arrives on.
//
// The command is inserted immediately after the last queued command whose
// priority is equal or higher, preserving FIFO order per priority band.
func (p *Pool) Push(cmd *Command) <-chan Result {
	cmd.done = make(chan Result, 1)

	p.mu.Lock()
	prio := p.priorityIndex(cmd.Channel)
	pos := 0
	for i := len(p.queue) - 1; i >= 0; i-- {
		if p.priorityIndex(p.queue[i].Channel) <= prio {
			pos = i + 1
			break
		}
	}
	p.queue = append(p.queue, nil)
	copy(p.queue[pos+1:], p.queue[pos:])
	p.queue[pos] = cmd
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return cmd.done
}

// Len returns the number of queued commands.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Snapshot returns the queued channels in execution order.
func (p *Pool) Snapshot() []wire.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wire.Channel, len(p.queue))
	for i, c := range p.queue {
		out[i] = c.Channel
	}
	return out
}

// Close stops the worker. Queued commands fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.stop) })
}

func (p *Pool) run() {
	for {
		cmd := p.pop()
		if cmd == nil {
			p.drainClosed()
			return
		}
		p.process(cmd)
	}
}

// pop removes the head of the queue, blocking until one is available or
// the pool is closed (nil).
func (p *Pool) pop() *Command {
	for {
		select {
		case <-p.stop:
			return nil
		default:
		}

		p.mu.Lock()
		if len(p.queue) > 0 {
			cmd := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return cmd
		}
		p.mu.Unlock()

		select {
		case <-p.stop:
			return nil
		case <-p.notify:
		}
	}
}

// drainClosed fails every remaining command.
func (p *Pool) drainClosed() {
	p.mu.Lock()
	rest := p.queue
	p.queue = nil
	p.mu.Unlock()
	for _, cmd := range rest {
		cmd.done <- Result{Err: ErrPoolClosed}
	}
}

func (p *Pool) process(cmd *Command) {
	ctx := context.Background()

	switch cmd.Kind {
	case KindSend:
		_, frame, err := p.exec.BuildFrame(cmd.Channel, cmd.Op, cmd.Payload)
		if err != nil {
			cmd.done <- Result{Err: err}
			return
		}
		if cmd.Channel == wire.ChannelNetwork && p.exec.MassActive() {
			err = p.exec.WriteFrame(ctx, frame)
		} else {
			lock := p.exec.SendLock()
			lock.Lock()
			err = p.exec.WriteFrame(ctx, frame)
			lock.Unlock()
		}
		cmd.done <- Result{Err: err}

	case KindWaitAck:
		_, frame, err := p.exec.BuildFrame(cmd.Channel, cmd.Op, cmd.Payload)
		if err != nil {
			cmd.done <- Result{Err: err}
			return
		}
		ack := p.exec.AckSlot().Register()
		lock := p.exec.SendLock()
		lock.Lock()
		err = p.exec.WriteFrame(ctx, frame)
		lock.Unlock()
		if err != nil {
			p.exec.AckSlot().Remove()
			cmd.done <- Result{Err: err}
			return
		}

		timeout := cmd.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		timer := time.NewTimer(timeout)
		select {
		case <-ack:
			timer.Stop()
			cmd.done <- Result{}
		case <-timer.C:
			p.exec.AckSlot().Remove()
			cmd.done <- Result{Err: ErrAckTimeout}
		case <-p.stop:
			timer.Stop()
			p.exec.AckSlot().Remove()
			cmd.done <- Result{Err: ErrPoolClosed}
		}

	case KindRegisterAck:
		_, frame, err := p.exec.BuildFrame(cmd.Channel, cmd.Op, cmd.Payload)
		if err != nil {
			cmd.done <- Result{Err: err}
			return
		}
		ack := p.exec.AckSlot().Register()
		if cmd.Unlocked {
			err = p.exec.WriteFrame(ctx, frame)
		} else {
			lock := p.exec.SendLock()
			lock.Lock()
			err = p.exec.WriteFrame(ctx, frame)
			lock.Unlock()
		}
		if err != nil {
			p.exec.AckSlot().Remove()
			cmd.done <- Result{Err: err}
			return
		}
		cmd.done <- Result{Ack: ack}
	}
}
