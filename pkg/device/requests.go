package device

import (
	"context"
	"fmt"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/command"
	"github.com/miwear-protocol/miwear-go/pkg/pending"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// SendPacket enqueues a fire-and-forget frame and waits until it is on the
// wire.
func (d *Device) SendPacket(ctx context.Context, ch wire.Channel, op wire.OpCode, payload []byte) error {
	res := d.pool.Push(&command.Command{Channel: ch, Op: op, Payload: payload, Kind: command.KindSend})
	select {
	case r := <-res:
		return r.Err
	case <-d.done:
		return ErrLinkDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendPacketWaitAck enqueues a frame and waits for the peer's ACK.
// timeout <= 0 uses the pool default.
func (d *Device) SendPacketWaitAck(ctx context.Context, ch wire.Channel, op wire.OpCode, payload []byte, timeout time.Duration) error {
	res := d.pool.Push(&command.Command{
		Channel: ch, Op: op, Payload: payload,
		Kind: command.KindWaitAck, Timeout: timeout,
	})
	select {
	case r := <-res:
		return r.Err
	case <-d.done:
		return ErrLinkDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendPacketRegisterAck enqueues a frame and returns the un-awaited ACK
// channel. unlocked skips the send lock and is only valid from within a
// mass transfer that already holds it.
func (d *Device) SendPacketRegisterAck(ctx context.Context, ch wire.Channel, op wire.OpCode, payload []byte, unlocked bool) (<-chan struct{}, error) {
	res := d.pool.Push(&command.Command{
		Channel: ch, Op: op, Payload: payload,
		Kind: command.KindRegisterAck, Unlocked: unlocked,
	})
	select {
	case r := <-res:
		return r.Ack, r.Err
	case <-d.done:
		return nil, ErrLinkDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Request sends a frame and waits for the reply carrying the same sequence
// number. Used for raw request/response on non-protobuf channels and the
// completion notifications of resource flows. timeout <= 0 uses the
// default.
func (d *Device) Request(ctx context.Context, ch wire.Channel, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	seq, frame, err := d.buildFrame(ch, op, payload)
	if err != nil {
		return nil, err
	}

	reply := d.seqTable.Register(seq)

	d.sendMu.Lock()
	err = d.writeFrame(ctx, frame)
	d.sendMu.Unlock()
	if err != nil {
		d.seqTable.Remove(seq)
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case body := <-reply:
		return body, nil
	case <-timer.C:
		d.seqTable.Remove(seq)
		return nil, fmt.Errorf("%w: seq %d", ErrRequestTimeout, seq)
	case <-d.done:
		d.seqTable.Remove(seq)
		return nil, ErrLinkDown
	case <-ctx.Done():
		d.seqTable.Remove(seq)
		return nil, ctx.Err()
	}
}

// RequestProto sends an envelope payload and waits for the protobuf reply
// identified by (expectType, expectID). timeout <= 0 uses the default.
func (d *Device) RequestProto(ctx context.Context, ch wire.Channel, op wire.OpCode, payload []byte, expectType, expectID uint32, timeout time.Duration) (*wearpb.WearPacket, error) {
	key := pending.ProtoKey{Type: expectType, ID: expectID}
	reply, err := d.protoTable.Register(key)
	if err != nil {
		return nil, err
	}

	_, frame, err := d.buildFrame(ch, op, payload)
	if err != nil {
		d.protoTable.Remove(key)
		return nil, err
	}

	d.sendMu.Lock()
	err = d.writeFrame(ctx, frame)
	d.sendMu.Unlock()
	if err != nil {
		d.protoTable.Remove(key)
		return nil, err
	}

	return d.awaitProto(ctx, key, reply, timeout)
}

// WaitProto registers a waiter for an unsolicited protobuf without sending
// anything. Fails immediately with pending.ErrConflictingWaiter if a waiter
// for the key already exists.
func (d *Device) WaitProto(ctx context.Context, expectType, expectID uint32, timeout time.Duration) (*wearpb.WearPacket, error) {
	key := pending.ProtoKey{Type: expectType, ID: expectID}
	reply, err := d.protoTable.Register(key)
	if err != nil {
		return nil, err
	}
	return d.awaitProto(ctx, key, reply, timeout)
}

// SubscribeProto installs a persistent callback for every envelope of the
// given type. Callbacks run on the receive loop and must not block.
func (d *Device) SubscribeProto(msgType uint32, cb func(*wearpb.WearPacket)) {
	d.subscribers.Add(msgType, cb)
}

// awaitProto waits on a registered proto waiter and cleans it up on every
// failure path.
func (d *Device) awaitProto(ctx context.Context, key pending.ProtoKey, reply <-chan *wearpb.WearPacket, timeout time.Duration) (*wearpb.WearPacket, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case pkt := <-reply:
		return pkt, nil
	case <-timer.C:
		d.protoTable.Remove(key)
		return nil, fmt.Errorf("%w: key (%d, %d)", ErrProtoTimeout, key.Type, key.ID)
	case <-d.done:
		d.protoTable.Remove(key)
		return nil, ErrLinkDown
	case <-ctx.Done():
		d.protoTable.Remove(key)
		return nil, ctx.Err()
	}
}
