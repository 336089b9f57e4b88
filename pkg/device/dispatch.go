package device

import (
	"context"
	"time"

	"github.com/miwear-protocol/miwear-go/pkg/crypto"
	"github.com/miwear-protocol/miwear-go/pkg/log"
	"github.com/miwear-protocol/miwear-go/pkg/pending"
	"github.com/miwear-protocol/miwear-go/pkg/session"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// onBytes is the transport subscription callback.
func (d *Device) onBytes(data []byte) {
	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerTransport,
		Category:     log.CategoryPacket,
		DeviceAddr:   d.state.Addr(),
		Frame:        log.NewFrameEvent(data),
	})

	// Hello frames bypass the packet codec entirely.
	if wire.IsHello(data) {
		if err := d.sendRaw(context.Background(), session.SessionConfigFrame); err != nil {
			d.logError(log.LayerSession, err, "send session config")
			return
		}
		d.logState(log.StateEntitySession, "HELLO_SENT", "CONFIGURED", "")
		return
	}

	d.framer.PushBytes(data)
	for _, pkt := range d.framer.DrainPackets() {
		d.handlePacket(pkt)
	}
}

// handlePacket dispatches one complete frame.
func (d *Device) handlePacket(pkt *wire.Packet) {
	switch pkt.Type {
	case wire.PacketACK:
		d.ackSlot.Signal()

	case wire.PacketSessionConfig:
		// Only meaningful during the handshake; ignored afterwards.

	case wire.PacketData:
		d.handleData(pkt)
	}
}

// handleData decrypts, routes and acknowledges one Data frame.
func (d *Device) handleData(pkt *wire.Packet) {
	pl, err := pkt.DataFields()
	if err != nil {
		d.logError(log.LayerWire, err, "data fields")
		return
	}

	content := pl.Data
	if pl.Op == wire.OpEncrypted {
		keys := d.state.Keys()
		if keys == nil {
			d.logError(log.LayerWire, ErrNotAuthenticated, "inbound encrypted frame")
			return
		}
		content, err = crypto.CTRCrypt(keys.DecKey[:], pl.Data)
		if err != nil {
			d.logError(log.LayerWire, err, "decrypt payload")
			return
		}
	}

	ev := &log.PacketEvent{
		PacketType: uint8(pkt.Type),
		Seq:        pkt.Seq,
		Encrypted:  pl.Op == wire.OpEncrypted,
		BodySize:   len(pkt.Body),
	}
	chByte := uint8(pl.Channel)
	ev.Channel = &chByte

	switch pl.Channel {
	case wire.ChannelPb:
		d.dispatchProto(pkt.Seq, content, ev)

	case wire.ChannelMass, wire.ChannelFileFitness:
		d.seqTable.Signal(pkt.Seq, content)

	case wire.ChannelNetwork:
		d.sinkMu.RLock()
		sink := d.networkSink
		d.sinkMu.RUnlock()
		if sink != nil {
			sink(content)
		}

	default:
		// Opaque channel; recorded and dropped.
	}

	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryPacket,
		DeviceAddr:   d.state.Addr(),
		Packet:       ev,
	})

	// Acknowledge after the payload is queued locally.
	d.sendAck(pkt.Seq)
}

// dispatchProto decodes a Pb-channel payload and delivers it to the seq
// waiter, the keyed proto waiter and every subscriber, in that order.
func (d *Device) dispatchProto(seq uint8, content []byte, ev *log.PacketEvent) {
	env, err := wearpb.Unmarshal(content)
	if err != nil {
		d.logError(log.LayerWire, err, "decode envelope")
		return
	}

	typ, id := env.Key()
	ev.ProtoType = &typ
	ev.ProtoID = &id

	d.seqTable.Signal(seq, content)
	d.protoTable.Signal(pending.ProtoKey{Type: typ, ID: id}, env)
	d.subscribers.Dispatch(env)
}

// sendAck acknowledges the peer's Data frame.
func (d *Device) sendAck(seq uint8) {
	ack, err := wire.NewACK(seq).Encode()
	if err != nil {
		return
	}
	if err := d.sendRaw(context.Background(), ack); err != nil {
		d.logError(log.LayerWire, err, "send ack")
	}
}
