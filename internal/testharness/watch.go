// Package testharness emulates a watch on the peer side of a fake link.
//
// The emulated watch speaks just enough of the protocol for integration
// tests: it answers the hello exchange, ACKs every Data frame, completes
// the auth handshake with a configurable pairing key, collects mass
// fragments, and answers protobuf requests through registered handlers.
package testharness

import (
	"encoding/binary"
	"sync"

	"github.com/miwear-protocol/miwear-go/pkg/auth"
	"github.com/miwear-protocol/miwear-go/pkg/crypto"
	"github.com/miwear-protocol/miwear-go/pkg/session"
	"github.com/miwear-protocol/miwear-go/pkg/transport"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// ProtoHandler answers one envelope request. Returning nil sends no reply.
type ProtoHandler func(req *wearpb.WearPacket) *wearpb.WearPacket

// Watch is the emulated peer.
type Watch struct {
	link   *transport.FakeLink
	framer *wire.Framer

	authKeyHex string
	watchNonce [16]byte

	mu       sync.Mutex
	keys     *auth.Keys
	seq      session.SeqCounter
	handlers map[[2]uint32]ProtoHandler

	// Mass fragments received, in arrival order.
	massBlocks [][]byte
	// TotalBlocks advertised in the last mass fragment.
	totalBlocks uint16

	// AckData controls whether Data frames are acknowledged (default true).
	ackData bool

	chunks chan []byte
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New creates an emulated watch behind a fake SPP link.
func New(authKeyHex string) *Watch {
	w := &Watch{
		link: transport.NewFakeLink(transport.Info{
			Type:    transport.ConnectSPP,
			Name:    "Emulated Band 9",
			Address: "a4:c1:38:00:11:22",
		}),
		framer:     wire.NewFramer(),
		authKeyHex: authKeyHex,
		handlers:   make(map[[2]uint32]ProtoHandler),
		ackData:    true,
		chunks:     make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
	for i := range w.watchNonce {
		w.watchNonce[i] = byte(0x20 + i)
	}

	w.link.OnPeerWrite(func(chunk []byte) {
		select {
		case w.chunks <- chunk:
		case <-w.stop:
		}
	})

	w.wg.Add(1)
	go w.run()
	return w
}

// Link returns the host side of the fake link.
func (w *Watch) Link() *transport.FakeLink {
	return w.link
}

// Handle registers a protobuf responder for the (type, id) key.
func (w *Watch) Handle(msgType wearpb.MessageType, id uint32, h ProtoHandler) {
	w.mu.Lock()
	w.handlers[[2]uint32{uint32(msgType), id}] = h
	w.mu.Unlock()
}

// SetAckData toggles ACKing of incoming Data frames.
func (w *Watch) SetAckData(ack bool) {
	w.mu.Lock()
	w.ackData = ack
	w.mu.Unlock()
}

// MassBlocks returns the mass fragments received so far.
func (w *Watch) MassBlocks() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]byte, len(w.massBlocks))
	copy(out, w.massBlocks)
	return out
}

// ResetMass clears collected mass fragments.
func (w *Watch) ResetMass() {
	w.mu.Lock()
	w.massBlocks = nil
	w.totalBlocks = 0
	w.mu.Unlock()
}

// Keys returns the session keys derived during auth, or nil.
func (w *Watch) Keys() *auth.Keys {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.keys
}

// DropLink simulates a link failure.
func (w *Watch) DropLink() {
	w.link.InjectError(transport.ErrLinkClosed)
}

// Close stops the watch goroutine.
func (w *Watch) Close() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Watch) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case chunk := <-w.chunks:
			w.consume(chunk)
		}
	}
}

func (w *Watch) consume(chunk []byte) {
	if wire.IsHello(chunk) {
		// Answer with the watch-side hello; the host replies SessionConfig.
		w.link.InjectBytes([]byte{0xBA, 0xDC, 0xFE, 0x01, 0xC0, 0x03, 0x00, 0x00, 0x01, 0x00, 0xEF})
		return
	}

	w.framer.PushBytes(chunk)
	for _, pkt := range w.framer.DrainPackets() {
		w.handlePacket(pkt)
	}
}

func (w *Watch) handlePacket(pkt *wire.Packet) {
	switch pkt.Type {
	case wire.PacketSessionConfig, wire.PacketACK:
		// Nothing to do.
	case wire.PacketData:
		w.handleData(pkt)
	}
}

func (w *Watch) handleData(pkt *wire.Packet) {
	pl, err := pkt.DataFields()
	if err != nil {
		return
	}

	w.mu.Lock()
	ack := w.ackData
	keys := w.keys
	w.mu.Unlock()

	content := pl.Data
	if pl.Op == wire.OpEncrypted && keys != nil {
		// The host encrypts with its EncKey.
		content, _ = crypto.CTRCrypt(keys.EncKey[:], pl.Data)
	}

	if ack {
		raw, _ := wire.NewACK(pkt.Seq).Encode()
		w.link.InjectBytes(raw)
	}

	switch pl.Channel {
	case wire.ChannelPb:
		w.handleProto(content, pl.Op)
	case wire.ChannelMass:
		w.collectMass(content)
	}
}

func (w *Watch) collectMass(content []byte) {
	if len(content) < 4 {
		return
	}
	w.mu.Lock()
	w.totalBlocks = binary.LittleEndian.Uint16(content[0:2])
	w.massBlocks = append(w.massBlocks, append([]byte(nil), content...))
	w.mu.Unlock()
}

func (w *Watch) handleProto(content []byte, op wire.OpCode) {
	env, err := wearpb.Unmarshal(content)
	if err != nil {
		return
	}

	// Auth legs are built in.
	if env.Type == wearpb.TypeAccount && env.Account != nil {
		switch {
		case env.Account.AuthAppVerify != nil:
			w.answerVerify(env.Account.AuthAppVerify)
			return
		case env.Account.AuthAppConfirm != nil:
			w.answerConfirm()
			return
		}
	}

	w.mu.Lock()
	h := w.handlers[[2]uint32{uint32(env.Type), env.ID}]
	w.mu.Unlock()
	if h == nil {
		return
	}
	if reply := h(env); reply != nil {
		w.sendProto(reply, op)
	}
}

// answerVerify derives the session keys from the host nonce and signs them.
func (w *Watch) answerVerify(av *wearpb.AppVerify) {
	authKey, err := auth.ParseAuthKey(w.authKeyHex)
	if err != nil {
		return
	}
	keys, err := auth.DeriveKeys(authKey, av.Nonce, w.watchNonce[:])
	if err != nil {
		return
	}
	sign := crypto.HMACSHA256(keys.DecKey[:], w.watchNonce[:], av.Nonce)

	w.mu.Lock()
	w.keys = keys
	w.mu.Unlock()

	w.sendProto(&wearpb.WearPacket{
		Type: wearpb.TypeAccount,
		ID:   wearpb.AccountIDAuthVerify,
		Account: &wearpb.Account{
			AuthDeviceVerify: &wearpb.DeviceVerify{Nonce: w.watchNonce[:], Sign: sign},
		},
	}, wire.OpPlain)
}

func (w *Watch) answerConfirm() {
	w.sendProto(&wearpb.WearPacket{
		Type: wearpb.TypeAccount,
		ID:   wearpb.AccountIDAuthConfirm,
		Account: &wearpb.Account{
			AuthDeviceConfirm: &wearpb.DeviceConfirm{Status: wearpb.DeviceConfirmSuccess},
		},
	}, wire.OpPlain)
}

// sendProto frames an envelope as a watch-originated Data packet.
func (w *Watch) sendProto(env *wearpb.WearPacket, op wire.OpCode) {
	payload := env.Marshal()

	if op == wire.OpEncrypted {
		w.mu.Lock()
		keys := w.keys
		w.mu.Unlock()
		if keys == nil {
			return
		}
		// The watch encrypts with the host's DecKey.
		payload, _ = crypto.CTRCrypt(keys.DecKey[:], payload)
	}

	raw, err := wire.NewData(w.seq.Next(), wire.ChannelPb, op, payload).Encode()
	if err != nil {
		return
	}
	w.link.InjectBytes(raw)
}

// SendProto injects a plaintext watch-originated envelope.
func (w *Watch) SendProto(env *wearpb.WearPacket) {
	w.sendProto(env, wire.OpPlain)
}

// SendProtoEncrypted injects an encrypted watch-originated envelope.
// Requires a completed auth handshake.
func (w *Watch) SendProtoEncrypted(env *wearpb.WearPacket) {
	w.sendProto(env, wire.OpEncrypted)
}

// SendNetwork injects an IP frame from the watch on the Network channel.
func (w *Watch) SendNetwork(frame []byte) {
	raw, err := wire.NewData(w.seq.Next(), wire.ChannelNetwork, wire.OpPlain, frame).Encode()
	if err != nil {
		return
	}
	w.link.InjectBytes(raw)
}
