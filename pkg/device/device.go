package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miwear-protocol/miwear-go/pkg/auth"
	"github.com/miwear-protocol/miwear-go/pkg/command"
	"github.com/miwear-protocol/miwear-go/pkg/crypto"
	"github.com/miwear-protocol/miwear-go/pkg/log"
	"github.com/miwear-protocol/miwear-go/pkg/pending"
	"github.com/miwear-protocol/miwear-go/pkg/session"
	"github.com/miwear-protocol/miwear-go/pkg/transport"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// DefaultRequestTimeout is the default window for request/response calls.
const DefaultRequestTimeout = 5 * time.Second

// Device errors.
var (
	// ErrLinkDown indicates the link dropped while waiting.
	ErrLinkDown = errors.New("link down")

	// ErrRequestTimeout indicates the expected reply did not arrive.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrProtoTimeout indicates the expected protobuf did not arrive.
	ErrProtoTimeout = errors.New("proto timeout")

	// ErrNotAuthenticated indicates an Encrypted send before auth.
	ErrNotAuthenticated = errors.New("device not authenticated")

	// ErrAlreadyAuthenticated indicates a second auth attempt on a live
	// session.
	ErrAlreadyAuthenticated = errors.New("device already authenticated")
)

// Config tunes a Device.
type Config struct {
	// FragmentDelay is the pacing sleep between outbound fragments.
	FragmentDelay time.Duration

	// NetworkMTU overrides the default tun MTU.
	NetworkMTU uint16

	// Logger receives protocol events. Nil disables capture.
	Logger log.Logger
}

// DefaultConfig returns the default device configuration.
func DefaultConfig() Config {
	return Config{FragmentDelay: session.DefaultFragmentDelay}
}

// Device is one connected watch.
type Device struct {
	state  *State
	link   transport.Link
	connID string
	logger log.Logger

	framer *wire.Framer
	seq    session.SeqCounter
	frag   *session.Fragmenter

	seqTable    *pending.SeqTable
	ackSlot     *pending.AckSlot
	protoTable  *pending.ProtoTable
	subscribers *pending.Subscribers

	pool *command.Pool

	sendMu sync.Mutex

	// networkSink receives decrypted Network-channel payloads; installed by
	// the tunnel.
	sinkMu      sync.RWMutex
	networkSink func([]byte)

	// massActive gates the Network channel's unlocked send path while a
	// mass transfer holds the send lock.
	massMu     sync.Mutex
	massActive bool

	closeOnce sync.Once
	done      chan struct{}
}

// New wires a Device onto an established link and starts listening.
func New(link transport.Link, cfg Config) *Device {
	info := link.Info()

	maxFrame := info.MaxFrameSize
	if maxFrame <= 0 {
		if info.Type == transport.ConnectBLE {
			maxFrame = transport.DefaultFrameSizeBLE
		} else {
			maxFrame = transport.DefaultFrameSizeSPP
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	delay := cfg.FragmentDelay
	if delay <= 0 {
		delay = session.DefaultFragmentDelay
	}

	d := &Device{
		state:       NewState(info.Name, info.Address, maxFrame),
		link:        link,
		connID:      uuid.NewString(),
		logger:      logger,
		framer:      wire.NewFramer(),
		frag:        &session.Fragmenter{MaxChunk: maxFrame, Delay: delay},
		seqTable:    pending.NewSeqTable(),
		ackSlot:     pending.NewAckSlot(),
		protoTable:  pending.NewProtoTable(),
		subscribers: pending.NewSubscribers(),
		done:        make(chan struct{}),
	}
	if cfg.NetworkMTU != 0 {
		d.state.SetNetworkMTU(cfg.NetworkMTU)
	}
	d.pool = command.NewPool((*executor)(d))

	link.Subscribe(d.onBytes, d.onLinkError)
	return d
}

// State returns the device state.
func (d *Device) State() *State {
	return d.state
}

// Pool returns the outbound command pool.
func (d *Device) Pool() *command.Pool {
	return d.pool
}

// ConnectionID returns the session's log correlation ID.
func (d *Device) ConnectionID() string {
	return d.connID
}

// Done is closed when the device disconnects; every in-flight waiter
// observes it and errors with ErrLinkDown.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// SendLock is the transport send lock. It is held for the whole fragment
// sequence of one frame, and by a mass transfer for its full duration.
func (d *Device) SendLock() *sync.Mutex {
	return &d.sendMu
}

// AckSlot returns the single wait-for-ACK slot.
func (d *Device) AckSlot() *pending.AckSlot {
	return d.ackSlot
}

// SetMassActive marks a mass transfer as holding the send lock.
// While set, Network-channel sends bypass the lock so keep-alives flow
// during long uploads. At most one transfer may be active per device.
func (d *Device) SetMassActive(active bool) bool {
	d.massMu.Lock()
	defer d.massMu.Unlock()
	if active && d.massActive {
		return false
	}
	d.massActive = active
	return true
}

// MassActive reports whether a mass transfer is in flight.
func (d *Device) MassActive() bool {
	d.massMu.Lock()
	defer d.massMu.Unlock()
	return d.massActive
}

// SetNetworkSink installs the tunnel's ingress for Network-channel
// payloads. Pass nil to detach.
func (d *Device) SetNetworkSink(sink func([]byte)) {
	d.sinkMu.Lock()
	d.networkSink = sink
	d.sinkMu.Unlock()
}

// StartHello opens the session by sending the hello blob.
// The watch's hello reply is answered with the SessionConfig frame by the
// dispatch loop.
func (d *Device) StartHello(ctx context.Context) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	if err := d.link.Send(ctx, session.HelloBlob); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	d.logState(log.StateEntitySession, "", "HELLO_SENT", "")
	return nil
}

// StartAuth runs the authentication handshake with the given pairing key.
// On success the session keys are installed and Encrypted sends become
// available.
func (d *Device) StartAuth(ctx context.Context, authKeyHex string) error {
	if d.state.Authenticated() {
		return ErrAlreadyAuthenticated
	}
	d.state.SetAuthKey(authKeyHex)

	hs, err := auth.NewHandshake(authKeyHex)
	if err != nil {
		return err
	}
	return d.runAuth(ctx, hs)
}

// runAuth drives the handshake legs over the link.
func (d *Device) runAuth(ctx context.Context, hs *auth.Handshake) error {
	verify, err := hs.AppVerify()
	if err != nil {
		return err
	}
	d.logState(log.StateEntityAuth, auth.StateUnauthenticated.String(), hs.State().String(), "")

	reply, err := d.RequestProto(ctx, wire.ChannelPb, wire.OpPlain, verify.Marshal(),
		uint32(verify.Type), verify.ID, 0)
	if err != nil {
		return fmt.Errorf("auth verify: %w", err)
	}
	if reply.Account == nil || reply.Account.AuthDeviceVerify == nil {
		return fmt.Errorf("auth verify: reply carried no device verify")
	}

	confirm, err := hs.HandleDeviceVerify(reply.Account.AuthDeviceVerify)
	if err != nil {
		return err
	}
	d.logState(log.StateEntityAuth, auth.StateAppVerifySent.String(), hs.State().String(), "")

	reply, err = d.RequestProto(ctx, wire.ChannelPb, wire.OpPlain, confirm.Marshal(),
		uint32(confirm.Type), confirm.ID, 0)
	if err != nil {
		return fmt.Errorf("auth confirm: %w", err)
	}
	if reply.Account == nil || reply.Account.AuthDeviceConfirm == nil {
		return fmt.Errorf("auth confirm: reply carried no device confirm")
	}

	keys, err := hs.HandleDeviceConfirm(reply.Account.AuthDeviceConfirm)
	if err != nil {
		return err
	}
	d.state.SetKeys(keys)
	d.logState(log.StateEntityAuth, auth.StateAppConfirmSent.String(), hs.State().String(), "")
	return nil
}

// Disconnect tears the link down and broadcasts to every waiter.
// Idempotent.
func (d *Device) Disconnect() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		d.pool.Close()
		d.state.SetKeys(nil)
		err = d.link.Close()
		d.logState(log.StateEntityLink, "CONNECTED", "DISCONNECTED", "")
	})
	return err
}

// onLinkError handles a dead link reported by the transport.
func (d *Device) onLinkError(err error) {
	d.logError(log.LayerTransport, err, "link subscription")
	_ = d.Disconnect()
}

// executor adapts Device to the command pool without exporting the frame
// builder on the public API.
type executor Device

func (e *executor) BuildFrame(ch wire.Channel, op wire.OpCode, payload []byte) (uint8, []byte, error) {
	return (*Device)(e).buildFrame(ch, op, payload)
}

func (e *executor) WriteFrame(ctx context.Context, frame []byte) error {
	return (*Device)(e).writeFrame(ctx, frame)
}

func (e *executor) SendLock() *sync.Mutex {
	return &e.sendMu
}

func (e *executor) AckSlot() *pending.AckSlot {
	return e.ackSlot
}

func (e *executor) MassActive() bool {
	return (*Device)(e).MassActive()
}

// buildFrame encrypts the payload if the opcode demands, assigns a
// sequence number and encodes the frame.
func (d *Device) buildFrame(ch wire.Channel, op wire.OpCode, payload []byte) (uint8, []byte, error) {
	data := payload
	if op == wire.OpEncrypted {
		keys := d.state.Keys()
		if keys == nil {
			return 0, nil, ErrNotAuthenticated
		}
		enc, err := crypto.CTRCrypt(keys.EncKey[:], payload)
		if err != nil {
			return 0, nil, err
		}
		data = enc
	}

	seq := d.seq.Next()
	frame, err := wire.NewData(seq, ch, op, data).Encode()
	if err != nil {
		return 0, nil, err
	}
	return seq, frame, nil
}

// writeFrame fragments and writes one frame. Callers hold the send lock.
func (d *Device) writeFrame(ctx context.Context, frame []byte) error {
	d.frag.MaxChunk = d.state.MaxFrameSize()
	err := d.frag.Write(ctx, d.link.Send, frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLinkDown, err)
	}
	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerTransport,
		Category:     log.CategoryPacket,
		DeviceAddr:   d.state.Addr(),
		Frame:        log.NewFrameEvent(frame),
	})
	return nil
}

// sendRaw writes pre-encoded bytes under the send lock (hello replies and
// ACKs).
func (d *Device) sendRaw(ctx context.Context, raw []byte) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	return d.link.Send(ctx, raw)
}

// SendRawFrame writes pre-encoded bytes to the link under the send lock.
// Debug surface only; nothing in the protocol path uses it.
func (d *Device) SendRawFrame(ctx context.Context, raw []byte) error {
	return d.sendRaw(ctx, raw)
}

func (d *Device) logState(entity log.StateEntity, oldState, newState, reason string) {
	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		DeviceAddr:   d.state.Addr(),
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (d *Device) logError(layer log.Layer, err error, context string) {
	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    log.DirectionIn,
		Layer:        layer,
		Category:     log.CategoryError,
		DeviceAddr:   d.state.Addr(),
		Error:        &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context},
	})
}
