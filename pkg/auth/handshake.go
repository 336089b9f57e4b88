package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/miwear-protocol/miwear-go/pkg/crypto"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
)

// CompanionName is the companion application name declared to the watch.
const CompanionName = "AstroBox"

// State tracks handshake progress.
type State uint8

const (
	// StateUnauthenticated is the initial state.
	StateUnauthenticated State = iota

	// StateAppVerifySent means AppVerify is on the wire.
	StateAppVerifySent

	// StateAppConfirmSent means DeviceVerify checked out and AppConfirm is
	// on the wire.
	StateAppConfirmSent

	// StateAuthenticated means the watch confirmed and the session keys are
	// live.
	StateAuthenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAppVerifySent:
		return "APP_VERIFY_SENT"
	case StateAppConfirmSent:
		return "APP_CONFIRM_SENT"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// Handshake errors.
var (
	// ErrAuthKeyMismatch indicates the watch's signature did not verify,
	// almost always because of a wrong pairing key.
	ErrAuthKeyMismatch = errors.New("auth hmac mismatch - wrong auth key?")

	// ErrBadState indicates a handshake message arrived out of order.
	ErrBadState = errors.New("handshake message out of order")

	// ErrDeviceRejected indicates the watch answered DeviceConfirm with a
	// non-success status.
	ErrDeviceRejected = errors.New("device rejected confirmation")
)

// Handshake drives one authentication attempt.
// It produces the outbound WearPackets and consumes the watch's replies;
// the caller moves them over the link.
type Handshake struct {
	state     State
	authKey   [16]byte
	hostNonce [16]byte
	keys      *Keys
}

// NewHandshake creates a handshake with a random host nonce.
func NewHandshake(authKeyHex string) (*Handshake, error) {
	key, err := ParseAuthKey(authKeyHex)
	if err != nil {
		return nil, err
	}
	h := &Handshake{authKey: key}
	if _, err := rand.Read(h.hostNonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return h, nil
}

// NewHandshakeWithNonce creates a handshake with a caller-chosen host nonce.
func NewHandshakeWithNonce(authKeyHex string, nonce [16]byte) (*Handshake, error) {
	key, err := ParseAuthKey(authKeyHex)
	if err != nil {
		return nil, err
	}
	return &Handshake{authKey: key, hostNonce: nonce}, nil
}

// State returns the current handshake state.
func (h *Handshake) State() State {
	return h.state
}

// Keys returns the derived key block, or nil before DeviceVerify was
// processed.
func (h *Handshake) Keys() *Keys {
	return h.keys
}

// AppVerify builds the opening message and advances the state machine.
func (h *Handshake) AppVerify() (*wearpb.WearPacket, error) {
	if h.state != StateUnauthenticated {
		return nil, fmt.Errorf("%w: state %v", ErrBadState, h.state)
	}
	h.state = StateAppVerifySent
	return &wearpb.WearPacket{
		Type: wearpb.TypeAccount,
		ID:   wearpb.AccountIDAuthVerify,
		Account: &wearpb.Account{
			AuthAppVerify: &wearpb.AppVerify{Nonce: h.hostNonce[:]},
		},
	}, nil
}

// HandleDeviceVerify checks the watch's reply, derives the session keys and
// builds AppConfirm.
func (h *Handshake) HandleDeviceVerify(dv *wearpb.DeviceVerify) (*wearpb.WearPacket, error) {
	if h.state != StateAppVerifySent {
		return nil, fmt.Errorf("%w: state %v", ErrBadState, h.state)
	}
	if len(dv.Nonce) != NonceSize || len(dv.Sign) != 32 {
		return nil, fmt.Errorf("%w: nonce/hmac length", ErrAuthKeyMismatch)
	}

	keys, err := DeriveKeys(h.authKey, h.hostNonce[:], dv.Nonce)
	if err != nil {
		return nil, err
	}

	expect := crypto.HMACSHA256(keys.DecKey[:], dv.Nonce, h.hostNonce[:])
	if !hmac.Equal(dv.Sign, expect) {
		return nil, ErrAuthKeyMismatch
	}

	encSigns := crypto.HMACSHA256(keys.EncKey[:], h.hostNonce[:], dv.Nonce)

	// Declare an Android companion with every capability bit set; the watch
	// withholds features from anything else.
	companion := &wearpb.CompanionDevice{
		DeviceType: wearpb.DeviceTypeAndroid,
		Name:       CompanionName,
		Capability: wearpb.CapabilityAll,
	}
	sealed, err := crypto.CCMSeal(keys.EncKey[:], keys.ConfirmNonce(), nil, companion.Marshal())
	if err != nil {
		return nil, fmt.Errorf("seal companion device: %w", err)
	}

	h.keys = keys
	h.state = StateAppConfirmSent
	return &wearpb.WearPacket{
		Type: wearpb.TypeAccount,
		ID:   wearpb.AccountIDAuthConfirm,
		Account: &wearpb.Account{
			AuthAppConfirm: &wearpb.AppConfirm{
				EncSigns:      encSigns,
				EncDeviceInfo: sealed,
			},
		},
	}, nil
}

// HandleDeviceConfirm consumes the watch's final verdict.
// On success the derived keys become the session keys.
func (h *Handshake) HandleDeviceConfirm(dc *wearpb.DeviceConfirm) (*Keys, error) {
	if h.state != StateAppConfirmSent {
		return nil, fmt.Errorf("%w: state %v", ErrBadState, h.state)
	}
	if dc.Status != wearpb.DeviceConfirmSuccess {
		return nil, fmt.Errorf("%w: status %d", ErrDeviceRejected, dc.Status)
	}
	h.state = StateAuthenticated
	return h.keys, nil
}
