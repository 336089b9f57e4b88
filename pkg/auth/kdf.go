package auth

import (
	"encoding/hex"
	"errors"

	"github.com/miwear-protocol/miwear-go/pkg/crypto"
)

// NonceSize is the handshake nonce size.
const NonceSize = 16

// kdfInfo is the fixed expansion label. The peer depends on it byte for byte.
var kdfInfo = []byte("miwear-auth")

// Key material errors.
var (
	// ErrAuthKeySyntax indicates the auth key is not 32 hex characters.
	ErrAuthKeySyntax = errors.New("auth key must be 32 hex characters")

	// ErrNonceLength indicates a handshake nonce of the wrong size.
	ErrNonceLength = errors.New("nonce must be 16 bytes")
)

// Keys is the derived session key block.
type Keys struct {
	EncKey   [16]byte
	DecKey   [16]byte
	EncNonce [4]byte
	DecNonce [4]byte
}

// ParseAuthKey decodes the user-supplied 32-hex-character pairing key.
func ParseAuthKey(s string) ([16]byte, error) {
	var key [16]byte
	if len(s) != 32 {
		return key, ErrAuthKeySyntax
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, ErrAuthKeySyntax
	}
	copy(key[:], raw)
	return key, nil
}

// DeriveKeys computes the session key block from the pairing key and the
// two handshake nonces.
//
// The expansion is HMAC-SHA256 counter mode over the fixed label:
//
//	hmacKey = HMAC(hostNonce ‖ watchNonce, authKey)
//	t_i     = HMAC(hmacKey, t_{i-1} ‖ "miwear-auth" ‖ i)   i = 1..3
//	block   = (t_1 ‖ t_2 ‖ t_3)[0:64]
func DeriveKeys(authKey [16]byte, hostNonce, watchNonce []byte) (*Keys, error) {
	if len(hostNonce) != NonceSize || len(watchNonce) != NonceSize {
		return nil, ErrNonceLength
	}

	initKey := make([]byte, 0, 2*NonceSize)
	initKey = append(initKey, hostNonce...)
	initKey = append(initKey, watchNonce...)
	hmacKey := crypto.HMACSHA256(initKey, authKey[:])

	block := make([]byte, 0, 96)
	var prev []byte
	for counter := byte(1); counter <= 3; counter++ {
		prev = crypto.HMACSHA256(hmacKey, prev, kdfInfo, []byte{counter})
		block = append(block, prev...)
	}
	block = block[:64]

	k := &Keys{}
	copy(k.DecKey[:], block[0:16])
	copy(k.EncKey[:], block[16:32])
	copy(k.DecNonce[:], block[32:36])
	copy(k.EncNonce[:], block[36:40])
	return k, nil
}

// ConfirmNonce builds the 12-byte CCM nonce for the first sealed message:
// encNonce followed by two zero 32-bit counters.
func (k *Keys) ConfirmNonce() []byte {
	nonce := make([]byte, 12)
	copy(nonce, k.EncNonce[:])
	return nonce
}
