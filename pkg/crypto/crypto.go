package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/pion/dtls/v2/pkg/crypto/ccm"
)

// Key and nonce sizes fixed by the protocol.
const (
	// KeySize is the AES-128 key size.
	KeySize = 16

	// CCMNonceSize is the CCM nonce size.
	CCMNonceSize = 12

	// CCMTagSize is the CCM authentication tag size.
	CCMTagSize = 4
)

// Errors returned by the primitives.
var (
	// ErrKeySize indicates a key of the wrong length.
	ErrKeySize = errors.New("key must be 16 bytes")

	// ErrNonceSize indicates a CCM nonce of the wrong length.
	ErrNonceSize = errors.New("nonce must be 12 bytes")
)

// CTRCrypt encrypts or decrypts data with AES-128-CTR (the operation is
// symmetric).
//
// The counter IV is the key itself. This is unusual but it is what the peer
// firmware does; interoperability requires reproducing it exactly.
func CTRCrypt(key, data []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	cipher.NewCTR(block, key).XORKeyStream(out, data)
	return out, nil
}

// CCMSeal encrypts plaintext with AES-128-CCM and appends the 4-byte tag.
func CCMSeal(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := newCCM(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// CCMOpen decrypts ciphertext-and-tag produced by CCMSeal.
func CCMOpen(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := newCCM(key, nonce)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("ccm open: %w", err)
	}
	return plain, nil
}

func newCCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	if len(nonce) != CCMNonceSize {
		return nil, ErrNonceSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return ccm.NewCCM(block, CCMTagSize, CCMNonceSize)
}

// HMACSHA256 computes HMAC-SHA256 of the concatenation of parts under key.
func HMACSHA256(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// MD5Sum computes the MD5 digest of data.
func MD5Sum(data []byte) []byte {
	sum := md5.Sum(data)
	return sum[:]
}

// CRC32 computes CRC-32/ISO-HDLC of data (the IEEE polynomial).
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
