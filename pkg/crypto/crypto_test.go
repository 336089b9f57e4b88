package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"math/rand"
	"testing"
)

func TestCTRCryptSymmetric(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, KeySize)
	plain := []byte("the quick brown fox jumps over the lazy dog")

	enc, err := CTRCrypt(key, plain)
	if err != nil {
		t.Fatalf("CTRCrypt() error = %v", err)
	}
	if bytes.Equal(enc, plain) {
		t.Error("ciphertext equals plaintext")
	}

	dec, err := CTRCrypt(key, enc)
	if err != nil {
		t.Fatalf("CTRCrypt() error = %v", err)
	}
	if !bytes.Equal(dec, plain) {
		t.Errorf("round trip = %q, want %q", dec, plain)
	}
}

func TestCTRCryptUsesKeyAsIV(t *testing.T) {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	plain := make([]byte, 32)

	got, err := CTRCrypt(key, plain)
	if err != nil {
		t.Fatalf("CTRCrypt() error = %v", err)
	}

	// Reference: stdlib CTR with IV explicitly set to the key bytes.
	block, _ := aes.NewCipher(key)
	want := make([]byte, 32)
	cipher.NewCTR(block, key).XORKeyStream(want, plain)

	if !bytes.Equal(got, want) {
		t.Error("CTRCrypt does not use the key bytes as IV")
	}
}

func TestCTRCryptKeySize(t *testing.T) {
	if _, err := CTRCrypt([]byte("short"), []byte("x")); err != ErrKeySize {
		t.Errorf("CTRCrypt() error = %v, want %v", err, ErrKeySize)
	}
}

func TestCCMRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x22}, KeySize)
	nonce := bytes.Repeat([]byte{0x33}, CCMNonceSize)
	plain := []byte("companion device info")

	sealed, err := CCMSeal(key, nonce, nil, plain)
	if err != nil {
		t.Fatalf("CCMSeal() error = %v", err)
	}
	if len(sealed) != len(plain)+CCMTagSize {
		t.Errorf("sealed len = %d, want %d", len(sealed), len(plain)+CCMTagSize)
	}

	opened, err := CCMOpen(key, nonce, nil, sealed)
	if err != nil {
		t.Fatalf("CCMOpen() error = %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Errorf("opened = %q, want %q", opened, plain)
	}
}

func TestCCMOpenRejectsTamper(t *testing.T) {
	key := bytes.Repeat([]byte{0x22}, KeySize)
	nonce := bytes.Repeat([]byte{0x33}, CCMNonceSize)

	sealed, err := CCMSeal(key, nonce, nil, []byte("payload"))
	if err != nil {
		t.Fatalf("CCMSeal() error = %v", err)
	}
	sealed[0] ^= 0x01

	if _, err := CCMOpen(key, nonce, nil, sealed); err == nil {
		t.Error("CCMOpen() accepted tampered ciphertext")
	}
}

func TestHMACSHA256Concatenation(t *testing.T) {
	key := []byte("k")
	a, b := []byte("hello "), []byte("world")

	got := HMACSHA256(key, a, b)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("hello world"))
	want := mac.Sum(nil)

	if !bytes.Equal(got, want) {
		t.Error("HMACSHA256 does not concatenate parts")
	}
}

func TestCRC32Reference(t *testing.T) {
	// CRC-32/ISO-HDLC check value from the standard catalogue.
	if got := CRC32([]byte("123456789")); got != 0xCBF43926 {
		t.Errorf("CRC32(123456789) = %#08x, want 0xcbf43926", got)
	}

	// Sanity over a larger random buffer: stable across calls.
	rng := rand.New(rand.NewSource(1))
	buf := make([]byte, 2048)
	rng.Read(buf)
	if CRC32(buf) != CRC32(buf) {
		t.Error("CRC32 not deterministic")
	}
}

func TestMD5SumLength(t *testing.T) {
	if got := MD5Sum([]byte("abc")); len(got) != 16 {
		t.Errorf("MD5Sum len = %d, want 16", len(got))
	}
}
