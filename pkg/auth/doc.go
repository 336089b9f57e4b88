// Package auth implements the two-leg authentication handshake.
//
// # Protocol
//
//  1. The host sends AppVerify carrying a fresh 16-byte nonce.
//  2. The watch answers DeviceVerify with its own nonce and an HMAC over
//     both nonces.
//  3. The host derives the session key block from (auth key, host nonce,
//     watch nonce), checks the watch's HMAC, and answers AppConfirm with
//     its own HMAC plus a CCM-sealed CompanionDevice description.
//  4. The watch answers DeviceConfirm; on success the session keys are
//     installed and subsequent Encrypted-opcode payloads use AES-128-CTR.
//
// # Key derivation
//
// The 64-byte key block is a counter-HMAC expansion keyed by
// HMAC-SHA256(hostNonce‖watchNonce, authKey) with the fixed info string
// "miwear-auth". This is deliberately not RFC 5869 HKDF; the peer
// requires this exact construction. Block layout: decKey[0:16],
// encKey[16:32], decNonce[32:36], encNonce[36:40]; the tail is unused.
//
// A failed handshake closes the connection without touching persisted
// device state.
package auth
