// Package crypto wraps the symmetric primitives used by the link protocol.
//
// All parameters are fixed by the peer: AES-128-CTR for channel payloads,
// AES-128-CCM with a 4-byte tag for the auth confirm envelope,
// HMAC-SHA256 for signatures, MD5 for bulk-transfer content IDs,
// CRC-16/ARC on the wire and CRC-32/ISO-HDLC on bulk inner blobs.
package crypto
