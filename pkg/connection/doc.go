// Package connection provides Bluetooth link lifecycle management.
//
// This package handles:
//   - Exponential backoff for link reconnection attempts
//   - Jitter so co-located hosts do not retry in lockstep
//   - Link state tracking
//   - Automatic reconnection on link loss
//
// # Reconnection strategy
//
// When the link to the watch drops, the bridge uses exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Continue at 30s until successful
//  5. Reset to 1s on successful reconnection
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Success criteria
//
// A reconnection is successful when the platform adapter reports an
// established link and the session hello exchange completes. A rejected
// auth handshake after link establishment does NOT reset backoff.
//
// A successful reconnect is also what lets a mass transfer resume from its
// saved cursor, so the manager's OnConnected callback is where resumable
// uploads are restarted.
package connection
