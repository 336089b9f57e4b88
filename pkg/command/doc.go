// Package command implements the outbound command scheduler.
//
// All outbound traffic funnels through one Pool per device. The pool's
// single worker serializes sends while giving channels configurable
// priority: a queued command is placed behind the last command of equal or
// higher priority, so higher-priority channels overtake lower ones but
// order within a channel is FIFO.
//
// Three execution kinds exist:
//
//   - Send: write the frame and finish.
//   - WaitAck: write the frame and block until the peer's ACK or a timeout.
//   - RegisterAck: write the frame and hand the un-awaited ACK channel back
//     to the caller. The unlocked variant skips the transport send lock and
//     exists solely for mass transfers, which already hold the lock for the
//     whole upload and await each block's ACK concurrently.
//
// The transport send lock is held for the entire fragment sequence of one
// frame, so a multi-fragment write is never interleaved with another
// sender's fragments.
package command
