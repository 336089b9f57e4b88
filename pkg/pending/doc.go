// Package pending holds the one-shot waiter tables that pair outbound
// requests with inbound frames.
//
// Three tables exist per device:
//
//   - seq → waiter: a raw request awaiting the reply carrying its sequence
//     number.
//   - a single ACK slot: the wire protocol allows at most one outstanding
//     wait-for-ACK per link.
//   - (type, id) → waiter: a request awaiting a protobuf reply identified
//     by its envelope key.
//
// Each entry is used exactly once: it is removed when signalled, and the
// waiting caller removes its own entry on timeout so abandoned waiters do
// not leak. A separate subscriber table fans unsolicited protobuf pushes
// out to persistent callbacks; subscribers must not block the receive loop.
package pending
