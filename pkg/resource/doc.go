// Package resource implements the install flows built on the mass
// subprotocol: watchfaces, third-party mini-apps and firmware.
//
// Each flow follows the same shape: send a kind-specific prepare request,
// proceed only on a READY verdict, push the file through mass.Send, and
// (for watchfaces and apps) wait for the watch to report the install
// result (firmware has no such report). Non-READY verdicts surface as
// mass.PrepareError with a user-facing reason.
//
// The package also tracks the mini-apps the watch announces at runtime and
// relays interconnect messages to them.
package resource
