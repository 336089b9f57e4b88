// Package frontapi is the command surface the UI shell drives.
//
// It owns the wiring between the pieces: the connected-device slot, the
// config store, the network bridge, the plugin manager and the install
// queue. The shell calls methods and subscribes to the event callbacks;
// everything protocol-shaped stays behind this boundary.
package frontapi
