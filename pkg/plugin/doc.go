// Package plugin hosts sandboxed JavaScript plugins.
//
// A plugin is a directory with a manifest.json and an entry script. On
// enable, a fresh goja context is built, the runtime globals are injected,
// the permission-gated AstroBox API surface is installed and the entry
// script runs; a registered onLoad callback is invoked afterwards. On
// disable, the context and everything registered in it are dropped.
//
// # Concurrency
//
// One worker goroutine owns every plugin context. Cross-goroutine calls
// are serialized through the manager's dispatch channel; API
// implementations invoked from inside plugin code already run on the
// worker and touch the registry directly. JS is never executed from two
// goroutines at once.
//
// # Sandbox
//
// Host-provided APIs are the only capabilities. Every namespace sits
// behind a manifest permission of the same name; the debug permission
// bypasses checks in debug builds only. Filesystem access is limited to
// paths the user picked for the plugin; timers are host timers whose
// callbacks are marshalled back onto the worker.
package plugin
