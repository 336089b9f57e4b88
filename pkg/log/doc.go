// Package log provides structured protocol logging for the bridge.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, session,
// device, network). It is separate from operational logging (slog):
// protocol capture provides a complete machine-readable event trace for
// debugging link problems against real hardware.
//
// # Basic usage
//
// Components accept a Logger; applications pick the sink:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/lib/miwear/link.mlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event types
//
// Events are captured at multiple layers:
//   - Transport: raw link chunks (FrameEvent)
//   - Wire: decoded packets (PacketEvent)
//   - Session/Device: state changes (StateChangeEvent)
//   - Network: bandwidth snapshots (TrafficEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File format
//
// Log files are a CBOR event stream with integer keys (.mlog). Reader
// iterates a file with optional filtering.
package log
