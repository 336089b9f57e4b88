package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.DeviceAddr != "" {
		attrs = append(attrs, slog.String("device_addr", event.DeviceAddr))
	}
	if event.DeviceName != "" {
		attrs = append(attrs, slog.String("device_name", event.DeviceName))
	}

	// Add type-specific attributes
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Packet != nil:
		attrs = append(attrs,
			slog.Uint64("pkt_type", uint64(event.Packet.PacketType)),
			slog.Uint64("seq", uint64(event.Packet.Seq)),
			slog.Int("body_size", event.Packet.BodySize),
		)
		if event.Packet.Channel != nil {
			attrs = append(attrs, slog.Uint64("channel", uint64(*event.Packet.Channel)))
		}
		if event.Packet.Encrypted {
			attrs = append(attrs, slog.Bool("encrypted", true))
		}
		if event.Packet.ProtoType != nil {
			attrs = append(attrs, slog.Uint64("proto_type", uint64(*event.Packet.ProtoType)))
		}
		if event.Packet.ProtoID != nil {
			attrs = append(attrs, slog.Uint64("proto_id", uint64(*event.Packet.ProtoID)))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Traffic != nil:
		attrs = append(attrs,
			slog.Float64("read_bps", event.Traffic.ReadBps),
			slog.Float64("write_bps", event.Traffic.WriteBps),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
