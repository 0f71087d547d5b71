package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at Debug level, errors at
// Warn.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	if event.DeviceName != "" {
		attrs = append(attrs, slog.String("device", event.DeviceName))
	}
	if event.SerialNumber != "" {
		attrs = append(attrs, slog.String("serial", event.SerialNumber))
	}

	level := slog.LevelDebug
	switch {
	case event.Device != nil:
		attrs = append(attrs,
			slog.String("action", event.Device.Action.String()),
			slog.String("usb_id", usbID(event.Device.VendorID, event.Device.ProductID)),
		)
		if event.Device.Accessory {
			attrs = append(attrs, slog.Bool("accessory", true))
		}
		if event.Device.Ignored {
			attrs = append(attrs, slog.Bool("ignored", true))
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
	case event.Probe != nil:
		attrs = append(attrs,
			slog.String("service", event.Probe.Service),
			slog.Uint64("attempt", uint64(event.Probe.Attempt)),
			slog.String("outcome", event.Probe.Outcome.String()),
		)
		if event.Probe.Handler != "" {
			attrs = append(attrs, slog.String("handler", event.Probe.Handler))
		}
		if event.Probe.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Probe.Duration))
		}
	case event.Dispatch != nil:
		attrs = append(attrs,
			slog.String("handler", event.Dispatch.Handler),
			slog.String("mode", event.Dispatch.Mode.String()),
			slog.Bool("success", event.Dispatch.Success),
		)
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "host event", attrs...)
}

func usbID(vid, pid uint16) string {
	return fmt.Sprintf("%04x:%04x", vid, pid)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
