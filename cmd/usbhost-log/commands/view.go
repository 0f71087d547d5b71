// Package commands implements the usbhost-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/usbhost/usbhost-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Category  *log.Category
	SessionID string
	Device    string
}

func (f ViewFilter) logFilter() log.Filter {
	return log.Filter{
		SessionID:  f.SessionID,
		DeviceName: f.Device,
		Layer:      f.Layer,
		Category:   f.Category,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] LAYER Type device
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenID(event.SessionID)
	if session == "" {
		session = "-"
	}

	fmt.Fprintf(w, "%s [%s] %s %s %s\n", ts, session, event.Layer.String(), typeLabel(event), deviceLabel(event))

	switch {
	case event.Device != nil:
		formatDeviceDetails(w, event.Device)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Probe != nil:
		formatProbeDetails(w, event.Probe)
	case event.Dispatch != nil:
		formatDispatchDetails(w, event.Dispatch)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func typeLabel(event log.Event) string {
	switch {
	case event.Device != nil:
		return "Device " + event.Device.Action.String()
	case event.StateChange != nil:
		return "State"
	case event.Probe != nil:
		return "Probe " + event.Probe.Outcome.String()
	case event.Dispatch != nil:
		return "Dispatch " + event.Dispatch.Mode.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func deviceLabel(event log.Event) string {
	switch {
	case event.DeviceName != "" && event.SerialNumber != "":
		return event.DeviceName + " serial=" + event.SerialNumber
	case event.DeviceName != "":
		return event.DeviceName
	default:
		return ""
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDeviceDetails(w io.Writer, d *log.DeviceEvent) {
	fmt.Fprintf(w, "  USB ID: %04x:%04x\n", d.VendorID, d.ProductID)
	if d.Accessory {
		fmt.Fprintln(w, "  Accessory mode")
	}
	if d.Ignored {
		fmt.Fprintln(w, "  Ignored")
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatProbeDetails(w io.Writer, p *log.ProbeEvent) {
	fmt.Fprintf(w, "  Handler: %s\n", p.Handler)
	if p.Service != "" {
		fmt.Fprintf(w, "  Service: %s\n", p.Service)
	}
	fmt.Fprintf(w, "  Attempt: %d\n", p.Attempt)
	if p.Duration != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*p.Duration))
	}
}

func formatDispatchDetails(w io.Writer, d *log.DispatchEvent) {
	fmt.Fprintf(w, "  Handler: %s\n", d.Handler)
	if d.Success {
		fmt.Fprintln(w, "  Result: ok")
	} else {
		fmt.Fprintln(w, "  Result: failed")
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "resolver":
		return log.LayerResolver, nil
	case "host":
		return log.LayerHost, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, resolver, or host)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "device":
		return log.CategoryDevice, nil
	case "state":
		return log.CategoryState, nil
	case "probe":
		return log.CategoryProbe, nil
	case "dispatch":
		return log.CategoryDispatch, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be device, state, probe, dispatch, or error)", s)
	}
}

// RunView writes every matching event in path to output.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.logFilter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
