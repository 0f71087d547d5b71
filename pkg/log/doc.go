// Package log captures structured host events.
//
// It is separate from operational logging (slog): event capture is a
// machine-readable trace of what the host did with each device. Device
// attach and detach, controller state changes, verification probes,
// dispatch decisions and errors each have a payload type.
//
// # Basic Usage
//
//	// Development: events on the console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: append to a binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/usbhost/host.ulog")
//
//	// Both
//	cfg.EventLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .ulog extension.
// Reader iterates a file with an optional Filter; the usbhost-log tool
// views, filters, exports and summarizes them.
package log
