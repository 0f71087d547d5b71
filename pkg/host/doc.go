// Package host tracks the USB device currently being handled and decides
// where it goes.
//
// A Controller handles one device at a time. On attach it looks up the
// handler remembered for the device and dispatches to it directly; without
// a remembered handler, or when that handler is gone, it asks the resolver
// for the eligible handlers. A single eligible handler is remembered and
// dispatched automatically, several are offered to a Picker, and none is
// reported as an unsupported device.
//
// State machine:
//
//	IDLE ──attach──► ACTIVE ──dispatch──► DISPATCHED
//	  ▲                 │                     │
//	  └──── detach (after the debounce delay) ┘
//
// Detach notifications are debounced: the device is only released once no
// re-attach has arrived within Config.DebounceDelay. Resolution results that
// arrive in that window are held until the device comes back.
//
// All state transitions run on the looper shared with the resolver. The
// exported methods may be called from any goroutine.
package host
