package usbio

import (
	"context"
	"errors"

	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

var (
	// ErrDeviceNotFound is returned when the device is no longer on the bus.
	ErrDeviceNotFound = errors.New("usbio: device not found")

	// ErrAmbiguousDevice is returned when more than one device matches.
	ErrAmbiguousDevice = errors.New("usbio: more than one device matches")

	// ErrClosed is returned by operations on a closed connection or service.
	ErrClosed = errors.New("usbio: closed")
)

// Service opens low-level connections to attached devices.
type Service interface {
	// Open opens a connection to dev. The caller must Close it.
	Open(ctx context.Context, dev usbdev.Device) (Conn, error)
}

// Conn is an open connection to a single device.
type Conn interface {
	// SupportsAccessoryMode reports whether the device answers the accessory
	// protocol query with a usable version.
	SupportsAccessoryMode() bool

	// SendAccessoryString sends one identifying handshake string.
	SendAccessoryString(key aoap.StringKey, value string) error

	// SwitchToAccessoryMode asks the device to re-enumerate in accessory mode.
	SwitchToAccessoryMode() error

	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// Enumerator lists the devices currently attached to the host.
type Enumerator interface {
	Devices(ctx context.Context) ([]usbdev.Device, error)
}
