package host

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/resolver"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Controller errors.
var (
	ErrInvalidConfig     = errors.New("host: invalid configuration")
	ErrMissingDependency = errors.New("host: missing dependency")
	ErrNoActiveDevice    = errors.New("host: no active device")
	ErrNotActiveDevice   = errors.New("host: settings are not for the active device")
	ErrResolving         = errors.New("host: resolution in progress")
	ErrDispatchFailed    = errors.New("host: dispatch failed")
)

// Default timings.
const (
	DefaultDebounceDelay   = 500 * time.Millisecond
	DefaultDispatchTimeout = 5 * time.Second
)

// State is the controller state.
type State uint8

const (
	// StateIdle - no device is being handled.
	StateIdle State = iota

	// StateActive - a device is attached and its handler is being decided.
	StateActive

	// StateDispatched - the device was handed over (or found unsupported).
	StateDispatched
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateDispatched:
		return "DISPATCHED"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a controller event.
type EventType uint8

const (
	// EventUnsupportedDevice - no application can handle the device.
	EventUnsupportedDevice EventType = iota

	// EventHandlerUnavailable - the remembered handler could not be started.
	EventHandlerUnavailable

	// EventDeviceRemoved - the active device was detached.
	EventDeviceRemoved

	// EventHandlersOffered - several handlers were offered to the picker.
	EventHandlersOffered

	// EventDeviceDispatched - a handler was started for the device.
	EventDeviceDispatched
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventUnsupportedDevice:
		return "UNSUPPORTED_DEVICE"
	case EventHandlerUnavailable:
		return "HANDLER_UNAVAILABLE"
	case EventDeviceRemoved:
		return "DEVICE_REMOVED"
	case EventHandlersOffered:
		return "HANDLERS_OFFERED"
	case EventDeviceDispatched:
		return "DEVICE_DISPATCHED"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to handlers registered with OnEvent.
type Event struct {
	Type   EventType
	Device usbdev.Device

	// Handler is set for EventHandlerUnavailable and EventDeviceDispatched.
	Handler registry.Component

	// Handlers is set for EventHandlersOffered.
	Handlers []settings.DeviceSettings

	// Error is the underlying failure, if any.
	Error error
}

// EventHandler handles controller events. It runs on its own goroutine.
type EventHandler func(Event)

// Picker lets the user choose among several eligible handlers. The choice
// is reported back through Controller.ApplySettings.
type Picker interface {
	ShowHandlers(dev usbdev.Device, options []settings.DeviceSettings)
}

// Resolver finds and starts handlers. *resolver.Resolver implements it.
type Resolver interface {
	Resolve(dev usbdev.Device) (uuid.UUID, error)
	Cancel(id uuid.UUID)
	Dispatch(ctx context.Context, dev usbdev.Device, handler registry.Component, wantAccessory bool) bool
}

// ResolverFactory builds the resolver that reports back to the controller.
type ResolverFactory func(cb resolver.Callback) (Resolver, error)

// Config configures a Controller.
type Config struct {
	// DebounceDelay is how long a detached device may take to re-attach
	// before it is released.
	DebounceDelay time.Duration

	// DispatchTimeout bounds a single dispatch, including the accessory
	// handshake.
	DispatchTimeout time.Duration

	// Logger for operational logging. Nil disables it.
	Logger *slog.Logger

	// EventLogger receives host events. Nil disables capture.
	EventLogger log.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:   DefaultDebounceDelay,
		DispatchTimeout: DefaultDispatchTimeout,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DebounceDelay < 0 || c.DispatchTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Looper      *looper.Looper
	Store       settings.Store
	Picker      Picker
	NewResolver ResolverFactory
}

func (d Deps) validate() error {
	if d.Looper == nil || d.Store == nil || d.Picker == nil || d.NewResolver == nil {
		return ErrMissingDependency
	}
	return nil
}
