package resolver

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/launch"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/usbio"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

// DefaultConnectTimeout bounds each verification service probe phase.
const DefaultConnectTimeout = 5000 * time.Millisecond

var (
	// ErrInvalidConfig is returned for an unusable Config.
	ErrInvalidConfig = errors.New("resolver: invalid config")

	// ErrMissingDependency is returned when a required collaborator is nil.
	ErrMissingDependency = errors.New("resolver: missing dependency")

	// ErrStopped is returned by Resolve after Stop.
	ErrStopped = errors.New("resolver: stopped")
)

// Config configures a Resolver.
type Config struct {
	// ConnectTimeout bounds the wait for a verification service to connect,
	// and then for its answer.
	ConnectTimeout time.Duration

	// Logger for operational logging. Nil disables it.
	Logger *slog.Logger

	// EventLogger receives resolver events. Nil disables capture.
	EventLogger log.Logger
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Callback receives resolution results. Methods run on the looper.
type Callback interface {
	// OnHandlersResolved reports the eligible handlers for dev. The list may
	// be empty.
	OnHandlersResolved(session uuid.UUID, dev usbdev.Device, handlers []settings.DeviceSettings)

	// OnResolveFailed reports that the device could not be opened.
	OnResolveFailed(session uuid.UUID, dev usbdev.Device, err error)

	// OnDeviceDispatched reports that a handler was started for dev.
	OnDeviceDispatched(dev usbdev.Device, handler registry.Component)
}

// Deps are the collaborators a Resolver drives.
type Deps struct {
	Looper   *looper.Looper
	Service  usbio.Service
	Registry registry.Registry
	Binder   verify.Binder
	Launcher launch.Launcher
	Callback Callback
}

func (d Deps) validate() error {
	if d.Looper == nil || d.Service == nil || d.Registry == nil ||
		d.Binder == nil || d.Launcher == nil || d.Callback == nil {
		return ErrMissingDependency
	}
	return nil
}
