package verify

import (
	"context"
	"errors"

	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

var (
	// ErrUnknownService is returned by Bind when no verification service is
	// known under the requested component name.
	ErrUnknownService = errors.New("verify: unknown service")

	// ErrDisconnected is returned by a checker whose service went away.
	ErrDisconnected = errors.New("verify: service disconnected")
)

// Checker answers whether a device is supported by the handler that owns the
// verification service.
type Checker interface {
	IsDeviceSupported(ctx context.Context, dev usbdev.Device) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, dev usbdev.Device) (bool, error)

// IsDeviceSupported implements Checker.
func (f CheckerFunc) IsDeviceSupported(ctx context.Context, dev usbdev.Device) (bool, error) {
	return f(ctx, dev)
}

// Callbacks receive the outcome of a Bind. They may run on any goroutine
// and must not call Unbind themselves.
type Callbacks struct {
	// OnConnected delivers the bound service's checker.
	OnConnected func(Checker)

	// OnDisconnected reports that the service went away, either before it
	// connected or while it was bound.
	OnDisconnected func()
}

func (cb Callbacks) connected(c Checker) {
	if cb.OnConnected != nil {
		cb.OnConnected(c)
	}
}

func (cb Callbacks) disconnected() {
	if cb.OnDisconnected != nil {
		cb.OnDisconnected()
	}
}

// Binding is a live connection attempt to a verification service.
type Binding interface {
	// Unbind releases the binding. No callbacks are delivered once Unbind
	// has returned, except ones already running. Unbind is idempotent.
	Unbind()
}

// Binder connects to verification services by component name.
type Binder interface {
	// Bind starts connecting to service. An error means the attempt could
	// not be started and no callback will follow.
	Bind(service registry.Component, cb Callbacks) (Binding, error)
}
