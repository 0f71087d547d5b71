package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/resolver"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Controller runs the single-device lifecycle.
type Controller struct {
	config   Config
	logger   *slog.Logger
	events   log.Logger
	looper   *looper.Looper
	store    settings.Store
	picker   Picker
	resolver Resolver

	// Snapshot for State and ActiveDevice. Written on the looper.
	mu       sync.RWMutex
	state    State
	snapshot usbdev.Device

	handlersMu    sync.RWMutex
	eventHandlers []EventHandler

	// Owned by the looper.
	active *activeDevice
}

// activeDevice is the device being handled.
type activeDevice struct {
	dev usbdev.Device

	// session is the resolution in progress, or uuid.Nil.
	session uuid.UUID

	// detach is the armed debounce, if a detach is pending.
	detach *looper.Delayed

	// held is a resolution result that arrived while the detach was pending.
	held []settings.DeviceSettings
	hold bool
}

// New creates a controller and the resolver it drives.
func New(config Config, deps Deps) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		config: config,
		logger: logger,
		events: log.OrNoop(config.EventLogger),
		looper: deps.Looper,
		store:  deps.Store,
		picker: deps.Picker,
	}
	r, err := deps.NewResolver(c)
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}
	c.resolver = r
	return c, nil
}

// OnEvent registers an event handler.
func (c *Controller) OnEvent(handler EventHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.eventHandlers = append(c.eventHandlers, handler)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ActiveDevice returns the device being handled, if any.
func (c *Controller) ActiveDevice() (usbdev.Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.state != StateIdle
}

// DeviceAttached reports a newly attached device.
func (c *Controller) DeviceAttached(dev usbdev.Device) {
	if !c.looper.Post(func() { c.attach(dev) }) {
		c.logger.Debug("attach after stop ignored", "device", dev.Name)
	}
}

// DeviceDetached reports a removed device.
func (c *Controller) DeviceDetached(dev usbdev.Device) {
	if !c.looper.Post(func() { c.detach(dev) }) {
		c.logger.Debug("detach after stop ignored", "device", dev.Name)
	}
}

// ApplySettings records the user's choice for the active device and
// dispatches to it.
func (c *Controller) ApplySettings(ctx context.Context, ds settings.DeviceSettings) error {
	var err error
	if serr := c.looper.Sync(ctx, func() { err = c.apply(ds) }); serr != nil {
		return serr
	}
	return err
}

// ForgetDevice deletes the remembered handler for id.
func (c *Controller) ForgetDevice(ctx context.Context, id settings.Identity) error {
	var err error
	if serr := c.looper.Sync(ctx, func() { err = c.store.Delete(id) }); serr != nil {
		return serr
	}
	if err != nil {
		return fmt.Errorf("forget %s: %w", id, err)
	}
	c.logger.Info("device settings forgotten", "identity", id.String())
	return nil
}

// Stop releases the active device without reporting its removal.
func (c *Controller) Stop(ctx context.Context) error {
	return c.looper.Sync(ctx, c.release)
}

// OnHandlersResolved implements resolver.Callback.
func (c *Controller) OnHandlersResolved(session uuid.UUID, dev usbdev.Device, handlers []settings.DeviceSettings) {
	a := c.active
	if a == nil || a.session != session {
		c.logger.Debug("dropping stale resolution result", "session", session.String())
		return
	}
	a.session = uuid.Nil

	if a.detach.Active() {
		c.logger.Debug("holding resolution result until re-attach", "device", dev.Name, "handlers", len(handlers))
		a.held, a.hold = handlers, true
		return
	}
	c.handleResolved(handlers)
}

// OnResolveFailed implements resolver.Callback.
func (c *Controller) OnResolveFailed(session uuid.UUID, dev usbdev.Device, err error) {
	a := c.active
	if a == nil || a.session != session {
		return
	}
	a.session = uuid.Nil

	c.logger.Warn("device resolution failed", "device", dev.Name, "error", err)
	c.emitError(dev, err, "resolve")
	c.emitEvent(Event{Type: EventUnsupportedDevice, Device: a.dev, Error: err})
	c.release()
}

// OnDeviceDispatched implements resolver.Callback.
func (c *Controller) OnDeviceDispatched(dev usbdev.Device, handler registry.Component) {
	c.logger.Info("device dispatched", "device", dev.Name, "handler", handler.Flatten())
	c.emitEvent(Event{Type: EventDeviceDispatched, Device: dev, Handler: handler})
}

func (c *Controller) attach(dev usbdev.Device) {
	if a := c.active; a != nil {
		if a.dev.Same(dev) {
			c.reattach(a, dev)
			return
		}
		if !a.detach.Active() {
			c.logger.Info("another device is active, ignoring attach", "device", dev.Name, "active", a.dev.Name)
			c.emitDevice(dev, log.DeviceAttached, true)
			return
		}
		// The active device is on its way out; a re-enumeration in
		// accessory mode shows up here.
		c.logger.Debug("completing pending detach", "device", a.dev.Name)
		c.removed()
	}

	c.emitDevice(dev, log.DeviceAttached, false)
	c.active = &activeDevice{dev: dev}
	c.setState(StateActive, dev, "attached")

	ds, err := c.store.Get(settings.IdentityOf(dev))
	switch {
	case err == nil:
		if c.dispatch(ds) {
			c.setState(StateDispatched, dev, "remembered handler")
			return
		}
		c.logger.Info("remembered handler unavailable", "device", dev.Name, "handler", ds.Handler.Flatten())
		c.emitEvent(Event{Type: EventHandlerUnavailable, Device: dev, Handler: ds.Handler})
	case errors.Is(err, settings.ErrNotFound):
		if aoap.IsAccessoryMode(dev) {
			c.logger.Info("accessory-mode device without settings", "device", dev.Name)
			c.setState(StateDispatched, dev, "accessory mode")
			return
		}
	default:
		c.logger.Warn("settings lookup failed", "device", dev.Name, "error", err)
		c.emitError(dev, err, "settings lookup")
	}

	c.resolve()
}

func (c *Controller) reattach(a *activeDevice, dev usbdev.Device) {
	a.dev = dev
	c.mu.Lock()
	c.snapshot = dev
	c.mu.Unlock()
	c.emitDevice(dev, log.DeviceUpdated, false)

	if !a.detach.Active() {
		return
	}
	a.detach.Stop()
	a.detach = nil
	c.logger.Debug("device re-attached within debounce", "device", dev.Name)

	if a.hold {
		held := a.held
		a.held, a.hold = nil, false
		c.handleResolved(held)
	}
}

func (c *Controller) resolve() {
	a := c.active
	id, err := c.resolver.Resolve(a.dev)
	if err != nil {
		c.logger.Warn("start resolution failed", "device", a.dev.Name, "error", err)
		c.emitError(a.dev, err, "resolve")
		c.release()
		return
	}
	a.session = id
	c.logger.Debug("resolution started", "device", a.dev.Name, "session", id.String())
}

func (c *Controller) handleResolved(handlers []settings.DeviceSettings) {
	dev := c.active.dev
	switch len(handlers) {
	case 0:
		c.logger.Info("no handler for device", "device", dev.Name)
		c.emitEvent(Event{Type: EventUnsupportedDevice, Device: dev})
		c.setState(StateDispatched, dev, "unsupported")
	case 1:
		ds := handlers[0]
		c.save(ds)
		if !c.dispatch(ds) {
			c.emitEvent(Event{Type: EventHandlerUnavailable, Device: dev, Handler: ds.Handler})
		}
		c.setState(StateDispatched, dev, "single handler")
	default:
		c.logger.Info("offering handlers", "device", dev.Name, "handlers", len(handlers))
		c.emitEvent(Event{Type: EventHandlersOffered, Device: dev, Handlers: handlers})
		c.picker.ShowHandlers(dev, handlers)
	}
}

func (c *Controller) apply(ds settings.DeviceSettings) error {
	a := c.active
	if a == nil {
		return ErrNoActiveDevice
	}
	if settings.FromDevice(a.dev).Identity() != ds.Identity() {
		return ErrNotActiveDevice
	}
	if a.session != uuid.Nil {
		return ErrResolving
	}

	c.save(ds)
	if !c.dispatch(ds) {
		c.emitEvent(Event{Type: EventHandlerUnavailable, Device: a.dev, Handler: ds.Handler})
		return fmt.Errorf("%w: %s", ErrDispatchFailed, ds.Handler.Flatten())
	}
	c.setState(StateDispatched, a.dev, "handler chosen")
	return nil
}

func (c *Controller) dispatch(ds settings.DeviceSettings) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.DispatchTimeout)
	defer cancel()
	return c.resolver.Dispatch(ctx, c.active.dev, ds.Handler, ds.Accessory)
}

func (c *Controller) save(ds settings.DeviceSettings) {
	if err := c.store.Save(ds); err != nil {
		c.logger.Warn("save device settings failed", "device", ds.Name, "error", err)
		c.emitError(c.active.dev, err, "save settings")
	}
}

func (c *Controller) detach(dev usbdev.Device) {
	a := c.active
	if a == nil || !a.dev.Same(dev) {
		c.logger.Debug("ignoring detach of inactive device", "device", dev.Name)
		c.emitDevice(dev, log.DeviceDetached, true)
		return
	}
	c.emitDevice(dev, log.DeviceDetached, false)
	if a.detach.Active() {
		return
	}
	a.detach = c.looper.PostDelayed(c.config.DebounceDelay, c.removed)
}

// removed completes a detach.
func (c *Controller) removed() {
	a := c.active
	if a == nil {
		return
	}
	c.logger.Info("device removed", "device", a.dev.Name)
	c.emitDevice(a.dev, log.DeviceRemoved, false)
	c.release()
	c.emitEvent(Event{Type: EventDeviceRemoved, Device: a.dev})
}

// release cancels any resolution and returns to idle.
func (c *Controller) release() {
	a := c.active
	if a == nil {
		return
	}
	a.detach.Stop()
	if a.session != uuid.Nil {
		c.resolver.Cancel(a.session)
	}
	c.active = nil
	c.setState(StateIdle, usbdev.Device{}, "released")
}

func (c *Controller) setState(s State, dev usbdev.Device, reason string) {
	c.mu.Lock()
	old := c.state
	c.state = s
	c.snapshot = dev
	c.mu.Unlock()

	if old == s {
		return
	}
	c.logger.Debug("state change", "from", old.String(), "to", s.String(), "reason", reason)
	c.emit(log.Event{
		Category:     log.CategoryState,
		DeviceName:   dev.Name,
		SerialNumber: dev.SerialNumber,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityHost,
			OldState: old.String(),
			NewState: s.String(),
			Reason:   reason,
		},
	})
}

// emitEvent sends an event to all registered handlers.
func (c *Controller) emitEvent(event Event) {
	c.handlersMu.RLock()
	defer c.handlersMu.RUnlock()
	for _, handler := range c.eventHandlers {
		go handler(event)
	}
}

func (c *Controller) emit(e log.Event) {
	e.Timestamp = c.looper.Clock().Now()
	e.Layer = log.LayerHost
	c.events.Log(e)
}

func (c *Controller) emitDevice(dev usbdev.Device, action log.DeviceAction, ignored bool) {
	c.emit(log.Event{
		Category:     log.CategoryDevice,
		DeviceName:   dev.Name,
		SerialNumber: dev.SerialNumber,
		Device: &log.DeviceEvent{
			Action:    action,
			VendorID:  dev.VendorID,
			ProductID: dev.ProductID,
			Accessory: aoap.IsAccessoryMode(dev),
			Ignored:   ignored,
		},
	})
}

func (c *Controller) emitError(dev usbdev.Device, err error, op string) {
	c.emit(log.Event{
		Category:     log.CategoryError,
		DeviceName:   dev.Name,
		SerialNumber: dev.SerialNumber,
		Error: &log.ErrorEventData{
			Layer:   log.LayerHost,
			Message: err.Error(),
			Context: op,
		},
	})
}

// Compile-time interface satisfaction checks.
var (
	_ resolver.Callback = (*Controller)(nil)
	_ Resolver          = (*resolver.Resolver)(nil)
)
