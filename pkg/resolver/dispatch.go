package resolver

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/filter"
	"github.com/usbhost/usbhost-go/pkg/launch"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Dispatch hands dev to handler. With wantAccessory set and dev not yet in
// accessory mode, it performs the accessory handshake instead of launching;
// the device then re-enumerates and is dispatched again. It reports false
// if the handler is unknown or could not be started. It must be called on
// the looper.
func (r *Resolver) Dispatch(ctx context.Context, dev usbdev.Device, handler registry.Component, wantAccessory bool) bool {
	logger := r.logger.With("device", dev.Name, "handler", handler.Flatten())

	activity, err := r.registry.ResolveLaunchTarget(handler)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			logger.Warn("resolve launch target failed", "error", err)
		} else {
			logger.Info("handler not registered")
		}
		r.emitError(uuid.Nil, dev, err, "resolve launch target")
		return false
	}

	if wantAccessory && !aoap.IsAccessoryMode(dev) {
		if acc, ok := activity.AccessoryFilter(); ok {
			r.switchToAccessory(ctx, dev, acc)
			r.emitDispatch(dev, handler, log.DispatchAccessorySwitch, true)
			return true
		}
	}

	if err := r.launcher.GrantAccess(dev, activity.UID); err != nil {
		logger.Warn("grant device access failed", "uid", activity.UID, "error", err)
	}
	if err := r.launcher.Launch(ctx, launch.NewRequest(activity, dev)); err != nil {
		logger.Warn("launch handler failed", "error", err)
		r.emitError(uuid.Nil, dev, err, "launch handler")
		r.emitDispatch(dev, handler, log.DispatchLaunch, false)
		return false
	}

	r.post(completeDispatchMsg{dev: dev, handler: handler})
	r.emitDispatch(dev, handler, log.DispatchLaunch, true)
	return true
}

// switchToAccessory sends the accessory strings and the start request.
// Failures are logged only: the switch counts as requested either way.
func (r *Resolver) switchToAccessory(ctx context.Context, dev usbdev.Device, acc filter.AccessoryFilter) {
	logger := r.logger.With("device", dev.Name)

	conn, err := r.service.Open(ctx, dev)
	if err != nil {
		logger.Warn("open device for accessory switch failed", "error", err)
		r.emitError(uuid.Nil, dev, err, "accessory switch")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("close device connection", "error", err)
		}
	}()

	if err := aoap.Switch(conn, acc.Strings()); err != nil {
		logger.Warn("accessory handshake failed", "error", err)
		r.emitError(uuid.Nil, dev, err, "accessory switch")
		return
	}
	logger.Info("accessory mode requested")
}

func (r *Resolver) emitDispatch(dev usbdev.Device, handler registry.Component, mode log.DispatchMode, ok bool) {
	r.emit(log.Event{
		Category:     log.CategoryDispatch,
		DeviceName:   dev.Name,
		SerialNumber: dev.SerialNumber,
		Dispatch: &log.DispatchEvent{
			Handler: handler.Flatten(),
			Mode:    mode,
			Success: ok,
		},
	})
}
