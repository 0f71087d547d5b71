// Package cmd implements the usbhostd commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/usbhost/usbhost-go/cmd/usbhostd/interactive"
	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/host"
	"github.com/usbhost/usbhost-go/pkg/launch"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/resolver"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/usbio"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

// shutdownTimeout bounds the controller teardown on exit.
const shutdownTimeout = 3 * time.Second

// Store selects the settings file.
type Store struct {
	SettingsFile string `help:"Remembered handlers (JSON)" default:"/var/lib/usbhost/settings.json" type:"path" env:"USBHOST_SETTINGS_FILE"`
}

// Verify configures how verification services are reached.
type Verify struct {
	Endpoints   map[string]string `help:"Static verification endpoints (component=host:port;...)" env:"USBHOST_VERIFY_ENDPOINTS"`
	Browse      bool              `help:"Discover verification servers over mDNS" default:"true" negatable:"" env:"USBHOST_VERIFY_BROWSE"`
	Interface   string            `help:"Network interface for mDNS browsing"`
	DialTimeout time.Duration     `help:"Dial timeout for verification servers" default:"3s"`
}

type Run struct {
	Store `embed:""`

	ManifestDir    string        `help:"Directory of handler manifests" default:"/etc/usbhost/handlers" type:"path" env:"USBHOST_MANIFEST_DIR"`
	EventLog       string        `help:"Host event log (.ulog); empty disables capture" type:"path" env:"USBHOST_EVENT_LOG"`
	PollInterval   time.Duration `help:"USB bus scan interval" default:"1s"`
	ConnectTimeout time.Duration `help:"Bound on each verification service connect and answer" default:"5000ms"`
	Debounce       time.Duration `help:"Delay before a detached device is released" default:"500ms"`

	Verify Verify `embed:"" prefix:"verify."`

	Interactive bool `help:"Run the interactive console and offer handler choices on it" short:"i"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry.NewManifestRegistry(registry.ManifestConfig{
		Dir:         r.ManifestDir,
		ReloadDelay: registry.DefaultManifestConfig(r.ManifestDir).ReloadDelay,
		Logger:      logger.With("component", "registry"),
	})
	if err != nil {
		return fmt.Errorf("load manifests: %w", err)
	}

	events, closeEvents, err := r.eventLogger(logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeEvents()) }()

	usb := usbio.NewGoUSB(logger.With("component", "usb"))
	defer func() { err = multierr.Append(err, usb.Close()) }()

	store := settings.NewFileStore(r.SettingsFile)
	lp := looper.New(nil, logger.With("component", "looper"))
	binder := verify.NewRemoteBinder(verify.RemoteConfig{
		Endpoints:   r.Verify.Endpoints,
		DialTimeout: r.Verify.DialTimeout,
		Browse:      r.Verify.Browse,
		Interface:   r.Verify.Interface,
		Logger:      logger.With("component", "verify"),
	})
	launcher := launch.NewExecLauncher(logger.With("component", "launch"))

	monitor, err := usbio.NewMonitor(usb, usbio.MonitorConfig{
		Interval: r.PollInterval,
		Logger:   logger.With("component", "monitor"),
	})
	if err != nil {
		return err
	}

	var (
		console *interactive.Console
		picker  host.Picker = logPicker{logger: logger}
	)
	if r.Interactive {
		console, err = interactive.New(interactive.Config{
			Store:   store,
			Devices: monitor.Devices,
		})
		if err != nil {
			return err
		}
		picker = console
	}

	ctrl, err := host.New(host.Config{
		DebounceDelay:   r.Debounce,
		DispatchTimeout: host.DefaultDispatchTimeout,
		Logger:          logger.With("component", "host"),
		EventLogger:     events,
	}, host.Deps{
		Looper: lp,
		Store:  store,
		Picker: picker,
		NewResolver: func(cb resolver.Callback) (host.Resolver, error) {
			return resolver.New(resolver.Config{
				ConnectTimeout: r.ConnectTimeout,
				Logger:         logger.With("component", "resolver"),
				EventLogger:    events,
			}, resolver.Deps{
				Looper:   lp,
				Service:  usb,
				Registry: reg,
				Binder:   binder,
				Launcher: launcher,
				Callback: cb,
			})
		},
	})
	if err != nil {
		return err
	}
	ctrl.OnEvent(func(e host.Event) {
		logger.Info("host event", "type", e.Type.String(), "device", e.Device.Name, "handler", e.Handler.Flatten())
	})

	monitor.OnEvent(func(e usbio.Event) {
		switch e.Type {
		case usbio.EventAttached:
			ctrl.DeviceAttached(e.Device)
		case usbio.EventDetached:
			ctrl.DeviceDetached(e.Device)
		}
	})

	logger.Info("usbhostd starting", "manifests", r.ManifestDir, "settings", r.SettingsFile,
		"handlers", len(reg.Activities()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lp.Run(context.Background()) })
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return reg.Watch(gctx) })
	g.Go(func() error { return binder.Run(gctx) })
	if console != nil {
		console.Bind(ctrl)
		g.Go(func() error {
			console.Run(gctx, stop)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := ctrl.Stop(sctx)
		lp.Stop()
		if errors.Is(err, looper.ErrStopped) {
			return nil
		}
		return err
	})

	err = g.Wait()
	if n := launcher.Running(); n > 0 {
		logger.Info("handlers still running", "count", n)
	}
	return err
}

// eventLogger builds the host event sink: the operational log always, plus
// the .ulog file when configured.
func (r *Run) eventLogger(logger *slog.Logger) (log.Logger, func() error, error) {
	adapter := log.NewSlogAdapter(logger.With("component", "events"))
	if r.EventLog == "" {
		return adapter, func() error { return nil }, nil
	}
	file, err := log.NewFileLogger(r.EventLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	return log.NewMultiLogger(adapter, file), func() error {
		if n := file.Dropped(); n > 0 {
			logger.Warn("event log dropped events", "count", n)
		}
		return file.Close()
	}, nil
}

// logPicker reports handler choices to the log when no console is attached.
// The device stays active until a choice is applied or it detaches.
type logPicker struct {
	logger *slog.Logger
}

func (p logPicker) ShowHandlers(dev usbdev.Device, options []settings.DeviceSettings) {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Handler.Flatten()
	}
	p.logger.Warn("several handlers available; run with --interactive to choose",
		"device", dev.String(), "handlers", names)
}
