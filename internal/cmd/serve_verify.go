package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/samber/lo"

	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

// ServeVerify answers verification probes for a handler running on another
// machine. A device is supported when its vendor ID is in Vendors, or for
// every device when Vendors is empty.
type ServeVerify struct {
	Services     []string      `arg:"" help:"Verification service components to serve (package/.Class)"`
	Address      string        `help:"Listen address" default:":7531" env:"USBHOST_VERIFY_ADDR"`
	Vendors      []string      `help:"Accepted vendor IDs in hex; empty accepts every device"`
	CheckTimeout time.Duration `help:"Bound on a single check" default:"5s"`
	Advertise    bool          `help:"Advertise the server over mDNS" default:"true" negatable:""`
	Instance     string        `help:"mDNS instance name"`
	Interface    string        `help:"Network interface for mDNS"`
}

// Run is called by Kong when the serve-verify command is executed.
func (s *ServeVerify) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker, err := vendorChecker(s.Vendors)
	if err != nil {
		return err
	}

	server := verify.NewServer(verify.ServerConfig{
		Address:      s.Address,
		CheckTimeout: s.CheckTimeout,
		Instance:     s.Instance,
		TTL:          verify.DefaultServerConfig().TTL,
		Interface:    s.Interface,
		Logger:       logger.With("component", "verify"),
	})
	for _, name := range s.Services {
		comp, err := registry.ParseComponent(name)
		if err != nil {
			return err
		}
		server.Register(comp, checker)
	}

	if err := server.Start(ctx); err != nil {
		return err
	}
	if s.Advertise {
		if err := server.Advertise(); err != nil {
			logger.Warn("mDNS advertisement failed", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down verification server")
	return server.Close()
}

// vendorChecker accepts devices whose vendor ID is listed.
func vendorChecker(vendors []string) (verify.Checker, error) {
	ids := make([]uint16, 0, len(vendors))
	for _, v := range vendors {
		id, err := strconv.ParseUint(v, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("vendor id %q: %w", v, err)
		}
		ids = append(ids, uint16(id))
	}
	return verify.CheckerFunc(func(_ context.Context, dev usbdev.Device) (bool, error) {
		return len(ids) == 0 || lo.Contains(ids, dev.VendorID), nil
	}), nil
}
