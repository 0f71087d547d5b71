package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/usbio"
)

type Devices struct {
	ManifestDir string        `help:"Directory of handler manifests; when set, native candidates are listed per device" type:"path" env:"USBHOST_MANIFEST_DIR"`
	Timeout     time.Duration `help:"Enumeration timeout" default:"10s"`
}

// Run is called by Kong when the devices command is executed.
func (d *Devices) Run(logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	usb := usbio.NewGoUSB(logger.With("component", "usb"))
	defer usb.Close()

	devs, err := usb.Devices(ctx)
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}

	var reg registry.Registry
	if d.ManifestDir != "" {
		r, err := registry.NewManifestRegistry(registry.ManifestConfig{
			Dir:    d.ManifestDir,
			Logger: logger.With("component", "registry"),
		})
		if err != nil {
			return fmt.Errorf("load manifests: %w", err)
		}
		reg = r
	}

	printDevices(os.Stdout, devs, reg)
	return nil
}

// printDevices writes one row per device. With a registry, the handlers
// whose device filters match are listed in the last column.
func printDevices(w io.Writer, devs []usbdev.Device, reg registry.Registry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "NAME\tID\tCLASS\tSERIAL\tPRODUCT\tMODE"
	if reg != nil {
		header += "\tHANDLERS"
	}
	fmt.Fprintln(tw, header)

	for _, dev := range devs {
		mode := "native"
		if aoap.IsAccessoryMode(dev) {
			mode = "accessory"
		}
		serial := dev.SerialNumber
		if serial == "" {
			serial = "-"
		}
		row := fmt.Sprintf("%s\t%04x:%04x\t%d/%d/%d\t%s\t%s\t%s",
			dev.Name, dev.VendorID, dev.ProductID, dev.Class, dev.Subclass, dev.Protocol,
			serial, dev.DisplayName(), mode)
		if reg != nil {
			handlers := lo.Map(reg.QueryNativeCandidates(dev), func(c registry.Candidate, _ int) string {
				return c.Activity.Component.Flatten()
			})
			if len(handlers) == 0 {
				handlers = []string{"-"}
			}
			row += "\t" + fmt.Sprint(handlers)
		}
		fmt.Fprintln(tw, row)
	}
	tw.Flush()
}
