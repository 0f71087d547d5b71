package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/usbhost/usbhost-go/pkg/settings"
)

type Settings struct {
	List   SettingsList   `cmd:"" default:"1" help:"List remembered handlers"`
	Forget SettingsForget `cmd:"" help:"Forget the handler remembered for a device"`
	Clear  SettingsClear  `cmd:"" help:"Forget every remembered handler"`
}

type SettingsList struct {
	Store `embed:""`
}

func (c *SettingsList) Run() error {
	list, err := settings.NewFileStore(c.SettingsFile).List()
	if err != nil {
		return err
	}
	printSettings(os.Stdout, list)
	return nil
}

func printSettings(w io.Writer, list []settings.DeviceSettings) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No remembered handlers.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tID\tNAME\tHANDLER\tMODE")
	for _, s := range list {
		mode := "native"
		if s.Accessory {
			mode = "accessory"
		}
		fmt.Fprintf(tw, "%s\t%04x:%04x\t%s\t%s\t%s\n", s.SerialNumber, s.VendorID, s.ProductID, s.Name, s.Handler.Flatten(), mode)
	}
	tw.Flush()
}

type SettingsForget struct {
	Store `embed:""`

	Serial string `arg:"" help:"Device serial number"`
	USBID  string `name:"usb-id" help:"Vendor and product ID in hex (vvvv:pppp); omit to forget accessory-mode settings"`
}

func (c *SettingsForget) Run(logger *slog.Logger) error {
	id, err := settings.ParseIdentity(c.Serial, c.USBID)
	if err != nil {
		return err
	}
	if err := settings.NewFileStore(c.SettingsFile).Delete(id); err != nil {
		return err
	}
	logger.Info("settings forgotten", "identity", id.String())
	return nil
}

type SettingsClear struct {
	Store `embed:""`
}

func (c *SettingsClear) Run(logger *slog.Logger) error {
	if err := settings.NewFileStore(c.SettingsFile).Clear(); err != nil {
		return err
	}
	logger.Info("settings cleared", "file", c.SettingsFile)
	return nil
}
