// Command usbhostd dispatches attached USB devices to handler applications.
//
// Usage:
//
//	usbhostd run [--manifest-dir=DIR] [--settings-file=FILE] [--event-log=FILE] [-i]
//	usbhostd devices [--manifest-dir=DIR]
//	usbhostd settings list|forget|clear
//	usbhostd serve-verify <component>... [--address=:7531] [--vendors=18d1,...]
//
// Flags can also be set in /etc/usbhost/usbhostd.yaml,
// ~/.config/usbhost/usbhostd.yaml, or the file given with --config.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/usbhost/usbhost-go/internal/config"
	"github.com/usbhost/usbhost-go/internal/logging"
)

func main() {
	var cli config.CLI
	ctx := kong.Parse(&cli,
		kong.Name("usbhostd"),
		kong.Description("USB host handler dispatcher"),
		kong.UsageOnError(),
		// Flags and environment variables override configuration file values.
		kong.Configuration(kongyaml.Loader, config.DefaultPaths...),
	)

	logger, closers, err := logging.Setup(cli.Log.Level, cli.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logger:", err)
		os.Exit(2)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
