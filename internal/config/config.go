// Package config defines the usbhostd command line and configuration file.
//
// Every flag can also be set in a YAML file. Files are read from
// DefaultPaths and from --config; flags and environment variables override
// file values.
package config

import (
	"github.com/alecthomas/kong"

	"github.com/usbhost/usbhost-go/internal/cmd"
)

// DefaultPaths are the configuration files read when present, lowest
// priority first.
var DefaultPaths = []string{
	"/etc/usbhost/usbhostd.yaml",
	"~/.config/usbhost/usbhostd.yaml",
}

type Log struct {
	Level string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"USBHOST_LOG_LEVEL"`
	File  string `help:"Log file path, rotated by size (default: none; logs only to console)" type:"path" env:"USBHOST_LOG_FILE"`
}

// CLI is the root command structure for Kong CLI parsing.
type CLI struct {
	Config kong.ConfigFlag `help:"Additional YAML configuration file." env:"USBHOST_CONFIG"`

	Log `embed:"" prefix:"log."`

	Run         cmd.Run         `cmd:"" help:"Run the USB host daemon"`
	Devices     cmd.Devices     `cmd:"" help:"List attached USB devices and their candidate handlers"`
	Settings    cmd.Settings    `cmd:"" help:"Inspect or edit remembered device handlers"`
	ServeVerify cmd.ServeVerify `cmd:"" name:"serve-verify" help:"Serve verification checks over the network"`
}
