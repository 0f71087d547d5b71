// Command usbhost-log inspects usbhostd event logs.
//
// Usage:
//
//	usbhost-log view <file.ulog> [--layer=...] [--category=...] [--session=...] [--device=...]
//	usbhost-log export <file.ulog> --format=jsonl|csv [-o output]
//	usbhost-log filter <file.ulog> -o <output.ulog> [--session=...] [--device=...] [--serial=...]
//	usbhost-log stats <file.ulog>
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/usbhost/usbhost-go/cmd/usbhost-log/commands"
)

type viewCmd struct {
	File     string `arg:"" type:"existingfile" help:"Event log to read."`
	Layer    string `help:"Filter by layer (transport, resolver, host)."`
	Category string `help:"Filter by category (device, state, probe, dispatch, error)."`
	Session  string `help:"Filter by session ID."`
	Device   string `help:"Filter by device name (bus/address)."`
}

func (c *viewCmd) Run() error {
	var filter commands.ViewFilter
	if c.Layer != "" {
		l, err := commands.ParseLayer(c.Layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}
	if c.Category != "" {
		cat, err := commands.ParseCategory(c.Category)
		if err != nil {
			return err
		}
		filter.Category = &cat
	}
	filter.SessionID = c.Session
	filter.Device = c.Device
	return commands.RunView(c.File, filter, os.Stdout)
}

type exportCmd struct {
	File   string `arg:"" type:"existingfile" help:"Event log to read."`
	Format string `default:"jsonl" enum:"jsonl,csv" help:"Output format (jsonl, csv)."`
	Output string `short:"o" help:"Output file (default: stdout)."`
}

func (c *exportCmd) Run() error {
	return commands.RunExport(c.File, c.Format, c.Output)
}

type filterCmd struct {
	File      string `arg:"" type:"existingfile" help:"Event log to read."`
	Output    string `short:"o" required:"" help:"Output event log."`
	Session   string `help:"Filter by session ID."`
	Device    string `help:"Filter by device name (bus/address)."`
	Serial    string `help:"Filter by serial number."`
	TimeStart string `name:"time-start" help:"Keep events at or after this time (RFC3339)."`
	TimeEnd   string `name:"time-end" help:"Keep events before this time (RFC3339)."`
	Layer     string `help:"Filter by layer."`
	Category  string `help:"Filter by category."`
}

func (c *filterCmd) Run() error {
	return commands.RunFilter(c.File, commands.FilterOptions{
		Output:    c.Output,
		SessionID: c.Session,
		Device:    c.Device,
		Serial:    c.Serial,
		TimeStart: c.TimeStart,
		TimeEnd:   c.TimeEnd,
		Layer:     c.Layer,
		Category:  c.Category,
	}, os.Stdout)
}

type statsCmd struct {
	File string `arg:"" type:"existingfile" help:"Event log to read."`
}

func (c *statsCmd) Run() error {
	return commands.RunStats(c.File, os.Stdout)
}

var cli struct {
	View   viewCmd   `cmd:"" help:"Display events in human-readable format."`
	Export exportCmd `cmd:"" help:"Export events to JSONL or CSV."`
	Filter filterCmd `cmd:"" help:"Write a filtered copy of a log."`
	Stats  statsCmd  `cmd:"" help:"Show log statistics."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("usbhost-log"),
		kong.Description("Inspect usbhostd event logs (.ulog)."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
