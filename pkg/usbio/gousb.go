package usbio

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/gousb"

	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// DevicePathPrefix is where Linux exposes usbfs device nodes.
const DevicePathPrefix = "/dev/bus/usb/"

// GoUSB is a libusb-backed Service and Enumerator.
type GoUSB struct {
	mu     sync.Mutex
	ctx    *gousb.Context
	logger *slog.Logger

	// String descriptors of devices seen on the last enumeration, keyed by
	// stringKey. Reading them needs the device open, so it happens once.
	strings map[string]stringDescs
}

type stringDescs struct {
	manufacturer, product, serial string
}

// NewGoUSB creates a libusb context. Close releases it.
func NewGoUSB(logger *slog.Logger) *GoUSB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GoUSB{
		ctx:     gousb.NewContext(),
		logger:  logger,
		strings: make(map[string]stringDescs),
	}
}

// Close releases the libusb context.
func (g *GoUSB) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ctx == nil {
		return nil
	}
	err := g.ctx.Close()
	g.ctx = nil
	return err
}

// Devices lists the attached devices with their interface class triples
// and string descriptors.
func (g *GoUSB) Devices(ctx context.Context) ([]usbdev.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ctx == nil {
		return nil, ErrClosed
	}

	var (
		devices []usbdev.Device
		unread  = make(map[string]bool)
	)
	_, err := g.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		d := fromDesc(desc)
		devices = append(devices, d)
		if _, ok := g.strings[stringKey(d)]; !ok {
			unread[d.Name] = true
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}

	if len(unread) > 0 && ctx.Err() == nil {
		g.readStrings(unread)
	}

	seen := make(map[string]stringDescs, len(devices))
	for i := range devices {
		s := g.strings[stringKey(devices[i])]
		devices[i].ManufacturerName = s.manufacturer
		devices[i].ProductName = s.product
		devices[i].SerialNumber = s.serial
		seen[stringKey(devices[i])] = s
	}
	g.strings = seen

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// readStrings opens each named device once and caches its string
// descriptors. Devices that cannot be opened keep empty strings.
func (g *GoUSB) readStrings(names map[string]bool) {
	opened, err := g.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return names[deviceName(desc)]
	})
	if err != nil {
		g.logger.Debug("open for string descriptors", "error", err)
	}
	for _, dev := range opened {
		d := fromDesc(dev.Desc)
		var s stringDescs
		s.manufacturer, _ = dev.Manufacturer()
		s.product, _ = dev.Product()
		s.serial, _ = dev.SerialNumber()
		g.strings[stringKey(d)] = s
		_ = dev.Close()
	}
}

// Open opens the device at dev's bus address, provided it still carries
// the same vendor and product IDs.
func (g *GoUSB) Open(ctx context.Context, dev usbdev.Device) (Conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ctx == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opened, err := g.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return deviceName(desc) == dev.Name &&
			uint16(desc.Vendor) == dev.VendorID &&
			uint16(desc.Product) == dev.ProductID
	})
	if err != nil {
		for _, d := range opened {
			_ = d.Close()
		}
		return nil, fmt.Errorf("open %s: %w", dev.Name, err)
	}
	switch len(opened) {
	case 0:
		return nil, fmt.Errorf("open %s: %w", dev.Name, ErrDeviceNotFound)
	case 1:
		return &gousbConn{dev: opened[0]}, nil
	default:
		for _, d := range opened {
			_ = d.Close()
		}
		return nil, fmt.Errorf("open %s: %w", dev.Name, ErrAmbiguousDevice)
	}
}

type gousbConn struct {
	mu  sync.Mutex
	dev *gousb.Device
}

func (c *gousbConn) SupportsAccessoryMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return false
	}
	return aoap.IsSupported(c.dev)
}

func (c *gousbConn) SendAccessoryString(key aoap.StringKey, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return ErrClosed
	}
	return aoap.SendString(c.dev, key, value)
}

func (c *gousbConn) SwitchToAccessoryMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return ErrClosed
	}
	return aoap.Start(c.dev)
}

func (c *gousbConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	return err
}

func deviceName(desc *gousb.DeviceDesc) string {
	return fmt.Sprintf("%03d/%03d", desc.Bus, desc.Address)
}

func stringKey(d usbdev.Device) string {
	return fmt.Sprintf("%s %04x:%04x", d.Name, d.VendorID, d.ProductID)
}

// fromDesc converts a libusb descriptor. Interfaces come from the
// lowest-numbered configuration, first alternate setting.
func fromDesc(desc *gousb.DeviceDesc) usbdev.Device {
	name := deviceName(desc)
	d := usbdev.Device{
		Name:      name,
		Path:      DevicePathPrefix + name,
		VendorID:  uint16(desc.Vendor),
		ProductID: uint16(desc.Product),
		Class:     uint8(desc.Class),
		Subclass:  uint8(desc.SubClass),
		Protocol:  uint8(desc.Protocol),
	}

	cfgNum, found := 0, false
	for n := range desc.Configs {
		if !found || n < cfgNum {
			cfgNum, found = n, true
		}
	}
	if !found {
		return d
	}
	for _, intf := range desc.Configs[cfgNum].Interfaces {
		if len(intf.AltSettings) == 0 {
			continue
		}
		alt := intf.AltSettings[0]
		d.Interfaces = append(d.Interfaces, usbdev.Interface{
			Number:   uint8(intf.Number),
			Class:    uint8(alt.Class),
			Subclass: uint8(alt.SubClass),
			Protocol: uint8(alt.Protocol),
		})
	}
	return d
}

// Compile-time interface satisfaction checks.
var (
	_ Service    = (*GoUSB)(nil)
	_ Enumerator = (*GoUSB)(nil)
	_ Conn       = (*gousbConn)(nil)
)
