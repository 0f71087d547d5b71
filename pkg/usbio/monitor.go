package usbio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// EventType distinguishes attach from detach.
type EventType uint8

const (
	// EventAttached is emitted when a device appears on the bus.
	EventAttached EventType = iota
	// EventDetached is emitted when a device disappears.
	EventDetached
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventAttached:
		return "ATTACHED"
	case EventDetached:
		return "DETACHED"
	default:
		return "UNKNOWN"
	}
}

// Event is a hotplug notification.
type Event struct {
	Type   EventType
	Device usbdev.Device
}

// EventHandler receives hotplug events on the monitor goroutine.
type EventHandler func(Event)

// MonitorConfig configures a polling hotplug Monitor.
type MonitorConfig struct {
	// Interval between bus scans.
	Interval time.Duration

	// Clock drives the scan ticker. Defaults to the wall clock.
	Clock clock.Clock

	// Logger for scan failures. Nil disables logging.
	Logger *slog.Logger
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval: time.Second,
	}
}

// Validate checks the configuration.
func (c *MonitorConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("usbio: monitor interval must be positive")
	}
	return nil
}

// Monitor turns periodic enumerations into attach and detach events.
type Monitor struct {
	enum   Enumerator
	config MonitorConfig
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	known    map[string]usbdev.Device
	handlers []EventHandler
}

// NewMonitor creates a monitor over enum.
func NewMonitor(enum Enumerator, config MonitorConfig) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		enum:   enum,
		config: config,
		clock:  clk,
		logger: logger,
		known:  make(map[string]usbdev.Device),
	}, nil
}

// OnEvent registers a handler. Handlers must be registered before Run.
func (m *Monitor) OnEvent(h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Run scans immediately and then on every tick until ctx is done. Devices
// present at start are reported as attached.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Poll(ctx); err != nil {
		m.logger.Warn("usb scan failed", "error", err)
	}

	ticker := m.clock.Ticker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				m.logger.Warn("usb scan failed", "error", err)
			}
		}
	}
}

// Poll performs one scan and emits the differences to the previous one.
// Detaches are emitted before attaches.
func (m *Monitor) Poll(ctx context.Context) error {
	devices, err := m.enum.Devices(ctx)
	if err != nil {
		return err
	}

	current := make(map[string]usbdev.Device, len(devices))
	for _, d := range devices {
		current[monitorKey(d)] = d
	}

	m.mu.Lock()
	var detached, attached []usbdev.Device
	for k, d := range m.known {
		if _, ok := current[k]; !ok {
			detached = append(detached, d)
		}
	}
	for k, d := range current {
		if _, ok := m.known[k]; !ok {
			attached = append(attached, d)
		}
	}
	m.known = current
	handlers := append([]EventHandler(nil), m.handlers...)
	m.mu.Unlock()

	sortByName(detached)
	sortByName(attached)

	for _, d := range detached {
		m.logger.Debug("device detached", "device", d.String())
		m.emit(handlers, Event{Type: EventDetached, Device: d})
	}
	for _, d := range attached {
		m.logger.Debug("device attached", "device", d.String())
		m.emit(handlers, Event{Type: EventAttached, Device: d})
	}
	return nil
}

// Devices returns the devices seen on the last scan.
func (m *Monitor) Devices() []usbdev.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]usbdev.Device, 0, len(m.known))
	for _, d := range m.known {
		out = append(out, d)
	}
	sortByName(out)
	return out
}

func (m *Monitor) emit(handlers []EventHandler, e Event) {
	for _, h := range handlers {
		h(e)
	}
}

// monitorKey changes when a different device takes over a bus address.
func monitorKey(d usbdev.Device) string {
	return fmt.Sprintf("%s %04x:%04x %s", d.Name, d.VendorID, d.ProductID, d.SerialNumber)
}

func sortByName(devs []usbdev.Device) {
	sort.Slice(devs, func(i, j int) bool { return devs[i].Name < devs[j].Name })
}
