// Package interactive provides the usbhostd console. It is the handler
// picker: when several handlers can serve the active device, the choices
// are printed and the user applies one with "choose".
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/usbhost/usbhost-go/pkg/host"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Host is the part of the host controller the console drives.
type Host interface {
	OnEvent(handler host.EventHandler)
	State() host.State
	ActiveDevice() (usbdev.Device, bool)
	ApplySettings(ctx context.Context, ds settings.DeviceSettings) error
	ForgetDevice(ctx context.Context, id settings.Identity) error
}

// Config provides the console's collaborators.
type Config struct {
	// Store lists remembered handlers.
	Store settings.Store

	// Devices returns the devices currently on the bus.
	Devices func() []usbdev.Device

	// Stdin and Stdout override the terminal; used by tests.
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Console handles interactive mode for usbhostd.
type Console struct {
	config Config
	rl     *readline.Instance
	out    io.Writer
	host   Host

	mu      sync.Mutex
	offer   usbdev.Device
	options []settings.DeviceSettings
}

// New creates a console. Bind must be called before Run.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "usbhost> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           cfg.Stdin,
		Stdout:          cfg.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{config: cfg, rl: rl, out: rl.Stdout()}, nil
}

// Bind attaches the console to the host controller and subscribes to its
// events.
func (c *Console) Bind(h Host) {
	c.host = h
	h.OnEvent(c.handleEvent)
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// ShowHandlers implements host.Picker. It runs on the controller's looper
// and only records the choice.
func (c *Console) ShowHandlers(dev usbdev.Device, options []settings.DeviceSettings) {
	c.mu.Lock()
	c.offer = dev
	c.options = options
	c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%s can be handled by:\n", dev.DisplayName())
	c.printOptions(options)
	fmt.Fprintln(c.out, "Use 'choose <n>' or 'always <n>' to pick one.")
}

// Run starts the interactive command loop. It returns when ctx is done or
// the user exits, in which case cancel is called.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	go func() {
		<-ctx.Done()
		c.rl.Close()
	}()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.exec(ctx, line) {
			cancel()
			return
		}
	}
}

// exec runs one command line. It reports false when the console should
// exit.
func (c *Console) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "state", "status":
		c.cmdState()
	case "devices", "ls":
		c.cmdDevices()
	case "choose":
		c.cmdChoose(ctx, args, false)
	case "always":
		c.cmdChoose(ctx, args, true)
	case "settings":
		c.cmdSettings()
	case "forget":
		c.cmdForget(ctx, args)
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  state              Show the controller state and active device
  devices            List devices on the bus
  choose <n>         Dispatch the active device to offered handler n
  always <n>         Like choose, and use the handler by default
  settings           List remembered handlers
  forget [n]         Forget remembered handler n (default: the active device)
  help               Show this help
  quit               Exit`)
}

func (c *Console) cmdState() {
	fmt.Fprintf(c.out, "State: %s\n", c.host.State())
	if dev, ok := c.host.ActiveDevice(); ok {
		fmt.Fprintf(c.out, "Active: %s (%s)\n", dev.DisplayName(), dev)
	}
	c.mu.Lock()
	options := c.options
	c.mu.Unlock()
	if len(options) > 0 {
		fmt.Fprintln(c.out, "Pending choice:")
		c.printOptions(options)
	}
}

func (c *Console) cmdDevices() {
	devs := c.config.Devices()
	if len(devs) == 0 {
		fmt.Fprintln(c.out, "No devices.")
		return
	}
	for _, d := range devs {
		fmt.Fprintf(c.out, "  %s  %s\n", d, d.DisplayName())
	}
}

func (c *Console) cmdChoose(ctx context.Context, args []string, always bool) {
	c.mu.Lock()
	options := c.options
	c.mu.Unlock()

	if len(options) == 0 {
		fmt.Fprintln(c.out, "No handler choice pending.")
		return
	}
	n, ok := c.index(args, len(options))
	if !ok {
		return
	}

	choice := options[n]
	choice.Default = always
	if err := c.host.ApplySettings(ctx, choice); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		if errors.Is(err, host.ErrNotActiveDevice) || errors.Is(err, host.ErrNoActiveDevice) {
			c.clearOffer()
		}
		return
	}
	c.clearOffer()
	fmt.Fprintf(c.out, "Dispatched to %s\n", choice.Handler.Flatten())
}

func (c *Console) cmdSettings() {
	list, err := c.config.Store.List()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, "No remembered handlers.")
		return
	}
	for i, s := range list {
		fmt.Fprintf(c.out, "  [%d] %s  %s\n", i+1, s.Identity(), s)
	}
}

func (c *Console) cmdForget(ctx context.Context, args []string) {
	var id settings.Identity
	if len(args) == 0 {
		dev, ok := c.host.ActiveDevice()
		if !ok {
			fmt.Fprintln(c.out, "No active device; give a settings index.")
			return
		}
		id = settings.IdentityOf(dev)
	} else {
		list, err := c.config.Store.List()
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		n, ok := c.index(args, len(list))
		if !ok {
			return
		}
		id = list[n].Identity()
	}

	if err := c.host.ForgetDevice(ctx, id); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Forgot %s\n", id)
}

// index parses a 1-based index argument into a 0-based one.
func (c *Console) index(args []string, count int) (int, bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Expected one index.")
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > count {
		fmt.Fprintf(c.out, "Invalid index %q (1-%d)\n", args[0], count)
		return 0, false
	}
	return n - 1, true
}

func (c *Console) printOptions(options []settings.DeviceSettings) {
	for i, o := range options {
		mode := ""
		if o.Accessory {
			mode = " (accessory mode)"
		}
		fmt.Fprintf(c.out, "  [%d] %s%s\n", i+1, o.Handler.Flatten(), mode)
	}
}

func (c *Console) clearOffer() {
	c.mu.Lock()
	c.offer = usbdev.Device{}
	c.options = nil
	c.mu.Unlock()
}

// handleEvent prints host events. A pending choice is dropped when its
// device goes away.
func (c *Console) handleEvent(e host.Event) {
	switch e.Type {
	case host.EventUnsupportedDevice:
		fmt.Fprintf(c.out, "\nNo application can handle %s\n", e.Device.DisplayName())
	case host.EventHandlerUnavailable:
		fmt.Fprintf(c.out, "\nThe application used for %s is no longer available\n", e.Device.DisplayName())
	case host.EventDeviceDispatched:
		fmt.Fprintf(c.out, "\n%s started for %s\n", e.Handler.Flatten(), e.Device.DisplayName())
	case host.EventDeviceRemoved:
		c.mu.Lock()
		if c.offer.Same(e.Device) {
			c.offer = usbdev.Device{}
			c.options = nil
		}
		c.mu.Unlock()
		fmt.Fprintf(c.out, "\n%s removed\n", e.Device.DisplayName())
	}
}

// Compile-time interface satisfaction checks.
var (
	_ host.Picker = (*Console)(nil)
	_ Host        = (*host.Controller)(nil)
)
