// Package launch starts handler processes for attached USB devices.
package launch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// ErrNoCommand is returned when the handler declares no command line.
var ErrNoCommand = errors.New("launch: handler has no command")

// Environment variables set for every launched handler.
const (
	EnvAction    = "USBHOST_ACTION"
	EnvComponent = "USBHOST_COMPONENT"
	EnvDevice    = "USBHOST_DEVICE"
	EnvDevPath   = "USBHOST_DEVPATH"
	EnvVendorID  = "USBHOST_VENDOR_ID"
	EnvProductID = "USBHOST_PRODUCT_ID"
	EnvSerial    = "USBHOST_SERIAL"
)

// Request describes a handler to start for a device.
type Request struct {
	Action    string
	Component registry.Component
	Device    usbdev.Device

	// Exec is the handler's command line. "{device}", "{devpath}" and
	// "{serial}" are substituted.
	Exec []string

	// UID the handler runs as, or registry.NoUID to keep the daemon's user.
	// Switching users requires the daemon to run with that privilege.
	UID int
}

// NewRequest builds the request that starts activity for dev.
func NewRequest(activity registry.Activity, dev usbdev.Device) Request {
	return Request{
		Action:    registry.ActionDeviceAttached,
		Component: activity.Component,
		Device:    dev,
		Exec:      activity.Exec,
		UID:       activity.UID,
	}
}

// Launcher starts handlers.
type Launcher interface {
	// GrantAccess gives uid permission to open dev.
	GrantAccess(dev usbdev.Device, uid int) error

	// Launch starts the handler. It returns once the handler is running;
	// it does not wait for it to exit.
	Launch(ctx context.Context, req Request) error
}

// ExecLauncher starts handlers as child processes.
type ExecLauncher struct {
	logger *slog.Logger

	// chown and getuid are replaceable in tests.
	chown  func(path string, uid, gid int) error
	getuid func() int

	mu      sync.Mutex
	running map[int]*exec.Cmd
	wg      sync.WaitGroup
}

// NewExecLauncher creates a launcher. A nil logger discards output.
func NewExecLauncher(logger *slog.Logger) *ExecLauncher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecLauncher{
		logger:  logger,
		chown:   os.Chown,
		getuid:  os.Getuid,
		running: make(map[int]*exec.Cmd),
	}
}

// GrantAccess changes the owner of the device node to uid. Devices without
// a node and activities without a UID need no grant.
func (l *ExecLauncher) GrantAccess(dev usbdev.Device, uid int) error {
	if uid == registry.NoUID || dev.Path == "" {
		return nil
	}
	if err := l.chown(dev.Path, uid, -1); err != nil {
		return fmt.Errorf("launch: grant %s to uid %d: %w", dev.Path, uid, err)
	}
	l.logger.Debug("device access granted", "path", dev.Path, "uid", uid)
	return nil
}

// Launch implements Launcher. The child outlives ctx; its output is copied
// to the logger.
func (l *ExecLauncher) Launch(ctx context.Context, req Request) error {
	if len(req.Exec) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCommand, req.Component)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	args := Expand(req.Exec, req.Device)
	//nolint:gosec // running the handler's declared command is the point.
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Env = append(os.Environ(), Env(req)...)
	setCredential(cmd, req.UID, l.getuid())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch: start %s: %w", req.Component, err)
	}

	pid := cmd.Process.Pid
	logger := l.logger.With("component", req.Component.Flatten(), "pid", pid)
	logger.Info("handler started", "device", req.Device.Name)

	l.mu.Lock()
	l.running[pid] = cmd
	l.mu.Unlock()

	var pipes sync.WaitGroup
	pipes.Add(2)
	go l.copyOutput(&pipes, stdout, logger, slog.LevelInfo)
	go l.copyOutput(&pipes, stderr, logger, slog.LevelWarn)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		pipes.Wait()
		err := cmd.Wait()

		l.mu.Lock()
		delete(l.running, pid)
		l.mu.Unlock()

		if err != nil {
			logger.Warn("handler exited", "error", err)
			return
		}
		logger.Info("handler exited")
	}()
	return nil
}

func (l *ExecLauncher) copyOutput(wg *sync.WaitGroup, r io.Reader, logger *slog.Logger, level slog.Level) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Log(context.Background(), level, "handler output", "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debug("reading handler output", "error", err)
	}
}

// Running returns the number of handlers that have not exited.
func (l *ExecLauncher) Running() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.running)
}

// Wait blocks until every launched handler has exited.
func (l *ExecLauncher) Wait() {
	l.wg.Wait()
}

// Expand substitutes device placeholders in a command line.
func Expand(args []string, dev usbdev.Device) []string {
	r := strings.NewReplacer(
		"{device}", dev.Name,
		"{devpath}", dev.Path,
		"{serial}", dev.SerialNumber,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// Env returns the environment describing req to the handler.
func Env(req Request) []string {
	return []string{
		EnvAction + "=" + req.Action,
		EnvComponent + "=" + req.Component.Flatten(),
		EnvDevice + "=" + req.Device.Name,
		EnvDevPath + "=" + req.Device.Path,
		EnvVendorID + "=" + strconv.FormatUint(uint64(req.Device.VendorID), 16),
		EnvProductID + "=" + strconv.FormatUint(uint64(req.Device.ProductID), 16),
		EnvSerial + "=" + req.Device.SerialNumber,
	}
}

// Compile-time interface satisfaction check.
var _ Launcher = (*ExecLauncher)(nil)
