package interactive

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usbhost/usbhost-go/pkg/host"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

var (
	phone   = usbdev.Device{Name: "001/004", VendorID: 0x18d1, ProductID: 0x4ee1, ManufacturerName: "Acme", ProductName: "Phone", SerialNumber: "X"}
	files   = registry.Component{Package: "com.acme.files", Class: "com.acme.files.Browse"}
	carlink = registry.Component{Package: "com.acme.carlink", Class: "com.acme.carlink.Projection"}
)

type fakeHost struct {
	state    host.State
	active   *usbdev.Device
	applied  []settings.DeviceSettings
	applyErr error
	forgot   []settings.Identity
	handler  host.EventHandler
}

func (h *fakeHost) OnEvent(handler host.EventHandler) { h.handler = handler }
func (h *fakeHost) State() host.State                 { return h.state }

func (h *fakeHost) ActiveDevice() (usbdev.Device, bool) {
	if h.active == nil {
		return usbdev.Device{}, false
	}
	return *h.active, true
}

func (h *fakeHost) ApplySettings(_ context.Context, ds settings.DeviceSettings) error {
	if h.applyErr != nil {
		return h.applyErr
	}
	h.applied = append(h.applied, ds)
	return nil
}

func (h *fakeHost) ForgetDevice(_ context.Context, id settings.Identity) error {
	h.forgot = append(h.forgot, id)
	return nil
}

func newTestConsole(t *testing.T) (*Console, *fakeHost, *bytes.Buffer, settings.Store) {
	t.Helper()
	var out bytes.Buffer
	store := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	c := &Console{
		config: Config{
			Store:   store,
			Devices: func() []usbdev.Device { return []usbdev.Device{phone} },
		},
		out: &out,
	}
	h := &fakeHost{state: host.StateIdle}
	c.Bind(h)
	return c, h, &out, store
}

func offers() []settings.DeviceSettings {
	base := settings.FromDevice(phone)
	native, acc := base, base
	native.Handler = files
	acc.Handler = carlink
	acc.Accessory = true
	return []settings.DeviceSettings{native, acc}
}

func TestShowHandlersAndChoose(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	h.state = host.StateActive
	h.active = &phone

	c.ShowHandlers(phone, offers())
	assert.Contains(t, out.String(), "Acme Phone can be handled by:")
	assert.Contains(t, out.String(), "[1] com.acme.files/.Browse")
	assert.Contains(t, out.String(), "[2] com.acme.carlink/.Projection (accessory mode)")

	out.Reset()
	require.True(t, c.exec(context.Background(), "always 2"))
	require.Len(t, h.applied, 1)
	assert.Equal(t, carlink, h.applied[0].Handler)
	assert.True(t, h.applied[0].Default)
	assert.True(t, h.applied[0].Accessory)
	assert.Contains(t, out.String(), "Dispatched to com.acme.carlink/.Projection")

	// The offer is consumed.
	out.Reset()
	c.exec(context.Background(), "choose 1")
	assert.Contains(t, out.String(), "No handler choice pending.")
	assert.Len(t, h.applied, 1)
}

func TestChooseInvalidIndex(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	c.ShowHandlers(phone, offers())

	for _, line := range []string{"choose", "choose 0", "choose 3", "choose x", "choose 1 2"} {
		out.Reset()
		c.exec(context.Background(), line)
		assert.NotContains(t, out.String(), "Dispatched", line)
	}
	assert.Empty(t, h.applied)
}

func TestChooseForDepartedDevice(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	c.ShowHandlers(phone, offers())
	h.applyErr = fmt.Errorf("apply: %w", host.ErrNoActiveDevice)

	c.exec(context.Background(), "choose 1")
	assert.Contains(t, out.String(), "Error:")

	out.Reset()
	c.exec(context.Background(), "choose 1")
	assert.Contains(t, out.String(), "No handler choice pending.")
}

func TestChooseDispatchFailureKeepsOffer(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	c.ShowHandlers(phone, offers())
	h.applyErr = host.ErrDispatchFailed

	c.exec(context.Background(), "choose 1")
	assert.Contains(t, out.String(), "Error:")

	h.applyErr = nil
	c.exec(context.Background(), "choose 2")
	require.Len(t, h.applied, 1)
	assert.Equal(t, carlink, h.applied[0].Handler)
}

func TestRemovedDeviceDropsOffer(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	c.ShowHandlers(phone, offers())

	h.handler(host.Event{Type: host.EventDeviceRemoved, Device: phone})
	assert.Contains(t, out.String(), "Acme Phone removed")

	out.Reset()
	c.exec(context.Background(), "choose 1")
	assert.Contains(t, out.String(), "No handler choice pending.")
}

func TestEventMessages(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	_ = c

	h.handler(host.Event{Type: host.EventUnsupportedDevice, Device: phone})
	h.handler(host.Event{Type: host.EventHandlerUnavailable, Device: phone})
	h.handler(host.Event{Type: host.EventDeviceDispatched, Device: phone, Handler: files})

	assert.Contains(t, out.String(), "No application can handle Acme Phone")
	assert.Contains(t, out.String(), "no longer available")
	assert.Contains(t, out.String(), "com.acme.files/.Browse started for Acme Phone")
}

func TestStateAndDevices(t *testing.T) {
	c, h, out, _ := newTestConsole(t)
	h.state = host.StateDispatched
	h.active = &phone

	c.exec(context.Background(), "state")
	assert.Contains(t, out.String(), "State: DISPATCHED")
	assert.Contains(t, out.String(), "Active: Acme Phone")

	out.Reset()
	c.exec(context.Background(), "devices")
	assert.Contains(t, out.String(), "18d1:4ee1")
}

func TestSettingsAndForget(t *testing.T) {
	c, h, out, store := newTestConsole(t)

	c.exec(context.Background(), "settings")
	assert.Contains(t, out.String(), "No remembered handlers.")

	saved := offers()[1]
	require.NoError(t, store.Save(saved))

	out.Reset()
	c.exec(context.Background(), "settings")
	assert.Contains(t, out.String(), "[1] serial=X 18d1:4ee1")

	c.exec(context.Background(), "forget 1")
	require.Len(t, h.forgot, 1)
	assert.Equal(t, saved.Identity(), h.forgot[0])

	// Without an index the active device is forgotten.
	out.Reset()
	c.exec(context.Background(), "forget")
	assert.Contains(t, out.String(), "No active device")

	h.active = &phone
	c.exec(context.Background(), "forget")
	require.Len(t, h.forgot, 2)
	assert.Equal(t, settings.IdentityOf(phone), h.forgot[1])
}

func TestQuitAndUnknown(t *testing.T) {
	c, _, out, _ := newTestConsole(t)

	assert.True(t, c.exec(context.Background(), "   "))
	assert.True(t, c.exec(context.Background(), "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.False(t, c.exec(context.Background(), "quit"))
}
