package usbhost_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/filter"
	"github.com/usbhost/usbhost-go/pkg/host"
	"github.com/usbhost/usbhost-go/pkg/launch"
	launchmocks "github.com/usbhost/usbhost-go/pkg/launch/mocks"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/resolver"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	usbiomocks "github.com/usbhost/usbhost-go/pkg/usbio/mocks"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

const waitFor = 3 * time.Second

var (
	phone = usbdev.Device{
		Name: "001/004", Path: "/dev/bus/usb/001/004",
		VendorID: 0x18d1, ProductID: 0x4ee1,
		ManufacturerName: "Acme", ProductName: "Phone", SerialNumber: "X",
	}
	phoneInAccessoryMode = usbdev.Device{
		Name: "001/005", Path: "/dev/bus/usb/001/005",
		VendorID: 0x18d1, ProductID: 0x2d01, SerialNumber: "X",
	}

	files = registry.Activity{
		Component: registry.Component{Package: "com.acme.files", Class: "com.acme.files.Browse"},
		UID:       1001,
		Actions:   []string{registry.ActionDeviceAttached},
		Exec:      []string{"files", "{device}"},
		Filters:   []filter.Filter{filter.NewDevice(filter.DeviceFilter{VendorID: filter.Exactly(0x18d1)})},
	}
	carlink = registry.Activity{
		Component: registry.Component{Package: "com.acme.carlink", Class: "com.acme.carlink.Projection"},
		UID:       1002,
		Actions:   []string{registry.ActionDeviceAttached},
		Exec:      []string{"carlink"},
		Filters: []filter.Filter{filter.NewAccessory(filter.AccessoryFilter{
			Manufacturer: "Acme", Model: "Head Unit", Description: "Projection",
			Version: "1.0", URI: "https://acme.example", Serial: "HU-1",
			Service: "com.acme.carlink/.Verify",
		})},
	}
	carlinkVerify = registry.Component{Package: "com.acme.carlink", Class: "com.acme.carlink.Verify"}
)

// chanPicker forwards handler offers to the test.
type chanPicker chan []settings.DeviceSettings

func (p chanPicker) ShowHandlers(_ usbdev.Device, options []settings.DeviceSettings) {
	p <- options
}

// eventRecorder collects host event log entries.
type eventRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *eventRecorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) probes() []log.ProbeOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.ProbeOutcome
	for _, e := range r.events {
		if e.Probe != nil {
			out = append(out, e.Probe.Outcome)
		}
	}
	return out
}

type stack struct {
	looper   *looper.Looper
	store    *settings.FileStore
	conn     *usbiomocks.MockConn
	launcher *launchmocks.MockLauncher
	picker   chanPicker
	ctrl     *host.Controller
	events   chan host.Event
	log      *eventRecorder
}

// newStack wires the controller and resolver the way usbhostd does, with a
// real verification server reached over TCP. Only USB and process launch
// are mocked.
func newStack(t *testing.T) *stack {
	t.Helper()

	server := verify.NewServer(verify.ServerConfig{Address: "127.0.0.1:0", CheckTimeout: time.Second})
	server.Register(carlinkVerify, verify.CheckerFunc(func(_ context.Context, dev usbdev.Device) (bool, error) {
		return dev.VendorID == 0x18d1, nil
	}))
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Close() })

	binder := verify.NewRemoteBinder(verify.RemoteConfig{
		Endpoints: map[string]string{carlinkVerify.Flatten(): server.Addr().String()},
	})

	s := &stack{
		looper:   looper.New(nil, nil),
		store:    settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json")),
		conn:     usbiomocks.NewMockConn(t),
		launcher: launchmocks.NewMockLauncher(t),
		picker:   make(chanPicker, 1),
		events:   make(chan host.Event, 16),
		log:      &eventRecorder{},
	}
	service := usbiomocks.NewMockService(t)
	service.EXPECT().Open(mock.Anything, mock.Anything).Return(s.conn, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	go s.looper.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.looper.Done()
	})

	cfg := host.DefaultConfig()
	cfg.DebounceDelay = 50 * time.Millisecond
	cfg.EventLogger = s.log

	ctrl, err := host.New(cfg, host.Deps{
		Looper: s.looper,
		Store:  s.store,
		Picker: s.picker,
		NewResolver: func(cb resolver.Callback) (host.Resolver, error) {
			rc := resolver.DefaultConfig()
			rc.EventLogger = s.log
			return resolver.New(rc, resolver.Deps{
				Looper:   s.looper,
				Service:  service,
				Registry: registry.NewCatalog(files, carlink),
				Binder:   binder,
				Launcher: s.launcher,
				Callback: cb,
			})
		},
	})
	require.NoError(t, err)
	ctrl.OnEvent(func(e host.Event) { s.events <- e })
	s.ctrl = ctrl
	return s
}

func (s *stack) waitEvent(t *testing.T, typ host.EventType) host.Event {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case e := <-s.events:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event", typ)
		}
	}
}

func (s *stack) waitState(t *testing.T, want host.State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.ctrl.State() == want }, waitFor, 5*time.Millisecond,
		"state never became %s", want)
}

// TestAccessoryProjectionFlow follows a phone from first attach, through
// the picker and the accessory switch, to the launch of the projection
// handler after re-enumeration. A second attach is then dispatched from the
// remembered settings without asking again.
func TestAccessoryProjectionFlow(t *testing.T) {
	s := newStack(t)

	s.conn.EXPECT().SupportsAccessoryMode().Return(true)
	s.conn.EXPECT().Close().Return(nil)
	s.conn.EXPECT().SendAccessoryString(mock.Anything, mock.Anything).Return(nil)
	s.conn.EXPECT().SwitchToAccessoryMode().Return(nil)

	s.ctrl.DeviceAttached(phone)

	var options []settings.DeviceSettings
	select {
	case options = <-s.picker:
	case <-time.After(waitFor):
		t.Fatal("picker was never shown")
	}
	require.Len(t, options, 2)
	assert.Equal(t, files.Component, options[0].Handler)
	assert.False(t, options[0].Accessory)
	assert.Equal(t, carlink.Component, options[1].Handler)
	assert.True(t, options[1].Accessory)
	assert.Equal(t, []log.ProbeOutcome{log.ProbeAccepted}, s.log.probes())
	assert.Equal(t, host.StateActive, s.ctrl.State())

	// Choosing the projection switches the phone into accessory mode.
	require.NoError(t, s.ctrl.ApplySettings(context.Background(), options[1]))
	assert.Equal(t, host.StateDispatched, s.ctrl.State())
	s.conn.AssertCalled(t, "SwitchToAccessoryMode")

	// The phone re-enumerates in accessory mode and the handler starts.
	launched := make(chan launch.Request, 1)
	s.launcher.EXPECT().GrantAccess(phoneInAccessoryMode, 1002).Return(nil)
	s.launcher.EXPECT().Launch(mock.Anything, mock.Anything).
		Run(func(_ context.Context, req launch.Request) { launched <- req }).
		Return(nil)

	s.ctrl.DeviceDetached(phone)
	s.ctrl.DeviceAttached(phoneInAccessoryMode)

	select {
	case req := <-launched:
		assert.Equal(t, carlink.Component, req.Component)
		assert.Equal(t, phoneInAccessoryMode, req.Device)
	case <-time.After(waitFor):
		t.Fatal("handler was never launched")
	}
	e := s.waitEvent(t, host.EventDeviceDispatched)
	assert.Equal(t, carlink.Component, e.Handler)

	saved, err := s.store.Get(settings.IdentityOf(phoneInAccessoryMode))
	require.NoError(t, err)
	assert.Equal(t, carlink.Component, saved.Handler)

	// Unplugging releases the device after the debounce.
	s.ctrl.DeviceDetached(phoneInAccessoryMode)
	s.waitEvent(t, host.EventDeviceRemoved)
	s.waitState(t, host.StateIdle)

	// Plugging the phone back in goes straight to the remembered handler.
	s.ctrl.DeviceAttached(phone)
	s.waitState(t, host.StateDispatched)
	assert.Equal(t, []log.ProbeOutcome{log.ProbeAccepted}, s.log.probes(), "no new probes for a remembered device")
}

// TestSingleNativeHandlerAutoDispatch checks that a device only one handler
// can serve is dispatched without the picker, and that an unreachable
// verification service does not hold resolution up.
func TestSingleNativeHandlerAutoDispatch(t *testing.T) {
	s := newStack(t)

	s.conn.EXPECT().SupportsAccessoryMode().Return(false)
	s.conn.EXPECT().Close().Return(nil)
	s.launcher.EXPECT().GrantAccess(phone, 1001).Return(nil)
	s.launcher.EXPECT().Launch(mock.Anything, mock.MatchedBy(func(req launch.Request) bool {
		return req.Component == files.Component
	})).Return(nil)

	s.ctrl.DeviceAttached(phone)

	e := s.waitEvent(t, host.EventDeviceDispatched)
	assert.Equal(t, files.Component, e.Handler)
	s.waitState(t, host.StateDispatched)
	assert.Empty(t, s.log.probes())

	select {
	case <-s.picker:
		t.Fatal("picker shown for a single handler")
	default:
	}
}
