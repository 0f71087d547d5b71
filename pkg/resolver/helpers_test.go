package resolver_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/filter"
	launchmocks "github.com/usbhost/usbhost-go/pkg/launch/mocks"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/resolver"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	usbiomocks "github.com/usbhost/usbhost-go/pkg/usbio/mocks"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

const waitFor = 2 * time.Second

var (
	phone = usbdev.Device{
		Name:             "001/004",
		Path:             "/dev/bus/usb/001/004",
		VendorID:         0x18d1,
		ProductID:        0x4ee1,
		ManufacturerName: "Acme",
		ProductName:      "Phone",
		SerialNumber:     "X",
	}
	phoneInAccessoryMode = usbdev.Device{
		Name:         "001/005",
		VendorID:     0x18d1,
		ProductID:    0x2d01,
		SerialNumber: "X",
	}

	fileManager = registry.Activity{
		Component: registry.Component{Package: "com.acme.files", Class: "com.acme.files.Browse"},
		UID:       1001,
		Actions:   []string{registry.ActionDeviceAttached},
		Exec:      []string{"files", "{device}"},
		Filters: []filter.Filter{
			filter.NewDevice(filter.DeviceFilter{VendorID: filter.Exactly(0x18d1)}),
		},
	}
	printerDriver = registry.Activity{
		Component: registry.Component{Package: "com.acme.print", Class: "com.acme.print.Spool"},
		UID:       registry.NoUID,
		Actions:   []string{registry.ActionDeviceAttached},
		Filters: []filter.Filter{
			filter.NewDevice(filter.DeviceFilter{Class: filter.Exactly(7)}),
		},
	}
)

// projection returns an activity that offers itself for accessory mode via
// the named verification service.
func projection(pkg string) registry.Activity {
	return registry.Activity{
		Component: registry.Component{Package: pkg, Class: pkg + ".Projection"},
		UID:       1002,
		Actions:   []string{registry.ActionDeviceAttached},
		Exec:      []string{pkg},
		Filters: []filter.Filter{
			filter.NewAccessory(filter.AccessoryFilter{
				Manufacturer: "Acme",
				Model:        "Head Unit",
				Description:  "Projection",
				Version:      "1.0",
				URI:          "https://acme.example",
				Serial:       "HU-1",
				Service:      pkg + "/.Verify",
			}),
		},
	}
}

func verifyService(pkg string) registry.Component {
	return registry.Component{Package: pkg, Class: pkg + ".Verify"}
}

// fakeBinder lets tests drive verification service callbacks by hand.
type fakeBinder struct {
	mu      sync.Mutex
	known   map[registry.Component]bool
	binds   []*fakeBinding
	live    int
	maxLive int
}

type fakeBinding struct {
	owner   *fakeBinder
	service registry.Component
	cb      verify.Callbacks
	unbound bool
}

func newFakeBinder(known ...registry.Component) *fakeBinder {
	b := &fakeBinder{known: make(map[registry.Component]bool)}
	for _, c := range known {
		b.known[c] = true
	}
	return b
}

func (b *fakeBinder) Bind(service registry.Component, cb verify.Callbacks) (verify.Binding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.known[service] {
		return nil, verify.ErrUnknownService
	}
	fb := &fakeBinding{owner: b, service: service, cb: cb}
	b.binds = append(b.binds, fb)
	b.live++
	b.maxLive = max(b.maxLive, b.live)
	return fb, nil
}

func (fb *fakeBinding) Unbind() {
	fb.owner.mu.Lock()
	defer fb.owner.mu.Unlock()
	if !fb.unbound {
		fb.unbound = true
		fb.owner.live--
	}
}

func (fb *fakeBinding) isUnbound() bool {
	fb.owner.mu.Lock()
	defer fb.owner.mu.Unlock()
	return fb.unbound
}

func (b *fakeBinder) register(services ...registry.Component) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range services {
		b.known[c] = true
	}
}

// waitBind waits for the n-th Bind (1-based) and returns it.
func (b *fakeBinder) waitBind(t *testing.T, n int) *fakeBinding {
	t.Helper()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.binds) >= n
	}, waitFor, time.Millisecond, "bind %d never happened", n)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binds[n-1]
}

func (b *fakeBinder) stats() (binds, live, maxLive int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.binds), b.live, b.maxLive
}

type resolved struct {
	session  uuid.UUID
	dev      usbdev.Device
	handlers []settings.DeviceSettings
}

type failed struct {
	session uuid.UUID
	err     error
}

type dispatched struct {
	dev     usbdev.Device
	handler registry.Component
}

// recorder implements resolver.Callback.
type recorder struct {
	resolved   chan resolved
	failed     chan failed
	dispatched chan dispatched
}

func newRecorder() *recorder {
	return &recorder{
		resolved:   make(chan resolved, 8),
		failed:     make(chan failed, 8),
		dispatched: make(chan dispatched, 8),
	}
}

func (r *recorder) OnHandlersResolved(session uuid.UUID, dev usbdev.Device, handlers []settings.DeviceSettings) {
	r.resolved <- resolved{session, dev, handlers}
}

func (r *recorder) OnResolveFailed(session uuid.UUID, dev usbdev.Device, err error) {
	r.failed <- failed{session, err}
}

func (r *recorder) OnDeviceDispatched(dev usbdev.Device, handler registry.Component) {
	r.dispatched <- dispatched{dev, handler}
}

func (r *recorder) waitResolved(t *testing.T) resolved {
	t.Helper()
	select {
	case res := <-r.resolved:
		return res
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for OnHandlersResolved")
		return resolved{}
	}
}

func (r *recorder) waitDispatched(t *testing.T) dispatched {
	t.Helper()
	select {
	case d := <-r.dispatched:
		return d
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for OnDeviceDispatched")
		return dispatched{}
	}
}

func (r *recorder) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case res := <-r.resolved:
		t.Fatalf("unexpected OnHandlersResolved: %+v", res)
	case f := <-r.failed:
		t.Fatalf("unexpected OnResolveFailed: %+v", f)
	case d := <-r.dispatched:
		t.Fatalf("unexpected OnDeviceDispatched: %+v", d)
	case <-time.After(30 * time.Millisecond):
	}
}

type fixture struct {
	clock    *clock.Mock
	looper   *looper.Looper
	service  *usbiomocks.MockService
	conn     *usbiomocks.MockConn
	binder   *fakeBinder
	launcher *launchmocks.MockLauncher
	catalog  *registry.Catalog
	calls    *recorder
	resolver *resolver.Resolver
}

func newFixture(t *testing.T, activities ...registry.Activity) *fixture {
	t.Helper()

	f := &fixture{
		clock:    clock.NewMock(),
		service:  usbiomocks.NewMockService(t),
		conn:     usbiomocks.NewMockConn(t),
		binder:   newFakeBinder(),
		launcher: launchmocks.NewMockLauncher(t),
		catalog:  registry.NewCatalog(activities...),
		calls:    newRecorder(),
	}
	f.looper = looper.New(f.clock, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go f.looper.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-f.looper.Done()
	})

	r, err := resolver.New(resolver.DefaultConfig(), resolver.Deps{
		Looper:   f.looper,
		Service:  f.service,
		Registry: f.catalog,
		Binder:   f.binder,
		Launcher: f.launcher,
		Callback: f.calls,
	})
	require.NoError(t, err)
	f.resolver = r
	return f
}

// sync waits for all work queued on the looper so far.
func (f *fixture) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, f.looper.Sync(context.Background(), func() {}))
}

// advance moves the mock clock and waits for the timer work to be queued
// and run.
func (f *fixture) advance(t *testing.T, d time.Duration) {
	t.Helper()
	f.clock.Add(d)
	time.Sleep(5 * time.Millisecond)
	f.sync(t)
}

func supports(ok bool, err error) verify.Checker {
	return verify.CheckerFunc(func(context.Context, usbdev.Device) (bool, error) {
		return ok, err
	})
}
