package usbio_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/usbio"
	"github.com/usbhost/usbhost-go/pkg/usbio/mocks"
)

type recorder struct {
	mu     sync.Mutex
	events []usbio.Event
}

func (r *recorder) handle(e usbio.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []usbio.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]usbio.Event(nil), r.events...)
}

var (
	phone     = usbdev.Device{Name: "001/004", VendorID: 0x18d1, ProductID: 0x4ee1, SerialNumber: "ABC"}
	accessory = usbdev.Device{Name: "001/005", VendorID: 0x18d1, ProductID: 0x2d01, SerialNumber: "ABC"}
	keyboard  = usbdev.Device{Name: "001/002", VendorID: 0x046d, ProductID: 0xc31c}
)

func TestMonitorPollEmitsDifferences(t *testing.T) {
	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{keyboard, phone}, nil).Once()
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{keyboard, accessory}, nil).Once()
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{keyboard, accessory}, nil).Once()

	m, err := usbio.NewMonitor(enum, usbio.DefaultMonitorConfig())
	require.NoError(t, err)

	rec := &recorder{}
	m.OnEvent(rec.handle)

	ctx := context.Background()
	require.NoError(t, m.Poll(ctx))
	require.NoError(t, m.Poll(ctx))
	require.NoError(t, m.Poll(ctx))

	events := rec.snapshot()
	require.Len(t, events, 4)

	assert.Equal(t, usbio.EventAttached, events[0].Type)
	assert.Equal(t, keyboard.Name, events[0].Device.Name)
	assert.Equal(t, usbio.EventAttached, events[1].Type)
	assert.Equal(t, phone.Name, events[1].Device.Name)

	// Re-enumeration: the detach of the old identity comes first.
	assert.Equal(t, usbio.EventDetached, events[2].Type)
	assert.Equal(t, phone.Name, events[2].Device.Name)
	assert.Equal(t, usbio.EventAttached, events[3].Type)
	assert.Equal(t, accessory.Name, events[3].Device.Name)

	assert.Equal(t, []usbdev.Device{keyboard, accessory}, m.Devices())
}

func TestMonitorSameAddressDifferentDevice(t *testing.T) {
	replaced := phone
	replaced.ProductID = 0x2d00

	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{phone}, nil).Once()
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{replaced}, nil).Once()

	m, err := usbio.NewMonitor(enum, usbio.DefaultMonitorConfig())
	require.NoError(t, err)
	rec := &recorder{}
	m.OnEvent(rec.handle)

	require.NoError(t, m.Poll(context.Background()))
	require.NoError(t, m.Poll(context.Background()))

	events := rec.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, usbio.EventDetached, events[1].Type)
	assert.Equal(t, usbio.EventAttached, events[2].Type)
	assert.Equal(t, uint16(0x2d00), events[2].Device.ProductID)
}

func TestMonitorPollError(t *testing.T) {
	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().Devices(mock.Anything).Return(nil, errors.New("libusb: busy")).Once()

	m, err := usbio.NewMonitor(enum, usbio.DefaultMonitorConfig())
	require.NoError(t, err)
	rec := &recorder{}
	m.OnEvent(rec.handle)

	assert.Error(t, m.Poll(context.Background()))
	assert.Empty(t, rec.snapshot())
}

func TestMonitorRunTicks(t *testing.T) {
	clk := clock.NewMock()

	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{}, nil).Once()
	enum.EXPECT().Devices(mock.Anything).Return([]usbdev.Device{phone}, nil).Maybe()

	cfg := usbio.DefaultMonitorConfig()
	cfg.Interval = 500 * time.Millisecond
	cfg.Clock = clk

	m, err := usbio.NewMonitor(enum, cfg)
	require.NoError(t, err)
	rec := &recorder{}
	m.OnEvent(rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Wait for the initial scan to register the ticker.
	require.Eventually(t, func() bool {
		clk.Add(500 * time.Millisecond)
		return len(rec.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}

	events := rec.snapshot()
	assert.Equal(t, usbio.EventAttached, events[0].Type)
	assert.Equal(t, phone.Name, events[0].Device.Name)
}

func TestMonitorConfigValidate(t *testing.T) {
	cfg := usbio.DefaultMonitorConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Interval = 0
	_, err := usbio.NewMonitor(mocks.NewMockEnumerator(t), cfg)
	assert.Error(t, err)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "ATTACHED", usbio.EventAttached.String())
	assert.Equal(t, "DETACHED", usbio.EventDetached.String())
}
