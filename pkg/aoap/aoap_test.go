package aoap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

type transfer struct {
	rType   uint8
	request uint8
	idx     uint16
	data    []byte
}

type fakeController struct {
	version   uint16
	failOn    uint8
	transfers []transfer
}

func (f *fakeController) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if request == f.failOn {
		return 0, errors.New("pipe error")
	}
	f.transfers = append(f.transfers, transfer{rType: rType, request: request, idx: idx, data: append([]byte(nil), data...)})
	if request == RequestGetProtocol {
		data[0] = byte(f.version)
		data[1] = byte(f.version >> 8)
		return 2, nil
	}
	return len(data), nil
}

func TestIsAccessoryMode(t *testing.T) {
	tests := []struct {
		vid, pid uint16
		want     bool
	}{
		{VendorGoogle, ProductAccessory, true},
		{VendorGoogle, ProductAccessoryADB, true},
		{VendorGoogle, ProductAccessoryAudioADB, true},
		{VendorGoogle, 0x2D06, false},
		{VendorGoogle, 0x4EE1, false},
		{0x05AC, ProductAccessory, false},
	}
	for _, tt := range tests {
		got := IsAccessoryMode(usbdev.Device{VendorID: tt.vid, ProductID: tt.pid})
		assert.Equal(t, tt.want, got, "%04x:%04x", tt.vid, tt.pid)
	}
}

func TestIsSupported(t *testing.T) {
	t.Run("version 1", func(t *testing.T) {
		assert.True(t, IsSupported(&fakeController{version: 1}))
	})
	t.Run("version 2", func(t *testing.T) {
		assert.True(t, IsSupported(&fakeController{version: 2}))
	})
	t.Run("later versions", func(t *testing.T) {
		assert.True(t, IsSupported(&fakeController{version: 3}))
	})
	t.Run("version 0", func(t *testing.T) {
		assert.False(t, IsSupported(&fakeController{version: 0}))
	})
	t.Run("transfer error", func(t *testing.T) {
		assert.False(t, IsSupported(&fakeController{version: 2, failOn: RequestGetProtocol}))
	})
	t.Run("query", func(t *testing.T) {
		c := &fakeController{version: 2}
		IsSupported(c)
		require.Len(t, c.transfers, 1)
		assert.Equal(t, RequestGetProtocol, c.transfers[0].request)
		assert.Equal(t, requestTypeIn, c.transfers[0].rType)
	})
}

type recordingSwitcher struct {
	failOn  StringKey
	fail    bool
	sent    []string
	started bool
}

func (r *recordingSwitcher) SendAccessoryString(key StringKey, value string) error {
	if r.fail && key == r.failOn {
		return errors.New("pipe error")
	}
	r.sent = append(r.sent, key.String()+"="+value)
	return nil
}

func (r *recordingSwitcher) SwitchToAccessoryMode() error {
	r.started = true
	return nil
}

func TestSwitch(t *testing.T) {
	sw := &recordingSwitcher{}
	err := Switch(sw, Strings{
		Manufacturer: "Acme",
		Model:        "Head Unit",
		Description:  "Infotainment",
		Version:      "1.0",
		URI:          "https://example.com",
		Serial:       "0001",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"MANUFACTURER=Acme",
		"MODEL=Head Unit",
		"DESCRIPTION=Infotainment",
		"VERSION=1.0",
		"URI=https://example.com",
		"SERIAL=0001",
	}, sw.sent)
	assert.True(t, sw.started)
}

func TestSwitchStopsOnStringError(t *testing.T) {
	sw := &recordingSwitcher{fail: true, failOn: StringModel}
	err := Switch(sw, Strings{Manufacturer: "Acme", Model: "Head Unit"})
	require.Error(t, err)
	assert.Equal(t, []string{"MANUFACTURER=Acme"}, sw.sent)
	assert.False(t, sw.started)
}

func TestTransfers(t *testing.T) {
	c := &fakeController{}
	require.NoError(t, SendString(c, StringModel, "Head Unit"))
	require.NoError(t, Start(c))

	require.Len(t, c.transfers, 2)
	assert.Equal(t, RequestSendString, c.transfers[0].request)
	assert.Equal(t, requestTypeOut, c.transfers[0].rType)
	assert.Equal(t, uint16(StringModel), c.transfers[0].idx)
	assert.Equal(t, append([]byte("Head Unit"), 0), c.transfers[0].data)
	assert.Equal(t, RequestStart, c.transfers[1].request)

	err := SendString(&fakeController{failOn: RequestSendString}, StringManufacturer, "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send MANUFACTURER")
}
