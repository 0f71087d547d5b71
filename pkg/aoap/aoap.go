package aoap

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Accessory-mode identifiers. A peripheral that switched into accessory mode
// re-enumerates with the Google vendor ID and one of these product IDs.
const (
	VendorGoogle uint16 = 0x18D1

	ProductAccessory         uint16 = 0x2D00
	ProductAccessoryADB      uint16 = 0x2D01
	ProductAudio             uint16 = 0x2D02
	ProductAudioADB          uint16 = 0x2D03
	ProductAccessoryAudio    uint16 = 0x2D04
	ProductAccessoryAudioADB uint16 = 0x2D05

	productAccessoryModeFirst = ProductAccessory
	productAccessoryModeLast  = ProductAccessoryAudioADB
)

// Vendor control requests.
const (
	RequestGetProtocol uint8 = 51
	RequestSendString  uint8 = 52
	RequestStart       uint8 = 53
)

// bmRequestType values: vendor request, device recipient.
const (
	requestTypeIn  uint8 = 0xC0
	requestTypeOut uint8 = 0x40
)

// Protocol versions. Later versions stay backwards compatible with the
// version 1 handshake.
const (
	ProtocolV1 = 1
	ProtocolV2 = 2
)

// ErrShortRead is returned when the protocol version reply is truncated.
var ErrShortRead = errors.New("aoap: short protocol version reply")

// Controller issues USB control transfers. *gousb.Device satisfies it.
type Controller interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

// StringKey is the index of an identifying string sent during the handshake.
type StringKey uint16

const (
	StringManufacturer StringKey = 0
	StringModel        StringKey = 1
	StringDescription  StringKey = 2
	StringVersion      StringKey = 3
	StringURI          StringKey = 4
	StringSerial       StringKey = 5
)

// String returns the key name.
func (k StringKey) String() string {
	switch k {
	case StringManufacturer:
		return "MANUFACTURER"
	case StringModel:
		return "MODEL"
	case StringDescription:
		return "DESCRIPTION"
	case StringVersion:
		return "VERSION"
	case StringURI:
		return "URI"
	case StringSerial:
		return "SERIAL"
	default:
		return "UNKNOWN"
	}
}

// Strings are the identifying strings an accessory announces to the device.
type Strings struct {
	Manufacturer string
	Model        string
	Description  string
	Version      string
	URI          string
	Serial       string
}

// Each calls fn for every key in protocol order and stops at the first error.
func (s Strings) Each(fn func(StringKey, string) error) error {
	for _, kv := range []struct {
		key StringKey
		val string
	}{
		{StringManufacturer, s.Manufacturer},
		{StringModel, s.Model},
		{StringDescription, s.Description},
		{StringVersion, s.Version},
		{StringURI, s.URI},
		{StringSerial, s.Serial},
	} {
		if err := fn(kv.key, kv.val); err != nil {
			return err
		}
	}
	return nil
}

// IsAccessoryMode reports whether dev is already running in accessory mode.
func IsAccessoryMode(dev usbdev.Device) bool {
	return dev.VendorID == VendorGoogle &&
		dev.ProductID >= productAccessoryModeFirst &&
		dev.ProductID <= productAccessoryModeLast
}

// ProtocolVersion asks the device which accessory protocol version it supports.
// Zero means none.
func ProtocolVersion(c Controller) (int, error) {
	buf := make([]byte, 2)
	n, err := c.Control(requestTypeIn, RequestGetProtocol, 0, 0, buf)
	if err != nil {
		return 0, fmt.Errorf("get protocol: %w", err)
	}
	if n < 2 {
		return 0, ErrShortRead
	}
	return int(binary.LittleEndian.Uint16(buf)), nil
}

// IsSupported reports whether the device answers the protocol query with
// version 1 or later.
func IsSupported(c Controller) bool {
	v, err := ProtocolVersion(c)
	if err != nil {
		return false
	}
	return v >= ProtocolV1
}

// SendString sends a single identifying string. The value is sent
// null-terminated.
func SendString(c Controller, key StringKey, value string) error {
	data := append([]byte(value), 0)
	if _, err := c.Control(requestTypeOut, RequestSendString, 0, uint16(key), data); err != nil {
		return fmt.Errorf("send %s: %w", key, err)
	}
	return nil
}

// Start asks the device to re-enumerate in accessory mode.
func Start(c Controller) error {
	if _, err := c.Control(requestTypeOut, RequestStart, 0, 0, nil); err != nil {
		return fmt.Errorf("start accessory mode: %w", err)
	}
	return nil
}

// Switcher drives the second half of the handshake on an open device.
type Switcher interface {
	SendAccessoryString(key StringKey, value string) error
	SwitchToAccessoryMode() error
}

// Switch sends every identifying string in protocol order and then requests
// the switch. Protocol support is not re-checked; callers query it while
// resolving handlers.
func Switch(sw Switcher, s Strings) error {
	if err := s.Each(sw.SendAccessoryString); err != nil {
		return err
	}
	return sw.SwitchToAccessoryMode()
}
