package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// ErrNotFound is returned when no settings exist for an identity.
var ErrNotFound = errors.New("settings: not found")

// DeviceSettings records which handler a device should be dispatched to.
type DeviceSettings struct {
	SerialNumber string `json:"serial_number"`
	VendorID     uint16 `json:"vendor_id"`
	ProductID    uint16 `json:"product_id"`

	// Name is a human readable device name.
	Name string `json:"name,omitempty"`

	Handler registry.Component `json:"handler"`

	// Accessory selects dispatch through accessory mode.
	Accessory bool `json:"aoap"`

	// Default marks a choice the user asked to remember.
	Default bool `json:"default"`
}

// FromDevice returns settings for dev with no handler chosen yet.
func FromDevice(dev usbdev.Device) DeviceSettings {
	return DeviceSettings{
		SerialNumber: dev.SerialNumber,
		VendorID:     dev.VendorID,
		ProductID:    dev.ProductID,
		Name:         dev.DisplayName(),
	}
}

// Identity returns the key the settings are stored under.
func (s DeviceSettings) Identity() Identity {
	return Identity{SerialNumber: s.SerialNumber, VendorID: s.VendorID, ProductID: s.ProductID}
}

// String returns a short summary for logs and pickers.
func (s DeviceSettings) String() string {
	mode := "native"
	if s.Accessory {
		mode = "accessory"
	}
	return fmt.Sprintf("%s -> %s (%s)", s.Name, s.Handler.Flatten(), mode)
}

// Identity is the persistent key of a device. A device already running in
// accessory mode is identified by its serial number alone, since its vendor
// and product IDs are those of the accessory protocol.
type Identity struct {
	SerialNumber string
	VendorID     uint16
	ProductID    uint16
	Accessory    bool
}

// IdentityOf returns the identity under which dev's settings are looked up.
func IdentityOf(dev usbdev.Device) Identity {
	if aoap.IsAccessoryMode(dev) {
		return Identity{SerialNumber: dev.SerialNumber, Accessory: true}
	}
	return Identity{SerialNumber: dev.SerialNumber, VendorID: dev.VendorID, ProductID: dev.ProductID}
}

// Matches reports whether s is stored under id.
func (id Identity) Matches(s DeviceSettings) bool {
	if id.Accessory {
		return s.Accessory && s.SerialNumber == id.SerialNumber
	}
	return s.SerialNumber == id.SerialNumber &&
		s.VendorID == id.VendorID &&
		s.ProductID == id.ProductID
}

// ParseIdentity builds an identity from a serial number and a
// "vendor:product" pair in hex. An empty usbID selects the accessory-mode
// identity for serial.
func ParseIdentity(serial, usbID string) (Identity, error) {
	if usbID == "" {
		return Identity{SerialNumber: serial, Accessory: true}, nil
	}
	vid, pid, ok := strings.Cut(usbID, ":")
	if !ok {
		return Identity{}, fmt.Errorf("settings: usb id %q: want vendor:product", usbID)
	}
	v, err := strconv.ParseUint(vid, 16, 16)
	if err != nil {
		return Identity{}, fmt.Errorf("settings: vendor id %q: %w", vid, err)
	}
	p, err := strconv.ParseUint(pid, 16, 16)
	if err != nil {
		return Identity{}, fmt.Errorf("settings: product id %q: %w", pid, err)
	}
	return Identity{SerialNumber: serial, VendorID: uint16(v), ProductID: uint16(p)}, nil
}

// String returns the identity in log form.
func (id Identity) String() string {
	if id.Accessory {
		return fmt.Sprintf("serial=%s aoap", id.SerialNumber)
	}
	return fmt.Sprintf("serial=%s %04x:%04x", id.SerialNumber, id.VendorID, id.ProductID)
}

// Store persists DeviceSettings keyed by Identity.
type Store interface {
	// Get returns the settings for id, or ErrNotFound.
	Get(id Identity) (DeviceSettings, error)

	// Save stores s, replacing any settings under the same
	// (serial, vendor, product) key.
	Save(s DeviceSettings) error

	// Delete removes every record id matches. Deleting nothing is not an error.
	Delete(id Identity) error

	// List returns every stored record.
	List() ([]DeviceSettings, error)
}
