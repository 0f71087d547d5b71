package usbdev

import (
	"fmt"
	"strings"
)

// Device is an immutable snapshot of a USB peripheral's descriptor as seen
// by the host at attach time.
type Device struct {
	// Name is the bus/address key of the device (e.g. "001/004").
	Name string `json:"name" yaml:"name"`

	// Path is the device node the host uses to access the device.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	VendorID  uint16 `json:"vendor_id" yaml:"vendor-id"`
	ProductID uint16 `json:"product_id" yaml:"product-id"`

	Class    uint8 `json:"class" yaml:"class"`
	Subclass uint8 `json:"subclass" yaml:"subclass"`
	Protocol uint8 `json:"protocol" yaml:"protocol"`

	// String descriptors. Empty means the device did not report one.
	ManufacturerName string `json:"manufacturer_name,omitempty" yaml:"manufacturer-name,omitempty"`
	ProductName      string `json:"product_name,omitempty" yaml:"product-name,omitempty"`
	SerialNumber     string `json:"serial_number,omitempty" yaml:"serial-number,omitempty"`

	Interfaces []Interface `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// Interface is the class triple of a single interface on the device.
type Interface struct {
	Number   uint8 `json:"number" yaml:"number"`
	Class    uint8 `json:"class" yaml:"class"`
	Subclass uint8 `json:"subclass" yaml:"subclass"`
	Protocol uint8 `json:"protocol" yaml:"protocol"`
}

// Same reports whether d and other describe the same physical peripheral.
// Bus position is ignored so that a re-enumerated device still matches.
func (d Device) Same(other Device) bool {
	return d.VendorID == other.VendorID &&
		d.ProductID == other.ProductID &&
		d.SerialNumber == other.SerialNumber
}

// DisplayName returns a human readable name for the device.
func (d Device) DisplayName() string {
	parts := make([]string, 0, 2)
	if d.ManufacturerName != "" {
		parts = append(parts, d.ManufacturerName)
	}
	if d.ProductName != "" {
		parts = append(parts, d.ProductName)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
	}
	return strings.Join(parts, " ")
}

// String returns a short summary suitable for logs.
func (d Device) String() string {
	s := fmt.Sprintf("%s %04x:%04x class=%02x/%02x/%02x", d.Name, d.VendorID, d.ProductID, d.Class, d.Subclass, d.Protocol)
	if d.SerialNumber != "" {
		s += " serial=" + d.SerialNumber
	}
	return s
}
