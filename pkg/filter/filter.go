package filter

import (
	"fmt"
	"strings"

	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// Kind distinguishes native device filters from accessory-mode filters.
type Kind uint8

const (
	// KindDevice matches the device as it enumerated natively.
	KindDevice Kind = 0
	// KindAccessory declares that the handler speaks the accessory protocol.
	KindAccessory Kind = 1
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "DEVICE"
	case KindAccessory:
		return "ACCESSORY"
	default:
		return "UNKNOWN"
	}
}

// Filter is a single declared criterion set. Exactly one of Device or
// Accessory is meaningful, selected by Kind.
type Filter struct {
	Kind      Kind
	Device    DeviceFilter
	Accessory AccessoryFilter
}

// DeviceFilter selects devices by descriptor fields.
type DeviceFilter struct {
	VendorID  Field
	ProductID Field
	Class     Field
	Subclass  Field
	Protocol  Field

	// Exact-match string criteria. Empty means unspecified. A usbdev.Device
	// cannot tell an unreported string from an empty one, so a declared
	// empty value (manufacturer-name="") is also unspecified rather than a
	// demand for an empty device string.
	ManufacturerName string
	ProductName      string
	SerialNumber     string
}

// AccessoryFilter carries the strings announced during the accessory
// handshake and the verification service that decides whether a concrete
// device is supported.
type AccessoryFilter struct {
	Manufacturer string
	Model        string
	Description  string
	Version      string
	URI          string
	Serial       string

	// Service is the flattened component name of the verification service.
	Service string
}

// NewDevice returns a native filter.
func NewDevice(d DeviceFilter) Filter {
	return Filter{Kind: KindDevice, Device: d}
}

// NewAccessory returns an accessory-mode filter.
func NewAccessory(a AccessoryFilter) Filter {
	return Filter{Kind: KindAccessory, Accessory: a}
}

// Matches reports whether f accepts dev. Accessory filters accept every
// device at this level; eligibility is decided by their verification service.
func (f Filter) Matches(dev usbdev.Device) bool {
	if f.Kind == KindAccessory {
		return true
	}
	return f.Device.Matches(dev)
}

// Matches reports whether dev satisfies every specified criterion. The
// class triple is tried against the device itself and then against each
// interface; one satisfying triple is enough.
func (f DeviceFilter) Matches(dev usbdev.Device) bool {
	if !f.VendorID.Matches(int(dev.VendorID)) || !f.ProductID.Matches(int(dev.ProductID)) {
		return false
	}
	if !matchString(f.ManufacturerName, dev.ManufacturerName) ||
		!matchString(f.ProductName, dev.ProductName) ||
		!matchString(f.SerialNumber, dev.SerialNumber) {
		return false
	}

	if f.matchesClass(dev.Class, dev.Subclass, dev.Protocol) {
		return true
	}
	for _, intf := range dev.Interfaces {
		if f.matchesClass(intf.Class, intf.Subclass, intf.Protocol) {
			return true
		}
	}
	return false
}

func (f DeviceFilter) matchesClass(class, subclass, protocol uint8) bool {
	return f.Class.Matches(int(class)) &&
		f.Subclass.Matches(int(subclass)) &&
		f.Protocol.Matches(int(protocol))
}

// matchString requires a reported, equal value whenever the filter names one.
func matchString(want, got string) bool {
	if want == "" {
		return true
	}
	return got != "" && got == want
}

// Strings returns the handshake strings of the accessory filter.
func (a AccessoryFilter) Strings() aoap.Strings {
	return aoap.Strings{
		Manufacturer: a.Manufacturer,
		Model:        a.Model,
		Description:  a.Description,
		Version:      a.Version,
		URI:          a.URI,
		Serial:       a.Serial,
	}
}

// FirstMatch returns the first filter of the given kind that accepts dev.
func FirstMatch(filters []Filter, kind Kind, dev usbdev.Device) (Filter, bool) {
	for _, f := range filters {
		if f.Kind == kind && f.Matches(dev) {
			return f, true
		}
	}
	return Filter{}, false
}

// FirstAccessory returns the first accessory filter in filters.
func FirstAccessory(filters []Filter) (AccessoryFilter, bool) {
	for _, f := range filters {
		if f.Kind == KindAccessory {
			return f.Accessory, true
		}
	}
	return AccessoryFilter{}, false
}

// String renders the filter as its declaration.
func (f Filter) String() string {
	var b strings.Builder
	switch f.Kind {
	case KindAccessory:
		a := f.Accessory
		fmt.Fprintf(&b, "%s{manufacturer=%q model=%q version=%q service=%q}", TagAccessory, a.Manufacturer, a.Model, a.Version, a.Service)
	default:
		d := f.Device
		fmt.Fprintf(&b, "%s{vendor-id=%s product-id=%s class=%s subclass=%s protocol=%s",
			TagDevice, d.VendorID, d.ProductID, d.Class, d.Subclass, d.Protocol)
		if d.ManufacturerName != "" {
			fmt.Fprintf(&b, " manufacturer-name=%q", d.ManufacturerName)
		}
		if d.ProductName != "" {
			fmt.Fprintf(&b, " product-name=%q", d.ProductName)
		}
		if d.SerialNumber != "" {
			fmt.Fprintf(&b, " serial-number=%q", d.SerialNumber)
		}
		b.WriteString("}")
	}
	return b.String()
}
