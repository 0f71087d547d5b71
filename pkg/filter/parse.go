package filter

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Declaration tags.
const (
	TagDevice    = "usb-device"
	TagAccessory = "usb-aoap-accessory"
)

var (
	// ErrUnknownTag is returned for a declaration whose tag is neither
	// TagDevice nor TagAccessory.
	ErrUnknownTag = errors.New("filter: unknown declaration tag")

	// ErrMalformedDeclaration is returned when a YAML declaration is not a
	// single-key mapping of attributes.
	ErrMalformedDeclaration = errors.New("filter: malformed declaration")
)

// Attr is one name/value pair of a declaration.
type Attr struct {
	Name  string
	Value string
}

// Declaration is a filter as written in a manifest: a tag and its
// attributes, in source order.
type Declaration struct {
	Tag   string
	Attrs []Attr
}

// Parse converts the declaration into a Filter. Numeric attributes accept
// decimal or 0x-prefixed hex; a value that does not parse or is out of range
// is logged and skipped, leaving that field a wildcard. Unknown attributes
// are ignored.
func (d Declaration) Parse(logger *slog.Logger) (Filter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch d.Tag {
	case TagDevice:
		return NewDevice(parseDeviceAttrs(d.Attrs, logger)), nil
	case TagAccessory:
		return NewAccessory(parseAccessoryAttrs(d.Attrs)), nil
	default:
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownTag, d.Tag)
	}
}

// ParseAll converts every declaration with a known tag. Declarations with an
// unknown tag are logged and dropped.
func ParseAll(decls []Declaration, logger *slog.Logger) []Filter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	filters := make([]Filter, 0, len(decls))
	for _, d := range decls {
		f, err := d.Parse(logger)
		if err != nil {
			logger.Warn("skipping filter declaration", "tag", d.Tag, "error", err)
			continue
		}
		filters = append(filters, f)
	}
	return filters
}

// ParseXML reads filter elements from an XML resource document. Elements
// other than the two filter tags are ignored wherever they appear.
func ParseXML(r io.Reader, logger *slog.Logger) ([]Filter, error) {
	dec := xml.NewDecoder(r)
	var decls []Declaration
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse filter xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != TagDevice && start.Name.Local != TagAccessory {
			continue
		}
		d := Declaration{Tag: start.Name.Local}
		for _, a := range start.Attr {
			d.Attrs = append(d.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
		}
		decls = append(decls, d)
	}
	return ParseAll(decls, logger), nil
}

// UnmarshalYAML decodes a declaration written as a single-key mapping, one
// per list entry:
//
//	filters:
//	  - usb-device:
//	      vendor-id: 0x18d1
//	      class: 255
//
// Scalar values are kept as written so hex literals survive.
func (d *Declaration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("%w at line %d", ErrMalformedDeclaration, node.Line)
	}
	tag, body := node.Content[0], node.Content[1]

	d.Tag = tag.Value
	d.Attrs = nil

	switch body.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(body.Content); i += 2 {
			k, v := body.Content[i], body.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: attribute %q at line %d is not a scalar", ErrMalformedDeclaration, k.Value, v.Line)
			}
			d.Attrs = append(d.Attrs, Attr{Name: k.Value, Value: v.Value})
		}
	case yaml.ScalarNode:
		// "- usb-device:" with no attributes
		if body.Tag != "!!null" && body.Value != "" {
			return fmt.Errorf("%w at line %d", ErrMalformedDeclaration, body.Line)
		}
	default:
		return fmt.Errorf("%w at line %d", ErrMalformedDeclaration, body.Line)
	}
	return nil
}

func parseDeviceAttrs(attrs []Attr, logger *slog.Logger) DeviceFilter {
	var f DeviceFilter
	for _, a := range attrs {
		var (
			field *Field
			limit int
		)
		switch a.Name {
		case "vendor-id":
			field, limit = &f.VendorID, 0xFFFF
		case "product-id":
			field, limit = &f.ProductID, 0xFFFF
		case "class":
			field, limit = &f.Class, 0xFF
		case "subclass":
			field, limit = &f.Subclass, 0xFF
		case "protocol":
			field, limit = &f.Protocol, 0xFF
		case "manufacturer-name":
			f.ManufacturerName = a.Value
			continue
		case "product-name":
			f.ProductName = a.Value
			continue
		case "serial-number":
			f.SerialNumber = a.Value
			continue
		default:
			continue
		}

		v, err := parseNumber(a.Value, limit)
		if err != nil {
			logger.Warn("invalid numeric filter attribute", "attr", a.Name, "value", a.Value, "error", err)
			continue
		}
		*field = Exactly(v)
	}
	return f
}

func parseAccessoryAttrs(attrs []Attr) AccessoryFilter {
	var f AccessoryFilter
	for _, a := range attrs {
		switch a.Name {
		case "manufacturer":
			f.Manufacturer = a.Value
		case "model":
			f.Model = a.Value
		case "description":
			f.Description = a.Value
		case "version":
			f.Version = a.Value
		case "uri":
			f.URI = a.Value
		case "serial":
			f.Serial = a.Value
		case "service":
			f.Service = a.Value
		}
	}
	return f
}

// parseNumber accepts decimal or 0x/0X-prefixed hex in the range [0, limit].
func parseNumber(s string, limit int) (int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseInt(s, base, 32)
	if err != nil {
		return 0, err
	}
	if v < 0 || int(v) > limit {
		return 0, fmt.Errorf("value %d out of range [0, %d]", v, limit)
	}
	return int(v), nil
}
