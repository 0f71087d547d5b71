package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidComponent is returned when a component name cannot be parsed.
var ErrInvalidComponent = errors.New("registry: invalid component name")

// Component names a launchable handler (or a verification service) inside
// an application package.
type Component struct {
	Package string
	Class   string
}

// ParseComponent parses "package/class". A class starting with "." is
// relative to the package.
func ParseComponent(s string) (Component, error) {
	pkg, cls, ok := strings.Cut(s, "/")
	if !ok || pkg == "" || cls == "" || cls == "." {
		return Component{}, fmt.Errorf("%w: %q", ErrInvalidComponent, s)
	}
	if strings.HasPrefix(cls, ".") {
		cls = pkg + cls
	}
	return Component{Package: pkg, Class: cls}, nil
}

// IsZero reports whether the component is unset.
func (c Component) IsZero() bool {
	return c.Package == "" && c.Class == ""
}

// Flatten returns the short "package/class" form, abbreviating a class
// inside the package to ".Name".
func (c Component) Flatten() string {
	cls := c.Class
	if strings.HasPrefix(cls, c.Package+".") {
		cls = cls[len(c.Package):]
	}
	return c.Package + "/" + cls
}

// String returns the flattened form.
func (c Component) String() string {
	return c.Flatten()
}

// MarshalText implements encoding.TextMarshaler.
func (c Component) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return []byte{}, nil
	}
	return []byte(c.Flatten()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Component) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = Component{}
		return nil
	}
	parsed, err := ParseComponent(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
