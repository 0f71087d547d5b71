package filter

import "strconv"

// Field is a numeric filter criterion that is either a wildcard or an
// exact value. The zero value is the wildcard.
type Field struct {
	value int
	set   bool
}

// Any is the wildcard field; it matches every value.
var Any = Field{}

// Exactly returns a field that matches only v.
func Exactly(v int) Field {
	return Field{value: v, set: true}
}

// IsAny reports whether the field is a wildcard.
func (f Field) IsAny() bool {
	return !f.set
}

// Value returns the exact value and true, or 0 and false for a wildcard.
func (f Field) Value() (int, bool) {
	return f.value, f.set
}

// Matches reports whether v satisfies the field.
func (f Field) Matches(v int) bool {
	return !f.set || f.value == v
}

// String returns "*" for a wildcard, otherwise the decimal value.
func (f Field) String() string {
	if !f.set {
		return "*"
	}
	return strconv.Itoa(f.value)
}
