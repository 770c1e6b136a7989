package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Long represents a FHIRPath 64-bit Long value, distinct from Integer.
// FHIRPath treats Integer and Long as separate System types even though
// both are backed by int64 in Go: implicit conversion only ever widens
// Integer to Long, never the reverse.
type Long struct {
	value int64
}

// NewLong creates a new Long value.
func NewLong(v int64) Long {
	return Long{value: v}
}

// Value returns the underlying int64 value.
func (l Long) Value() int64 {
	return l.value
}

// Type returns "Long".
func (l Long) Type() string {
	return "Long"
}

// Equal returns true if other is a Long, Integer or Decimal with an
// equivalent numeric value.
func (l Long) Equal(other Value) bool {
	switch o := other.(type) {
	case Long:
		return l.value == o.value
	case Integer:
		return l.value == o.Value()
	case Decimal:
		return l.ToDecimal().Equal(o)
	}
	return false
}

// Equivalent is the same as Equal for Long.
func (l Long) Equivalent(other Value) bool {
	return l.Equal(other)
}

// String returns the decimal string representation.
func (l Long) String() string {
	return fmt.Sprintf("%d", l.value)
}

// IsEmpty returns false for Long values.
func (l Long) IsEmpty() bool {
	return false
}

// ToDecimal converts the Long to a Decimal.
func (l Long) ToDecimal() Decimal {
	return Decimal{value: decimal.NewFromInt(l.value)}
}

// ToInteger converts the Long to an Integer. Both hold an int64, so the
// value is copied unchanged and no range check is made.
func (l Long) ToInteger() Integer {
	return NewInteger(l.value)
}

// Compare compares two numeric values.
func (l Long) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Long:
		if l.value < o.value {
			return -1, nil
		}
		if l.value > o.value {
			return 1, nil
		}
		return 0, nil
	case Integer:
		return l.Compare(NewLong(o.Value()))
	case Decimal:
		return l.ToDecimal().Compare(o)
	}
	return 0, NewTypeError("Long", other.Type(), "comparison")
}

// Add returns the sum of two Long values.
func (l Long) Add(other Long) Long {
	return NewLong(l.value + other.value)
}

// Subtract returns the difference of two Long values.
func (l Long) Subtract(other Long) Long {
	return NewLong(l.value - other.value)
}

// Multiply returns the product of two Long values.
func (l Long) Multiply(other Long) Long {
	return NewLong(l.value * other.value)
}

// Div returns the integer division result.
func (l Long) Div(other Long) (Long, error) {
	if other.value == 0 {
		return Long{}, fmt.Errorf("division by zero")
	}
	return NewLong(l.value / other.value), nil
}

// Mod returns the modulo result.
func (l Long) Mod(other Long) (Long, error) {
	if other.value == 0 {
		return Long{}, fmt.Errorf("division by zero")
	}
	return NewLong(l.value % other.value), nil
}

// Negate returns the negation of the Long.
func (l Long) Negate() Long {
	return NewLong(-l.value)
}

// Abs returns the absolute value.
func (l Long) Abs() Long {
	if l.value < 0 {
		return NewLong(-l.value)
	}
	return l
}
