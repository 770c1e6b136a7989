package types

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Integer is System.Integer: a signed 64-bit whole number. Arithmetic that
// mixes an Integer with a Decimal promotes the Integer via ToDecimal first.
type Integer struct {
	value int64
}

func NewInteger(v int64) Integer {
	return Integer{value: v}
}

func (i Integer) Value() int64 {
	return i.value
}

func (i Integer) Type() string {
	return "Integer"
}

// Equal accepts either another Integer at the same value, or a Decimal
// whose value coincides once the Integer is promoted.
func (i Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return i.value == o.value
	case Decimal:
		return i.ToDecimal().Equal(o)
	default:
		return false
	}
}

func (i Integer) Equivalent(other Value) bool {
	return i.Equal(other)
}

func (i Integer) String() string {
	return fmt.Sprintf("%d", i.value)
}

func (i Integer) IsEmpty() bool {
	return false
}

func (i Integer) ToDecimal() Decimal {
	return Decimal{value: decimal.NewFromInt(i.value)}
}

func (i Integer) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Integer:
		switch {
		case i.value < o.value:
			return -1, nil
		case i.value > o.value:
			return 1, nil
		default:
			return 0, nil
		}
	case Decimal:
		return i.ToDecimal().Compare(o)
	default:
		return 0, NewTypeError("Integer", other.Type(), "comparison")
	}
}

func (i Integer) Add(other Integer) Integer {
	return Integer{value: i.value + other.value}
}

func (i Integer) Subtract(other Integer) Integer {
	return Integer{value: i.value - other.value}
}

func (i Integer) Multiply(other Integer) Integer {
	return Integer{value: i.value * other.value}
}

// Divide is FHIRPath's `/` on two integers: the result is always a Decimal,
// never truncated, even when both operands are whole numbers.
func (i Integer) Divide(other Integer) (Decimal, error) {
	if other.value == 0 {
		return Decimal{}, fmt.Errorf("division by zero")
	}
	return i.ToDecimal().Divide(other.ToDecimal())
}

// Div is `div`: truncating integer division.
func (i Integer) Div(other Integer) (Integer, error) {
	if other.value == 0 {
		return Integer{}, fmt.Errorf("division by zero")
	}
	return Integer{value: i.value / other.value}, nil
}

// Mod is `mod`: the remainder left by Div.
func (i Integer) Mod(other Integer) (Integer, error) {
	if other.value == 0 {
		return Integer{}, fmt.Errorf("division by zero")
	}
	return Integer{value: i.value % other.value}, nil
}

func (i Integer) Negate() Integer {
	return Integer{value: -i.value}
}

func (i Integer) Abs() Integer {
	if i.value < 0 {
		return Integer{value: -i.value}
	}
	return i
}

// Power always promotes to Decimal since exponentiation of two integers can
// produce a non-integer result (negative exponents) or overflow int64.
func (i Integer) Power(exp Integer) Decimal {
	return i.ToDecimal().Power(exp.ToDecimal())
}

func (i Integer) Sqrt() (Decimal, error) {
	if i.value < 0 {
		return Decimal{}, fmt.Errorf("cannot take square root of negative number")
	}
	return NewDecimalFromFloat(math.Sqrt(float64(i.value))), nil
}
