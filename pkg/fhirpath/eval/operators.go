package eval

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// Arithmetic operators

// numTier is the numeric widening level Add/Subtract/Multiply promote
// a mixed Integer/Long/Decimal pair to before dispatching to the
// same-tier method; widest of the two operands wins.
type numTier int

const (
	tierNone numTier = iota
	tierInteger
	tierLong
	tierDecimal
)

func numTierOf(v types.Value) numTier {
	switch v.(type) {
	case types.Integer:
		return tierInteger
	case types.Long:
		return tierLong
	case types.Decimal:
		return tierDecimal
	default:
		return tierNone
	}
}

func arithTier(left, right types.Value) numTier {
	lt, rt := numTierOf(left), numTierOf(right)
	if lt == tierNone || rt == tierNone {
		return tierNone
	}
	if lt == tierDecimal || rt == tierDecimal {
		return tierDecimal
	}
	if lt == tierLong || rt == tierLong {
		return tierLong
	}
	return tierInteger
}

func toLong(v types.Value) types.Long {
	switch t := v.(type) {
	case types.Long:
		return t
	case types.Integer:
		return types.NewLong(t.Value())
	}
	return types.NewLong(0)
}

func toDecimal(v types.Value) types.Decimal {
	switch t := v.(type) {
	case types.Decimal:
		return t
	case types.Integer:
		return t.ToDecimal()
	case types.Long:
		return t.ToDecimal()
	}
	return types.NewDecimalFromFloat(0)
}

// Add performs addition on two values.
func Add(left, right types.Value) (types.Value, error) {
	switch arithTier(left, right) {
	case tierInteger:
		return left.(types.Integer).Add(right.(types.Integer)), nil
	case tierLong:
		return toLong(left).Add(toLong(right)), nil
	case tierDecimal:
		return toDecimal(left).Add(toDecimal(right)), nil
	}

	switch l := left.(type) {
	case types.String:
		if r, ok := right.(types.String); ok {
			return types.NewString(l.Value() + r.Value()), nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return l.AddDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return l.AddDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Add(r)
		}
	}
	return nil, InvalidOperationError("+", left.Type(), right.Type())
}

// Subtract performs subtraction on two values.
func Subtract(left, right types.Value) (types.Value, error) {
	switch arithTier(left, right) {
	case tierInteger:
		return left.(types.Integer).Subtract(right.(types.Integer)), nil
	case tierLong:
		return toLong(left).Subtract(toLong(right)), nil
	case tierDecimal:
		return toDecimal(left).Subtract(toDecimal(right)), nil
	}

	switch l := left.(type) {
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return l.SubtractDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return l.SubtractDuration(int(q.Value().IntPart()), q.Unit()), nil
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Subtract(r)
		}
	}
	return nil, InvalidOperationError("-", left.Type(), right.Type())
}

// Multiply performs multiplication on two values.
func Multiply(left, right types.Value) (types.Value, error) {
	switch arithTier(left, right) {
	case tierInteger:
		return left.(types.Integer).Multiply(right.(types.Integer)), nil
	case tierLong:
		return toLong(left).Multiply(toLong(right)), nil
	case tierDecimal:
		return toDecimal(left).Multiply(toDecimal(right)), nil
	}

	if l, ok := left.(types.Quantity); ok {
		if r, ok := right.(types.Quantity); ok {
			return l.MultiplyQ(r)
		}
	}
	return nil, InvalidOperationError("*", left.Type(), right.Type())
}

// Divide performs division on two values. Division by zero is reported as
// an error here; callers that must yield Empty per FHIRPath semantics
// (rather than an evaluation error) check the divisor first.
func Divide(left, right types.Value) (types.Value, error) {
	if q, ok := left.(types.Quantity); ok {
		if rq, ok := right.(types.Quantity); ok {
			return q.DivideQ(rq)
		}
	}

	if numTierOf(left) == tierNone || numTierOf(right) == tierNone {
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}
	return toDecimal(left).Divide(toDecimal(right))
}

// IntegerDivide performs integer division (div operator).
func IntegerDivide(left, right types.Value) (types.Value, error) {
	if l, ok := left.(types.Long); ok {
		switch r := right.(type) {
		case types.Long:
			return l.Div(r)
		case types.Integer:
			return l.Div(types.NewLong(r.Value()))
		}
	}
	if r, ok := right.(types.Long); ok {
		if l, ok := left.(types.Integer); ok {
			return types.NewLong(l.Value()).Div(r)
		}
	}
	l, ok := left.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("div", left.Type(), right.Type())
	}
	r, ok := right.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("div", left.Type(), right.Type())
	}
	return l.Div(r)
}

// Modulo performs modulo operation (mod operator).
func Modulo(left, right types.Value) (types.Value, error) {
	if l, ok := left.(types.Long); ok {
		switch r := right.(type) {
		case types.Long:
			return l.Mod(r)
		case types.Integer:
			return l.Mod(types.NewLong(r.Value()))
		}
	}
	if r, ok := right.(types.Long); ok {
		if l, ok := left.(types.Integer); ok {
			return types.NewLong(l.Value()).Mod(r)
		}
	}
	l, ok := left.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("mod", left.Type(), right.Type())
	}
	r, ok := right.(types.Integer)
	if !ok {
		return nil, InvalidOperationError("mod", left.Type(), right.Type())
	}
	return l.Mod(r)
}

// Negate negates a numeric value.
func Negate(value types.Value) (types.Value, error) {
	switch v := value.(type) {
	case types.Integer:
		return v.Negate(), nil
	case types.Long:
		return v.Negate(), nil
	case types.Decimal:
		return v.Negate(), nil
	}
	return nil, NewEvalError(ErrType, "cannot negate "+value.Type())
}

// Comparison operators

// Compare compares two values and returns -1, 0, or 1.
func Compare(left, right types.Value) (int, error) {
	if obj, ok := left.(*types.ObjectValue); ok {
		if _, isRightQuantity := right.(types.Quantity); isRightQuantity {
			if q, ok := obj.ToQuantity(); ok {
				return q.Compare(right)
			}
		}
	}
	if obj, ok := right.(*types.ObjectValue); ok {
		if _, isLeftQuantity := left.(types.Quantity); isLeftQuantity {
			if q, ok := obj.ToQuantity(); ok {
				if comp, ok := left.(types.Comparable); ok {
					return comp.Compare(q)
				}
			}
		}
	}
	if comp, ok := left.(types.Comparable); ok {
		return comp.Compare(right)
	}
	return 0, InvalidOperationError("compare", left.Type(), right.Type())
}

// boolFromCompare turns a Compare result into a FHIRPath truth Collection
// via keep, the predicate over the comparison sign each of LessThan and
// friends below supplies.
func boolFromCompare(left, right types.Value, keep func(cmp int) bool) (types.Collection, error) {
	cmp, err := Compare(left, right)
	if err != nil {
		return nil, err
	}
	if keep(cmp) {
		return types.TrueCollection, nil
	}
	return types.FalseCollection, nil
}

// LessThan returns true if left < right.
func LessThan(left, right types.Value) (types.Collection, error) {
	return boolFromCompare(left, right, func(cmp int) bool { return cmp < 0 })
}

// LessOrEqual returns true if left <= right.
func LessOrEqual(left, right types.Value) (types.Collection, error) {
	return boolFromCompare(left, right, func(cmp int) bool { return cmp <= 0 })
}

// GreaterThan returns true if left > right.
func GreaterThan(left, right types.Value) (types.Collection, error) {
	return boolFromCompare(left, right, func(cmp int) bool { return cmp > 0 })
}

// GreaterOrEqual returns true if left >= right.
func GreaterOrEqual(left, right types.Value) (types.Collection, error) {
	return boolFromCompare(left, right, func(cmp int) bool { return cmp >= 0 })
}

// Equality operators

func boolCollection(b bool) types.Collection {
	if b {
		return types.TrueCollection
	}
	return types.FalseCollection
}

// Equal returns true if left = right.
func Equal(left, right types.Collection) types.Collection {
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}
	if len(left) != 1 || len(right) != 1 {
		return types.EmptyCollection
	}
	return boolCollection(left[0].Equal(right[0]))
}

// NotEqual returns true if left != right.
func NotEqual(left, right types.Collection) types.Collection {
	result := Equal(left, right)
	if result.Empty() {
		return result
	}
	return boolCollection(!result[0].(types.Boolean).Bool())
}

// Equivalent returns true if left ~ right.
func Equivalent(left, right types.Collection) types.Collection {
	if left.Empty() && right.Empty() {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() {
		return types.FalseCollection
	}
	if len(left) != 1 || len(right) != 1 {
		return types.FalseCollection
	}
	return boolCollection(left[0].Equivalent(right[0]))
}

// NotEquivalent returns true if left !~ right.
func NotEquivalent(left, right types.Collection) types.Collection {
	result := Equivalent(left, right)
	return boolCollection(!result[0].(types.Boolean).Bool())
}

// Boolean operators (three-valued logic)

// singletonBool reports the Boolean value of a one-element collection, and
// whether it held one at all — the shape every operator below needs its
// operands reduced to before applying truth-table logic.
func singletonBool(c types.Collection) (value bool, present bool) {
	if c.Empty() || len(c) != 1 {
		return false, false
	}
	b, ok := c[0].(types.Boolean)
	if !ok {
		return false, false
	}
	return b.Bool(), true
}

// And performs logical AND with three-valued logic: a known false operand
// short-circuits regardless of the other side being empty or unevaluable.
func And(left, right types.Collection) types.Collection {
	lVal, lOk := singletonBool(left)
	rVal, rOk := singletonBool(right)

	if lOk && !lVal {
		return types.FalseCollection
	}
	if rOk && !rVal {
		return types.FalseCollection
	}
	if left.Empty() || right.Empty() || !lOk || !rOk {
		return types.EmptyCollection
	}
	return boolCollection(lVal && rVal)
}

// Or performs logical OR with three-valued logic: a known true operand
// short-circuits regardless of the other side.
func Or(left, right types.Collection) types.Collection {
	lVal, lOk := singletonBool(left)
	rVal, rOk := singletonBool(right)

	if lOk && lVal {
		return types.TrueCollection
	}
	if rOk && rVal {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() || !lOk || !rOk {
		return types.EmptyCollection
	}
	return boolCollection(lVal || rVal)
}

// Xor performs logical XOR.
func Xor(left, right types.Collection) types.Collection {
	lVal, lOk := singletonBool(left)
	rVal, rOk := singletonBool(right)
	if !lOk || !rOk {
		return types.EmptyCollection
	}
	return boolCollection(lVal != rVal)
}

// Implies performs logical implication: a known-false left or known-true
// right short-circuits to true without needing the other operand.
func Implies(left, right types.Collection) types.Collection {
	lVal, lOk := singletonBool(left)
	rVal, rOk := singletonBool(right)

	if lOk && !lVal {
		return types.TrueCollection
	}
	if rOk && rVal {
		return types.TrueCollection
	}
	if left.Empty() || right.Empty() {
		return types.EmptyCollection
	}
	return types.FalseCollection
}

// Not performs logical NOT.
func Not(value types.Collection) types.Collection {
	val, ok := singletonBool(value)
	if !ok {
		return types.EmptyCollection
	}
	return boolCollection(!val)
}

// String operators

// Concatenate performs string concatenation (& operator).
// Unlike +, & treats empty as empty string.
func Concatenate(left, right types.Collection) types.Collection {
	asString := func(c types.Collection) string {
		if c.Empty() {
			return ""
		}
		if s, ok := c[0].(types.String); ok {
			return s.Value()
		}
		return ""
	}
	return types.Collection{types.NewString(asString(left) + asString(right))}
}

// Collection operators

// Union returns the union of two collections.
func Union(left, right types.Collection) types.Collection {
	return left.Union(right)
}

// In checks if left is in right collection.
func In(left, right types.Collection) types.Collection {
	if left.Empty() || len(left) != 1 {
		return types.EmptyCollection
	}
	return boolCollection(right.Contains(left[0]))
}

// Contains checks if left collection contains right.
func Contains(left, right types.Collection) types.Collection {
	if right.Empty() || len(right) != 1 {
		return types.EmptyCollection
	}
	return boolCollection(left.Contains(right[0]))
}
