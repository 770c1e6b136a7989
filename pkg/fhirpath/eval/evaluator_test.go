package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func mkQty(value int64, unit string) types.Quantity {
	return types.NewQuantityFromDecimal(types.NewDecimalFromInt(value).Value(), unit)
}

func TestContext(t *testing.T) {
	t.Run("a fresh context starts with Root and This set to the resource", func(t *testing.T) {
		ctx := NewContext([]byte(`{"name": "test"}`))
		assert.False(t, ctx.Root().Empty())
		assert.False(t, ctx.This().Empty())
		assert.Equal(t, ctx.Root().Count(), ctx.This().Count())
	})

	t.Run("variables round-trip and report absence", func(t *testing.T) {
		ctx := NewContext([]byte(`{}`))
		ctx.SetVariable("myVar", types.Collection{types.NewString("test")})

		v, ok := ctx.GetVariable("myVar")
		require.True(t, ok)
		assert.Equal(t, "test", v[0].(types.String).Value())

		_, ok = ctx.GetVariable("nonexistent")
		assert.False(t, ok)
	})

	t.Run("setting a variable twice keeps the latest value", func(t *testing.T) {
		ctx := NewContext([]byte(`{}`))
		ctx.SetVariable("myVar", types.Collection{types.NewString("first")})
		ctx.SetVariable("myVar", types.Collection{types.NewString("second")})

		v, ok := ctx.GetVariable("myVar")
		require.True(t, ok)
		assert.Equal(t, "second", v[0].(types.String).Value())
	})

	t.Run("independent variables don't clobber each other", func(t *testing.T) {
		ctx := NewContext([]byte(`{}`))
		ctx.SetVariable("var1", types.Collection{types.NewString("one")})
		ctx.SetVariable("var2", types.Collection{types.NewInteger(2)})
		ctx.SetVariable("var3", types.Collection{types.NewBoolean(true)})

		v1, _ := ctx.GetVariable("var1")
		v2, _ := ctx.GetVariable("var2")
		v3, _ := ctx.GetVariable("var3")
		assert.Equal(t, "one", v1[0].(types.String).Value())
		assert.Equal(t, int64(2), v2[0].(types.Integer).Value())
		assert.True(t, v3[0].(types.Boolean).Bool())
	})

	t.Run("WithThis derives a new context without mutating the original", func(t *testing.T) {
		ctx := NewContext([]byte(`{"name": "original"}`))
		newCtx := ctx.WithThis(types.Collection{types.NewString("modified")})

		assert.Equal(t, "modified", newCtx.This()[0].(types.String).Value())
		_, stillObject := ctx.This()[0].(*types.ObjectValue)
		assert.True(t, stillObject, "the original context's this should be untouched")
	})

	t.Run("WithIndex derives a context usable by the evaluator", func(t *testing.T) {
		ctx := NewContext([]byte(`{}`))
		assert.NotNil(t, ctx.WithIndex(42))
	})
}

func TestErrors(t *testing.T) {
	t.Run("every ErrorType stringifies to its documented name", func(t *testing.T) {
		cases := []struct {
			errType  ErrorType
			expected string
		}{
			{ErrParse, "ParseError"},
			{ErrType, "TypeError"},
			{ErrSingletonExpected, "SingletonExpectedError"},
			{ErrFunctionNotFound, "FunctionNotFoundError"},
			{ErrInvalidArguments, "InvalidArgumentsError"},
			{ErrDivisionByZero, "DivisionByZeroError"},
			{ErrInvalidPath, "InvalidPathError"},
			{ErrTimeout, "TimeoutError"},
			{ErrInvalidOperation, "InvalidOperationError"},
			{ErrInvalidExpression, "InvalidExpressionError"},
		}
		for _, tc := range cases {
			assert.Equal(t, tc.expected, tc.errType.String())
		}
		assert.Equal(t, "UnknownError", ErrorType(999).String())
	})

	t.Run("constructor helpers stamp the right ErrorType", func(t *testing.T) {
		assert.Equal(t, ErrParse, ParseError("test message").Type)
		assert.Equal(t, ErrType, TypeError("String", "Integer", "add").Type)
		assert.Equal(t, ErrSingletonExpected, SingletonError(5).Type)
		assert.Equal(t, ErrFunctionNotFound, FunctionNotFoundError("myFunc").Type)
		assert.Equal(t, ErrInvalidArguments, InvalidArgumentsError("myFunc", 2, 1).Type)
		assert.Equal(t, ErrDivisionByZero, DivisionByZeroError().Type)
		assert.Equal(t, ErrInvalidPath, InvalidPathError("/invalid").Type)
		assert.Equal(t, ErrInvalidOperation, InvalidOperationError("+", "String", "Boolean").Type)
	})

	t.Run("Error() formats as 'Type: message'", func(t *testing.T) {
		err := NewEvalError(ErrType, "test message")
		assert.Equal(t, "TypeError: test message", err.Error())

		dzErr := NewEvalError(ErrDivisionByZero, "cannot divide by zero")
		assert.Equal(t, "DivisionByZeroError: cannot divide by zero", dzErr.Error())
	})

	t.Run("WithPath and WithPosition attach diagnostic context", func(t *testing.T) {
		err := NewEvalError(ErrType, "test message").WithPath("Patient.name").WithPosition(10, 5)
		assert.Equal(t, "Patient.name", err.Path)
		assert.Equal(t, 10, err.Position.Line)
		assert.Equal(t, 5, err.Position.Column)
	})

	t.Run("WithUnderlying chains a causing error", func(t *testing.T) {
		underlying := NewEvalError(ErrParse, "parse failed")
		err := NewEvalError(ErrType, "type error").WithUnderlying(underlying)
		assert.Same(t, underlying, err.Underlying)
	})
}

func TestArithmeticOperators(t *testing.T) {
	t.Run("integer arithmetic", func(t *testing.T) {
		sum, err := Add(types.NewInteger(5), types.NewInteger(3))
		require.NoError(t, err)
		assert.Equal(t, int64(8), sum.(types.Integer).Value())

		diff, err := Subtract(types.NewInteger(10), types.NewInteger(3))
		require.NoError(t, err)
		assert.Equal(t, int64(7), diff.(types.Integer).Value())

		prod, err := Multiply(types.NewInteger(4), types.NewInteger(5))
		require.NoError(t, err)
		assert.Equal(t, int64(20), prod.(types.Integer).Value())

		idiv, err := IntegerDivide(types.NewInteger(10), types.NewInteger(3))
		require.NoError(t, err)
		assert.Equal(t, int64(3), idiv.(types.Integer).Value())

		mod, err := Modulo(types.NewInteger(10), types.NewInteger(3))
		require.NoError(t, err)
		assert.Equal(t, int64(1), mod.(types.Integer).Value())
	})

	t.Run("division always promotes to Decimal and rejects a zero divisor", func(t *testing.T) {
		result, err := Divide(types.NewInteger(10), types.NewInteger(4))
		require.NoError(t, err)
		assert.Equal(t, "Decimal", result.Type())

		_, err = Divide(types.NewInteger(10), types.NewInteger(0))
		assert.Error(t, err)
	})

	t.Run("string addition concatenates", func(t *testing.T) {
		result, err := Add(types.NewString("Hello"), types.NewString(" World"))
		require.NoError(t, err)
		assert.Equal(t, "Hello World", result.(types.String).Value())
	})

	t.Run("negate", func(t *testing.T) {
		negInt, err := Negate(types.NewInteger(5))
		require.NoError(t, err)
		assert.Equal(t, int64(-5), negInt.(types.Integer).Value())

		negDec, err := Negate(types.NewDecimalFromFloat(3.14))
		require.NoError(t, err)
		assert.InDelta(t, -3.14, negDec.(types.Decimal).Value().InexactFloat64(), 0.0001)

		_, err = Negate(types.NewString("test"))
		assert.Error(t, err, "negating a String should error")
	})
}

func TestMixedTypeArithmetic(t *testing.T) {
	cases := []struct {
		name string
		fn   func(types.Value, types.Value) (types.Value, error)
		a, b types.Value
		want float64
	}{
		{name: "integer + decimal", fn: Add, a: types.NewInteger(5), b: types.NewDecimalFromFloat(3.5), want: 8.5},
		{name: "decimal + integer", fn: Add, a: types.NewDecimalFromFloat(3.5), b: types.NewInteger(5), want: 8.5},
		{name: "decimal - decimal", fn: Subtract, a: types.NewDecimalFromFloat(10.5), b: types.NewDecimalFromFloat(3.5), want: 7.0},
		{name: "integer - decimal", fn: Subtract, a: types.NewInteger(10), b: types.NewDecimalFromFloat(3.5), want: 6.5},
		{name: "decimal - integer", fn: Subtract, a: types.NewDecimalFromFloat(10.5), b: types.NewInteger(3), want: 7.5},
		{name: "decimal * decimal", fn: Multiply, a: types.NewDecimalFromFloat(3.0), b: types.NewDecimalFromFloat(4.0), want: 12.0},
		{name: "integer * decimal", fn: Multiply, a: types.NewInteger(3), b: types.NewDecimalFromFloat(4.5), want: 13.5},
		{name: "decimal * integer", fn: Multiply, a: types.NewDecimalFromFloat(3.5), b: types.NewInteger(4), want: 14.0},
		{name: "decimal / decimal", fn: Divide, a: types.NewDecimalFromFloat(10.0), b: types.NewDecimalFromFloat(4.0), want: 2.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := tc.fn(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, "Decimal", result.Type())
			assert.InDelta(t, tc.want, result.(types.Decimal).Value().InexactFloat64(), 0.0001)
		})
	}

	t.Run("decimal division by zero errors", func(t *testing.T) {
		_, err := Divide(types.NewDecimalFromFloat(10.0), types.NewDecimalFromFloat(0.0))
		assert.Error(t, err)
	})
}

func TestOperatorErrors(t *testing.T) {
	binaryErrCases := []struct {
		name string
		fn   func(types.Value, types.Value) (types.Value, error)
		a, b types.Value
	}{
		{name: "Boolean + Integer", fn: Add, a: types.NewBoolean(true), b: types.NewInteger(5)},
		{name: "String + Integer", fn: Add, a: types.NewString("test"), b: types.NewInteger(5)},
		{name: "String - Integer", fn: Subtract, a: types.NewString("test"), b: types.NewInteger(5)},
		{name: "Boolean - Boolean", fn: Subtract, a: types.NewBoolean(true), b: types.NewBoolean(false)},
		{name: "String * Integer", fn: Multiply, a: types.NewString("test"), b: types.NewInteger(5)},
		{name: "String / Integer", fn: Divide, a: types.NewString("test"), b: types.NewInteger(5)},
		{name: "Integer / String", fn: Divide, a: types.NewInteger(5), b: types.NewString("test")},
		{name: "Decimal div Integer", fn: IntegerDivide, a: types.NewDecimalFromFloat(10.5), b: types.NewInteger(3)},
		{name: "Integer div Decimal", fn: IntegerDivide, a: types.NewInteger(10), b: types.NewDecimalFromFloat(3.5)},
		{name: "Decimal mod Integer", fn: Modulo, a: types.NewDecimalFromFloat(10.5), b: types.NewInteger(3)},
		{name: "Integer mod Decimal", fn: Modulo, a: types.NewInteger(10), b: types.NewDecimalFromFloat(3.5)},
	}

	for _, tc := range binaryErrCases {
		t.Run(tc.name+" is a type error", func(t *testing.T) {
			_, err := tc.fn(tc.a, tc.b)
			assert.Error(t, err)
		})
	}

	t.Run("Compare rejects incomparable types", func(t *testing.T) {
		_, err := Compare(types.NewBoolean(true), types.NewInteger(5))
		assert.Error(t, err)
	})
}

func TestComparisonOperators(t *testing.T) {
	t.Run("Compare reports ordering across supported types", func(t *testing.T) {
		cmp, err := Compare(types.NewInteger(5), types.NewInteger(10))
		require.NoError(t, err)
		assert.Negative(t, cmp)

		cmp, err = Compare(types.NewInteger(10), types.NewInteger(5))
		require.NoError(t, err)
		assert.Positive(t, cmp)

		cmp, err = Compare(types.NewInteger(5), types.NewInteger(5))
		require.NoError(t, err)
		assert.Zero(t, cmp)

		cmp, err = Compare(types.NewString("apple"), types.NewString("banana"))
		require.NoError(t, err)
		assert.Negative(t, cmp)

		cmp, err = Compare(types.NewDecimalFromFloat(3.14), types.NewDecimalFromFloat(2.71))
		require.NoError(t, err)
		assert.Positive(t, cmp)
	})

	t.Run("LessThan/GreaterThan/LessOrEqual/GreaterOrEqual", func(t *testing.T) {
		lt, err := LessThan(types.NewInteger(5), types.NewInteger(10))
		require.NoError(t, err)
		assert.True(t, lt[0].(types.Boolean).Bool())

		lt, err = LessThan(types.NewInteger(10), types.NewInteger(5))
		require.NoError(t, err)
		assert.False(t, lt[0].(types.Boolean).Bool())

		gt, err := GreaterThan(types.NewInteger(10), types.NewInteger(5))
		require.NoError(t, err)
		assert.True(t, gt[0].(types.Boolean).Bool())

		gt, err = GreaterThan(types.NewInteger(5), types.NewInteger(10))
		require.NoError(t, err)
		assert.False(t, gt[0].(types.Boolean).Bool())

		for _, pair := range [][2]int64{{5, 5}, {4, 5}} {
			le, err := LessOrEqual(types.NewInteger(pair[0]), types.NewInteger(pair[1]))
			require.NoError(t, err)
			assert.True(t, le[0].(types.Boolean).Bool())
		}
		le, err := LessOrEqual(types.NewInteger(6), types.NewInteger(5))
		require.NoError(t, err)
		assert.False(t, le[0].(types.Boolean).Bool())

		for _, pair := range [][2]int64{{5, 5}, {6, 5}} {
			ge, err := GreaterOrEqual(types.NewInteger(pair[0]), types.NewInteger(pair[1]))
			require.NoError(t, err)
			assert.True(t, ge[0].(types.Boolean).Bool())
		}
		ge, err := GreaterOrEqual(types.NewInteger(4), types.NewInteger(5))
		require.NoError(t, err)
		assert.False(t, ge[0].(types.Boolean).Bool())
	})
}

func TestEqualityAndEquivalence(t *testing.T) {
	t.Run("Equal/NotEqual", func(t *testing.T) {
		assert.True(t, Equal(types.Collection{types.NewInteger(5)}, types.Collection{types.NewInteger(5)})[0].(types.Boolean).Bool())
		assert.True(t, NotEqual(types.Collection{types.NewInteger(5)}, types.Collection{types.NewInteger(10)})[0].(types.Boolean).Bool())
	})

	t.Run("Equal propagates empty for any non-singleton mismatch", func(t *testing.T) {
		assert.True(t, Equal(types.EmptyCollection, types.Collection{types.NewInteger(5)}).Empty())
		assert.True(t, Equal(
			types.Collection{types.NewInteger(1), types.NewInteger(2)},
			types.Collection{types.NewInteger(1)},
		).Empty())
		assert.True(t, Equal(
			types.Collection{types.NewInteger(1)},
			types.Collection{types.NewInteger(1), types.NewInteger(2)},
		).Empty())
		assert.True(t, NotEqual(types.EmptyCollection, types.Collection{types.NewInteger(1)}).Empty())
	})

	t.Run("Equivalent is case/whitespace-insensitive for strings", func(t *testing.T) {
		assert.True(t, Equivalent(types.Collection{types.NewString("HELLO")}, types.Collection{types.NewString("hello")})[0].(types.Boolean).Bool())
		assert.True(t, NotEquivalent(types.Collection{types.NewString("HELLO")}, types.Collection{types.NewString("world")})[0].(types.Boolean).Bool())
		assert.False(t, NotEquivalent(types.Collection{types.NewString("hello")}, types.Collection{types.NewString("HELLO")})[0].(types.Boolean).Bool())
	})

	t.Run("Equivalent edge cases", func(t *testing.T) {
		assert.True(t, Equivalent(types.EmptyCollection, types.EmptyCollection)[0].(types.Boolean).Bool())
		assert.False(t, Equivalent(types.EmptyCollection, types.Collection{types.NewInteger(1)})[0].(types.Boolean).Bool())
		assert.False(t, Equivalent(
			types.Collection{types.NewInteger(1), types.NewInteger(2)},
			types.Collection{types.NewInteger(1)},
		)[0].(types.Boolean).Bool())
	})
}

func TestBooleanThreeValuedLogic(t *testing.T) {
	truthTable := []struct {
		name string
		fn   func(types.Collection, types.Collection) types.Collection
		a, b types.Collection
		want interface{} // bool, or "EMPTY"
	}{
		{name: "true and true", fn: And, a: types.TrueCollection, b: types.TrueCollection, want: true},
		{name: "true and false", fn: And, a: types.TrueCollection, b: types.FalseCollection, want: false},
		{name: "false and true", fn: And, a: types.FalseCollection, b: types.TrueCollection, want: false},
		{name: "false and false", fn: And, a: types.FalseCollection, b: types.FalseCollection, want: false},
		{name: "empty and true", fn: And, a: types.EmptyCollection, b: types.TrueCollection, want: "EMPTY"},
		{name: "true and empty", fn: And, a: types.TrueCollection, b: types.EmptyCollection, want: "EMPTY"},
		{name: "true or false", fn: Or, a: types.TrueCollection, b: types.FalseCollection, want: true},
		{name: "false or true", fn: Or, a: types.FalseCollection, b: types.TrueCollection, want: true},
		{name: "false or false", fn: Or, a: types.FalseCollection, b: types.FalseCollection, want: false},
		{name: "empty or false", fn: Or, a: types.EmptyCollection, b: types.FalseCollection, want: "EMPTY"},
		{name: "false or empty", fn: Or, a: types.FalseCollection, b: types.EmptyCollection, want: "EMPTY"},
		{name: "true xor true", fn: Xor, a: types.TrueCollection, b: types.TrueCollection, want: false},
		{name: "false xor false", fn: Xor, a: types.FalseCollection, b: types.FalseCollection, want: false},
		{name: "true xor false", fn: Xor, a: types.TrueCollection, b: types.FalseCollection, want: true},
		{name: "false xor true", fn: Xor, a: types.FalseCollection, b: types.TrueCollection, want: true},
		{name: "false implies true", fn: Implies, a: types.FalseCollection, b: types.TrueCollection, want: true},
		{name: "false implies false", fn: Implies, a: types.FalseCollection, b: types.FalseCollection, want: true},
		{name: "true implies true", fn: Implies, a: types.TrueCollection, b: types.TrueCollection, want: true},
		{name: "true implies false", fn: Implies, a: types.TrueCollection, b: types.FalseCollection, want: false},
		{name: "empty implies true", fn: Implies, a: types.EmptyCollection, b: types.TrueCollection, want: true},
		{name: "empty implies false", fn: Implies, a: types.EmptyCollection, b: types.FalseCollection, want: "EMPTY"},
	}

	for _, tc := range truthTable {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.fn(tc.a, tc.b)
			if tc.want == "EMPTY" {
				assert.True(t, result.Empty())
				return
			}
			require.False(t, result.Empty())
			assert.Equal(t, tc.want, result[0].(types.Boolean).Bool())
		})
	}

	t.Run("Not truth table", func(t *testing.T) {
		assert.False(t, Not(types.TrueCollection)[0].(types.Boolean).Bool())
		assert.True(t, Not(types.FalseCollection)[0].(types.Boolean).Bool())
		assert.True(t, Not(types.EmptyCollection).Empty())
	})

	t.Run("non-Boolean operands propagate empty rather than erroring", func(t *testing.T) {
		assert.True(t, And(types.Collection{types.NewInteger(1)}, types.Collection{types.NewBoolean(true)}).Empty())
		assert.True(t, Or(types.Collection{types.NewBoolean(false)}, types.Collection{types.NewInteger(1)}).Empty())
		assert.True(t, Xor(types.Collection{types.NewInteger(1)}, types.Collection{types.NewBoolean(true)}).Empty())
		assert.True(t, Not(types.Collection{types.NewInteger(1)}).Empty())
	})

	t.Run("non-singleton operand propagates empty", func(t *testing.T) {
		assert.True(t, Not(types.Collection{types.NewBoolean(true), types.NewBoolean(false)}).Empty())
	})
}

func TestCollectionOperators(t *testing.T) {
	c1 := types.Collection{types.NewInteger(1), types.NewInteger(2)}
	c2 := types.Collection{types.NewInteger(3)}

	t.Run("Union of disjoint collections keeps every element", func(t *testing.T) {
		assert.Equal(t, 3, Union(c1, c2).Count())
	})

	t.Run("In/Contains", func(t *testing.T) {
		collection := types.Collection{types.NewInteger(1), types.NewInteger(2), types.NewInteger(3)}

		assert.True(t, In(types.Collection{types.NewInteger(2)}, collection)[0].(types.Boolean).Bool())
		assert.False(t, In(types.Collection{types.NewInteger(5)}, collection)[0].(types.Boolean).Bool())
		assert.True(t, Contains(collection, types.Collection{types.NewInteger(2)})[0].(types.Boolean).Bool())
		assert.False(t, Contains(collection, types.Collection{types.NewInteger(5)})[0].(types.Boolean).Bool())
	})

	t.Run("In/Contains require a singleton on the element side", func(t *testing.T) {
		assert.True(t, In(
			types.Collection{types.NewInteger(1), types.NewInteger(2)},
			types.Collection{types.NewInteger(1), types.NewInteger(2), types.NewInteger(3)},
		).Empty())
		assert.True(t, Contains(
			types.Collection{types.NewInteger(1), types.NewInteger(2), types.NewInteger(3)},
			types.Collection{types.NewInteger(1), types.NewInteger(2)},
		).Empty())
	})

	t.Run("In/Contains propagate empty", func(t *testing.T) {
		assert.True(t, In(types.EmptyCollection, types.Collection{types.NewInteger(1)}).Empty())
		assert.True(t, Contains(types.Collection{types.NewInteger(1)}, types.EmptyCollection).Empty())
	})

	t.Run("Concatenate treats empty as an identity element", func(t *testing.T) {
		left := Concatenate(types.EmptyCollection, types.Collection{types.NewString("world")})
		assert.Equal(t, "world", left[0].(types.String).Value())

		right := Concatenate(types.Collection{types.NewString("hello")}, types.EmptyCollection)
		assert.Equal(t, "hello", right[0].(types.String).Value())

		both := Concatenate(types.Collection{types.NewString("Hello")}, types.Collection{types.NewString(" World")})
		assert.Equal(t, "Hello World", both[0].(types.String).Value())
	})
}

func TestTypeMatches(t *testing.T) {
	cases := []struct {
		name       string
		actualType string
		typeName   string
		expected   bool
	}{
		{"direct match Boolean", "Boolean", "Boolean", true},
		{"direct match String", "String", "String", true},
		{"direct match Integer", "Integer", "Integer", true},
		{"direct match Decimal", "Decimal", "Decimal", true},
		{"direct match Date", "Date", "Date", true},
		{"direct match DateTime", "DateTime", "DateTime", true},
		{"direct match Time", "Time", "Time", true},
		{"direct match Quantity", "Quantity", "Quantity", true},
		{"case insensitive boolean", "Boolean", "boolean", true},
		{"case insensitive string", "String", "string", true},
		{"case insensitive integer", "Integer", "integer", true},
		{"case insensitive decimal", "Decimal", "decimal", true},
		{"FHIR uri to String", "String", "uri", true},
		{"FHIR url to String", "String", "url", true},
		{"FHIR code to String", "String", "code", true},
		{"FHIR id to String", "String", "id", true},
		{"FHIR markdown to String", "String", "markdown", true},
		{"FHIR base64Binary to String", "String", "base64Binary", true},
		{"FHIR canonical to String", "String", "canonical", true},
		{"FHIR oid to String", "String", "oid", true},
		{"FHIR uuid to String", "String", "uuid", true},
		{"FHIR positiveInt to Integer", "Integer", "positiveInt", true},
		{"FHIR unsignedInt to Integer", "Integer", "unsignedInt", true},
		{"FHIR integer64 to Long", "Long", "integer64", true},
		{"FHIR instant to DateTime", "DateTime", "instant", true},
		{"FHIR SimpleQuantity to Quantity", "Quantity", "SimpleQuantity", true},
		{"FHIR Age to Quantity", "Quantity", "Age", true},
		{"FHIR Count to Quantity", "Quantity", "Count", true},
		{"FHIR Distance to Quantity", "Quantity", "Distance", true},
		{"FHIR Duration to Quantity", "Quantity", "Duration", true},
		{"FHIR Money to Quantity", "Quantity", "Money", true},
		{"System.Boolean", "Boolean", "System.Boolean", true},
		{"System.String", "String", "System.String", true},
		{"System.Integer", "Integer", "System.Integer", true},
		{"System.Decimal", "Decimal", "System.Decimal", true},
		{"FHIR.boolean", "Boolean", "FHIR.boolean", true},
		{"FHIR.string", "String", "FHIR.string", true},
		{"different types", "String", "Integer", false},
		{"different types 2", "Boolean", "Decimal", false},
		{"no match uri for Integer", "Integer", "uri", false},
		{"no match Date for String", "Date", "String", false},
		{"Patient resource", "Patient", "Patient", true},
		{"Observation resource", "Observation", "Observation", true},
		{"Patient is Resource", "Patient", "Resource", true},
		{"Observation is Resource", "Observation", "Resource", true},
		{"Bundle is Resource", "Bundle", "Resource", true},
		{"Binary is Resource", "Binary", "Resource", true},
		{"Parameters is Resource", "Parameters", "Resource", true},
		{"Patient is DomainResource", "Patient", "DomainResource", true},
		{"Observation is DomainResource", "Observation", "DomainResource", true},
		{"MedicationRequest is DomainResource", "MedicationRequest", "DomainResource", true},
		{"Bundle is NOT DomainResource", "Bundle", "DomainResource", false},
		{"Binary is NOT DomainResource", "Binary", "DomainResource", false},
		{"Parameters is NOT DomainResource", "Parameters", "DomainResource", false},
		{"String is not Resource", "String", "Resource", false},
		{"Boolean is not Resource", "Boolean", "Resource", false},
		{"Integer is not Resource", "Integer", "Resource", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TypeMatches(tc.actualType, tc.typeName))
		})
	}
}

func TestIsSubtypeOf(t *testing.T) {
	cases := []struct {
		name       string
		actualType string
		baseType   string
		expected   bool
	}{
		{"Patient equals Patient", "Patient", "Patient", true},
		{"Resource equals Resource", "Resource", "Resource", true},
		{"DomainResource equals DomainResource", "DomainResource", "DomainResource", true},
		{"Patient is Resource", "Patient", "Resource", true},
		{"Observation is Resource", "Observation", "Resource", true},
		{"Encounter is Resource", "Encounter", "Resource", true},
		{"Bundle is Resource", "Bundle", "Resource", true},
		{"Binary is Resource", "Binary", "Resource", true},
		{"Parameters is Resource", "Parameters", "Resource", true},
		{"Patient is DomainResource", "Patient", "DomainResource", true},
		{"Observation is DomainResource", "Observation", "DomainResource", true},
		{"Condition is DomainResource", "Condition", "DomainResource", true},
		{"Bundle is NOT DomainResource", "Bundle", "DomainResource", false},
		{"Binary is NOT DomainResource", "Binary", "DomainResource", false},
		{"Parameters is NOT DomainResource", "Parameters", "DomainResource", false},
		{"String is not Resource", "String", "Resource", false},
		{"Boolean is not Resource", "Boolean", "Resource", false},
		{"Integer is not Resource", "Integer", "Resource", false},
		{"Quantity is not Resource", "Quantity", "Resource", false},
		{"Patient is resource (lowercase)", "Patient", "resource", true},
		{"Patient is domainresource (lowercase)", "Patient", "domainresource", true},
		{"Patient is not Observation", "Patient", "Observation", false},
		{"Bundle is not Patient", "Bundle", "Patient", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsSubtypeOf(tc.actualType, tc.baseType))
		})
	}
}

func TestIsDomainResource(t *testing.T) {
	t.Run("Bundle, Binary, and Parameters inherit directly from Resource", func(t *testing.T) {
		for _, rt := range []string{"Bundle", "Binary", "Parameters"} {
			assert.Falsef(t, IsDomainResource(rt), "%s should not be a DomainResource", rt)
		}
	})

	t.Run("ordinary clinical resources are DomainResources", func(t *testing.T) {
		for _, rt := range []string{"Patient", "Observation", "Encounter", "Condition", "MedicationRequest"} {
			assert.Truef(t, IsDomainResource(rt), "%s should be a DomainResource", rt)
		}
	})
}

func TestDateArithmetic(t *testing.T) {
	cases := []struct {
		name     string
		date     string
		value    int64
		unit     string
		expected string
		subtract bool
	}{
		{"date plus 1 year", "2020-01-01", 1, "year", "2021-01-01", false},
		{"date plus 2 years", "2020-01-01", 2, "years", "2022-01-01", false},
		{"date plus years quoted", "2020-01-01", 1, "'year'", "2021-01-01", false},
		{"date plus 1 month", "2020-01-15", 1, "month", "2020-02-15", false},
		{"date plus 6 months", "2020-01-15", 6, "months", "2020-07-15", false},
		{"date plus months crossing year", "2020-11-15", 3, "months", "2021-02-15", false},
		{"date plus 1 week", "2020-01-01", 1, "week", "2020-01-08", false},
		{"date plus 2 weeks", "2020-01-01", 2, "weeks", "2020-01-15", false},
		{"date plus 1 day", "2020-01-01", 1, "day", "2020-01-02", false},
		{"date plus 30 days", "2020-01-01", 30, "days", "2020-01-31", false},
		{"date plus days crossing month", "2020-01-31", 1, "day", "2020-02-01", false},
		{"date minus 1 year", "2020-01-01", 1, "year", "2019-01-01", true},
		{"date minus 6 months", "2020-07-15", 6, "months", "2020-01-15", true},
		{"date minus 1 week", "2020-01-08", 1, "week", "2020-01-01", true},
		{"date minus 1 day", "2020-01-02", 1, "day", "2020-01-01", true},
		{"leap year add day", "2020-02-28", 1, "day", "2020-02-29", false},
		{"non-leap year add day", "2019-02-28", 1, "day", "2019-03-01", false},
		{"year precision plus year", "2020", 1, "year", "2021", false},
		{"year-month precision plus month", "2020-06", 1, "month", "2020-07", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			date, err := types.NewDate(tc.date)
			require.NoError(t, err)
			quantity := types.NewQuantityFromDecimal(types.NewDecimalFromInt(tc.value).Value(), tc.unit)

			var result types.Value
			if tc.subtract {
				result, err = Subtract(date, quantity)
			} else {
				result, err = Add(date, quantity)
			}
			require.NoError(t, err)

			resultDate, ok := result.(types.Date)
			require.True(t, ok)
			assert.Equal(t, tc.expected, resultDate.String())
		})
	}
}

func TestDateTimeArithmetic(t *testing.T) {
	cases := []struct {
		name     string
		datetime string
		value    int64
		unit     string
		expected string
		subtract bool
	}{
		{"datetime plus 1 year", "2020-01-01T10:00:00", 1, "year", "2021-01-01T10:00:00", false},
		{"datetime plus 1 month", "2020-01-15T10:00:00", 1, "month", "2020-02-15T10:00:00", false},
		{"datetime plus 1 day", "2020-01-01T10:00:00", 1, "day", "2020-01-02T10:00:00", false},
		{"datetime plus 1 hour", "2020-01-01T10:00:00", 1, "hour", "2020-01-01T11:00:00", false},
		{"datetime plus 30 minutes", "2020-01-01T10:00:00", 30, "minutes", "2020-01-01T10:30:00", false},
		{"datetime plus 45 seconds", "2020-01-01T10:00:00", 45, "seconds", "2020-01-01T10:00:45", false},
		{"datetime minus 1 hour", "2020-01-01T10:00:00", 1, "hour", "2020-01-01T09:00:00", true},
		{"datetime minus 30 minutes", "2020-01-01T10:30:00", 30, "minutes", "2020-01-01T10:00:00", true},
		{"datetime plus hours crossing day", "2020-01-01T23:00:00", 2, "hours", "2020-01-02T01:00:00", false},
		{"datetime minus hours crossing day", "2020-01-02T01:00:00", 2, "hours", "2020-01-01T23:00:00", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dt, err := types.NewDateTime(tc.datetime)
			require.NoError(t, err)
			quantity := types.NewQuantityFromDecimal(types.NewDecimalFromInt(tc.value).Value(), tc.unit)

			var result types.Value
			if tc.subtract {
				result, err = Subtract(dt, quantity)
			} else {
				result, err = Add(dt, quantity)
			}
			require.NoError(t, err)

			resultDT, ok := result.(types.DateTime)
			require.True(t, ok)
			assert.Equal(t, tc.expected, resultDT.String())
		})
	}
}

func TestQuantityArithmetic(t *testing.T) {
	cases := []struct {
		name              string
		q1Value, q2Value  int64
		q1Unit, q2Unit    string
		expected          string
		subtract, wantErr bool
	}{
		{name: "same unit addition", q1Value: 5, q1Unit: "mg", q2Value: 3, q2Unit: "mg", expected: "8 mg"},
		{name: "same unit subtraction", q1Value: 10, q1Unit: "kg", q2Value: 3, q2Unit: "kg", expected: "7 kg", subtract: true},
		{name: "unitless addition", q1Value: 5, q2Value: 3, expected: "8"},
		{name: "incompatible units error", q1Value: 5, q1Unit: "mg", q2Value: 3, q2Unit: "kg", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q1 := mkQty(tc.q1Value, tc.q1Unit)
			q2 := mkQty(tc.q2Value, tc.q2Unit)

			var result types.Value
			var err error
			if tc.subtract {
				result, err = Subtract(q1, q2)
			} else {
				result, err = Add(q1, q2)
			}

			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			resultQ, ok := result.(types.Quantity)
			require.True(t, ok)
			assert.Equal(t, tc.expected, resultQ.String())
		})
	}
}

func TestQuantityComparison(t *testing.T) {
	cases := []struct {
		name             string
		q1Value, q2Value int64
		q1Unit, q2Unit   string
		op               string
		expected         bool
		wantErr          bool
	}{
		{name: "10 kg > 5 kg", q1Value: 10, q1Unit: "kg", q2Value: 5, q2Unit: "kg", op: ">", expected: true},
		{name: "5 kg > 10 kg", q1Value: 5, q1Unit: "kg", q2Value: 10, q2Unit: "kg", op: ">", expected: false},
		{name: "5 kg < 10 kg", q1Value: 5, q1Unit: "kg", q2Value: 10, q2Unit: "kg", op: "<", expected: true},
		{name: "10 kg < 5 kg", q1Value: 10, q1Unit: "kg", q2Value: 5, q2Unit: "kg", op: "<", expected: false},
		{name: "10 kg >= 10 kg", q1Value: 10, q1Unit: "kg", q2Value: 10, q2Unit: "kg", op: ">=", expected: true},
		{name: "10 kg >= 5 kg", q1Value: 10, q1Unit: "kg", q2Value: 5, q2Unit: "kg", op: ">=", expected: true},
		{name: "5 kg >= 10 kg", q1Value: 5, q1Unit: "kg", q2Value: 10, q2Unit: "kg", op: ">=", expected: false},
		{name: "10 kg <= 10 kg", q1Value: 10, q1Unit: "kg", q2Value: 10, q2Unit: "kg", op: "<=", expected: true},
		{name: "5 kg <= 10 kg", q1Value: 5, q1Unit: "kg", q2Value: 10, q2Unit: "kg", op: "<=", expected: true},
		{name: "10 kg <= 5 kg", q1Value: 10, q1Unit: "kg", q2Value: 5, q2Unit: "kg", op: "<=", expected: false},
		{name: "10 > 5 (no unit)", q1Value: 10, q2Value: 5, op: ">", expected: true},
		{name: "10 kg > 5 (empty unit on one side)", q1Value: 10, q1Unit: "kg", q2Value: 5, op: ">", expected: true},
		{name: "10 kg > 5 mg (UCUM mass conversion)", q1Value: 10, q1Unit: "kg", q2Value: 5, q2Unit: "mg", op: ">", expected: true},
		{name: "5 mg > 10 kg (UCUM mass conversion)", q1Value: 5, q1Unit: "mg", q2Value: 10, q2Unit: "kg", op: ">", expected: false},
		{name: "incompatible dimensions error", q1Value: 10, q1Unit: "kg", q2Value: 5, q2Unit: "m", op: ">", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q1, q2 := mkQty(tc.q1Value, tc.q1Unit), mkQty(tc.q2Value, tc.q2Unit)

			var result types.Collection
			var err error
			switch tc.op {
			case ">":
				result, err = GreaterThan(q1, q2)
			case "<":
				result, err = LessThan(q1, q2)
			case ">=":
				result, err = GreaterOrEqual(q1, q2)
			case "<=":
				result, err = LessOrEqual(q1, q2)
			}

			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.False(t, result.Empty())
			assert.Equal(t, tc.expected, result[0].(types.Boolean).Bool())
		})
	}
}
