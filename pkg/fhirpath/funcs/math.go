package funcs

import (
	"math"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
	"github.com/shopspring/decimal"
)

// mathFuncs covers three families that share this file: single-value
// rounding/transcendental functions, the collection aggregates built on
// top of them, and precision().
var mathFuncs = []FuncDef{
	{Name: "abs", MinArgs: 0, MaxArgs: 0, Fn: fnAbs},
	{Name: "ceiling", MinArgs: 0, MaxArgs: 0, Fn: fnCeiling},
	{Name: "exp", MinArgs: 0, MaxArgs: 0, Fn: fnExp},
	{Name: "floor", MinArgs: 0, MaxArgs: 0, Fn: fnFloor},
	{Name: "ln", MinArgs: 0, MaxArgs: 0, Fn: fnLn},
	{Name: "log", MinArgs: 1, MaxArgs: 1, Fn: fnLog},
	{Name: "power", MinArgs: 1, MaxArgs: 1, Fn: fnPower},
	{Name: "round", MinArgs: 0, MaxArgs: 1, Fn: fnRound},
	{Name: "sqrt", MinArgs: 0, MaxArgs: 0, Fn: fnSqrt},
	{Name: "truncate", MinArgs: 0, MaxArgs: 0, Fn: fnTruncate},
	{Name: "sum", MinArgs: 0, MaxArgs: 0, Fn: fnSum},
	{Name: "min", MinArgs: 0, MaxArgs: 0, Fn: fnMin},
	{Name: "max", MinArgs: 0, MaxArgs: 0, Fn: fnMax},
	{Name: "avg", MinArgs: 0, MaxArgs: 0, Fn: fnAvg},
	{Name: "precision", MinArgs: 0, MaxArgs: 0, Fn: fnPrecision},
}

func init() {
	for _, def := range mathFuncs {
		Register(def)
	}
}

// precision reports the number of significant digits after the decimal
// point for a Decimal, or 0 for an Integer. Per spec.md §9's open
// question this is intentionally not extended to Date/DateTime/Time — see
// DESIGN.md.
func fnPrecision(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Decimal:
		scale := -v.Value().Exponent()
		if scale < 0 {
			scale = 0
		}
		return types.Collection{types.NewInteger(int64(scale))}, nil
	case types.Integer:
		return types.Collection{types.NewInteger(0)}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnAbs(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		val := v.Value()
		if val < 0 {
			val = -val
		}
		return types.Collection{types.NewInteger(val)}, nil
	case types.Decimal:
		return types.Collection{types.NewDecimalFromFloat(math.Abs(v.Value().InexactFloat64()))}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnCeiling(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(int64(math.Ceil(v.Value().InexactFloat64())))}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnFloor(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(int64(math.Floor(v.Value().InexactFloat64())))}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnTruncate(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(int64(math.Trunc(v.Value().InexactFloat64())))}, nil
	default:
		return types.Collection{}, nil
	}
}

// numericFloat extracts a float64 from an Integer or Decimal singleton, the
// shape every transcendental function below (exp/ln/log/power/sqrt) needs
// its operand in regardless of which numeric type produced it.
func numericFloat(v types.Value) (float64, bool) {
	switch n := v.(type) {
	case types.Integer:
		return float64(n.Value()), true
	case types.Decimal:
		return n.Value().InexactFloat64(), true
	default:
		return 0, false
	}
}

// unaryTranscendental wraps the common shape of exp/ln/sqrt: pull a float
// out of the singleton input, apply fn, reject inputs fn marks invalid via
// guard, and wrap the float result back into a Decimal.
func unaryTranscendental(input types.Collection, guard func(float64) bool, fn func(float64) float64) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	val, ok := numericFloat(input[0])
	if !ok || (guard != nil && !guard(val)) {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewDecimalFromFloat(fn(val))}, nil
}

func fnExp(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return unaryTranscendental(input, nil, math.Exp)
}

func fnLn(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return unaryTranscendental(input, func(v float64) bool { return v > 0 }, math.Log)
}

func fnSqrt(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return unaryTranscendental(input, func(v float64) bool { return v >= 0 }, math.Sqrt)
}

func fnLog(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() || len(args) == 0 {
		return types.Collection{}, nil
	}
	val, ok := numericFloat(input[0])
	if !ok {
		return types.Collection{}, nil
	}
	base, err := toFloat(args[0])
	if err != nil || val <= 0 || base <= 0 || base == 1 {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewDecimalFromFloat(math.Log(val) / math.Log(base))}, nil
}

func fnPower(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() || len(args) == 0 {
		return types.Collection{}, nil
	}
	base, ok := numericFloat(input[0])
	if !ok {
		return types.Collection{}, nil
	}
	exp, err := toFloat(args[0])
	if err != nil {
		return types.Collection{}, nil
	}
	result := math.Pow(base, exp)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewDecimalFromFloat(result)}, nil
}

func fnRound(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	precision := int32(0)
	if len(args) > 0 {
		p, err := toInteger(args[0])
		if err != nil {
			return types.Collection{}, nil
		}
		precision = int32(p)
	}

	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Decimal:
		d, _ := types.NewDecimal(v.Value().Round(precision).String())
		return types.Collection{d}, nil
	default:
		return types.Collection{}, nil
	}
}

// toFloat converts an argument to float64.
func toFloat(arg interface{}) (float64, error) {
	switch v := arg.(type) {
	case types.Collection:
		if v.Empty() {
			return 0, eval.NewEvalError(eval.ErrType, "expected number, got empty collection")
		}
		return toFloat(v[0])
	case types.Integer:
		return float64(v.Value()), nil
	case types.Decimal:
		return v.Value().InexactFloat64(), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	default:
		return 0, eval.NewEvalError(eval.ErrType, "expected number")
	}
}

// fnSum adds every element as a decimal, returning Integer if every
// element was an Integer (matching FHIRPath's type-preservation rule) and
// Decimal otherwise. A non-numeric element yields Empty per spec, same as
// fnAvg below.
func fnSum(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewInteger(0)}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	var sum decimal.Decimal
	hasDecimal := false
	for _, item := range input {
		switch v := item.(type) {
		case types.Integer:
			sum = sum.Add(decimal.NewFromInt(v.Value()))
		case types.Decimal:
			sum = sum.Add(v.Value())
			hasDecimal = true
		default:
			return types.Collection{}, nil
		}
	}

	if hasDecimal {
		d, _ := types.NewDecimal(sum.String())
		return types.Collection{d}, nil
	}
	return types.Collection{types.NewInteger(sum.IntPart())}, nil
}

func fnAvg(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}

	var sum decimal.Decimal
	count := 0
	for _, item := range input {
		switch v := item.(type) {
		case types.Integer:
			sum = sum.Add(decimal.NewFromInt(v.Value()))
			count++
		case types.Decimal:
			sum = sum.Add(v.Value())
			count++
		default:
			return types.Collection{}, nil
		}
	}
	if count == 0 {
		return types.Collection{}, nil
	}

	d, _ := types.NewDecimal(sum.Div(decimal.NewFromInt(int64(count))).String())
	return types.Collection{d}, nil
}

// orderableLess orders two values for min/max comparison: Integer and Decimal
// share a numeric scale, String/Date/DateTime/Time each compare only
// against their own type (mismatched types abort the whole reduction by
// returning ok=false, matching FHIRPath's "non-comparable -> empty" rule).
func orderableLess(a, b types.Value) (bool, bool) {
	switch av := a.(type) {
	case types.Integer:
		if bv, ok := b.(types.Integer); ok {
			return av.Value() < bv.Value(), true
		}
		if bv, ok := b.(types.Decimal); ok {
			return float64(av.Value()) < bv.Value().InexactFloat64(), true
		}
	case types.Decimal:
		if bv, ok := numericFloatOf(b); ok {
			return av.Value().InexactFloat64() < bv, true
		}
	case types.String:
		if bv, ok := b.(types.String); ok {
			return av.Value() < bv.Value(), true
		}
	case types.Date:
		if bv, ok := b.(types.Date); ok {
			cmp, err := av.Compare(bv)
			return cmp < 0, err == nil
		}
	case types.DateTime:
		if bv, ok := b.(types.DateTime); ok {
			cmp, err := av.Compare(bv)
			return cmp < 0, err == nil
		}
	case types.Time:
		if bv, ok := b.(types.Time); ok {
			cmp, err := av.Compare(bv)
			return cmp < 0, err == nil
		}
	}
	return false, false
}

func numericFloatOf(v types.Value) (float64, bool) {
	return numericFloat(v)
}

// extremum reduces input to whichever element "wins" according to
// pickNewWinner(candidate, currentBest) — true means replace — backing
// both fnMin (<) and fnMax (>) without duplicating the per-type dispatch.
func extremum(input types.Collection, pickNewWinner func(candidateLess bool) bool) types.Collection {
	var best types.Value
	for _, item := range input {
		switch item.(type) {
		case types.Integer, types.Decimal, types.String, types.Date, types.DateTime, types.Time:
		default:
			return types.Collection{}
		}
		if best == nil {
			best = item
			continue
		}
		less, comparable := orderableLess(item, best)
		if !comparable {
			return types.Collection{}
		}
		if pickNewWinner(less) {
			best = item
		}
	}
	if best == nil {
		return types.Collection{}
	}
	return types.Collection{best}
}

func fnMin(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}
	return extremum(input, func(candidateLess bool) bool { return candidateLess }), nil
}

func fnMax(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if err := ctx.CheckCancellation(); err != nil {
		return nil, err
	}
	return extremum(input, func(candidateLess bool) bool { return !candidateLess }), nil
}
