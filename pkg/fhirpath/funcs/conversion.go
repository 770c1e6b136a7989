package funcs

import (
	"strconv"
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
	"github.com/shopspring/decimal"
)

func init() {
	defs := []FuncDef{
		{Name: "iif", MinArgs: 2, MaxArgs: 3, Fn: fnIif},
		{Name: "toBoolean", MinArgs: 0, MaxArgs: 0, Fn: fnToBoolean},
		{Name: "convertsToBoolean", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToBoolean},
		{Name: "toInteger", MinArgs: 0, MaxArgs: 0, Fn: fnToInteger},
		{Name: "convertsToInteger", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToInteger},
		{Name: "toDecimal", MinArgs: 0, MaxArgs: 0, Fn: fnToDecimal},
		{Name: "convertsToDecimal", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToDecimal},
		{Name: "toString", MinArgs: 0, MaxArgs: 0, Fn: fnToString},
		{Name: "convertsToString", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToString},
		{Name: "toDate", MinArgs: 0, MaxArgs: 0, Fn: fnToDate},
		{Name: "convertsToDate", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToDate},
		{Name: "toDateTime", MinArgs: 0, MaxArgs: 0, Fn: fnToDateTime},
		{Name: "convertsToDateTime", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToDateTime},
		{Name: "toTime", MinArgs: 0, MaxArgs: 0, Fn: fnToTime},
		{Name: "convertsToTime", MinArgs: 0, MaxArgs: 0, Fn: fnConvertsToTime},
		{Name: "toQuantity", MinArgs: 0, MaxArgs: 1, Fn: fnToQuantity},
		{Name: "convertsToQuantity", MinArgs: 0, MaxArgs: 1, Fn: fnConvertsToQuantity},
	}
	for _, d := range defs {
		Register(d)
	}
}

func boolCollection(b bool) types.Collection {
	return types.Collection{types.NewBoolean(b)}
}

// trueWords and falseWords are the FHIRPath-spec string forms toBoolean()
// and convertsToBoolean() recognize (case-insensitively).
var (
	trueWords  = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "1": true, "1.0": true}
	falseWords = map[string]bool{"false": true, "f": true, "no": true, "n": true, "0": true, "0.0": true}
)

// fnIif is FHIRPath's conditional. The evaluator handles iif itself
// (evaluateIif) and never calls this registry entry; a direct caller passes
// args[0] as the condition's collection and args[1]/args[2] as the
// already-evaluated true/false branches, and this just picks between them.
func fnIif(_ *eval.Context, _ types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) < 2 {
		return nil, eval.InvalidArgumentsError("iif", 2, len(args))
	}

	condition := false
	if cond, ok := args[0].(types.Collection); ok && !cond.Empty() {
		if b, ok := cond[0].(types.Boolean); ok {
			condition = b.Bool()
		}
	}

	branch := args[1]
	if !condition {
		if len(args) <= 2 {
			return types.Collection{}, nil
		}
		branch = args[2]
	}
	if result, ok := branch.(types.Collection); ok {
		return result, nil
	}
	return types.Collection{}, nil
}

func fnToBoolean(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Boolean:
		return types.Collection{v}, nil
	case types.String:
		word := strings.ToLower(v.Value())
		switch {
		case trueWords[word]:
			return boolCollection(true), nil
		case falseWords[word]:
			return boolCollection(false), nil
		default:
			return types.Collection{}, nil
		}
	case types.Integer:
		switch v.Value() {
		case 1:
			return boolCollection(true), nil
		case 0:
			return boolCollection(false), nil
		default:
			return types.Collection{}, nil
		}
	case types.Decimal:
		switch {
		case v.Value().Equal(decimal.NewFromInt(1)):
			return boolCollection(true), nil
		case v.Value().Equal(decimal.NewFromInt(0)):
			return boolCollection(false), nil
		default:
			return types.Collection{}, nil
		}
	default:
		return types.Collection{}, nil
	}
}

func fnConvertsToBoolean(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	switch v := input[0].(type) {
	case types.Boolean:
		return boolCollection(true), nil
	case types.String:
		word := strings.ToLower(v.Value())
		return boolCollection(trueWords[word] || falseWords[word]), nil
	case types.Integer:
		return boolCollection(v.Value() == 0 || v.Value() == 1), nil
	case types.Decimal:
		return boolCollection(v.Value().Equal(decimal.Zero) || v.Value().Equal(decimal.NewFromInt(1))), nil
	default:
		return boolCollection(false), nil
	}
}

func fnToInteger(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Integer:
		return types.Collection{v}, nil
	case types.Boolean:
		if v.Bool() {
			return types.Collection{types.NewInteger(1)}, nil
		}
		return types.Collection{types.NewInteger(0)}, nil
	case types.String:
		i, err := strconv.ParseInt(v.Value(), 10, 64)
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{types.NewInteger(i)}, nil
	case types.Decimal:
		return types.Collection{types.NewInteger(v.Value().IntPart())}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnConvertsToInteger(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	switch v := input[0].(type) {
	case types.Integer, types.Boolean, types.Decimal:
		return boolCollection(true), nil
	case types.String:
		_, err := strconv.ParseInt(v.Value(), 10, 64)
		return boolCollection(err == nil), nil
	default:
		return boolCollection(false), nil
	}
}

func fnToDecimal(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Decimal:
		return types.Collection{v}, nil
	case types.Integer:
		return types.Collection{types.NewDecimalFromInt(v.Value())}, nil
	case types.Boolean:
		if v.Bool() {
			return types.Collection{types.NewDecimalFromInt(1)}, nil
		}
		return types.Collection{types.NewDecimalFromInt(0)}, nil
	case types.String:
		d, err := types.NewDecimal(v.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{d}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnConvertsToDecimal(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	switch v := input[0].(type) {
	case types.Decimal, types.Integer, types.Boolean:
		return boolCollection(true), nil
	case types.String:
		_, err := decimal.NewFromString(v.Value())
		return boolCollection(err == nil), nil
	default:
		return boolCollection(false), nil
	}
}

// fnToString stringifies via Value.String() directly: every primitive's
// String() already renders the canonical FHIRPath textual form.
func fnToString(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(input[0].String())}, nil
}

func fnConvertsToString(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	switch input[0].(type) {
	case types.String, types.Boolean, types.Integer, types.Decimal:
		return boolCollection(true), nil
	default:
		return boolCollection(false), nil
	}
}

func fnToDate(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	switch v := input[0].(type) {
	case types.Date:
		return types.Collection{v}, nil
	case types.DateTime:
		d, _ := types.NewDate(v.String()[:10])
		return types.Collection{d}, nil
	case types.String:
		d, err := types.NewDate(v.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{d}, nil
	default:
		return types.Collection{}, nil
	}
}

// fnConvertsToDate only checks for a String operand; it doesn't validate
// the string actually parses as a date, since the corresponding toDate()
// path is relied on elsewhere to surface a malformed value as empty.
func fnConvertsToDate(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	_, ok := input[0].(types.String)
	return boolCollection(ok), nil
}

func fnToDateTime(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if s, ok := input[0].(types.String); ok {
		dt, err := types.NewDateTime(s.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{dt}, nil
	}
	return types.Collection{}, nil
}

func fnConvertsToDateTime(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	_, ok := input[0].(types.String)
	return boolCollection(ok), nil
}

func fnToTime(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if s, ok := input[0].(types.String); ok {
		t, err := types.NewTime(s.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{t}, nil
	}
	return types.Collection{}, nil
}

func fnConvertsToTime(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	_, ok := input[0].(types.String)
	return boolCollection(ok), nil
}

// quantityUnitArg extracts toQuantity()'s optional unit argument, used when
// converting a bare Integer/Decimal (a String input like "5 'mg'" already
// carries its own unit and ignores this).
func quantityUnitArg(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	argCol, ok := args[0].(types.Collection)
	if !ok || argCol.Empty() {
		return ""
	}
	if s, ok := argCol[0].(types.String); ok {
		return s.Value()
	}
	return ""
}

func fnToQuantity(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	unit := quantityUnitArg(args)

	switch v := input[0].(type) {
	case types.Quantity:
		return types.Collection{v}, nil
	case types.Integer:
		return types.Collection{types.NewQuantityFromDecimal(decimal.NewFromInt(v.Value()), unit)}, nil
	case types.Decimal:
		return types.Collection{types.NewQuantityFromDecimal(v.Value(), unit)}, nil
	case types.String:
		q, err := types.NewQuantity(v.Value())
		if err != nil {
			return types.Collection{}, nil
		}
		return types.Collection{q}, nil
	default:
		return types.Collection{}, nil
	}
}

func fnConvertsToQuantity(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return boolCollection(false), nil
	}
	switch v := input[0].(type) {
	case types.Quantity, types.Integer, types.Decimal:
		return boolCollection(true), nil
	case types.String:
		_, err := types.NewQuantity(v.Value())
		return boolCollection(err == nil), nil
	default:
		return boolCollection(false), nil
	}
}
