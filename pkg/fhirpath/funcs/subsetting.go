package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// subsettingFuncs lists the FuncDefs this file contributes; registering off
// a slice keeps the individual Register calls from reading as a wall of
// near-identical struct literals.
var subsettingFuncs = []FuncDef{
	{Name: "first", MinArgs: 0, MaxArgs: 0, Fn: fnFirst},
	{Name: "last", MinArgs: 0, MaxArgs: 0, Fn: fnLast},
	{Name: "tail", MinArgs: 0, MaxArgs: 0, Fn: fnTail},
	{Name: "skip", MinArgs: 1, MaxArgs: 1, Fn: fnSkip},
	{Name: "take", MinArgs: 1, MaxArgs: 1, Fn: fnTake},
	{Name: "single", MinArgs: 0, MaxArgs: 0, Fn: fnSingle},
	{Name: "intersect", MinArgs: 1, MaxArgs: 1, Fn: fnIntersect},
	{Name: "exclude", MinArgs: 1, MaxArgs: 1, Fn: fnExclude},
	{Name: "sort", MinArgs: 0, MaxArgs: -1, Fn: fnSort},
}

func init() {
	for _, def := range subsettingFuncs {
		Register(def)
	}
}

// fnSort's registry entry is never actually invoked: sort(key...) is
// lambda-bearing and special-cased by the evaluator (evaluateSort) so each
// key expression can be run per element with $this bound. This stands in
// only for a caller that dispatches through the registry directly.
func fnSort(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return input, nil
}

func fnFirst(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if first, ok := input.First(); ok {
		return types.Collection{first}, nil
	}
	return types.Collection{}, nil
}

func fnLast(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if last, ok := input.Last(); ok {
		return types.Collection{last}, nil
	}
	return types.Collection{}, nil
}

func fnTail(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return input.Tail(), nil
}

// collectionArg requires args[0] to be present and castable to
// types.Collection, reporting fnName in both failure cases; intersect and
// exclude share this exact shape.
func collectionArg(fnName string, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError(fnName, 1, 0)
	}
	other, ok := args[0].(types.Collection)
	if !ok {
		return nil, eval.TypeError("Collection", "unknown", fnName)
	}
	return other, nil
}

// countArg requires args[0] to be present and convertible to an integer via
// toInteger, reporting fnName on failure; skip and take share this shape.
func countArg(fnName string, args []interface{}) (int, error) {
	if len(args) == 0 {
		return 0, eval.InvalidArgumentsError(fnName, 1, 0)
	}
	n, err := toInteger(args[0])
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func fnSkip(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	n, err := countArg("skip", args)
	if err != nil {
		return nil, err
	}
	return input.Skip(n), nil
}

func fnTake(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	n, err := countArg("take", args)
	if err != nil {
		return nil, err
	}
	return input.Take(n), nil
}

func fnSingle(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	single, err := input.Single()
	if err != nil {
		return nil, eval.NewEvalError(eval.ErrSingletonExpected, err.Error())
	}
	return types.Collection{single}, nil
}

func fnIntersect(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := collectionArg("intersect", args)
	if err != nil {
		return nil, err
	}
	return input.Intersect(other), nil
}

func fnExclude(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := collectionArg("exclude", args)
	if err != nil {
		return nil, err
	}
	return input.Exclude(other), nil
}

// toInteger coerces an argument — a bare int/int64, an Integer Value, or a
// Collection wrapping a single Integer — to int64, the shape every
// count-like function argument (skip, take, round's precision, ...) arrives
// in depending on whether the evaluator passed a raw literal or a
// collection result.
func toInteger(arg interface{}) (int64, error) {
	switch v := arg.(type) {
	case types.Collection:
		if v.Empty() {
			return 0, eval.NewEvalError(eval.ErrType, "expected integer, got empty collection")
		}
		if i, ok := v[0].(types.Integer); ok {
			return i.Value(), nil
		}
		return 0, eval.TypeError("Integer", v[0].Type(), "argument")
	case types.Integer:
		return v.Value(), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, eval.NewEvalError(eval.ErrType, "expected integer")
	}
}
