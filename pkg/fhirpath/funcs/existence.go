package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func init() {
	defs := []FuncDef{
		{Name: "empty", MinArgs: 0, MaxArgs: 0, Fn: fnEmpty},
		{Name: "exists", MinArgs: 0, MaxArgs: 1, Fn: fnExists},
		{Name: "all", MinArgs: 1, MaxArgs: 1, Fn: fnAll},
		{Name: "allTrue", MinArgs: 0, MaxArgs: 0, Fn: fnAllTrue},
		{Name: "anyTrue", MinArgs: 0, MaxArgs: 0, Fn: fnAnyTrue},
		{Name: "allFalse", MinArgs: 0, MaxArgs: 0, Fn: fnAllFalse},
		{Name: "anyFalse", MinArgs: 0, MaxArgs: 0, Fn: fnAnyFalse},
		{Name: "count", MinArgs: 0, MaxArgs: 0, Fn: fnCount},
		{Name: "distinct", MinArgs: 0, MaxArgs: 0, Fn: fnDistinct},
		{Name: "isDistinct", MinArgs: 0, MaxArgs: 0, Fn: fnIsDistinct},
		{Name: "subsetOf", MinArgs: 1, MaxArgs: 1, Fn: fnSubsetOf},
		{Name: "supersetOf", MinArgs: 1, MaxArgs: 1, Fn: fnSupersetOf},
	}
	for _, d := range defs {
		Register(d)
	}
}

// boolResult is the shared TrueCollection/FalseCollection wrapper every
// predicate function in this file returns through.
func boolResult(b bool) types.Collection {
	if b {
		return types.TrueCollection
	}
	return types.FalseCollection
}

func fnEmpty(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(input.Empty()), nil
}

// fnExists reports whether input is non-empty. exists(criteria) is handled
// entirely by the evaluator (evaluateExists), so the evaluator reaches this
// function only for the argument-free form; any argument is ignored.
func fnExists(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(!input.Empty()), nil
}

// fnAll always answers true: like exists(criteria), all(criteria) is
// evaluated and short-circuited by the evaluator itself (evaluateAll), which
// never calls this registry entry. A direct call gets true whatever its
// input, the vacuous answer a for-all over no elements gives.
func fnAll(_ *eval.Context, _ types.Collection, _ []interface{}) (types.Collection, error) {
	return types.TrueCollection, nil
}

func fnAllTrue(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(input.Empty() || input.AllTrue()), nil
}

func fnAnyTrue(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(!input.Empty() && input.AnyTrue()), nil
}

func fnAllFalse(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(input.Empty() || input.AllFalse()), nil
}

func fnAnyFalse(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(!input.Empty() && input.AnyFalse()), nil
}

func fnCount(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return types.Collection{types.GetInteger(int64(input.Count()))}, nil
}

func fnDistinct(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return input.Distinct(), nil
}

func fnIsDistinct(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return boolResult(input.IsDistinct()), nil
}

// setArg extracts the single Collection argument required by subsetOf and
// supersetOf, since both take exactly one collection-typed operand.
func setArg(fn string, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError(fn, 1, 0)
	}
	other, ok := args[0].(types.Collection)
	if !ok {
		return nil, eval.TypeError("Collection", "unknown", fn)
	}
	return other, nil
}

// fnSubsetOf reports whether every element of input appears in args[0].
func fnSubsetOf(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := setArg("subsetOf", args)
	if err != nil {
		return nil, err
	}
	for _, item := range input {
		if !other.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}

// fnSupersetOf reports whether every element of args[0] appears in input.
func fnSupersetOf(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := setArg("supersetOf", args)
	if err != nil {
		return nil, err
	}
	for _, item := range other {
		if !input.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}
