package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func init() {
	defs := []FuncDef{
		{Name: "where", MinArgs: 1, MaxArgs: 1, Fn: fnWhere},
		{Name: "select", MinArgs: 1, MaxArgs: 1, Fn: fnSelect},
		{Name: "repeat", MinArgs: 1, MaxArgs: 1, Fn: fnRepeat},
		{Name: "ofType", MinArgs: 1, MaxArgs: 1, Fn: fnOfType},
	}
	for _, d := range defs {
		Register(d)
	}
}

// where, select, repeat and ofType take a sub-expression rather than a
// value argument, so the evaluator special-cases them (evaluateWhere,
// evaluateSelect, evaluateRepeat, evaluateOfType) and never calls the
// registry entries below. They run only when a caller invokes the registry
// directly, with args[0] holding already-computed results. These functions
// never see the raw AST.

// fnWhere keeps each input element whose pre-evaluated criteria result
// (args[0][i]) is the Boolean true; anything else (false, empty, a
// non-Boolean) drops the element.
func fnWhere(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("where", 1, 0)
	}

	criteria, ok := args[0].(types.Collection)
	if !ok {
		return input, nil
	}

	result := types.Collection{}
	for i, item := range input {
		if i >= len(criteria) {
			break
		}
		if b, ok := criteria[i].(types.Boolean); ok && b.Bool() {
			result = append(result, item)
		}
	}
	return result, nil
}

// fnSelect passes through the evaluator's flattened per-element projection
// results unchanged.
func fnSelect(_ *eval.Context, _ types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("select", 1, 0)
	}
	if results, ok := args[0].(types.Collection); ok {
		return results, nil
	}
	return types.Collection{}, nil
}

// fnRepeat's recursive fixed-point application lives in the evaluator
// (evaluateRepeat), which keeps re-running the sub-expression over the
// frontier of newly discovered elements until a pass adds nothing new.
// This registry entry does none of that: it requires an argument, ignores
// its value, and hands the input back unchanged.
func fnRepeat(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("repeat", 1, 0)
	}
	return input, nil
}

// typeArgName extracts the type name ofType was called with, regardless of
// whether the evaluator handed it over as a bare string, a String value, or
// a singleton Collection wrapping one.
func typeArgName(arg interface{}) string {
	switch v := arg.(type) {
	case types.Collection:
		if len(v) > 0 {
			if s, ok := v[0].(types.String); ok {
				return s.Value()
			}
		}
	case types.String:
		return v.Value()
	case string:
		return v
	}
	return ""
}

func fnOfType(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("ofType", 1, 0)
	}

	typeName := typeArgName(args[0])
	if typeName == "" {
		return types.Collection{}, nil
	}

	result := types.Collection{}
	for _, item := range input {
		if item.Type() == typeName {
			result = append(result, item)
		}
	}
	return result, nil
}
