package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// aggregateFuncs spans several FHIRPath families (aggregate, tree
// navigation, boolean, primitive-value introspection, set combination,
// type casting) that don't individually warrant their own file.
var aggregateFuncs = []FuncDef{
	{Name: "aggregate", MinArgs: 1, MaxArgs: 2, Fn: fnAggregate},
	{Name: "children", MinArgs: 0, MaxArgs: 0, Fn: fnChildren},
	{Name: "descendants", MinArgs: 0, MaxArgs: 0, Fn: fnDescendants},
	{Name: "not", MinArgs: 0, MaxArgs: 0, Fn: fnNot},
	{Name: "hasValue", MinArgs: 0, MaxArgs: 0, Fn: fnHasValue},
	{Name: "getValue", MinArgs: 0, MaxArgs: 0, Fn: fnGetValue},
	{Name: "combine", MinArgs: 1, MaxArgs: 1, Fn: fnCombine},
	{Name: "union", MinArgs: 1, MaxArgs: 1, Fn: fnUnion},
	{Name: "as", MinArgs: 1, MaxArgs: 1, Fn: fnAs},
}

func init() {
	for _, def := range aggregateFuncs {
		Register(def)
	}
}

// fnAggregate's registry entry is never actually reached: aggregate(
// aggregator[, init]) is lambda-bearing and special-cased by the evaluator
// (evaluateAggregate) so $this/$index/$total can be rebound per iteration.
// This only fires for a caller that invokes the registry entry directly.
func fnAggregate(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("aggregate", 1, 0)
	}
	if len(args) > 1 {
		if init, ok := args[1].(types.Collection); ok {
			return init, nil
		}
	}
	return input, nil
}

func fnChildren(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		if obj, ok := item.(*types.ObjectValue); ok {
			result = append(result, obj.Children()...)
		}
	}
	return result, nil
}

// fnDescendants walks the input's children transitively, guarding against
// revisiting a node already seen (FHIR resources are trees, but aliasing
// through Bundle entries makes a plain recursive walk unsafe without it).
func fnDescendants(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	result := types.Collection{}
	seen := make(map[types.Value]bool)

	var walk func(items types.Collection)
	walk = func(items types.Collection) {
		for _, item := range items {
			if seen[item] {
				continue
			}
			seen[item] = true
			obj, ok := item.(*types.ObjectValue)
			if !ok {
				continue
			}
			children := obj.Children()
			result = append(result, children...)
			walk(children)
		}
	}

	walk(input)
	return result, nil
}

func fnNot(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if b, ok := input[0].(types.Boolean); ok {
		return types.Collection{types.NewBoolean(!b.Bool())}, nil
	}
	return types.Collection{}, nil
}

// isPrimitiveValue reports whether v is one of the FHIRPath primitive
// types a FHIR element's "value" (as opposed to its child elements/
// extensions) can hold — shared by hasValue and getValue below.
func isPrimitiveValue(v types.Value) bool {
	switch v.(type) {
	case types.Boolean, types.String, types.Integer, types.Decimal,
		types.Date, types.DateTime, types.Time:
		return true
	default:
		return false
	}
}

func fnHasValue(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	for _, item := range input {
		if isPrimitiveValue(item) {
			return types.Collection{types.NewBoolean(true)}, nil
		}
	}
	return types.Collection{types.NewBoolean(false)}, nil
}

func fnGetValue(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		if isPrimitiveValue(item) {
			result = append(result, item)
		}
	}
	return result, nil
}

func fnCombine(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	other, err := collectionArg("combine", args)
	if err != nil {
		return nil, err
	}
	result := make(types.Collection, len(input), len(input)+len(other))
	copy(result, input)
	return append(result, other...), nil
}

func fnUnion(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("union", 1, 0)
	}
	other, ok := args[0].(types.Collection)
	if !ok {
		return input, nil
	}
	return input.Union(other), nil
}

// typeNameArg extracts a type-name string from a function argument that may
// arrive as a bare string, a String Value, or a singleton Collection of
// one — the same flexible shape "as"'s type-name operand and similar
// string-or-collection arguments take throughout this package.
func typeNameArg(arg interface{}) string {
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

func fnAs(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("as", 1, 0)
	}

	typeName := typeNameArg(args[0])
	if typeName == "" || input.Empty() {
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
