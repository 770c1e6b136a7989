// Package funcs provides FHIRPath function implementations.
// This file contains the type checking functions is(), type() and
// conformsTo(); as() is registered in aggregate.go.
//
// According to FHIRPath specification:
// - is(type): Returns true if the input is of the specified type
// - as(type): Returns the input if it is of the specified type, otherwise empty
//
// These functions are equivalent to the 'is' and 'as' operators but in function form.
// Example: Patient.name.first().is(HumanName) is equivalent to Patient.name.first() is HumanName
package funcs

import (
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func init() {
	// Register type checking functions
	// Note: These are handled specially in the evaluator to extract type names
	// directly from the expression AST, rather than evaluating them as expressions.
	// This is necessary because type names like "Composition" or "Patient" would
	// otherwise be interpreted as path expressions.
	Register(FuncDef{
		Name:    "is",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnIsType,
	})

	// Note: as() with function syntax is also handled specially in the evaluator.
	// The fnAs in aggregate.go handles evaluated string arguments,
	// but the evaluator intercepts as(TypeName) calls directly.

	Register(FuncDef{
		Name:    "type",
		MinArgs: 0,
		MaxArgs: 0,
		Fn:      fnType,
	})

	Register(FuncDef{
		Name:    "conformsTo",
		MinArgs: 1,
		MaxArgs: 1,
		Fn:      fnConformsTo,
	})
}

// systemTypes are the types with no FHIR-specific namespace; everything
// else is reported under the FHIR namespace.
var systemTypes = map[string]bool{
	"Boolean": true, "String": true, "Integer": true, "Long": true,
	"Decimal": true, "Date": true, "DateTime": true, "Time": true,
	"Quantity": true,
}

// fnType returns the namespace-qualified type name of the input (e.g.
// "System.Integer" or "FHIR.Patient").
func fnType(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}
	name := input[0].Type()
	namespace := "FHIR"
	if systemTypes[name] {
		namespace = "System"
	}
	return types.Collection{types.NewString(namespace + "." + name)}, nil
}

// fnConformsTo reports whether the input resource conforms to the given
// profile URL. Without a ModelProvider able to answer it, conformance is
// unknown and this returns false rather than erroring.
func fnConformsTo(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}
	profileURL, ok := toStringArg(args[0])
	if !ok {
		return nil, eval.TypeError("String", "unknown", "conformsTo")
	}

	checker, ok := ctx.GetModelProvider().(eval.ConformsToChecker)
	if !ok {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	conforms, err := checker.ConformsTo(ctx.Context(), input[0], profileURL)
	if err != nil {
		return types.Collection{types.NewBoolean(false)}, nil
	}
	return types.Collection{types.NewBoolean(conforms)}, nil
}

// fnIsType is the function implementation for is().
// Note: for is(TypeName) the evaluator extracts the type name from the AST
// and passes it here as a plain string instead of evaluating the argument.
func fnIsType(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if len(args) == 0 {
		return nil, eval.InvalidArgumentsError("is", 1, 0)
	}

	// Empty input returns empty
	if input.Empty() {
		return types.Collection{}, nil
	}

	// is() requires singleton input
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}

	// Try to extract type name from argument
	typeName := extractTypeName(args[0])
	if typeName == "" {
		return types.Collection{}, nil
	}

	// Get actual type
	actualType := input[0].Type()

	// Use the exported TypeMatches function from eval package
	matches := eval.TypeMatches(actualType, typeName)
	return types.Collection{types.NewBoolean(matches)}, nil
}

// extractTypeName extracts a type name from a function argument.
func extractTypeName(arg interface{}) string {
	switch v := arg.(type) {
	case string:
		return v
	case types.String:
		return v.Value()
	case types.Collection:
		if len(v) > 0 {
			if s, ok := v[0].(types.String); ok {
				return s.Value()
			}
		}
	}
	return ""
}
