package fhirpath

import "github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"

// Evaluate compiles expr and evaluates it against resource in one step.
// Prefer Compile/EvaluateCached when the same expr will run repeatedly.
func Evaluate(resource []byte, expr string) (types.Collection, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}

// MustEvaluate is Evaluate but panics on error.
func MustEvaluate(resource []byte, expr string) types.Collection {
	result, err := Evaluate(resource, expr)
	if err != nil {
		panic(err)
	}
	return result
}

// Compile parses expr into a reusable Expression.
func Compile(expr string) (*Expression, error) {
	return compile(expr)
}

// MustCompile is Compile but panics on error.
func MustCompile(expr string) *Expression {
	compiled, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}
