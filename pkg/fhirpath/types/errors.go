package types

import "fmt"

// TypeError reports a Comparable.Compare call made between two values whose
// FHIRPath types cannot be ordered against each other (e.g. comparing a
// String to a Quantity). It is distinct from eval.EvalError's ErrType: this
// one is raised inside the value model itself, before the evaluator ever
// sees it, and is always wrapped by the caller into an EvalError.
type TypeError struct {
	Operation string
	Expected  string
	Actual    string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error in %s: expected %s, got %s", e.Operation, e.Expected, e.Actual)
}

// NewTypeError builds a TypeError for a failed Compare between Expected and
// Actual FHIRPath type names during Operation.
func NewTypeError(expected, actual, operation string) *TypeError {
	return &TypeError{Operation: operation, Expected: expected, Actual: actual}
}
