package fhirpath

import (
	"encoding/json"
	"fmt"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// Collection re-exports types.Collection so callers of this package don't
// need a second import for the evaluation result type.
type Collection = types.Collection

// Value re-exports types.Value for the same reason.
type Value = types.Value

// Resource is any Go type that can identify its own FHIR resourceType,
// letting EvaluateResource marshal it to JSON and evaluate without the
// caller serializing by hand.
type Resource interface {
	GetResourceType() string
}

func marshalResource(resource Resource) ([]byte, error) {
	jsonBytes, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return jsonBytes, nil
}

// EvaluateResource marshals resource to JSON and evaluates expr against it.
// Prefer NewResourceJSON when evaluating several expressions against the
// same resource, to avoid re-marshaling each time.
func EvaluateResource(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := marshalResource(resource)
	if err != nil {
		return nil, err
	}
	return Evaluate(jsonBytes, expr)
}

// EvaluateResourceCached is EvaluateResource routed through DefaultCache.
func EvaluateResourceCached(resource Resource, expr string) (Collection, error) {
	jsonBytes, err := marshalResource(resource)
	if err != nil {
		return nil, err
	}
	return EvaluateCached(jsonBytes, expr)
}

// ResourceJSON pairs a Go resource with its marshaled JSON so repeated
// evaluations against it skip re-marshaling.
type ResourceJSON struct {
	resource Resource
	json     []byte
}

func NewResourceJSON(resource Resource) (*ResourceJSON, error) {
	jsonBytes, err := marshalResource(resource)
	if err != nil {
		return nil, err
	}
	return &ResourceJSON{resource: resource, json: jsonBytes}, nil
}

// MustNewResourceJSON is NewResourceJSON but panics on a marshal error.
func MustNewResourceJSON(resource Resource) *ResourceJSON {
	rj, err := NewResourceJSON(resource)
	if err != nil {
		panic(err)
	}
	return rj
}

func (r *ResourceJSON) Evaluate(expr string) (Collection, error) {
	return Evaluate(r.json, expr)
}

func (r *ResourceJSON) EvaluateCached(expr string) (Collection, error) {
	return EvaluateCached(r.json, expr)
}

func (r *ResourceJSON) JSON() []byte {
	return r.json
}

func (r *ResourceJSON) Resource() Resource {
	return r.resource
}

// singleResult returns result's lone element, or an error naming its actual
// length — the shared guard behind EvaluateToBoolean and EvaluateToString,
// both of which require exactly one value to make sense of their target type.
func singleResult(result Collection) (Value, bool, error) {
	switch len(result) {
	case 0:
		return nil, false, nil
	case 1:
		return result[0], true, nil
	default:
		return nil, false, fmt.Errorf("expected a single value, got %d", len(result))
	}
}

// EvaluateToBoolean evaluates expr and reports its single Boolean result.
// An empty result yields (false, nil); a non-Boolean or multi-valued result
// is an error.
func EvaluateToBoolean(resource []byte, expr string) (bool, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return false, err
	}
	v, ok, err := singleResult(result)
	if err != nil || !ok {
		return false, err
	}
	b, ok := v.(types.Boolean)
	if !ok {
		return false, fmt.Errorf("expected Boolean, got %s", v.Type())
	}
	return b.Bool(), nil
}

// EvaluateToString evaluates expr and renders its single result as a string,
// using types.String.Value() directly when the result already is a String
// so no quoting or formatting is added.
func EvaluateToString(resource []byte, expr string) (string, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return "", err
	}
	v, ok, err := singleResult(result)
	if err != nil || !ok {
		return "", err
	}
	if s, ok := v.(types.String); ok {
		return s.Value(), nil
	}
	return v.String(), nil
}

// EvaluateToStrings evaluates expr and renders every result as a string,
// in result order.
func EvaluateToStrings(resource []byte, expr string) ([]string, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(result))
	for i, v := range result {
		if s, ok := v.(types.String); ok {
			out[i] = s.Value()
		} else {
			out[i] = v.String()
		}
	}
	return out, nil
}

// Exists reports whether expr produces any result at all.
func Exists(resource []byte, expr string) (bool, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return false, err
	}
	return !result.Empty(), nil
}

// Count reports how many results expr produces.
func Count(resource []byte, expr string) (int, error) {
	result, err := EvaluateCached(resource, expr)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}
