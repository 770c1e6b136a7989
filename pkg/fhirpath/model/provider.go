// Package model defines the ModelProvider contract: the type/path metadata
// interface the evaluator consults for is/as/ofType and conformsTo. Its
// ChoiceVariants metadata is not used by the evaluator's path navigation,
// which probes its own fixed value[x] suffix list. A missing provider
// degrades gracefully to "no subtype relationships beyond the built-in
// hierarchy" rather than failing evaluation.
package model

import (
	"context"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
)

// FieldInfo describes a single declared field of a container type.
type FieldInfo struct {
	Name     string
	Type     string
	MinCard  int
	MaxCard  int // -1 means unbounded
	IsChoice bool
}

// ChoiceVariant is one member of a value[x]-style choice field, e.g.
// ("valueQuantity", "Quantity") for the base field "value".
type ChoiceVariant struct {
	FieldName string
	TypeName  string
}

// Provider supplies type and path metadata to the evaluator. All operations
// may be implemented against a network-backed terminology/package service;
// callers must await without holding evaluator-critical locks.
type Provider interface {
	// TypeOf returns the declared FHIRPath/FHIR type name of a resource.
	TypeOf(ctx context.Context, resource interface{}) (string, error)
	// IsSubtypeOf reports whether concrete is a subtype of (or equal to) base.
	IsSubtypeOf(ctx context.Context, concrete, base string) (bool, error)
	// ChildType returns field metadata for containerType.fieldName, if declared.
	ChildType(ctx context.Context, containerType, fieldName string) (FieldInfo, bool, error)
	// ChoiceVariants returns the known value[x]-style expansions of baseField
	// on containerType (e.g. "value" -> valueString:String, valueQuantity:Quantity).
	ChoiceVariants(ctx context.Context, containerType, baseField string) ([]ChoiceVariant, error)
	// ConformsTo reports whether resource conforms to the given profile URL.
	// Returns false, not an error, if the provider lacks the profile.
	ConformsTo(ctx context.Context, resource interface{}, profileURL string) (bool, error)
}

// NullProvider is the zero-knowledge Provider: no subtype relationships
// beyond what the engine's built-in type hierarchy already recognizes
// (see eval.IsSubtypeOf/eval.TypeMatches), a fixed common list for the
// "value" choice field only, and ConformsTo always false. Used when the caller supplies no richer provider.
type NullProvider struct{}

// TypeOf always defers to the value's own Type() via the caller; NullProvider
// cannot introspect an opaque resource handle, so it returns "".
func (NullProvider) TypeOf(_ context.Context, _ interface{}) (string, error) {
	return "", nil
}

// IsSubtypeOf falls back to the engine's built-in FHIR/System type hierarchy.
func (NullProvider) IsSubtypeOf(_ context.Context, concrete, base string) (bool, error) {
	return eval.IsSubtypeOf(concrete, base), nil
}

// ChildType reports no declared fields: path navigation under NullProvider
// relies entirely on the resource's own JSON structure, not declared schema.
func (NullProvider) ChildType(_ context.Context, _, _ string) (FieldInfo, bool, error) {
	return FieldInfo{}, false, nil
}

// ChoiceVariants falls back to the common FHIR value[x] primitive/complex
// type list, since this expansion is stable across FHIR releases for the
// base "value" field; any other base field gets no variants.
func (NullProvider) ChoiceVariants(_ context.Context, _, baseField string) ([]ChoiceVariant, error) {
	if baseField != "value" {
		return nil, nil
	}
	variants := make([]ChoiceVariant, 0, len(commonValueTypes))
	for _, t := range commonValueTypes {
		variants = append(variants, ChoiceVariant{FieldName: "value" + t, TypeName: t})
	}
	return variants, nil
}

// ConformsTo always returns false: profile conformance requires a
// StructureDefinition the NullProvider does not have access to.
func (NullProvider) ConformsTo(_ context.Context, _ interface{}, _ string) (bool, error) {
	return false, nil
}

// commonValueTypes are the FHIR R4/R5 types that commonly appear as the
// "value" choice of Extension.value[x] and Observation.value[x].
var commonValueTypes = []string{
	"String", "Boolean", "Integer", "Decimal", "Uri", "Url", "Canonical",
	"Code", "Date", "DateTime", "Time", "Instant", "Quantity", "Coding",
	"CodeableConcept", "Reference", "Identifier", "Period", "Range",
	"Ratio", "Attachment", "HumanName", "Address", "ContactPoint", "Annotation",
}
