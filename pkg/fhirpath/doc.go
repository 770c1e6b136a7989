// Package fhirpath evaluates FHIRPath 3.0.0 expressions against FHIR
// resources represented as JSON, without ever unmarshaling a resource into
// generated Go structs. A compiled Expression can be reused across many
// resources; EvaluateCached keeps a bounded LRU of compiled expressions
// keyed on source text for callers that only have the string form.
//
// Every evaluation result is a Collection — FHIRPath has no separate scalar
// result type, so even `Patient.active` returns a one-element Collection.
//
//	result, err := fhirpath.Evaluate(patientJSON, "name.given.first()")
//	active, err := fhirpath.EvaluateToBoolean(patientJSON, "active.exists()")
package fhirpath
