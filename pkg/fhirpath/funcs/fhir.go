package funcs

import (
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// fhirFuncs are the FHIR-resource-shaped functions: reference resolution,
// extension lookup, and reference-key parsing. None of these are in core
// FHIRPath; they exist because resources carry Reference/Extension as
// first-class element shapes.
var fhirFuncs = []FuncDef{
	{Name: "resolve", MinArgs: 0, MaxArgs: 0, Fn: fnResolve},
	{Name: "extension", MinArgs: 1, MaxArgs: 1, Fn: fnExtension},
	{Name: "hasExtension", MinArgs: 1, MaxArgs: 1, Fn: fnHasExtension},
	{Name: "getExtensionValue", MinArgs: 1, MaxArgs: 1, Fn: fnGetExtensionValue},
	{Name: "getReferenceKey", MinArgs: 0, MaxArgs: 1, Fn: fnGetReferenceKey},
}

func init() {
	for _, def := range fhirFuncs {
		Register(def)
	}
}

// referenceString pulls the reference URL out of either a bare String
// element or a Reference object's "reference" field — the two shapes
// resolve() and getReferenceKey() both accept as input.
func referenceString(item types.Value) string {
	switch v := item.(type) {
	case types.String:
		return v.Value()
	case *types.ObjectValue:
		if ref, ok := v.Get("reference"); ok {
			if refStr, ok := ref.(types.String); ok {
				return refStr.Value()
			}
		}
	}
	return ""
}

// stringArg pulls a plain string out of an argument shaped as a singleton
// Collection of String — the evaluator's standard way of passing a
// string-literal argument through to a function.
func stringArg(arg interface{}) string {
	col, ok := arg.(types.Collection)
	if !ok || col.Empty() {
		return ""
	}
	if str, ok := col[0].(types.String); ok {
		return str.Value()
	}
	return ""
}

// fnResolve resolves a FHIR reference to the referenced resource.
// Resolution is tried locally first: contained resources via #id, and
// Bundle entries via fullUrl or Type/id matching. Only when no local match
// exists does it fall back to a caller-configured Resolver, which may
// itself perform network I/O; absent one, an unresolved reference yields
// Empty rather than an error.
func fnResolve(ctx *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	resolver := ctx.GetResolver()
	result := types.Collection{}

	for _, item := range input {
		reference := referenceString(item)
		if reference == "" {
			continue
		}

		if local, ok := ctx.LocalResolve(reference); ok {
			result = append(result, local...)
			continue
		}
		if resolver == nil {
			continue
		}

		resourceJSON, err := resolver.Resolve(ctx.Context(), reference)
		if err != nil {
			continue
		}
		col, err := types.JSONToCollection(resourceJSON)
		if err != nil {
			continue
		}
		result = append(result, col...)
	}

	return result, nil
}

// fnExtension returns extensions matching the given URL.
func fnExtension(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() || len(args) == 0 {
		return types.Collection{}, nil
	}

	url := stringArg(args[0])
	if url == "" {
		return types.Collection{}, nil
	}

	result := types.Collection{}
	for _, item := range input {
		obj, ok := item.(*types.ObjectValue)
		if !ok {
			continue
		}
		for _, ext := range obj.GetCollection("extension") {
			extObj, ok := ext.(*types.ObjectValue)
			if !ok {
				continue
			}
			extURL, ok := extObj.Get("url")
			if !ok {
				continue
			}
			if urlStr, ok := extURL.(types.String); ok && urlStr.Value() == url {
				result = append(result, extObj)
			}
		}
	}

	return result, nil
}

func fnHasExtension(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	extensions, err := fnExtension(ctx, input, args)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewBoolean(!extensions.Empty())}, nil
}

// valueFieldNames lists the value[x] choice-type expansions an Extension's
// value can arrive under — the subset relevant to extension payloads (the
// full table used for general polymorphic navigation is eval's
// polymorphicTypeSuffixes, §4.6 of the spec).
var valueFieldNames = []string{
	"valueString", "valueBoolean", "valueInteger", "valueDecimal",
	"valueDate", "valueDateTime", "valueTime", "valueCode",
	"valueCoding", "valueCodeableConcept", "valueQuantity",
	"valueReference", "valueIdentifier", "valuePeriod",
	"valueRange", "valueRatio", "valueAttachment",
	"valueUri", "valueUrl", "valueCanonical",
}

func fnGetExtensionValue(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	extensions, err := fnExtension(ctx, input, args)
	if err != nil {
		return nil, err
	}

	result := types.Collection{}
	for _, ext := range extensions {
		extObj, ok := ext.(*types.ObjectValue)
		if !ok {
			continue
		}
		for _, field := range valueFieldNames {
			if val, ok := extObj.Get(field); ok {
				result = append(result, val)
				break
			}
		}
	}

	return result, nil
}

// collapseReferenceURL strips a full resolution URL down to "Type/id" by
// keeping only the last two path segments, e.g.
// "http://example.org/fhir/Patient/123" -> "Patient/123".
func collapseReferenceURL(reference string) string {
	idx := strings.LastIndex(reference, "/")
	if idx <= 0 {
		return reference
	}
	beforeSlash := reference[:idx]
	lastSlashBefore := strings.LastIndex(beforeSlash, "/")
	if lastSlashBefore < 0 {
		return reference
	}
	return beforeSlash[lastSlashBefore+1:] + "/" + reference[idx+1:]
}

// fnGetReferenceKey extracts the resource type and ID from a reference.
// Returns a string in the format "ResourceType/id" or just "id" if no type
// prefix, or either part alone when asked for "type" or "id" specifically.
func fnGetReferenceKey(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}

	part := "key"
	if len(args) > 0 {
		if p := stringArg(args[0]); p != "" {
			part = p
		}
	}

	result := types.Collection{}
	for _, item := range input {
		reference := referenceString(item)
		if reference == "" {
			continue
		}
		reference = collapseReferenceURL(reference)

		switch part {
		case "type":
			if idx := strings.Index(reference, "/"); idx > 0 {
				result = append(result, types.NewString(reference[:idx]))
			}
		case "id":
			if idx := strings.LastIndex(reference, "/"); idx >= 0 {
				result = append(result, types.NewString(reference[idx+1:]))
			} else {
				result = append(result, types.NewString(reference))
			}
		default:
			result = append(result, types.NewString(reference))
		}
	}

	return result, nil
}
