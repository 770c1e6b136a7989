package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
)

// ObjectValue wraps a FHIR resource or complex-type JSON object without
// unmarshaling it into a Go struct: fields are pulled out of the raw bytes
// on demand via jsonparser and memoized in fields, so navigating a large
// resource for one field never pays for parsing the rest of it.
type ObjectValue struct {
	data   []byte
	fields map[string]Value
}

func NewObjectValue(data []byte) *ObjectValue {
	return &ObjectValue{data: data, fields: make(map[string]Value)}
}

// Complex-type names this package can infer structurally when a JSON object
// has no "resourceType" of its own (it's a nested FHIR complex type, not a
// resource).
const (
	typeQuantity        = "Quantity"
	typeCoding          = "Coding"
	typeCodeableConcept = "CodeableConcept"
	typeReference       = "Reference"
	typePeriod          = "Period"
	typeIdentifier      = "Identifier"
	typeRange           = "Range"
	typeRatio           = "Ratio"
	typeAttachment      = "Attachment"
	typeHumanName       = "HumanName"
	typeAddress         = "Address"
	typeContactPoint    = "ContactPoint"
	typeAnnotation      = "Annotation"
	typeObject          = "Object"
)

// complexTypeRules is checked in order after the Quantity/Coding special
// cases (which need field-absence checks a single predicate doesn't
// express cleanly); the first matching rule wins, so more specific shapes
// (CodeableConcept's "coding" array) must precede more general ones.
var complexTypeRules = []struct {
	name  string
	match func(o *ObjectValue) bool
}{
	{typeCodeableConcept, func(o *ObjectValue) bool { return o.hasArrayField("coding") }},
	{typeReference, func(o *ObjectValue) bool { return o.hasField("reference") }},
	{typePeriod, func(o *ObjectValue) bool { return o.hasField("start") || o.hasField("end") }},
	{typeIdentifier, func(o *ObjectValue) bool { return o.hasField("system") && o.hasStringField("value") }},
	{typeRange, func(o *ObjectValue) bool { return o.hasField("low") || o.hasField("high") }},
	{typeRatio, func(o *ObjectValue) bool { return o.hasField("numerator") || o.hasField("denominator") }},
	{typeAttachment, func(o *ObjectValue) bool { return o.hasField("contentType") }},
	{typeHumanName, func(o *ObjectValue) bool { return o.hasField("family") || o.hasArrayField("given") }},
	{typeAddress, func(o *ObjectValue) bool { return o.hasField("city") || o.hasField("postalCode") }},
	{typeContactPoint, func(o *ObjectValue) bool { return o.hasField("system") && o.hasField("use") }},
	{typeAnnotation, func(o *ObjectValue) bool {
		return o.hasField("text") && (o.hasField("time") || o.hasField("authorReference") || o.hasField("authorString"))
	}},
}

// Type returns an explicit "resourceType" if present, otherwise infers a
// FHIR complex-type name from the object's field shape (resources nested
// inside a Bundle entry or a backbone element carry no type tag of their
// own in the JSON).
func (o *ObjectValue) Type() string {
	if rt, err := jsonparser.GetString(o.data, "resourceType"); err == nil {
		return rt
	}
	return o.inferType()
}

func (o *ObjectValue) inferType() string {
	if o.hasField("value") && (o.hasField("unit") || o.hasField("code") || o.hasField("system")) {
		return typeQuantity
	}
	if o.hasField("system") && o.hasField("code") && !o.hasField("value") {
		return typeCoding
	}
	for _, rule := range complexTypeRules {
		if rule.match(o) {
			return rule.name
		}
	}
	return typeObject
}

func (o *ObjectValue) hasField(name string) bool {
	//nolint:dogsled // jsonparser.Get returns 4 values, we only need the error
	_, _, _, err := jsonparser.Get(o.data, name)
	return err == nil
}

func (o *ObjectValue) hasArrayField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.Array
}

func (o *ObjectValue) hasStringField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.String
}

// Equal compares the two objects' raw JSON bytes directly rather than a
// deep semantic comparison — sufficient for the evaluator's own needs
// (distinct()/union() on resource-valued collections, resolve() caching),
// since every ObjectValue here was sourced from the same document.
func (o *ObjectValue) Equal(other Value) bool {
	ov, ok := other.(*ObjectValue)
	return ok && bytes.Equal(o.data, ov.data)
}

func (o *ObjectValue) Equivalent(other Value) bool {
	return o.Equal(other)
}

func (o *ObjectValue) String() string {
	return string(o.data)
}

func (o *ObjectValue) IsEmpty() bool {
	return false
}

// Data exposes the object's raw JSON, used by the reference resolver to
// re-enter JSONToCollection on a nested/contained resource.
func (o *ObjectValue) Data() []byte {
	return o.data
}

// Get looks up a single field, memoizing the decoded Value so repeated
// navigation (e.g. inside a where() lambda run once per sibling) doesn't
// re-parse the same bytes.
func (o *ObjectValue) Get(field string) (Value, bool) {
	if v, ok := o.fields[field]; ok {
		return v, true
	}
	raw, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return nil, false
	}
	v := jsonValueToFHIRValue(raw, dataType)
	o.fields[field] = v
	return v, true
}

// GetCollection is Get normalized to FHIRPath's collection-always
// convention: a JSON array yields all of its elements, a scalar yields a
// singleton, and a missing/null field yields Empty.
func (o *ObjectValue) GetCollection(field string) Collection {
	raw, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return Collection{}
	}
	if dataType == jsonparser.Array {
		return jsonArrayToCollection(raw)
	}
	v := jsonValueToFHIRValue(raw, dataType)
	if v == nil {
		return Collection{}
	}
	return Collection{v}
}

// Keys lists the object's immediate field names, in their JSON order.
func (o *ObjectValue) Keys() []string {
	var keys []string
	//nolint:errcheck // ObjectEach only returns errors for non-objects; o.data is always a valid object
	jsonparser.ObjectEach(o.data, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		keys = append(keys, string(key))
		return nil
	})
	return keys
}

// Children flattens every field's value(s) into one Collection — the basis
// for children()/descendants().
func (o *ObjectValue) Children() Collection {
	var out Collection
	//nolint:errcheck // ObjectEach only returns errors for non-objects; o.data is always a valid object
	jsonparser.ObjectEach(o.data, func(_ []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType == jsonparser.Array {
			out = append(out, jsonArrayToCollection(value)...)
			return nil
		}
		if v := jsonValueToFHIRValue(value, dataType); v != nil {
			out = append(out, v)
		}
		return nil
	})
	return out
}

// jsonValueToFHIRValue maps one jsonparser-decoded scalar to its FHIRPath
// Value. Arrays are intentionally not handled here — callers that might see
// one go through jsonArrayToCollection instead, since an array has no
// single Value representation.
func jsonValueToFHIRValue(data []byte, dataType jsonparser.ValueType) Value {
	switch dataType {
	case jsonparser.String:
		var s string
		if err := json.Unmarshal(append([]byte{'"'}, append(data, '"')...), &s); err != nil {
			s = string(data)
		}
		return NewString(s)

	case jsonparser.Number:
		s := string(data)
		if !strings.ContainsAny(s, ".eE") {
			if i, err := jsonparser.ParseInt(data); err == nil {
				return NewInteger(i)
			}
		}
		d, err := NewDecimal(s)
		if err != nil {
			return nil
		}
		return d

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return nil
		}
		return NewBoolean(b)

	case jsonparser.Object:
		return NewObjectValue(data)

	default: // Array, Null, NotExist
		return nil
	}
}

func jsonArrayToCollection(data []byte) Collection {
	var out Collection
	//nolint:errcheck // ArrayEach only returns errors for non-arrays; data is already validated as array
	jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if v := jsonValueToFHIRValue(value, dataType); v != nil {
			out = append(out, v)
		}
	})
	return out
}

// JSONToCollection is the entry point from raw resource bytes into the
// value model: an object becomes a singleton, an array becomes its
// elements, null becomes Empty, and a bare scalar becomes a singleton of
// the matching primitive type.
func JSONToCollection(data []byte) (Collection, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, err
	}

	switch dataType {
	case jsonparser.Object:
		return Collection{NewObjectValue(value)}, nil
	case jsonparser.Array:
		return jsonArrayToCollection(value), nil
	case jsonparser.Null:
		return Collection{}, nil
	default:
		v := jsonValueToFHIRValue(value, dataType)
		if v == nil {
			return Collection{}, nil
		}
		return Collection{v}, nil
	}
}

// ToQuantity reinterprets this object as a FHIR Quantity complex type
// (fields "value" plus "unit" or "code"), used by FHIR-aware conversion
// functions that accept either a System.Quantity or a Quantity-shaped
// resource field. ok is false when "value" is missing or non-numeric.
func (o *ObjectValue) ToQuantity() (Quantity, bool) {
	raw, dataType, _, err := jsonparser.Get(o.data, "value")
	if err != nil || dataType != jsonparser.Number {
		return Quantity{}, false
	}

	val, err := decimal.NewFromString(string(raw))
	if err != nil {
		return Quantity{}, false
	}

	unit := ""
	if unitBytes, _, _, err := jsonparser.Get(o.data, "unit"); err == nil {
		unit = string(unitBytes)
	} else if codeBytes, _, _, err := jsonparser.Get(o.data, "code"); err == nil {
		unit = string(codeBytes)
	}

	return NewQuantityFromDecimal(val, unit), true
}
