// Package ucum normalizes UCUM (Unified Code for Units of Measure) unit
// codes to a canonical per-dimension unit, so FHIRPath Quantity equality,
// comparison and division can treat "10 mg" and "0.01 g" as the same
// dimension instead of rejecting them as incompatible. Quantity addition
// and subtraction do not use it and require identical units.
//
// Reference: https://ucum.org/ucum.html
package ucum

import "strings"

// NormalizedQuantity is a quantity expressed in its dimension's canonical
// unit, e.g. {Value: 10, Code: "g"} for an input of 10000 mg.
type NormalizedQuantity struct {
	Value float64
	Code  string
}

// conversion is one UCUM code's factor relative to its dimension's
// canonical unit: multiplying a value in this code by Factor yields the
// equivalent value in CanonicalCode.
type conversion struct {
	code          string
	canonicalCode string
	factor        float64
}

// dimension groups the UCUM codes that measure the same physical quantity,
// so the conversion table below reads as UCUM's own dimension grouping
// rather than one flat alphabetical list.
type dimension struct {
	name        string
	conversions []conversion
}

var dimensions = []dimension{
	{
		name: "mass",
		conversions: []conversion{
			{code: "kg", factor: 1000},
			{code: "g", factor: 1},
			{code: "mg", factor: 0.001},
			{code: "ug", factor: 0.000001},
			{code: "ng", factor: 0.000000001},
			{code: "pg", factor: 0.000000000001},
			{code: "lb", factor: 453.59237},
			{code: "oz", factor: 28.349523125},
			{code: "[lb_av]", factor: 453.59237},
			{code: "[oz_av]", factor: 28.349523125},
		},
	},
	{
		name: "length",
		conversions: []conversion{
			{code: "km", factor: 1000},
			{code: "m", factor: 1},
			{code: "dm", factor: 0.1},
			{code: "cm", factor: 0.01},
			{code: "mm", factor: 0.001},
			{code: "um", factor: 0.000001},
			{code: "nm", factor: 0.000000001},
			{code: "[in_i]", factor: 0.0254},
			{code: "[ft_i]", factor: 0.3048},
			{code: "[yd_i]", factor: 0.9144},
			{code: "[mi_i]", factor: 1609.344},
			{code: "in", factor: 0.0254},
			{code: "ft", factor: 0.3048},
		},
	},
	{
		name: "volume",
		conversions: []conversion{
			{code: "L", factor: 1},
			{code: "l", factor: 1},
			{code: "dL", factor: 0.1},
			{code: "dl", factor: 0.1},
			{code: "cL", factor: 0.01},
			{code: "cl", factor: 0.01},
			{code: "mL", factor: 0.001},
			{code: "ml", factor: 0.001},
			{code: "uL", factor: 0.000001},
			{code: "ul", factor: 0.000001},
			{code: "[gal_us]", factor: 3.785411784},
			{code: "[qt_us]", factor: 0.946352946},
			{code: "[pt_us]", factor: 0.473176473},
			{code: "[foz_us]", factor: 0.0295735295625},
		},
	},
	{
		name: "time",
		conversions: []conversion{
			{code: "a", factor: 31557600},  // Julian year
			{code: "mo", factor: 2629800},  // 30.4375 days
			{code: "wk", factor: 604800},
			{code: "d", factor: 86400},
			{code: "h", factor: 3600},
			{code: "min", factor: 60},
			{code: "s", factor: 1},
			{code: "ms", factor: 0.001},
			{code: "us", factor: 0.000001},
			{code: "ns", factor: 0.000000001},
		},
	},
	{
		name: "temperature",
		conversions: []conversion{
			{code: "K", canonicalCode: "K", factor: 1},
			{code: "Cel", canonicalCode: "Cel", factor: 1},
			{code: "[degF]", canonicalCode: "Cel", factor: 1},
		},
	},
	{
		name: "mass concentration",
		conversions: []conversion{
			{code: "g/L", canonicalCode: "g/L", factor: 1},
			{code: "mg/L", canonicalCode: "g/L", factor: 0.001},
			{code: "ug/L", canonicalCode: "g/L", factor: 0.000001},
			{code: "ng/L", canonicalCode: "g/L", factor: 0.000000001},
			{code: "g/dL", canonicalCode: "g/L", factor: 10},
			{code: "mg/dL", canonicalCode: "g/L", factor: 0.01},
			{code: "ug/dL", canonicalCode: "g/L", factor: 0.00001},
			{code: "g/mL", canonicalCode: "g/L", factor: 1000},
			{code: "mg/mL", canonicalCode: "g/L", factor: 1},
			{code: "ug/mL", canonicalCode: "g/L", factor: 0.001},
		},
	},
	{
		name: "molar concentration",
		conversions: []conversion{
			{code: "mol/L", canonicalCode: "mol/L", factor: 1},
			{code: "mmol/L", canonicalCode: "mol/L", factor: 0.001},
			{code: "umol/L", canonicalCode: "mol/L", factor: 0.000001},
			{code: "nmol/L", canonicalCode: "mol/L", factor: 0.000000001},
			{code: "pmol/L", canonicalCode: "mol/L", factor: 0.000000000001},
		},
	},
	{
		name: "pressure",
		conversions: []conversion{
			{code: "Pa", canonicalCode: "Pa", factor: 1},
			{code: "kPa", canonicalCode: "Pa", factor: 1000},
			{code: "mm[Hg]", canonicalCode: "Pa", factor: 133.322387415},
			{code: "[psi]", canonicalCode: "Pa", factor: 6894.757293168},
		},
	},
	{
		name: "cell count",
		conversions: []conversion{
			{code: "10*9/L", canonicalCode: "10*9/L", factor: 1},
			{code: "10*12/L", canonicalCode: "10*9/L", factor: 1000},
			{code: "10*6/L", canonicalCode: "10*9/L", factor: 0.001},
			{code: "10*3/uL", canonicalCode: "10*9/L", factor: 1},
			{code: "/uL", canonicalCode: "10*9/L", factor: 0.000001},
		},
	},
	{
		name: "percentage",
		conversions: []conversion{
			{code: "%", canonicalCode: "%", factor: 1},
		},
	},
	{
		name: "rate",
		conversions: []conversion{
			{code: "/min", canonicalCode: "/min", factor: 1},
			{code: "/h", canonicalCode: "/min", factor: 1.0 / 60.0},
		},
	},
	{
		name: "international unit",
		conversions: []conversion{
			{code: "[IU]", canonicalCode: "[IU]", factor: 1},
			{code: "[IU]/L", canonicalCode: "[IU]/L", factor: 1},
			{code: "[IU]/mL", canonicalCode: "[IU]/L", factor: 1000},
			{code: "m[IU]/L", canonicalCode: "[IU]/L", factor: 0.001},
			{code: "m[IU]/mL", canonicalCode: "[IU]/L", factor: 1},
			{code: "u[IU]/mL", canonicalCode: "[IU]/L", factor: 0.001},
		},
	},
	{
		name: "energy",
		conversions: []conversion{
			{code: "J", canonicalCode: "J", factor: 1},
			{code: "kJ", canonicalCode: "J", factor: 1000},
			{code: "cal", canonicalCode: "J", factor: 4.184},
			{code: "kcal", canonicalCode: "J", factor: 4184},
			{code: "[Cal]", canonicalCode: "J", factor: 4184},
		},
	},
}

// table and foldedTable are built once from dimensions: table supports the
// exact-match lookup, foldedTable (keyed by lowercase code) backs the
// case-insensitive fallback so neither lookup has to walk dimensions at
// call time.
var (
	table       = make(map[string]conversion, 128)
	foldedTable = make(map[string]conversion, 128)
)

func init() {
	for _, dim := range dimensions {
		canonical := canonicalCodeOf(dim)
		for _, c := range dim.conversions {
			if c.canonicalCode == "" {
				c.canonicalCode = canonical
			}
			table[c.code] = c
			foldedTable[strings.ToLower(c.code)] = c
		}
	}
}

// canonicalCodeOf picks a dimension's anchor unit: whichever entry already
// names its own canonicalCode (dimensions with a compound canonical unit
// like "g/L" set this explicitly), or failing that the entry with factor 1.
func canonicalCodeOf(dim dimension) string {
	for _, c := range dim.conversions {
		if c.canonicalCode != "" {
			return c.canonicalCode
		}
	}
	for _, c := range dim.conversions {
		if c.factor == 1 {
			return c.code
		}
	}
	return dim.conversions[0].code
}

func lookup(code string) (conversion, bool) {
	if c, ok := table[code]; ok {
		return c, true
	}
	c, ok := foldedTable[strings.ToLower(code)]
	return c, ok
}

// Normalize converts a quantity to its dimension's canonical unit. An
// unrecognized code is returned unchanged rather than treated as an error,
// since callers use this for best-effort cross-unit comparison.
func Normalize(value float64, code string) NormalizedQuantity {
	c, ok := lookup(code)
	if !ok {
		return NormalizedQuantity{Value: value, Code: code}
	}
	return NormalizedQuantity{Value: value * c.factor, Code: c.canonicalCode}
}

// NormalizeWithSystem applies Normalize only when system is empty or the
// UCUM system URI; any other coding system is returned unchanged since this
// package only understands UCUM.
func NormalizeWithSystem(value float64, system, code string) NormalizedQuantity {
	if system != "" && system != "http://unitsofmeasure.org" {
		return NormalizedQuantity{Value: value, Code: code}
	}
	return Normalize(value, code)
}

// IsKnownUnit reports whether code (or a case-insensitive variant of it)
// has a registered conversion.
func IsKnownUnit(code string) bool {
	_, ok := lookup(code)
	return ok
}

// GetCanonicalUnit returns the canonical unit code for code's dimension,
// or code itself if it isn't recognized.
func GetCanonicalUnit(code string) string {
	if c, ok := lookup(code); ok {
		return c.canonicalCode
	}
	return code
}
