package fhirpath_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// Test evaluating FHIRPath against JSON bytes
func TestEvaluateJSON(t *testing.T) {
	patient := []byte(`{
		"resourceType": "Patient",
		"id": "example",
		"active": true,
		"name": [
			{
				"use": "official",
				"family": "Smith",
				"given": ["John", "James"]
			}
		],
		"birthDate": "1990-01-15"
	}`)

	tests := []struct {
		name      string
		expr      string
		wantCount int
		wantFirst string
		wantBool  *bool
	}{
		{
			name:      "simple path",
			expr:      "Patient.id",
			wantCount: 1,
			wantFirst: "example",
		},
		{
			name:      "nested path",
			expr:      "Patient.name.family",
			wantCount: 1,
			wantFirst: "Smith",
		},
		{
			name:      "array access",
			expr:      "Patient.name.given",
			wantCount: 2,
			wantFirst: "John",
		},
		{
			name:      "first function",
			expr:      "Patient.name.given.first()",
			wantCount: 1,
			wantFirst: "John",
		},
		{
			name:      "count function",
			expr:      "Patient.name.given.count()",
			wantCount: 1,
			wantFirst: "2",
		},
		{
			name:      "exists function",
			expr:      "Patient.name.exists()",
			wantCount: 1,
			wantBool:  boolPtr(true),
		},
		{
			name:      "empty check",
			expr:      "Patient.telecom.empty()",
			wantCount: 1,
			wantBool:  boolPtr(true),
		},
		{
			name:      "where filter",
			expr:      "Patient.name.where(use = 'official').family",
			wantCount: 1,
			wantFirst: "Smith",
		},
		{
			name:      "boolean field",
			expr:      "Patient.active",
			wantCount: 1,
			wantBool:  boolPtr(true),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := fhirpath.Evaluate(patient, tt.expr)
			require.NoError(t, err)
			assert.Len(t, result, tt.wantCount)

			if tt.wantFirst != "" && len(result) > 0 {
				assert.Equal(t, tt.wantFirst, result[0].String())
			}

			if tt.wantBool != nil && len(result) > 0 {
				got, err := result.ToBoolean()
				require.NoError(t, err)
				assert.Equal(t, *tt.wantBool, got)
			}
		})
	}
}

// localPatient is a minimal hand-rolled Resource used to exercise
// EvaluateResource/NewResourceJSON without depending on generated FHIR
// resource types, which are out of this engine's scope (spec.md's
// "producing FHIR resources" Non-goal).
type localPatient struct {
	ID     string             `json:"id"`
	Active bool               `json:"active"`
	Name   []localHumanName   `json:"name,omitempty"`
}

type localHumanName struct {
	Use    string   `json:"use,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

func (p *localPatient) GetResourceType() string { return "Patient" }

func (p *localPatient) MarshalJSON() ([]byte, error) {
	type alias localPatient
	return json.Marshal(struct {
		ResourceType string `json:"resourceType"`
		*alias
	}{
		ResourceType: p.GetResourceType(),
		alias:        (*alias)(p),
	})
}

// Test evaluating against Go structs using EvaluateResource
func TestEvaluateResource(t *testing.T) {
	patient := &localPatient{
		ID:     "test-patient",
		Active: true,
		Name: []localHumanName{
			{Use: "official", Family: "Doe", Given: []string{"Jane", "Marie"}},
		},
	}

	result, err := fhirpath.EvaluateResource(patient, "Patient.name.given.first()")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Jane", result[0].String())

	jsonBytes, err := json.Marshal(patient)
	require.NoError(t, err)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonBytes, &data))
	assert.Equal(t, "Patient", data["resourceType"])
}

// Test ResourceJSON wrapper for efficient repeated evaluation
func TestResourceJSON(t *testing.T) {
	patient := &localPatient{
		ID:   "cached-patient",
		Name: []localHumanName{{Family: "Cached"}},
	}

	rj, err := fhirpath.NewResourceJSON(patient)
	require.NoError(t, err)

	expressions := []string{
		"Patient.id",
		"Patient.name.family",
		"Patient.name.exists()",
	}

	for _, expr := range expressions {
		result, err := rj.EvaluateCached(expr)
		assert.NoError(t, err, expr)
		assert.False(t, result.Empty(), expr)
	}
}

// Test expression caching
func TestExpressionCache(t *testing.T) {
	cache := fhirpath.NewExpressionCache(100)

	patient := []byte(`{"resourceType": "Patient", "id": "test"}`)

	expr1, err := cache.Get("Patient.id")
	require.NoError(t, err)

	expr2, err := cache.Get("Patient.id")
	require.NoError(t, err)

	assert.Same(t, expr1, expr2, "cache should return same expression instance")

	result, err := expr1.Evaluate(patient)
	require.NoError(t, err)
	assert.Equal(t, "test", result[0].String())

	assert.Equal(t, 1, cache.Size())
}

// Test evaluation with options
func TestEvaluateWithOptions(t *testing.T) {
	patient := []byte(`{
		"resourceType": "Patient",
		"id": "options-test",
		"name": [{"family": "Test"}]
	}`)

	expr := fhirpath.MustCompile("Patient.id")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := expr.EvaluateWithOptions(patient,
		fhirpath.WithContext(ctx),
		fhirpath.WithTimeout(1*time.Second),
		fhirpath.WithMaxDepth(50),
	)
	require.NoError(t, err)
	assert.Equal(t, "options-test", result[0].String())
}

// Test helper functions
func TestHelperFunctions(t *testing.T) {
	patient := []byte(`{
		"resourceType": "Patient",
		"id": "helper-test",
		"active": true,
		"name": [{"family": "Helper"}, {"family": "Test"}]
	}`)

	t.Run("EvaluateToBoolean", func(t *testing.T) {
		result, err := fhirpath.EvaluateToBoolean(patient, "Patient.active")
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("EvaluateToString", func(t *testing.T) {
		result, err := fhirpath.EvaluateToString(patient, "Patient.id")
		require.NoError(t, err)
		assert.Equal(t, "helper-test", result)
	})

	t.Run("EvaluateToStrings", func(t *testing.T) {
		result, err := fhirpath.EvaluateToStrings(patient, "Patient.name.family")
		require.NoError(t, err)
		assert.Len(t, result, 2)
	})

	t.Run("Exists", func(t *testing.T) {
		result, err := fhirpath.Exists(patient, "Patient.name")
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("Count", func(t *testing.T) {
		result, err := fhirpath.Count(patient, "Patient.name")
		require.NoError(t, err)
		assert.Equal(t, 2, result)
	})
}

// Test FHIR-specific functions
func TestFHIRFunctions(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		patient := []byte(`{
			"resourceType": "Patient",
			"id": "ext-test",
			"extension": [
				{
					"url": "http://example.org/birthPlace",
					"valueString": "Boston"
				},
				{
					"url": "http://example.org/race",
					"valueCode": "white"
				}
			]
		}`)

		result, err := fhirpath.Evaluate(patient, "Patient.extension('http://example.org/birthPlace')")
		require.NoError(t, err)
		assert.False(t, result.Empty())
	})

	t.Run("hasExtension", func(t *testing.T) {
		patient := []byte(`{
			"resourceType": "Patient",
			"extension": [{"url": "http://example.org/test", "valueBoolean": true}]
		}`)

		result, err := fhirpath.EvaluateToBoolean(patient, "Patient.hasExtension('http://example.org/test')")
		require.NoError(t, err)
		assert.True(t, result)
	})
}

// Test arithmetic operators
func TestArithmetic(t *testing.T) {
	patient := []byte(`{"resourceType": "Patient"}`)

	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3", "5"},
		{"10 - 4", "6"},
		{"3 * 4", "12"},
		{"15 / 3", "5"},
		{"17 div 5", "3"},
		{"17 mod 5", "2"},
		{"-5", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := fhirpath.Evaluate(patient, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result[0].String())
		})
	}
}

// Test comparison operators
func TestComparison(t *testing.T) {
	patient := []byte(`{"resourceType": "Patient"}`)

	tests := []struct {
		expr string
		want bool
	}{
		{"5 < 10", true},
		{"5 > 10", false},
		{"5 <= 5", true},
		{"5 >= 5", true},
		{"5 = 5", true},
		{"5 != 10", true},
		{"'abc' = 'abc'", true},
		{"'ABC' ~ 'abc'", true}, // equivalence is case-insensitive
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := fhirpath.EvaluateToBoolean(patient, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

// Test boolean logic
func TestBooleanLogic(t *testing.T) {
	patient := []byte(`{"resourceType": "Patient"}`)

	tests := []struct {
		expr string
		want bool
	}{
		{"true and true", true},
		{"true and false", false},
		{"true or false", true},
		{"false or false", false},
		{"true xor false", true},
		{"true xor true", false},
		{"false implies true", true},
		{"true implies false", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := fhirpath.EvaluateToBoolean(patient, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

// Test string functions
func TestStringFunctions(t *testing.T) {
	patient := []byte(`{"resourceType": "Patient"}`)

	tests := []struct {
		expr string
		want string
	}{
		{"'Hello'.lower()", "hello"},
		{"'hello'.upper()", "HELLO"},
		{"'hello world'.startsWith('hello')", "true"},
		{"'hello world'.endsWith('world')", "true"},
		{"'hello world'.contains('lo wo')", "true"},
		{"'hello'.length()", "5"},
		{"'hello world'.replace('world', 'there')", "hello there"},
		{"'a,b,c'.split(',').count()", "3"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := fhirpath.Evaluate(patient, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result[0].String())
		})
	}
}

// Test the §8.2 concrete scenarios from the spec end to end.
func TestSpecScenarios(t *testing.T) {
	t.Run("S1 basic navigation", func(t *testing.T) {
		patient := []byte(`{"resourceType":"Patient","name":[{"given":["Alice","A."]},{"given":["Bob"]}]}`)
		result, err := fhirpath.Evaluate(patient, "Patient.name.given")
		require.NoError(t, err)
		got := fhirpath.Collection(result)
		require.Len(t, got, 3)
		assert.Equal(t, "Alice", got[0].String())
		assert.Equal(t, "A.", got[1].String())
		assert.Equal(t, "Bob", got[2].String())
	})

	t.Run("S2 filter with use", func(t *testing.T) {
		patient := []byte(`{"resourceType":"Patient","name":[{"use":"nickname","family":"X"},{"use":"official","family":"Smith"}]}`)
		result, err := fhirpath.Evaluate(patient, "Patient.name.where(use = 'official').family.first()")
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "Smith", result[0].String())
	})

	t.Run("S3 calendar difference in years", func(t *testing.T) {
		patient := []byte(`{"resourceType":"Patient"}`)
		result, err := fhirpath.Evaluate(patient, "@2023-01-01.difference(@2024-01-01,'years')")
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "1", result[0].String())
	})

	t.Run("S4 UCUM quantity arithmetic across division and area", func(t *testing.T) {
		patient := []byte(`{"resourceType":"Patient"}`)
		result, err := fhirpath.Evaluate(patient, "6'kg'/2'kg' + (2'm'*3'm').value")
		require.NoError(t, err)
		require.Len(t, result, 1)
		got, err := strconv.ParseFloat(result[0].String(), 64)
		require.NoError(t, err)
		assert.InDelta(t, 9.0, got, 0.0001)
	})

	t.Run("S5 bundle reference resolution", func(t *testing.T) {
		bundle := []byte(`{
			"resourceType": "Bundle",
			"entry": [
				{"fullUrl": "urn:uuid:p1", "resource": {"resourceType": "Patient", "id": "p1", "name": [{"family": "Doe"}]}},
				{"fullUrl": "urn:uuid:o1", "resource": {"resourceType": "Observation", "id": "o1", "subject": {"reference": "Patient/p1"}}}
			]
		}`)
		result, err := fhirpath.Evaluate(bundle,
			"Bundle.entry.where(resource.resourceType='Observation').resource.subject.resolve().name.family")
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "Doe", result[0].String())
	})

	t.Run("S6 type checking", func(t *testing.T) {
		patient := []byte(`{"resourceType":"Patient","active":true}`)
		result, err := fhirpath.EvaluateToBoolean(patient, "Patient.active is Boolean")
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("S7 collection equivalence", func(t *testing.T) {
		patient := []byte(`{"resourceType":"Patient"}`)
		eq, err := fhirpath.EvaluateToBoolean(patient, "(1 | 2 | 3) ~ (3 | 2 | 1)")
		require.NoError(t, err)
		assert.True(t, eq)

		ord, err := fhirpath.EvaluateToBoolean(patient, "(1 | 2 | 3) = (3 | 2 | 1)")
		require.NoError(t, err)
		assert.False(t, ord)
	})

	t.Run("S8 variables", func(t *testing.T) {
		patient := []byte(`{"age": 30}`)
		expr := fhirpath.MustCompile("age > %minAge and age < %maxAge")
		result, err := expr.EvaluateWithOptions(patient,
			fhirpath.WithVariable("minAge", fhirpath.Collection{types.NewInteger(18)}),
			fhirpath.WithVariable("maxAge", fhirpath.Collection{types.NewInteger(65)}),
		)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "true", result[0].String())
	})
}

// Benchmark cached compilation
func BenchmarkCompileCached(b *testing.B) {
	cache := fhirpath.NewExpressionCache(100)
	for i := 0; i < b.N; i++ {
		_, _ = cache.Get("Patient.name.given.first()")
	}
}

// Benchmark evaluation via the public package-level Evaluate entry point
func BenchmarkEvaluatePublicAPI(b *testing.B) {
	patient := []byte(`{
		"resourceType": "Patient",
		"name": [{"given": ["John", "James"]}]
	}`)
	expr := fhirpath.MustCompile("Patient.name.given.first()")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = expr.Evaluate(patient)
	}
}

// Benchmark struct evaluation
func BenchmarkEvaluateResource(b *testing.B) {
	patient := &localPatient{
		ID:   "bench",
		Name: []localHumanName{{Given: []string{"John", "James"}}},
	}

	jsonBytes, _ := json.Marshal(patient)
	expr := fhirpath.MustCompile("Patient.name.given.first()")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = expr.Evaluate(jsonBytes)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
