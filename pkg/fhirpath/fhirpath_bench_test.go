package fhirpath

import "testing"

var benchPatient = []byte(`{
	"resourceType": "Patient",
	"id": "example",
	"active": true,
	"name": [
		{
			"use": "official",
			"family": "Chalmers",
			"given": ["Peter", "James"]
		},
		{
			"use": "usual",
			"given": ["Jim"]
		}
	],
	"telecom": [
		{
			"system": "phone",
			"value": "(03) 5555 6473"
		}
	],
	"gender": "male",
	"birthDate": "1974-12-25"
}`)

func BenchmarkCompile(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Compile("Patient.name.given")
	}
}

func BenchmarkDirectEvaluate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Evaluate(benchPatient, "Patient.name.given")
	}
}

// runEvalBenchmark compiles expr once, then re-evaluates the cached
// Expression against benchPatient b.N times — isolating evaluator cost from
// the one-time parse/compile cost that BenchmarkCompile already measures.
func runEvalBenchmark(b *testing.B, expr string) {
	b.Helper()
	compiled := MustCompile(expr)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Evaluate(benchPatient)
	}
}

func BenchmarkEvaluateSimple(b *testing.B)        { runEvalBenchmark(b, "Patient.id") }
func BenchmarkEvaluateNested(b *testing.B)        { runEvalBenchmark(b, "Patient.name.given") }
func BenchmarkEvaluateWithFunction(b *testing.B)  { runEvalBenchmark(b, "Patient.name.given.count()") }
func BenchmarkEvaluateComplex(b *testing.B)       { runEvalBenchmark(b, "Patient.name.first().given.join(', ')") }
func BenchmarkEvaluateArithmetic(b *testing.B)    { runEvalBenchmark(b, "2 + 3 * 4 - 1") }
func BenchmarkEvaluateString(b *testing.B)        { runEvalBenchmark(b, "'Hello'.lower().startsWith('hel')") }
func BenchmarkEvaluateMath(b *testing.B)          { runEvalBenchmark(b, "16.sqrt().power(2)") }
func BenchmarkEvaluateBoolean(b *testing.B)       { runEvalBenchmark(b, "true and false or true") }
func BenchmarkEvaluateComparison(b *testing.B)    { runEvalBenchmark(b, "5 < 10 and 10 > 5") }
func BenchmarkEvaluateExists(b *testing.B)        { runEvalBenchmark(b, "Patient.name.exists()") }
func BenchmarkEvaluateEmpty(b *testing.B)         { runEvalBenchmark(b, "Patient.name.empty()") }
