package funcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

func strArgs(vs ...interface{}) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		switch x := v.(type) {
		case string:
			out[i] = types.Collection{types.NewString(x)}
		case int:
			out[i] = types.Collection{types.NewInteger(int64(x))}
		default:
			out[i] = v
		}
	}
	return out
}

// strCase drives one call to a string function registered under fn; want
// dispatches on Go type the same way fhirpath_test.go's evalCase does.
type strCase struct {
	name  string
	fn    string
	input types.Collection // nil means types.Collection{}
	args  []interface{}
	want  interface{} // bool, int64, string, "EMPTY", or wantLen below
	wantLen int
}

func runStrCases(t *testing.T, ctx *eval.Context, cases []strCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fn, ok := Get(tc.fn)
			require.Truef(t, ok, "%s not registered", tc.fn)

			result, err := fn.Fn(ctx, tc.input, tc.args)
			require.NoError(t, err)

			switch w := tc.want.(type) {
			case nil:
				if tc.wantLen > 0 {
					assert.Equal(t, tc.wantLen, result.Count())
				} else {
					assert.True(t, result.Empty())
				}
			case string:
				if w == "EMPTY" {
					assert.True(t, result.Empty())
					return
				}
				require.False(t, result.Empty())
				assert.Equal(t, w, result[0].(types.String).Value())
			case bool:
				require.False(t, result.Empty())
				assert.Equal(t, w, result[0].(types.Boolean).Bool())
			case int64:
				require.False(t, result.Empty())
				assert.Equal(t, w, result[0].(types.Integer).Value())
			case int:
				require.False(t, result.Empty())
				assert.Equal(t, int64(w), result[0].(types.Integer).Value())
			}
		})
	}
}

func TestStringFunctions(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))

	runStrCases(t, ctx, []strCase{
		{name: "startsWith true", fn: "startsWith", input: types.Collection{types.NewString("Hello")}, args: strArgs("Hel"), want: true},
		{name: "startsWith false", fn: "startsWith", input: types.Collection{types.NewString("Hello")}, args: strArgs("llo"), want: false},
		{name: "endsWith true", fn: "endsWith", input: types.Collection{types.NewString("Hello")}, args: strArgs("llo"), want: true},
		{name: "contains substring", fn: "contains", input: types.Collection{types.NewString("Hello World")}, args: strArgs("lo Wo"), want: true},
		{
			name: "replace", fn: "replace", input: types.Collection{types.NewString("Hello World")},
			args: strArgs("World", "FHIRPath"), want: "Hello FHIRPath",
		},
		{name: "indexOf finds the first occurrence", fn: "indexOf", input: types.Collection{types.NewString("Hello")}, args: strArgs("l"), want: int64(2)},
		{name: "lower", fn: "lower", input: types.Collection{types.NewString("HELLO")}, want: "hello"},
		{name: "upper", fn: "upper", input: types.Collection{types.NewString("hello")}, want: "HELLO"},
		{name: "length", fn: "length", input: types.Collection{types.NewString("Hello")}, want: int64(5)},
		{name: "trim strips leading/trailing whitespace", fn: "trim", input: types.Collection{types.NewString("  hello  ")}, want: "hello"},
		{name: "matches against a regex", fn: "matches", input: types.Collection{types.NewString("test123")}, args: strArgs("[a-z]+[0-9]+"), want: true},
		{
			name: "replaceMatches substitutes every regex match", fn: "replaceMatches",
			input: types.Collection{types.NewString("test123")}, args: strArgs("[0-9]", "X"), want: "testXXX",
		},
	})

	t.Run("substring with an explicit length", func(t *testing.T) {
		fn, _ := Get("substring")
		result, err := fn.Fn(ctx, types.Collection{types.NewString("Hello")}, strArgs(1, 3))
		require.NoError(t, err)
		assert.Equal(t, "ell", result[0].(types.String).Value())
	})

	t.Run("substring without a length runs to the end", func(t *testing.T) {
		fn, _ := Get("substring")
		result, err := fn.Fn(ctx, types.Collection{types.NewString("Hello")}, strArgs(2))
		require.NoError(t, err)
		assert.Equal(t, "llo", result[0].(types.String).Value())
	})

	t.Run("toChars splits into single-character Strings", func(t *testing.T) {
		fn, _ := Get("toChars")
		result, err := fn.Fn(ctx, types.Collection{types.NewString("Hi")}, nil)
		require.NoError(t, err)
		require.Equal(t, 2, result.Count())
		assert.Equal(t, "H", result[0].(types.String).Value())
	})

	t.Run("split on a delimiter", func(t *testing.T) {
		fn, _ := Get("split")
		result, err := fn.Fn(ctx, types.Collection{types.NewString("a,b,c")}, strArgs(","))
		require.NoError(t, err)
		assert.Equal(t, 3, result.Count())
	})

	t.Run("join with a separator", func(t *testing.T) {
		fn, _ := Get("join")
		input := types.Collection{types.NewString("a"), types.NewString("b"), types.NewString("c")}
		result, err := fn.Fn(ctx, input, strArgs("-"))
		require.NoError(t, err)
		assert.Equal(t, "a-b-c", result[0].(types.String).Value())
	})
}

// TestAdditionalStringFunctions covers empty-input propagation (every
// string function returns Empty rather than erroring when its input is
// Empty) plus a handful of argument-edge cases.
func TestAdditionalStringFunctions(t *testing.T) {
	ctx := eval.NewContext([]byte(`{}`))

	emptyPropagation := []struct {
		fn   string
		args []interface{}
	}{
		{fn: "startsWith", args: strArgs("test")},
		{fn: "endsWith", args: strArgs("test")},
		{fn: "contains", args: strArgs("test")},
		{fn: "replace", args: strArgs("a", "b")},
		{fn: "indexOf", args: strArgs("test")},
		{fn: "substring", args: strArgs(0)},
		{fn: "lower"},
		{fn: "upper"},
		{fn: "length"},
		{fn: "toChars"},
		{fn: "split", args: strArgs(",")},
		{fn: "trim"},
		{fn: "matches", args: strArgs(".*")},
		{fn: "replaceMatches", args: strArgs(".*", "X")},
	}
	for _, tc := range emptyPropagation {
		t.Run(tc.fn+" of empty is empty", func(t *testing.T) {
			fn, _ := Get(tc.fn)
			result, err := fn.Fn(ctx, types.Collection{}, tc.args)
			require.NoError(t, err)
			assert.True(t, result.Empty())
		})
	}

	t.Run("indexOf returns -1 when the substring isn't found", func(t *testing.T) {
		fn, _ := Get("indexOf")
		result, err := fn.Fn(ctx, types.Collection{types.NewString("Hello")}, strArgs("xyz"))
		require.NoError(t, err)
		assert.Equal(t, int64(-1), result[0].(types.Integer).Value())
	})

	t.Run("substring with a negative start is empty", func(t *testing.T) {
		fn, _ := Get("substring")
		result, err := fn.Fn(ctx, types.Collection{types.NewString("Hello")}, strArgs(-1))
		require.NoError(t, err)
		assert.True(t, result.Empty())
	})

	t.Run("join without a separator concatenates directly", func(t *testing.T) {
		fn, _ := Get("join")
		input := types.Collection{types.NewString("a"), types.NewString("b")}
		result, err := fn.Fn(ctx, input, nil)
		require.NoError(t, err)
		assert.Equal(t, "ab", result[0].(types.String).Value())
	})
}
