package funcs

import (
	"encoding/base64"
	"encoding/hex"
	"html"
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// stringFuncs are the string-family functions; all but join treat the input
// collection as a single string. encode/decode/escape/unescape dispatch through the codec
// tables below rather than a long self-registering switch per direction.
var stringFuncs = []FuncDef{
	{Name: "startsWith", MinArgs: 1, MaxArgs: 1, Fn: fnStartsWith},
	{Name: "endsWith", MinArgs: 1, MaxArgs: 1, Fn: fnEndsWith},
	{Name: "contains", MinArgs: 1, MaxArgs: 1, Fn: fnContains},
	{Name: "replace", MinArgs: 2, MaxArgs: 2, Fn: fnReplace},
	{Name: "matches", MinArgs: 1, MaxArgs: 1, Fn: fnMatches},
	{Name: "replaceMatches", MinArgs: 2, MaxArgs: 2, Fn: fnReplaceMatches},
	{Name: "indexOf", MinArgs: 1, MaxArgs: 1, Fn: fnIndexOf},
	{Name: "substring", MinArgs: 1, MaxArgs: 2, Fn: fnSubstring},
	{Name: "lower", MinArgs: 0, MaxArgs: 0, Fn: fnLower},
	{Name: "upper", MinArgs: 0, MaxArgs: 0, Fn: fnUpper},
	{Name: "toChars", MinArgs: 0, MaxArgs: 0, Fn: fnToChars},
	{Name: "split", MinArgs: 1, MaxArgs: 1, Fn: fnSplit},
	{Name: "join", MinArgs: 0, MaxArgs: 1, Fn: fnJoin},
	{Name: "trim", MinArgs: 0, MaxArgs: 0, Fn: fnTrim},
	{Name: "length", MinArgs: 0, MaxArgs: 0, Fn: fnLength},
	{Name: "encode", MinArgs: 1, MaxArgs: 1, Fn: fnEncode},
	{Name: "decode", MinArgs: 1, MaxArgs: 1, Fn: fnDecode},
	{Name: "escape", MinArgs: 1, MaxArgs: 1, Fn: fnEscape},
	{Name: "unescape", MinArgs: 1, MaxArgs: 1, Fn: fnUnescape},
}

func init() {
	for _, def := range stringFuncs {
		Register(def)
	}
}

// toString extracts a string from a collection's first element.
func toString(col types.Collection) (string, bool) {
	if col.Empty() {
		return "", false
	}
	if s, ok := col[0].(types.String); ok {
		return s.Value(), true
	}
	return col[0].String(), true
}

// toStringArg extracts a string from an argument.
func toStringArg(arg interface{}) (string, bool) {
	switch v := arg.(type) {
	case types.Collection:
		return toString(v)
	case types.String:
		return v.Value(), true
	case string:
		return v, true
	default:
		return "", false
	}
}

// stringAndArg pulls the input's string value and its first argument's
// string value together, since nearly every function in this file needs
// exactly that pair before it can do anything.
func stringAndArg(input types.Collection, args []interface{}) (str, arg string, ok bool) {
	str, ok = toString(input)
	if !ok || len(args) == 0 {
		return "", "", false
	}
	arg, ok = toStringArg(args[0])
	return str, arg, ok
}

// stringPredicate backs startsWith/endsWith/contains, which differ only in
// which strings.Has* / strings.Contains test they apply.
func stringPredicate(input types.Collection, args []interface{}, test func(s, substr string) bool) (types.Collection, error) {
	str, arg, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewBoolean(test(str, arg))}, nil
}

func fnStartsWith(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	return stringPredicate(input, args, strings.HasPrefix)
}

func fnEndsWith(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	return stringPredicate(input, args, strings.HasSuffix)
}

func fnContains(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	return stringPredicate(input, args, strings.Contains)
}

func fnIndexOf(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, arg, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewInteger(int64(strings.Index(str, arg)))}, nil
}

func fnReplace(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := toString(input)
	if !ok {
		return types.Collection{}, nil
	}
	pattern, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	substitution, ok := toStringArg(args[1])
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(strings.ReplaceAll(str, pattern, substitution))}, nil
}

// fnMatches reports whether the string matches the regex pattern, via the
// shared ReDoS-guarded cache (regex.go) rather than regexp.Compile directly.
func fnMatches(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, pattern, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	matched, err := DefaultRegexCache.MatchWithTimeout(ctx.Context(), pattern, str)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewBoolean(matched)}, nil
}

func fnReplaceMatches(ctx *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{}, nil
	}
	str, ok := toString(input)
	if !ok {
		return types.Collection{}, nil
	}
	pattern, ok := toStringArg(args[0])
	if !ok {
		return types.Collection{}, nil
	}
	substitution, ok := toStringArg(args[1])
	if !ok {
		return types.Collection{}, nil
	}
	result, err := DefaultRegexCache.ReplaceWithTimeout(ctx.Context(), pattern, str, substitution)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewString(result)}, nil
}

func fnSubstring(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, ok := toString(input)
	if !ok {
		return types.Collection{}, nil
	}
	start, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	if start < 0 || int(start) >= len(str) {
		return types.Collection{}, nil
	}

	if len(args) > 1 {
		length, err := toInteger(args[1])
		if err != nil {
			return nil, err
		}
		end := int(start + length)
		if end > len(str) {
			end = len(str)
		}
		return types.Collection{types.NewString(str[start:end])}, nil
	}
	return types.Collection{types.NewString(str[start:])}, nil
}

// stringTransform backs lower/upper/trim, which differ only in which
// strings.* rewrite they apply to the input's string value.
func stringTransform(input types.Collection, transform func(string) string) (types.Collection, error) {
	str, ok := toString(input)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(transform(str))}, nil
}

func fnLower(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return stringTransform(input, strings.ToLower)
}

func fnUpper(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return stringTransform(input, strings.ToUpper)
}

func fnTrim(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	return stringTransform(input, strings.TrimSpace)
}

func fnToChars(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := toString(input)
	if !ok {
		return types.Collection{}, nil
	}
	result := types.Collection{}
	for _, ch := range str {
		result = append(result, types.NewString(string(ch)))
	}
	return result, nil
}

func fnSplit(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, separator, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	result := types.Collection{}
	for _, part := range strings.Split(str, separator) {
		result = append(result, types.NewString(part))
	}
	return result, nil
}

func fnJoin(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	if input.Empty() {
		return types.Collection{types.NewString("")}, nil
	}

	separator := ""
	if len(args) > 0 {
		if sep, ok := toStringArg(args[0]); ok {
			separator = sep
		}
	}

	parts := make([]string, 0, len(input))
	for _, item := range input {
		if s, ok := item.(types.String); ok {
			parts = append(parts, s.Value())
		} else {
			parts = append(parts, item.String())
		}
	}
	return types.Collection{types.NewString(strings.Join(parts, separator))}, nil
}

func fnLength(_ *eval.Context, input types.Collection, _ []interface{}) (types.Collection, error) {
	str, ok := toString(input)
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewInteger(int64(len(str)))}, nil
}

// jsonEscape escapes characters significant to JSON string literals.
func jsonEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// jsonUnescape reverses jsonEscape.
func jsonUnescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(s[i])
				b.WriteByte(s[i+1])
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

var stringEncoders = map[string]func(string) string{
	"base64":    func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) },
	"hex":       func(s string) string { return hex.EncodeToString([]byte(s)) },
	"urlbase64": func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) },
}

var stringDecoders = map[string]func(string) (string, error){
	"base64": func(s string) (string, error) {
		b, err := base64.StdEncoding.DecodeString(s)
		return string(b), err
	},
	"hex": func(s string) (string, error) {
		b, err := hex.DecodeString(s)
		return string(b), err
	},
	"urlbase64": func(s string) (string, error) {
		b, err := base64.URLEncoding.DecodeString(s)
		return string(b), err
	},
}

var stringEscapers = map[string]func(string) string{
	"html": html.EscapeString,
	"json": jsonEscape,
}

var stringUnescapers = map[string]func(string) string{
	"html": html.UnescapeString,
	"json": jsonUnescape,
}

// fnEncode converts the string to the given target encoding.
func fnEncode(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, target, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	enc, ok := stringEncoders[target]
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(enc(str))}, nil
}

// fnDecode converts the string from the given source encoding.
func fnDecode(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, source, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	dec, ok := stringDecoders[source]
	if !ok {
		return types.Collection{}, nil
	}
	decoded, err := dec(str)
	if err != nil {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(decoded)}, nil
}

// fnEscape escapes the string for the given target format.
func fnEscape(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, target, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	esc, ok := stringEscapers[target]
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(esc(str))}, nil
}

// fnUnescape reverses fnEscape for the given source format.
func fnUnescape(_ *eval.Context, input types.Collection, args []interface{}) (types.Collection, error) {
	str, source, ok := stringAndArg(input, args)
	if !ok {
		return types.Collection{}, nil
	}
	unesc, ok := stringUnescapers[source]
	if !ok {
		return types.Collection{}, nil
	}
	return types.Collection{types.NewString(unesc(str))}, nil
}
