// Package lexer tokenizes FHIRPath source text into a flat token stream.
package lexer

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	DelimitedIdent // `quoted identifier`
	Integer
	Long    // 123L
	Decimal // 1.5
	String  // 'single quoted'
	Date    // @2024-01-01
	DateTime
	Time // @T12:00:00
	EnvVar  // %name or %'quoted'
	This    // $this
	IndexVar // $index
	TotalVar // $total
	EmptyLiteral // {}

	// Punctuation
	Dot
	Comma
	LParen
	RParen
	LBracket
	RBracket

	// Operators
	Plus
	Minus
	Star
	Slash
	Eq
	NotEq
	Tilde
	NotTilde
	Lt
	Lte
	Gt
	Gte
	Amp
	Pipe
)

// Span is a half-open [Start, End) byte range into the source text.
type Span struct {
	Start int
	End   int
}

// Token is a single lexical unit with its source span.
// Text holds the undecorated lexeme (quotes/backticks/prefixes stripped by the lexer
// where unambiguous); for string literals and delimited identifiers the lexer has
// already decoded backslash escapes, so Text holds the decoded characters.
type Token struct {
	Kind Kind
	Text string
	Span Span
}

func (t Token) String() string {
	return fmt.Sprintf("%v(%q)@%d:%d", t.Kind, t.Text, t.Span.Start, t.Span.End)
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "Ident"
	case DelimitedIdent:
		return "DelimitedIdent"
	case Integer:
		return "Integer"
	case Long:
		return "Long"
	case Decimal:
		return "Decimal"
	case String:
		return "String"
	case Date:
		return "Date"
	case DateTime:
		return "DateTime"
	case Time:
		return "Time"
	case EnvVar:
		return "EnvVar"
	case This:
		return "This"
	case IndexVar:
		return "IndexVar"
	case TotalVar:
		return "TotalVar"
	case EmptyLiteral:
		return "EmptyLiteral"
	case Dot:
		return "."
	case Comma:
		return ","
	case LParen:
		return "("
	case RParen:
		return ")"
	case LBracket:
		return "["
	case RBracket:
		return "]"
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Star:
		return "*"
	case Slash:
		return "/"
	case Eq:
		return "="
	case NotEq:
		return "!="
	case Tilde:
		return "~"
	case NotTilde:
		return "!~"
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case Amp:
		return "&"
	case Pipe:
		return "|"
	}
	return "Unknown"
}
