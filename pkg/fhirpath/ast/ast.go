// Package ast defines the FHIRPath abstract syntax tree produced by the
// parser and walked by the evaluator.
package ast

import "github.com/fhirpath-go/fhirpath/pkg/fhirpath/lexer"

// Node is implemented by every AST node. Span reports the node's extent in
// the original source text for diagnostics.
type Node interface {
	Span() lexer.Span
	node()
}

type base struct {
	span lexer.Span
}

func (b base) Span() lexer.Span { return b.span }
func (base) node()               {}

// NewBase constructs the embeddable span-carrying base for node authors
// outside this package (none currently, but kept exported for symmetry
// with the rest of the tree-node constructors below).
func NewBase(span lexer.Span) base { return base{span: span} }

// LiteralKind enumerates the literal forms recognized in Literal nodes.
type LiteralKind int

const (
	LitBoolean LiteralKind = iota
	LitString
	LitInteger
	LitLong
	LitDecimal
	LitDate
	LitDateTime
	LitTime
	LitQuantity
	LitNull // {}
)

// Literal is a constant value appearing directly in source text.
type Literal struct {
	base
	Kind LiteralKind
	Text string // raw lexeme, already unescaped by the lexer
	Unit string // populated only for LitQuantity: the calendar word or UCUM code
}

func NewLiteral(span lexer.Span, kind LiteralKind, text, unit string) *Literal {
	return &Literal{base: base{span}, Kind: kind, Text: text, Unit: unit}
}

// Identifier is a bare or delimited name, used both as a root invocation
// and as a path segment following '.'.
type Identifier struct {
	base
	Name      string
	Delimited bool
}

func NewIdentifier(span lexer.Span, name string, delimited bool) *Identifier {
	return &Identifier{base: base{span}, Name: name, Delimited: delimited}
}

// Variable is a '%name' environment variable reference.
type Variable struct {
	base
	Name string
}

func NewVariable(span lexer.Span, name string) *Variable {
	return &Variable{base: base{span}, Name: name}
}

// ThisInvocation is the '$this' special variable.
type ThisInvocation struct{ base }

func NewThis(span lexer.Span) *ThisInvocation { return &ThisInvocation{base{span}} }

// IndexInvocation is the '$index' special variable.
type IndexInvocation struct{ base }

func NewIndex(span lexer.Span) *IndexInvocation { return &IndexInvocation{base{span}} }

// TotalInvocation is the '$total' special variable.
type TotalInvocation struct{ base }

func NewTotal(span lexer.Span) *TotalInvocation { return &TotalInvocation{base{span}} }

// Path is a '.'-joined navigation: Base.Segment.
type Path struct {
	base
	Base    Node
	Segment Node // *Identifier or *FunctionCall
}

func NewPath(span lexer.Span, b, seg Node) *Path {
	return &Path{base: base{span}, Base: b, Segment: seg}
}

// Indexer is a postfix '[expr]' applied to Target.
type Indexer struct {
	base
	Target Node
	Index  Node
}

func NewIndexer(span lexer.Span, target, index Node) *Indexer {
	return &Indexer{base: base{span}, Target: target, Index: index}
}

// FunctionCall is a name(args...) invocation, either a free function at the
// root of an expression or a method called via '.'.
type FunctionCall struct {
	base
	Name string
	Args []Node
}

func NewFunctionCall(span lexer.Span, name string, args []Node) *FunctionCall {
	return &FunctionCall{base: base{span}, Name: name, Args: args}
}

// UnaryOp is a prefix operator: '-' or '+'.
type UnaryOp struct {
	base
	Op      string
	Operand Node
}

func NewUnaryOp(span lexer.Span, op string, operand Node) *UnaryOp {
	return &UnaryOp{base: base{span}, Op: op, Operand: operand}
}

// BinaryOp is an infix operator application, covering arithmetic, string
// concatenation, comparison, equality, membership, type, and boolean
// operators alike; Op holds the operator's canonical spelling (e.g. "+",
// "is", "implies", "contains").
type BinaryOp struct {
	base
	Op          string
	Left, Right Node
}

func NewBinaryOp(span lexer.Span, op string, left, right Node) *BinaryOp {
	return &BinaryOp{base: base{span}, Op: op, Left: left, Right: right}
}

// TypeSpecifier names a type, optionally namespace-qualified
// (e.g. FHIR.Patient, System.Integer), for use with is/as/ofType.
type TypeSpecifier struct {
	base
	Namespace string
	Name      string
}

func NewTypeSpecifier(span lexer.Span, namespace, name string) *TypeSpecifier {
	return &TypeSpecifier{base: base{span}, Namespace: namespace, Name: name}
}

// TypeOp is 'expr is Type' / 'expr as Type', kept distinct from BinaryOp
// because the right-hand side is a TypeSpecifier rather than an expression.
type TypeOp struct {
	base
	Op     string // "is" or "as"
	Expr   Node
	Target *TypeSpecifier
}

func NewTypeOp(span lexer.Span, op string, expr Node, target *TypeSpecifier) *TypeOp {
	return &TypeOp{base: base{span}, Op: op, Expr: expr, Target: target}
}

var (
	_ Node = (*Literal)(nil)
	_ Node = (*Identifier)(nil)
	_ Node = (*Variable)(nil)
	_ Node = (*ThisInvocation)(nil)
	_ Node = (*IndexInvocation)(nil)
	_ Node = (*TotalInvocation)(nil)
	_ Node = (*Path)(nil)
	_ Node = (*Indexer)(nil)
	_ Node = (*FunctionCall)(nil)
	_ Node = (*UnaryOp)(nil)
	_ Node = (*BinaryOp)(nil)
	_ Node = (*TypeSpecifier)(nil)
	_ Node = (*TypeOp)(nil)
)
