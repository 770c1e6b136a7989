// Package parser implements a hand-written Pratt (precedence-climbing)
// parser that turns a lexer.Token stream into an ast.Node tree.
package parser

import (
	"fmt"
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/lexer"
)

// Error reports a syntax error with the offending span and, where useful,
// a suggestion for the nearest recognized keyword.
type Error struct {
	Msg        string
	Span       lexer.Span
	Suggestion string
}

func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("parse error at %d:%d: %s (did you mean %q?)", e.Span.Start, e.Span.End, e.Msg, e.Suggestion)
	}
	return fmt.Sprintf("parse error at %d:%d: %s", e.Span.Start, e.Span.End, e.Msg)
}

// keyword-role words recognized only when not immediately followed by '('
// (which would make them an identifier naming a free function/method call).
var keywordOps = map[string]int{
	"implies": 1,
	"or":      2,
	"xor":     2,
	"and":     3,
	"in":      5,
	"contains": 5,
	"is":      7,
	"as":      7,
	"div":     9,
	"mod":     9,
}

// precedence levels, higher binds tighter. Mirrors the 11-level FHIRPath
// operator table: invocation/indexer (implicit, handled in parsePostfix)
// binds tightest, implies loosest.
const (
	precImplies        = 1
	precOrXor          = 2
	precAnd            = 3
	precMembership     = 4 // in / contains
	precEquality       = 5
	precRelational     = 6
	precUnion          = 7
	precType           = 8 // is / as infix form
	precAdditive       = 9
	precMultiplicative = 10
)

func precOf(op string) (int, bool) {
	switch op {
	case "implies":
		return precImplies, true
	case "or", "xor":
		return precOrXor, true
	case "and":
		return precAnd, true
	case "in", "contains":
		return precMembership, true
	case "=", "!=", "~", "!~":
		return precEquality, true
	case "<", "<=", ">", ">=":
		return precRelational, true
	case "|":
		return precUnion, true
	case "is", "as":
		return precType, true
	case "+", "-", "&":
		return precAdditive, true
	case "*", "/", "div", "mod":
		return precMultiplicative, true
	}
	return 0, false
}

// rightAssoc holds operators that associate right-to-left.
var rightAssoc = map[string]bool{
	"is": true, "as": true, "implies": true,
}

// Parser consumes a token stream and builds an ast.Node tree.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses src, returning the root expression node.
func Parse(src string) (ast.Node, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.EOF {
		return nil, p.errorf(p.cur().Span, "unexpected token %s after expression", p.cur().Kind)
	}
	return expr, nil
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, p.errorf(p.cur().Span, "expected %s, found %s", k, p.cur().Kind)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(span lexer.Span, format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Span: span}
}

// currentOpText returns the canonical operator text if the current token
// begins a binary operator in infix position, applying the lookahead rule
// that a keyword-like identifier followed directly by '(' is a function
// call, not an operator.
func (p *Parser) currentOpText() (string, bool) {
	t := p.cur()
	switch t.Kind {
	case lexer.Plus:
		return "+", true
	case lexer.Minus:
		return "-", true
	case lexer.Star:
		return "*", true
	case lexer.Slash:
		return "/", true
	case lexer.Amp:
		return "&", true
	case lexer.Pipe:
		return "|", true
	case lexer.Eq:
		return "=", true
	case lexer.NotEq:
		return "!=", true
	case lexer.Tilde:
		return "~", true
	case lexer.NotTilde:
		return "!~", true
	case lexer.Lt:
		return "<", true
	case lexer.Lte:
		return "<=", true
	case lexer.Gt:
		return ">", true
	case lexer.Gte:
		return ">=", true
	case lexer.Ident:
		if _, ok := keywordOps[t.Text]; ok && p.peekAt(1).Kind != lexer.LParen {
			return t.Text, true
		}
	}
	return "", false
}

// parseExpr implements precedence climbing: parse a unary/postfix term,
// then repeatedly fold in operators whose precedence is >= minPrec.
func (p *Parser) parseExpr(minPrec int) (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		opText, ok := p.currentOpText()
		if !ok {
			break
		}
		prec, _ := precOf(opText)
		if prec < minPrec {
			break
		}
		opStart := p.cur().Span
		p.advance()

		if opText == "is" || opText == "as" {
			ts, err := p.parseTypeSpecifier()
			if err != nil {
				return nil, err
			}
			left = ast.NewTypeOp(spanFrom(left.Span(), ts.Span()), opText, left, ts)
			continue
		}

		nextMin := prec + 1
		if rightAssoc[opText] {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(spanFrom(left.Span(), right.Span()), opText, left, right)
		_ = opStart
	}

	return left, nil
}

func spanFrom(a, b lexer.Span) lexer.Span {
	return lexer.Span{Start: a.Start, End: b.End}
}

func (p *Parser) parseUnary() (ast.Node, error) {
	t := p.cur()
	if t.Kind == lexer.Plus || t.Kind == lexer.Minus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := "+"
		if t.Kind == lexer.Minus {
			op = "-"
		}
		return ast.NewUnaryOp(spanFrom(t.Span, operand.Span()), op, operand), nil
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary term and then any chain of '.', '[...]'
// suffixes, which bind tighter than any infix operator.
func (p *Parser) parsePostfix() (ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case lexer.Dot:
			dot := p.advance()
			seg, err := p.parsePathSegment()
			if err != nil {
				return nil, err
			}
			node = ast.NewPath(spanFrom(node.Span(), seg.Span()), node, seg)
			_ = dot
		case lexer.LBracket:
			p.advance()
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			end, err := p.expect(lexer.RBracket)
			if err != nil {
				return nil, err
			}
			node = ast.NewIndexer(spanFrom(node.Span(), end.Span), node, idx)
		default:
			return node, nil
		}
	}
}

// parsePathSegment parses the identifier (or function call) immediately
// following a '.'.
func (p *Parser) parsePathSegment() (ast.Node, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.Ident, lexer.DelimitedIdent:
		p.advance()
		if p.cur().Kind == lexer.LParen {
			return p.parseFunctionCallArgs(t)
		}
		return ast.NewIdentifier(t.Span, t.Text, t.Kind == lexer.DelimitedIdent), nil
	case lexer.This:
		p.advance()
		return ast.NewThis(t.Span), nil
	}
	return nil, p.errorf(t.Span, "expected identifier after '.', found %s", t.Kind)
}

func (p *Parser) parseFunctionCallArgs(name lexer.Token) (ast.Node, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []ast.Node
	if p.cur().Kind != lexer.RParen {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().Kind == lexer.Comma {
				p.advance()
				continue
			}
			break
		}
	}
	end, err := p.expect(lexer.RParen)
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionCall(spanFrom(name.Span, end.Span), name.Text, args), nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.Integer:
		p.advance()
		return p.maybeQuantity(t, ast.LitInteger)
	case lexer.Long:
		p.advance()
		return ast.NewLiteral(t.Span, ast.LitLong, t.Text, ""), nil
	case lexer.Decimal:
		p.advance()
		return p.maybeQuantity(t, ast.LitDecimal)
	case lexer.String:
		p.advance()
		return ast.NewLiteral(t.Span, ast.LitString, t.Text, ""), nil
	case lexer.Date:
		p.advance()
		return ast.NewLiteral(t.Span, ast.LitDate, t.Text, ""), nil
	case lexer.DateTime:
		p.advance()
		return ast.NewLiteral(t.Span, ast.LitDateTime, t.Text, ""), nil
	case lexer.Time:
		p.advance()
		return ast.NewLiteral(t.Span, ast.LitTime, t.Text, ""), nil
	case lexer.EmptyLiteral:
		p.advance()
		return ast.NewLiteral(t.Span, ast.LitNull, "", ""), nil
	case lexer.EnvVar:
		p.advance()
		return ast.NewVariable(t.Span, t.Text), nil
	case lexer.This:
		p.advance()
		return ast.NewThis(t.Span), nil
	case lexer.IndexVar:
		p.advance()
		return ast.NewIndex(t.Span), nil
	case lexer.TotalVar:
		p.advance()
		return ast.NewTotal(t.Span), nil
	case lexer.LParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.Ident, lexer.DelimitedIdent:
		p.advance()
		if t.Text == "true" || t.Text == "false" {
			return ast.NewLiteral(t.Span, ast.LitBoolean, t.Text, ""), nil
		}
		if p.cur().Kind == lexer.LParen {
			return p.parseFunctionCallArgs(t)
		}
		// Namespace-qualified root, e.g. FHIR.Patient used as a type specifier
		// context is disambiguated by the caller (is/as/ofType); as a bare
		// root it's simply an identifier path segment.
		return ast.NewIdentifier(t.Span, t.Text, t.Kind == lexer.DelimitedIdent), nil
	}
	return nil, p.errorf(t.Span, "unexpected token %s", t.Kind)
}

// maybeQuantity folds an immediately-following calendar word or quoted UCUM
// unit into a quantity literal, per the rule that a quantity is a number
// token directly adjacent (no intervening trivia already skipped by the
// lexer, but contiguous grammatically) to its unit.
func (p *Parser) maybeQuantity(numTok lexer.Token, kind ast.LiteralKind) (ast.Node, error) {
	t := p.cur()
	if t.Kind == lexer.Ident && lexer.IsCalendarWord(t.Text) && p.peekAt(1).Kind != lexer.LParen {
		p.advance()
		return ast.NewLiteral(spanFrom(numTok.Span, t.Span), ast.LitQuantity, numTok.Text, t.Text), nil
	}
	if t.Kind == lexer.String {
		p.advance()
		return ast.NewLiteral(spanFrom(numTok.Span, t.Span), ast.LitQuantity, numTok.Text, t.Text), nil
	}
	return ast.NewLiteral(numTok.Span, kind, numTok.Text, ""), nil
}

// parseTypeSpecifier parses the right-hand side of is/as/ofType: an
// optionally namespace-qualified type name.
func (p *Parser) parseTypeSpecifier() (*ast.TypeSpecifier, error) {
	first, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.Dot {
		p.advance()
		second, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		return ast.NewTypeSpecifier(spanFrom(first.Span, second.Span), first.Text, second.Text), nil
	}
	return ast.NewTypeSpecifier(first.Span, "", first.Text), nil
}

// SuggestKeyword returns the closest keyword-operator name to text for use
// in diagnostics, or "" if nothing is close.
func SuggestKeyword(text string) string {
	best := ""
	bestDist := 3
	for kw := range keywordOps {
		d := editDistance(strings.ToLower(text), kw)
		if d < bestDist {
			bestDist = d
			best = kw
		}
	}
	return best
}

func editDistance(a, b string) int {
	la, lb := len(a), len(b)
	dp := make([][]int, la+1)
	for i := range dp {
		dp[i] = make([]int, lb+1)
		dp[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			dp[i][j] = min3(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)
		}
	}
	return dp[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
