package eval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/ast"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// FuncImpl is the signature for function implementations.
type FuncImpl func(ctx *Context, input types.Collection, args []interface{}) (types.Collection, error)

// FuncDef defines a FHIRPath function.
type FuncDef struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      FuncImpl
}

// FuncRegistry is an interface for function lookup.
type FuncRegistry interface {
	Get(name string) (FuncDef, bool)
}

// Resolver handles FHIR reference resolution.
type Resolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// Evaluator walks an ast.Node tree and produces the resulting Collection.
type Evaluator struct {
	ctx   *Context
	funcs FuncRegistry
}

// Context holds the evaluation state.
type Context struct {
	root      types.Collection
	this      types.Collection
	index     int
	total     types.Value
	variables   map[string]types.Collection
	limits      map[string]int
	goCtx       context.Context
	resolver    Resolver
	bundleCache map[*types.ObjectValue]*bundleIndex
	provider    ModelProvider
}

// ModelProvider is the subset of the model.Provider contract the evaluator
// consults directly: subtype queries for is/as/ofType that the built-in
// FHIR/System type hierarchy (IsSubtypeOf/TypeMatches) cannot answer, e.g.
// profile-aware or IG-specific type relationships. A missing provider means
// the engine relies solely on the built-in hierarchy.
type ModelProvider interface {
	IsSubtypeOf(ctx context.Context, concrete, base string) (bool, error)
}

// ConformsToChecker is an optional extension a ModelProvider may implement
// to answer conformsTo(profile) queries; providers that only answer subtype
// queries need not implement it.
type ConformsToChecker interface {
	ConformsTo(ctx context.Context, resource interface{}, profileURL string) (bool, error)
}

// SetModelProvider installs a ModelProvider for type/path introspection.
func (c *Context) SetModelProvider(p ModelProvider) {
	c.provider = p
}

// GetModelProvider returns the installed ModelProvider, or nil.
func (c *Context) GetModelProvider() ModelProvider {
	return c.provider
}

// NewContext creates a new evaluation context.
// Automatically sets %resource and %context to the root resource for FHIR constraint evaluation.
// Per FHIRPath spec:
//   - %resource: the root resource being evaluated
//   - %context: the original node passed to the evaluation engine (same as %resource for top-level evaluation)
func NewContext(resource []byte) *Context {
	//nolint:errcheck // Empty collection is acceptable for invalid JSON in context creation
	root, _ := types.JSONToCollection(resource)

	variables := make(map[string]types.Collection)
	variables["resource"] = root
	variables["context"] = root

	return &Context{
		root:      root,
		this:      root,
		variables: variables,
		limits:    make(map[string]int),
		goCtx:     context.Background(),
	}
}

// SetLimit sets a limit value (e.g., maxDepth, maxCollectionSize).
func (c *Context) SetLimit(name string, value int) {
	if c.limits == nil {
		c.limits = make(map[string]int)
	}
	c.limits[name] = value
}

// GetLimit gets a limit value.
func (c *Context) GetLimit(name string) int {
	if c.limits == nil {
		return 0
	}
	return c.limits[name]
}

// SetContext sets the Go context for cancellation.
func (c *Context) SetContext(ctx context.Context) {
	c.goCtx = ctx
}

// Context returns the Go context.
func (c *Context) Context() context.Context {
	if c.goCtx == nil {
		return context.Background()
	}
	return c.goCtx
}

// SetResolver sets the reference resolver.
func (c *Context) SetResolver(r Resolver) {
	c.resolver = r
}

// GetResolver returns the reference resolver.
func (c *Context) GetResolver() Resolver {
	return c.resolver
}

// CheckCancellation checks if the context has been canceled.
func (c *Context) CheckCancellation() error {
	if c.goCtx == nil {
		return nil
	}
	select {
	case <-c.goCtx.Done():
		return c.goCtx.Err()
	default:
		return nil
	}
}

// CheckCollectionSize validates that a collection doesn't exceed the maximum size.
func (c *Context) CheckCollectionSize(col types.Collection) error {
	maxSize := c.GetLimit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return NewEvalError(ErrInvalidExpression,
			"collection size %d exceeds maximum allowed %d", len(col), maxSize)
	}
	return nil
}

// EnforceCollectionLimit truncates a collection if it exceeds the maximum size.
func (c *Context) EnforceCollectionLimit(col types.Collection) (types.Collection, bool) {
	maxSize := c.GetLimit("maxCollectionSize")
	if maxSize > 0 && len(col) > maxSize {
		return col[:maxSize], true
	}
	return col, false
}

// Root returns the root collection.
func (c *Context) Root() types.Collection {
	return c.root
}

// This returns the current $this value.
func (c *Context) This() types.Collection {
	return c.this
}

// WithThis returns a new context with the given $this value.
func (c *Context) WithThis(this types.Collection) *Context {
	newCtx := *c
	newCtx.this = this
	return &newCtx
}

// WithIndex returns a new context with the given $index value.
func (c *Context) WithIndex(index int) *Context {
	newCtx := *c
	newCtx.index = index
	return &newCtx
}

// SetVariable sets an external variable.
func (c *Context) SetVariable(name string, value types.Collection) {
	c.variables[name] = value
}

// GetVariable gets an external variable.
func (c *Context) GetVariable(name string) (types.Collection, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// NewEvaluator creates a new evaluator with the given context and function registry.
func NewEvaluator(ctx *Context, funcs FuncRegistry) *Evaluator {
	return &Evaluator{ctx: ctx, funcs: funcs}
}

// Evaluate walks node and returns the resulting collection.
func (e *Evaluator) Evaluate(node ast.Node) (types.Collection, error) {
	result := e.eval(node)
	if err, ok := result.(error); ok {
		return nil, err
	}
	if col, ok := result.(types.Collection); ok {
		return col, nil
	}
	return types.Collection{}, nil
}

// eval dispatches on the concrete ast.Node type. It returns either a
// types.Collection or an error, mirroring the teacher's visitor convention
// of folding both result kinds into a single interface{} return so that
// error propagation composes through nested calls without sentinel checks.
func (e *Evaluator) eval(node ast.Node) interface{} {
	if node == nil {
		return types.Collection{}
	}

	switch n := node.(type) {
	case *ast.Literal:
		return e.evalLiteral(n)
	case *ast.Identifier:
		return e.navigateMember(e.ctx.This(), n.Name)
	case *ast.Variable:
		if value, ok := e.ctx.GetVariable(n.Name); ok {
			return value
		}
		return NewEvalError(ErrInvalidPath, "undefined variable: %"+n.Name)
	case *ast.ThisInvocation:
		return e.ctx.This()
	case *ast.IndexInvocation:
		return types.Collection{types.NewInteger(int64(e.ctx.index))}
	case *ast.TotalInvocation:
		if e.ctx.total != nil {
			return types.Collection{e.ctx.total}
		}
		return types.Collection{}
	case *ast.Path:
		return e.evalPath(n)
	case *ast.Indexer:
		return e.evalIndexer(n)
	case *ast.FunctionCall:
		return e.evalFunctionCall(n)
	case *ast.UnaryOp:
		return e.evalUnary(n)
	case *ast.BinaryOp:
		return e.evalBinary(n)
	case *ast.TypeOp:
		return e.evalTypeOp(n)
	}

	return NewEvalError(ErrInvalidExpression, "unsupported node type %T", node)
}

func (e *Evaluator) evalLiteral(n *ast.Literal) interface{} {
	switch n.Kind {
	case ast.LitNull:
		return types.Collection{}
	case ast.LitBoolean:
		return types.Collection{types.NewBoolean(n.Text == "true")}
	case ast.LitString:
		return types.Collection{types.NewString(n.Text)}
	case ast.LitInteger:
		i, err := strconv.ParseInt(n.Text, 10, 64)
		if err != nil {
			return ParseError("invalid integer: " + n.Text)
		}
		return types.Collection{types.NewInteger(i)}
	case ast.LitLong:
		i, err := strconv.ParseInt(n.Text, 10, 64)
		if err != nil {
			return ParseError("invalid long: " + n.Text)
		}
		return types.Collection{types.NewLong(i)}
	case ast.LitDecimal:
		d, err := types.NewDecimal(n.Text)
		if err != nil {
			return ParseError("invalid decimal: " + n.Text)
		}
		return types.Collection{d}
	case ast.LitDate:
		d, err := types.NewDate(n.Text)
		if err != nil {
			return ParseError("invalid date: " + n.Text)
		}
		return types.Collection{d}
	case ast.LitDateTime:
		dt, err := types.NewDateTime(n.Text)
		if err != nil {
			return ParseError("invalid datetime: " + n.Text)
		}
		return types.Collection{dt}
	case ast.LitTime:
		t, err := types.NewTime(n.Text)
		if err != nil {
			return ParseError("invalid time: " + n.Text)
		}
		return types.Collection{t}
	case ast.LitQuantity:
		q, err := types.NewQuantity(fmt.Sprintf("%s '%s'", n.Text, n.Unit))
		if err != nil {
			return ParseError("invalid quantity: " + n.Text + " " + n.Unit)
		}
		return types.Collection{q}
	}
	return NewEvalError(ErrInvalidExpression, "unsupported literal kind")
}

func (e *Evaluator) evalPath(n *ast.Path) interface{} {
	base := e.eval(n.Base)
	if err, ok := base.(error); ok {
		return err
	}
	baseCol, ok := base.(types.Collection)
	if !ok {
		return types.Collection{}
	}

	oldThis := e.ctx.this
	e.ctx.this = baseCol
	defer func() { e.ctx.this = oldThis }()

	return e.eval(n.Segment)
}

func (e *Evaluator) evalIndexer(n *ast.Indexer) interface{} {
	base := e.eval(n.Target)
	if err, ok := base.(error); ok {
		return err
	}
	baseCol := base.(types.Collection)

	index := e.eval(n.Index)
	if err, ok := index.(error); ok {
		return err
	}
	indexCol := index.(types.Collection)
	if indexCol.Empty() {
		return types.Collection{}
	}

	idx, ok := indexCol[0].(types.Integer)
	if !ok {
		return TypeError("Integer", indexCol[0].Type(), "indexer")
	}

	i := int(idx.Value())
	if i < 0 || i >= len(baseCol) {
		return types.Collection{}
	}
	return types.Collection{baseCol[i]}
}

func (e *Evaluator) evalUnary(n *ast.UnaryOp) interface{} {
	result := e.eval(n.Operand)
	if err, ok := result.(error); ok {
		return err
	}
	col := result.(types.Collection)
	if col.Empty() {
		return col
	}
	if len(col) != 1 {
		return SingletonError(len(col))
	}
	if n.Op == "-" {
		negated, err := Negate(col[0])
		if err != nil {
			return err
		}
		return types.Collection{negated}
	}
	return col
}

func (e *Evaluator) evalFunctionCall(n *ast.FunctionCall) interface{} {
	fn, ok := e.funcs.Get(n.Name)
	if !ok {
		return FunctionNotFoundError(n.Name)
	}

	argCount := len(n.Args)
	if argCount < fn.MinArgs {
		return InvalidArgumentsError(n.Name, fn.MinArgs, argCount)
	}
	if fn.MaxArgs >= 0 && argCount > fn.MaxArgs {
		return InvalidArgumentsError(n.Name, fn.MaxArgs, argCount)
	}

	input := e.ctx.This()
	switch n.Name {
	case "where":
		if argCount > 0 {
			return e.evaluateWhere(input, n.Args[0])
		}
	case "exists":
		if argCount > 0 {
			return e.evaluateExists(input, n.Args[0])
		}
	case "all":
		if argCount > 0 {
			return e.evaluateAll(input, n.Args[0])
		}
	case "select":
		if argCount > 0 {
			return e.evaluateSelect(input, n.Args[0])
		}
	case "repeat":
		if argCount > 0 {
			return e.evaluateRepeat(input, n.Args[0])
		}
	case "ofType":
		if argCount > 0 {
			return e.evaluateOfType(input, n.Args[0])
		}
	case "iif":
		if argCount >= 2 {
			return e.evaluateIif(n.Args)
		}
	case "aggregate":
		if argCount > 0 {
			var initExpr ast.Node
			if argCount > 1 {
				initExpr = n.Args[1]
			}
			return e.evaluateAggregate(input, n.Args[0], initExpr)
		}
	case "sort":
		return e.evaluateSort(input, n.Args)
	case "is", "as":
		if argCount > 0 {
			if typeName := extractTypeName(n.Args[0]); typeName != "" {
				result, err := fn.Fn(e.ctx, input, []interface{}{typeName})
				if err != nil {
					return err
				}
				return result
			}
		}
	}

	args := make([]interface{}, argCount)
	for i, argExpr := range n.Args {
		result := e.eval(argExpr)
		if err, ok := result.(error); ok {
			return err
		}
		args[i] = result
	}

	result, err := fn.Fn(e.ctx, e.ctx.This(), args)
	if err != nil {
		return err
	}
	return result
}

// withLambda runs body for each element of input with $this/$index bound,
// restoring the prior context afterward. body returns (collection, stop).
func (e *Evaluator) withLambda(input types.Collection, body func(i int, item types.Value) (interface{}, bool)) interface{} {
	oldThis, oldIndex := e.ctx.this, e.ctx.index
	defer func() {
		e.ctx.this = oldThis
		e.ctx.index = oldIndex
	}()

	for i, item := range input {
		if err := e.ctx.CheckCancellation(); err != nil {
			return err
		}
		e.ctx.this = types.Collection{item}
		e.ctx.index = i
		if result, stop := body(i, item); stop {
			return result
		}
	}
	return nil
}

func criteriaIsTrue(result interface{}) (bool, error) {
	if err, ok := result.(error); ok {
		return false, err
	}
	col, ok := result.(types.Collection)
	if !ok || len(col) != 1 {
		return false, nil
	}
	b, ok := col[0].(types.Boolean)
	return ok && b.Bool(), nil
}

func (e *Evaluator) evaluateWhere(input types.Collection, criteria ast.Node) interface{} {
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return err
	}
	result := types.Collection{}
	stopped := e.withLambda(input, func(i int, item types.Value) (interface{}, bool) {
		res := e.eval(criteria)
		ok, err := criteriaIsTrue(res)
		if err != nil {
			return err, true
		}
		if ok {
			result = append(result, item)
		}
		return nil, false
	})
	if stopped != nil {
		return stopped
	}
	return result
}

func (e *Evaluator) evaluateExists(input types.Collection, criteria ast.Node) interface{} {
	found := false
	stopped := e.withLambda(input, func(i int, item types.Value) (interface{}, bool) {
		res := e.eval(criteria)
		ok, err := criteriaIsTrue(res)
		if err != nil {
			return err, true
		}
		if ok {
			found = true
			return nil, true
		}
		return nil, false
	})
	if stopped != nil {
		return stopped
	}
	return types.Collection{types.NewBoolean(found)}
}

func (e *Evaluator) evaluateAll(input types.Collection, criteria ast.Node) interface{} {
	if input.Empty() {
		return types.Collection{types.NewBoolean(true)}
	}
	allTrue := true
	stopped := e.withLambda(input, func(i int, item types.Value) (interface{}, bool) {
		res := e.eval(criteria)
		ok, err := criteriaIsTrue(res)
		if err != nil {
			return err, true
		}
		if !ok {
			allTrue = false
			return nil, true
		}
		return nil, false
	})
	if stopped != nil {
		return stopped
	}
	return types.Collection{types.NewBoolean(allTrue)}
}

func (e *Evaluator) evaluateSelect(input types.Collection, projection ast.Node) interface{} {
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return err
	}
	result := types.Collection{}
	stopped := e.withLambda(input, func(i int, item types.Value) (interface{}, bool) {
		res := e.eval(projection)
		if err, ok := res.(error); ok {
			return err, true
		}
		if col, ok := res.(types.Collection); ok {
			result = append(result, col...)
			if err := e.ctx.CheckCollectionSize(result); err != nil {
				return err, true
			}
		}
		return nil, false
	})
	if stopped != nil {
		return stopped
	}
	return result
}

// evaluateRepeat applies projection repeatedly until no new items appear,
// accumulating the union of all intermediate results (breadth-first).
func (e *Evaluator) evaluateRepeat(input types.Collection, projection ast.Node) interface{} {
	seen := map[string]bool{}
	result := types.Collection{}
	frontier := input

	for len(frontier) > 0 {
		if err := e.ctx.CheckCollectionSize(result); err != nil {
			return err
		}
		next := types.Collection{}
		stopped := e.withLambda(frontier, func(i int, item types.Value) (interface{}, bool) {
			res := e.eval(projection)
			if err, ok := res.(error); ok {
				return err, true
			}
			if col, ok := res.(types.Collection); ok {
				next = append(next, col...)
			}
			return nil, false
		})
		if stopped != nil {
			return stopped
		}

		fresh := types.Collection{}
		for _, v := range next {
			k := visitKey(v)
			if !seen[k] {
				seen[k] = true
				fresh = append(fresh, v)
				result = append(result, v)
			}
		}
		frontier = fresh
	}

	return result
}

// visitKey produces repeat()'s fixed-point membership key: pointer identity
// for Resources (so two structurally-identical-but-distinct JSON nodes are
// never conflated), and a type-tagged canonical string for scalars (so
// Decimal values built from different shopspring/decimal.Decimal instances
// with equal numeric value still collapse to one key, which raw interface
// equality on types.Value would not guarantee).
func visitKey(v types.Value) string {
	if obj, ok := v.(*types.ObjectValue); ok {
		return fmt.Sprintf("res:%p", obj)
	}
	return v.Type() + ":" + v.String()
}

func (e *Evaluator) evaluateOfType(input types.Collection, typeExpr ast.Node) interface{} {
	if input.Empty() {
		return types.Collection{}
	}
	typeName := extractTypeName(typeExpr)
	if typeName == "" {
		return InvalidArgumentsError("ofType", 1, 0)
	}

	result := types.Collection{}
	for _, item := range input {
		matches := TypeMatches(item.Type(), typeName)
		if !matches && e.ctx.provider != nil {
			if ok, err := e.ctx.provider.IsSubtypeOf(e.ctx.Context(), item.Type(), typeName); err == nil {
				matches = ok
			}
		}
		if matches {
			result = append(result, item)
		}
	}
	return result
}

// extractTypeName recovers a dotted type name (e.g. FHIR.Patient) from a
// parsed expression node used as a type-name argument to ofType().
func extractTypeName(n ast.Node) string {
	switch t := n.(type) {
	case *ast.Identifier:
		return t.Name
	case *ast.Path:
		base := extractTypeName(t.Base)
		if id, ok := t.Segment.(*ast.Identifier); ok {
			if base != "" {
				return base + "." + id.Name
			}
			return id.Name
		}
	}
	return ""
}

func (e *Evaluator) evaluateIif(argExprs []ast.Node) interface{} {
	if len(argExprs) < 2 {
		return InvalidArgumentsError("iif", 2, len(argExprs))
	}

	criterionResult := e.eval(argExprs[0])
	ok, err := criteriaIsTrue(criterionResult)
	if err != nil {
		return err
	}

	if ok {
		result := e.eval(argExprs[1])
		if err, ok := result.(error); ok {
			return err
		}
		if coll, ok := result.(types.Collection); ok {
			return coll
		}
		return types.Collection{}
	}

	if len(argExprs) > 2 {
		result := e.eval(argExprs[2])
		if err, ok := result.(error); ok {
			return err
		}
		if coll, ok := result.(types.Collection); ok {
			return coll
		}
	}
	return types.Collection{}
}

// evaluateAggregate implements aggregate(aggregator[, init]): $total starts
// at init (or Empty), then for each element $this/$index/$total are bound
// and aggregator's result becomes the next $total. The final $total is the
// result. The parent's $total binding (if any, for nested aggregate calls)
// is restored on return so it never leaks, per spec.md's child-context rule.
func (e *Evaluator) evaluateAggregate(input types.Collection, aggregator, initExpr ast.Node) interface{} {
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return err
	}

	oldTotal := e.ctx.total
	defer func() { e.ctx.total = oldTotal }()

	e.ctx.total = nil
	if initExpr != nil {
		res := e.eval(initExpr)
		if err, ok := res.(error); ok {
			return err
		}
		if col, ok := res.(types.Collection); ok && len(col) > 0 {
			e.ctx.total = col[0]
		}
	}

	stopped := e.withLambda(input, func(_ int, _ types.Value) (interface{}, bool) {
		res := e.eval(aggregator)
		if err, ok := res.(error); ok {
			return err, true
		}
		if col, ok := res.(types.Collection); ok && len(col) > 0 {
			e.ctx.total = col[0]
		} else {
			e.ctx.total = nil
		}
		return nil, false
	})
	if stopped != nil {
		return stopped
	}

	if e.ctx.total == nil {
		return types.Collection{}
	}
	return types.Collection{e.ctx.total}
}

// sortItem pairs a collection element with its evaluated sort keys so the
// expensive per-element lambda evaluation happens exactly once.
type sortItem struct {
	value types.Value
	keys  []types.Value
}

// evaluateSort implements sort([key...]): stable multi-key sort, each key
// expression evaluated per element with $this/$index bound. With no keys,
// elements sort by their own natural Comparable order. Within a key, an
// Empty result sorts first; ties fall through to the next key, then to
// original order via sort.SliceStable.
func (e *Evaluator) evaluateSort(input types.Collection, keyExprs []ast.Node) interface{} {
	if err := e.ctx.CheckCollectionSize(input); err != nil {
		return err
	}
	if len(input) < 2 {
		return input
	}

	items := make([]sortItem, len(input))
	stopped := e.withLambda(input, func(i int, item types.Value) (interface{}, bool) {
		if len(keyExprs) == 0 {
			items[i] = sortItem{value: item, keys: []types.Value{item}}
			return nil, false
		}
		keys := make([]types.Value, len(keyExprs))
		for k, expr := range keyExprs {
			res := e.eval(expr)
			if err, ok := res.(error); ok {
				return err, true
			}
			if col, ok := res.(types.Collection); ok && len(col) > 0 {
				keys[k] = col[0]
			}
		}
		items[i] = sortItem{value: item, keys: keys}
		return nil, false
	})
	if stopped != nil {
		return stopped
	}

	sort.SliceStable(items, func(a, b int) bool {
		for k := range items[a].keys {
			va, vb := items[a].keys[k], items[b].keys[k]
			if va == nil || vb == nil {
				if (va == nil) == (vb == nil) {
					continue
				}
				return va == nil
			}
			cmp, err := Compare(va, vb)
			if err != nil || cmp == 0 {
				continue
			}
			return cmp < 0
		}
		return false
	})

	result := make(types.Collection, len(items))
	for i, it := range items {
		result[i] = it.value
	}
	return result
}

func (e *Evaluator) evalBinary(n *ast.BinaryOp) interface{} {
	left := e.eval(n.Left)
	if err, ok := left.(error); ok {
		return err
	}
	leftCol := left.(types.Collection)

	// 'and'/'or'/'implies' use three-valued logic over whole collections and
	// must still evaluate the right side even when the left is empty.
	right := e.eval(n.Right)
	if err, ok := right.(error); ok {
		return err
	}
	rightCol := right.(types.Collection)

	switch n.Op {
	case "&":
		return Concatenate(leftCol, rightCol)
	case "|":
		return Union(leftCol, rightCol)
	case "=":
		return Equal(leftCol, rightCol)
	case "!=":
		return NotEqual(leftCol, rightCol)
	case "~":
		return Equivalent(leftCol, rightCol)
	case "!~":
		return NotEquivalent(leftCol, rightCol)
	case "in":
		return In(leftCol, rightCol)
	case "contains":
		return Contains(leftCol, rightCol)
	case "and":
		return And(leftCol, rightCol)
	case "or":
		return Or(leftCol, rightCol)
	case "xor":
		return Xor(leftCol, rightCol)
	case "implies":
		return Implies(leftCol, rightCol)
	}

	// Remaining operators are strict: empty or non-singleton operands short-circuit.
	if leftCol.Empty() || rightCol.Empty() {
		return types.Collection{}
	}
	if len(leftCol) != 1 || len(rightCol) != 1 {
		return SingletonError(len(leftCol) + len(rightCol))
	}

	switch n.Op {
	case "+":
		v, err := Add(leftCol[0], rightCol[0])
		return wrap(v, err)
	case "-":
		v, err := Subtract(leftCol[0], rightCol[0])
		return wrap(v, err)
	case "*":
		v, err := Multiply(leftCol[0], rightCol[0])
		return wrap(v, err)
	case "/":
		if isZeroDivisor(rightCol[0]) {
			return types.Collection{}
		}
		v, err := Divide(leftCol[0], rightCol[0])
		return wrap(v, err)
	case "div":
		if isZeroDivisor(rightCol[0]) {
			return types.Collection{}
		}
		v, err := IntegerDivide(leftCol[0], rightCol[0])
		return wrap(v, err)
	case "mod":
		if isZeroDivisor(rightCol[0]) {
			return types.Collection{}
		}
		v, err := Modulo(leftCol[0], rightCol[0])
		return wrap(v, err)
	case "<":
		col, err := LessThan(leftCol[0], rightCol[0])
		return wrapCol(col, err)
	case "<=":
		col, err := LessOrEqual(leftCol[0], rightCol[0])
		return wrapCol(col, err)
	case ">":
		col, err := GreaterThan(leftCol[0], rightCol[0])
		return wrapCol(col, err)
	case ">=":
		col, err := GreaterOrEqual(leftCol[0], rightCol[0])
		return wrapCol(col, err)
	}

	return types.Collection{}
}

// isZeroDivisor reports whether v is a numeric zero, so that '/', 'div' and
// 'mod' can yield Empty rather than an evaluation error per FHIRPath's
// division-by-zero semantics.
func isZeroDivisor(v types.Value) bool {
	switch n := v.(type) {
	case types.Integer:
		return n.Value() == 0
	case types.Long:
		return n.Value() == 0
	case types.Decimal:
		return n.Value().IsZero()
	case types.Quantity:
		return n.Value().IsZero()
	}
	return false
}

func wrap(v types.Value, err error) interface{} {
	if err != nil {
		return err
	}
	return types.Collection{v}
}

func wrapCol(col types.Collection, err error) interface{} {
	if err != nil {
		return err
	}
	return col
}

func (e *Evaluator) evalTypeOp(n *ast.TypeOp) interface{} {
	left := e.eval(n.Expr)
	if err, ok := left.(error); ok {
		return err
	}
	leftCol := left.(types.Collection)

	if leftCol.Empty() {
		return types.Collection{}
	}
	if len(leftCol) != 1 {
		return SingletonError(len(leftCol))
	}

	typeName := n.Target.Name
	if n.Target.Namespace != "" {
		typeName = n.Target.Namespace + "." + n.Target.Name
	}
	actualType := leftCol[0].Type()

	matches := TypeMatches(actualType, typeName)
	if !matches && e.ctx.provider != nil {
		if ok, err := e.ctx.provider.IsSubtypeOf(e.ctx.Context(), actualType, typeName); err == nil {
			matches = ok
		}
	}

	switch n.Op {
	case "is":
		return types.Collection{types.NewBoolean(matches)}
	case "as":
		if matches {
			return leftCol
		}
		return types.Collection{}
	}
	return types.Collection{}
}

// nonDomainResources contains FHIR resources that inherit directly from Resource,
// not from DomainResource. All other resources inherit from DomainResource.
var nonDomainResources = map[string]bool{
	"Bundle":     true,
	"Binary":     true,
	"Parameters": true,
}

// IsDomainResource returns true if the given resource type inherits from DomainResource.
func IsDomainResource(resourceType string) bool {
	return !nonDomainResources[resourceType]
}

// IsSubtypeOf checks if actualType is a subtype of (or equal to) baseType.
func IsSubtypeOf(actualType, baseType string) bool {
	if actualType == baseType {
		return true
	}
	if strings.EqualFold(actualType, baseType) {
		return true
	}
	if baseType == "Resource" || strings.EqualFold(baseType, "resource") {
		return isPossibleResourceType(actualType)
	}
	if baseType == "DomainResource" || strings.EqualFold(baseType, "domainresource") {
		return isPossibleResourceType(actualType) && IsDomainResource(actualType)
	}
	return false
}

func isPossibleResourceType(typeName string) bool {
	if typeName == "" {
		return false
	}
	primitiveTypes := map[string]bool{
		"Boolean": true, "String": true, "Integer": true, "Long": true, "Decimal": true,
		"Date": true, "DateTime": true, "Time": true, "Quantity": true,
		"Object": true,
	}
	if primitiveTypes[typeName] {
		return false
	}
	return typeName[0] >= 'A' && typeName[0] <= 'Z'
}

// TypeMatches checks if actualType matches the requested typeName.
func TypeMatches(actualType, typeName string) bool {
	if actualType == typeName {
		return true
	}
	actualLower := strings.ToLower(actualType)
	typeNameLower := strings.ToLower(typeName)
	if actualLower == typeNameLower {
		return true
	}
	if IsSubtypeOf(actualType, typeName) {
		return true
	}

	fhirToFHIRPath := map[string]string{
		"boolean": "Boolean", "string": "String", "integer": "Integer", "decimal": "Decimal",
		"date": "Date", "datetime": "DateTime", "time": "Time", "instant": "DateTime",
		"uri": "String", "url": "String", "canonical": "String", "base64binary": "String",
		"code": "String", "id": "String", "markdown": "String", "oid": "String", "uuid": "String",
		"positiveint": "Integer", "unsignedint": "Integer", "integer64": "Long",
		"quantity": "Quantity", "simplequantity": "Quantity", "age": "Quantity", "count": "Quantity",
		"distance": "Quantity", "duration": "Quantity", "money": "Quantity",
	}

	if fhirPathType, ok := fhirToFHIRPath[typeNameLower]; ok && actualType == fhirPathType {
		return true
	}
	if fhirPathType, ok := fhirToFHIRPath[actualLower]; ok {
		if fhirPathType == typeName || strings.EqualFold(fhirPathType, typeName) {
			return true
		}
	}
	if strings.HasPrefix(typeNameLower, "system.") {
		systemType := typeName[7:]
		if strings.EqualFold(actualType, systemType) {
			return true
		}
	}
	if strings.HasPrefix(typeNameLower, "fhir.") {
		fhirType := typeName[5:]
		if strings.EqualFold(actualType, fhirType) {
			return true
		}
	}
	return false
}

// polymorphicTypeSuffixes contains all FHIR type suffixes for polymorphic elements (value[x] pattern).
var polymorphicTypeSuffixes = []string{
	"Boolean", "Integer", "Integer64", "Decimal", "String", "Code", "Id", "Uri", "Url", "Canonical",
	"Base64Binary", "Instant", "Date", "DateTime", "Time", "Oid", "Uuid", "Markdown", "PositiveInt", "UnsignedInt",
	"Quantity", "CodeableConcept", "Coding", "Range", "Period", "Ratio", "RatioRange",
	"Identifier", "Reference", "Attachment", "HumanName", "Address", "ContactPoint",
	"Timing", "Signature", "Annotation", "SampledData", "Age", "Distance", "Duration",
	"Count", "Money", "MoneyQuantity", "SimpleQuantity",
	"Meta", "Dosage", "ContactDetail", "Contributor", "DataRequirement", "Expression",
	"ParameterDefinition", "RelatedArtifact", "TriggerDefinition", "UsageContext",
}

// navigateMember navigates to a member of objects in the collection.
// Supports FHIR polymorphic elements (value[x] pattern) by automatically
// resolving element names like "value" to their typed variants.
func (e *Evaluator) navigateMember(input types.Collection, name string) types.Collection {
	result := types.Collection{}

	for _, item := range input {
		if q, ok := item.(types.Quantity); ok {
			if member, ok := quantityMember(q, name); ok {
				result = append(result, member)
			}
			continue
		}

		obj, ok := item.(*types.ObjectValue)
		if !ok {
			continue
		}

		if IsSubtypeOf(obj.Type(), name) {
			result = append(result, obj)
			continue
		}

		children := obj.GetCollection(name)
		if len(children) > 0 {
			result = append(result, children...)
			continue
		}

		result = append(result, e.resolvePolymorphicField(obj, name)...)
	}

	return result
}

// quantityMember resolves the handful of properties FHIRPath lets you
// navigate off a Quantity literal or expression result (e.g. the ".value"
// in `(2'm'*3'm').value`); Quantity isn't backed by JSON so it can't go
// through ObjectValue.GetCollection like a resource element would.
func quantityMember(q types.Quantity, name string) (types.Value, bool) {
	switch name {
	case "value":
		return types.NewDecimalFromDecimal(q.Value()), true
	case "unit", "code":
		return types.NewString(q.Unit()), true
	case "system":
		return types.NewString("http://unitsofmeasure.org"), true
	default:
		return nil, false
	}
}

// resolvePolymorphicField attempts to resolve a polymorphic FHIR element.
func (e *Evaluator) resolvePolymorphicField(obj *types.ObjectValue, name string) types.Collection {
	for _, suffix := range polymorphicTypeSuffixes {
		children := obj.GetCollection(name + suffix)
		if len(children) > 0 {
			return children
		}
	}
	return types.Collection{}
}
