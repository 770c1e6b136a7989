package fhirpath

import (
	"context"
	"time"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/types"
)

// ReferenceResolver resolves a FHIR reference string (e.g. "Patient/123",
// "urn:uuid:...") to the referenced resource's JSON, backing the resolve()
// function for references that escape the evaluated document (Bundle/
// contained references are resolved internally and need no resolver).
type ReferenceResolver interface {
	Resolve(ctx context.Context, reference string) ([]byte, error)
}

// EvalOptions configures one call to Expression.EvaluateWithOptions. Build
// one via DefaultOptions and the With* functional options below rather than
// constructing the struct directly, since the zero value's Ctx is nil.
type EvalOptions struct {
	Ctx               context.Context
	Timeout           time.Duration // 0 disables the deadline
	MaxDepth          int           // stored as the context's "maxDepth" limit; nothing reads it, so descendants() is not depth-limited
	MaxCollectionSize int           // 0 disables the cap
	Variables         map[string]types.Collection
	Resolver          ReferenceResolver
}

// DefaultOptions returns the baseline every EvaluateWithOptions call starts
// from before applying its EvalOptions.
func DefaultOptions() *EvalOptions {
	return &EvalOptions{
		Ctx:               context.Background(),
		Timeout:           5 * time.Second,
		MaxDepth:          100,
		MaxCollectionSize: 10000,
		Variables:         make(map[string]types.Collection),
	}
}

// EvalOption mutates an in-progress EvalOptions; see WithContext,
// WithTimeout, WithMaxDepth, WithMaxCollectionSize, WithVariable, and
// WithResolver.
type EvalOption func(*EvalOptions)

func WithContext(ctx context.Context) EvalOption {
	return func(o *EvalOptions) { o.Ctx = ctx }
}

func WithTimeout(d time.Duration) EvalOption {
	return func(o *EvalOptions) { o.Timeout = d }
}

func WithMaxDepth(depth int) EvalOption {
	return func(o *EvalOptions) { o.MaxDepth = depth }
}

func WithMaxCollectionSize(size int) EvalOption {
	return func(o *EvalOptions) { o.MaxCollectionSize = size }
}

// WithVariable binds name to value so the expression can read it as %name.
func WithVariable(name string, value types.Collection) EvalOption {
	return func(o *EvalOptions) {
		if o.Variables == nil {
			o.Variables = make(map[string]types.Collection)
		}
		o.Variables[name] = value
	}
}

func WithResolver(r ReferenceResolver) EvalOption {
	return func(o *EvalOptions) { o.Resolver = r }
}

// EvaluateWithOptions runs e against resource after layering opts onto
// DefaultOptions, wiring the resulting timeout/variables/limits/resolver
// into a fresh eval.Context.
func (e *Expression) EvaluateWithOptions(resource []byte, opts ...EvalOption) (types.Collection, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	ctx := options.Ctx
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	evalCtx := eval.NewContext(resource)
	for name, value := range options.Variables {
		evalCtx.SetVariable(name, value)
	}
	evalCtx.SetLimit("maxDepth", options.MaxDepth)
	evalCtx.SetLimit("maxCollectionSize", options.MaxCollectionSize)
	evalCtx.SetContext(ctx)
	if options.Resolver != nil {
		evalCtx.SetResolver(resolverAdapter{options.Resolver})
	}

	return e.EvaluateWithContext(evalCtx)
}

// resolverAdapter satisfies eval.Resolver in terms of the public
// ReferenceResolver interface, keeping the eval package's resolver contract
// free of a dependency back on the root package's types.
type resolverAdapter struct {
	resolver ReferenceResolver
}

func (a resolverAdapter) Resolve(ctx context.Context, reference string) ([]byte, error) {
	return a.resolver.Resolve(ctx, reference)
}
